// Package report renders grid-search results as charts.
package report

import (
	"fmt"
	"image/color"
	"math"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/sasmita-sabat/censusml/model_selection"
	"github.com/sasmita-sabat/censusml/pkg/errors"
	"github.com/sasmita-sabat/censusml/pkg/log"
)

var (
	barColor  = color.RGBA{R: 70, G: 110, B: 180, A: 255}
	bestColor = color.RGBA{R: 220, G: 120, B: 40, A: 255}
)

// stdBars draws ±StdTestScore around each candidate's mean.
type stdBars struct {
	plotter.XYs
	plotter.YErrors
}

// SaveScores writes a bar chart of mean CV score per candidate to path. The
// rank-1 candidates are highlighted and each bar carries a ±std whisker. The
// image format follows the file extension (png, svg, pdf, ...). Candidates
// whose score is NaN are drawn at zero.
func SaveScores(results []model_selection.CandidateResult, title, path string) error {
	if len(results) == 0 {
		return errors.NewModelError("report.SaveScores", "no candidates", errors.ErrEmptyData)
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if ext == "" {
		return errors.NewValidationError("plot", "path needs an image extension", path)
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Candidate"
	p.Y.Label.Text = "Mean CV accuracy"
	p.Y.Min = 0
	p.Y.Max = 1

	w := vg.Points(float64(max(4, 120/len(results))))
	normal := make(plotter.Values, len(results))
	best := make(plotter.Values, len(results))
	whiskers := stdBars{
		XYs:     make(plotter.XYs, len(results)),
		YErrors: make(plotter.YErrors, len(results)),
	}
	names := make([]string, len(results))
	for i, r := range results {
		score, std := r.MeanTestScore, r.StdTestScore
		if math.IsNaN(score) {
			score = 0
		}
		if math.IsNaN(std) {
			std = 0
		}
		if r.Rank == 1 {
			best[i] = score
		} else {
			normal[i] = score
		}
		whiskers.XYs[i] = plotter.XY{X: float64(i), Y: score}
		whiskers.YErrors[i] = struct{ Low, High float64 }{std, std}
		names[i] = fmt.Sprint(i + 1)
	}

	nb, err := plotter.NewBarChart(normal, w)
	if err != nil {
		return errors.Wrap(err, "build bar chart")
	}
	nb.Color = barColor
	nb.LineStyle.Width = 0

	bb, err := plotter.NewBarChart(best, w)
	if err != nil {
		return errors.Wrap(err, "build bar chart")
	}
	bb.Color = bestColor
	bb.LineStyle.Width = 0

	eb, err := plotter.NewYErrorBars(whiskers)
	if err != nil {
		return errors.Wrap(err, "build error bars")
	}

	p.Add(nb, bb, eb)
	p.Legend.Add("candidate", nb)
	p.Legend.Add("best", bb)
	p.Legend.Top = true
	if len(results) <= 40 {
		p.NominalX(names...)
	}

	width := vg.Length(math.Max(6, float64(len(results))*0.3)) * vg.Inch
	if err := p.Save(width, 4*vg.Inch, path); err != nil {
		return errors.Wrapf(err, "save %s", path)
	}

	log.GetLoggerWithName("report").Info("Score chart written",
		log.PathKey, path,
		log.CandidatesKey, len(results),
	)
	return nil
}
