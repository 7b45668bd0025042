package model_selection

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"sync"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/sasmita-sabat/censusml/core/model"
	"github.com/sasmita-sabat/censusml/core/parallel"
	"github.com/sasmita-sabat/censusml/metrics"
	"github.com/sasmita-sabat/censusml/pkg/errors"
	"github.com/sasmita-sabat/censusml/pkg/log"
)

// Scorer scores predictions against the true labels; higher is better.
type Scorer func(yTrue, yPred mat.Matrix) (float64, error)

// CandidateResult holds the cross-validation outcome of one parameter set.
type CandidateResult struct {
	Params        map[string]interface{}
	SplitScores   []float64
	MeanTestScore float64
	StdTestScore  float64
	MeanFitTime   time.Duration
	MeanScoreTime time.Duration
	Rank          int
}

// GridSearchCV は全パラメータ候補を交差検証で評価し、最良の候補で再学習する
//
// 各 (候補, fold) の学習は推定器の Clone に対して行われ、nJobs で並列度を制限する。
type GridSearchCV struct {
	estimator model.Classifier
	grid      ParamGrid
	cv        Splitter
	scoring   Scorer
	nJobs     int
	verbose   int
	out       io.Writer

	results       []CandidateResult
	bestIndex     int
	bestEstimator model.Classifier
	refitTime     time.Duration
	fitted        bool
}

// SearchOption configures a GridSearchCV.
type SearchOption func(*GridSearchCV)

// WithCV sets the splitter. Default: 3 stratified folds without shuffling.
func WithCV(cv Splitter) SearchOption {
	return func(g *GridSearchCV) { g.cv = cv }
}

// WithScoring replaces accuracy as the selection score.
func WithScoring(s Scorer) SearchOption {
	return func(g *GridSearchCV) { g.scoring = s }
}

// WithNJobs bounds the number of concurrent fits; -1 uses every CPU. Default 1.
func WithNJobs(n int) SearchOption {
	return func(g *GridSearchCV) { g.nJobs = n }
}

// WithVerbose prints the fit plan at 1 and one line per fit at 2 or more.
func WithVerbose(level int) SearchOption {
	return func(g *GridSearchCV) { g.verbose = level }
}

// WithOutput sets where verbose progress is written. Default os.Stdout.
func WithOutput(w io.Writer) SearchOption {
	return func(g *GridSearchCV) { g.out = w }
}

// NewGridSearchCV creates a search over grid for estimator. The estimator
// itself is never fitted; it is only cloned.
func NewGridSearchCV(estimator model.Classifier, grid ParamGrid, opts ...SearchOption) *GridSearchCV {
	g := &GridSearchCV{
		estimator: estimator,
		grid:      grid,
		cv:        NewStratifiedKFold(3, false, 0),
		scoring:   metrics.AccuracyMatrix,
		nJobs:     1,
		out:       os.Stdout,
		bestIndex: -1,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

type foldData struct {
	trainX, trainY, testX, testY *mat.Dense
}

// Fit evaluates every candidate on every fold, then refits the best
// candidate on all of X. The best candidate has the highest mean fold score;
// ties go to the lowest candidate index. A cancelled ctx stops scheduling
// further fits and Fit returns ctx.Err().
func (g *GridSearchCV) Fit(ctx context.Context, X, y mat.Matrix) error {
	const op = "GridSearchCV.Fit"
	if g.estimator == nil {
		return errors.NewValueError(op, "nil estimator")
	}
	if _, _, err := model.CheckXY(op, X, y); err != nil {
		return err
	}
	g.fitted = false

	candidates := ParameterGrid(g.grid)
	for i, params := range candidates {
		if err := g.estimator.Clone().SetParams(params); err != nil {
			return errors.Wrapf(err, "candidate %d (%s)", i, FormatParams(params))
		}
	}

	folds, err := g.cv.Split(X, y)
	if err != nil {
		return errors.Wrap(err, "cross-validation split")
	}
	nCand, nFolds := len(candidates), len(folds)

	Xd := mat.DenseCopyOf(X)
	yd := mat.DenseCopyOf(y)
	data := make([]foldData, nFolds)
	for f, fold := range folds {
		if len(fold.TrainIndices) == 0 || len(fold.TestIndices) == 0 {
			return errors.NewValueError(op, fmt.Sprintf("fold %d has an empty train or test set", f))
		}
		data[f].trainX, data[f].trainY = subset(Xd, yd, fold.TrainIndices)
		data[f].testX, data[f].testY = subset(Xd, yd, fold.TestIndices)
	}

	logger := log.GetLoggerWithName("model_selection").With(
		log.ModelNameKey, fmt.Sprintf("%T", g.estimator),
		log.CandidatesKey, nCand,
		log.FoldsKey, nFolds,
		log.JobsKey, parallel.Workers(g.nJobs),
	)
	logger.Info("Grid search started")
	if g.verbose > 0 {
		fmt.Fprintf(g.out, "Fitting %d folds for each of %d candidates, totalling %d fits\n",
			nFolds, nCand, nFolds*nCand)
	}

	scores := make([][]float64, nCand)
	fitTimes := make([][]time.Duration, nCand)
	scoreTimes := make([][]time.Duration, nCand)
	for c := range scores {
		scores[c] = make([]float64, nFolds)
		fitTimes[c] = make([]time.Duration, nFolds)
		scoreTimes[c] = make([]time.Duration, nFolds)
	}

	var outMu sync.Mutex
	err = parallel.Run(ctx, nCand*nFolds, g.nJobs, func(ctx context.Context, task int) error {
		c, f := task/nFolds, task%nFolds
		score, fitTime, scoreTime, err := g.fitAndScore(candidates[c], data[f])
		if err != nil {
			return errors.Wrapf(err, "candidate %d fold %d", c, f)
		}
		scores[c][f], fitTimes[c][f], scoreTimes[c][f] = score, fitTime, scoreTime

		logger.Debug("Fold scored", log.CandidateKey, c, log.FoldKey, f, log.ScoreKey, score)
		if g.verbose > 1 {
			outMu.Lock()
			fmt.Fprintf(g.out, "[CV %d/%d] END %s;, score=%.3f total time=%6.1fs\n",
				f+1, nFolds, FormatParams(candidates[c]), score, (fitTime + scoreTime).Seconds())
			outMu.Unlock()
		}
		return nil
	})
	if err != nil {
		logger.Error("Grid search failed", err)
		return err
	}

	g.results = summarize(candidates, scores, fitTimes, scoreTimes)
	g.bestIndex = bestCandidate(g.results)

	if err := ctx.Err(); err != nil {
		return err
	}
	best := g.estimator.Clone()
	if err := best.SetParams(candidates[g.bestIndex]); err != nil {
		return err
	}
	start := time.Now()
	if err := refit(best, Xd, yd); err != nil {
		return errors.Wrap(err, "refit best candidate")
	}
	g.refitTime = time.Since(start)
	g.bestEstimator = best
	g.fitted = true

	logger.Info("Grid search finished",
		log.HyperParamsKey, FormatParams(candidates[g.bestIndex]),
		log.ScoreKey, g.results[g.bestIndex].MeanTestScore,
		log.DurationMsKey, g.refitTime.Milliseconds(),
	)
	return nil
}

func refit(est model.Classifier, X, y *mat.Dense) (err error) {
	defer errors.Recover(&err, "GridSearchCV.refit")
	return est.Fit(X, y)
}

// fitAndScore fits a fresh clone on one fold. Panics inside the estimator
// are returned as errors.
func (g *GridSearchCV) fitAndScore(params map[string]interface{}, d foldData) (score float64, fitTime, scoreTime time.Duration, err error) {
	defer errors.Recover(&err, "GridSearchCV.fitAndScore")

	est := g.estimator.Clone()
	if err = est.SetParams(params); err != nil {
		return 0, 0, 0, err
	}
	start := time.Now()
	if err = est.Fit(d.trainX, d.trainY); err != nil {
		return 0, 0, 0, err
	}
	fitTime = time.Since(start)

	start = time.Now()
	pred, err := est.Predict(d.testX)
	if err != nil {
		return 0, 0, 0, err
	}
	score, err = g.scoring(d.testY, pred)
	if err != nil {
		return 0, 0, 0, err
	}
	return score, fitTime, time.Since(start), nil
}

func summarize(candidates []map[string]interface{}, scores [][]float64, fitTimes, scoreTimes [][]time.Duration) []CandidateResult {
	results := make([]CandidateResult, len(candidates))
	for c := range candidates {
		n := float64(len(scores[c]))
		mean := 0.0
		var fitSum, scoreSum time.Duration
		for f, s := range scores[c] {
			mean += s
			fitSum += fitTimes[c][f]
			scoreSum += scoreTimes[c][f]
		}
		mean /= n
		variance := 0.0
		for _, s := range scores[c] {
			variance += (s - mean) * (s - mean)
		}
		results[c] = CandidateResult{
			Params:        candidates[c],
			SplitScores:   scores[c],
			MeanTestScore: mean,
			StdTestScore:  math.Sqrt(variance / n),
			MeanFitTime:   fitSum / time.Duration(len(scores[c])),
			MeanScoreTime: scoreSum / time.Duration(len(scores[c])),
		}
	}

	// min-rank: equal means share a rank
	order := make([]int, len(results))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return meanKey(results[order[a]]) > meanKey(results[order[b]])
	})
	for pos, idx := range order {
		if pos > 0 && meanKey(results[idx]) == meanKey(results[order[pos-1]]) {
			results[idx].Rank = results[order[pos-1]].Rank
			continue
		}
		results[idx].Rank = pos + 1
	}
	return results
}

// meanKey orders NaN means last.
func meanKey(r CandidateResult) float64 {
	if math.IsNaN(r.MeanTestScore) {
		return math.Inf(-1)
	}
	return r.MeanTestScore
}

func bestCandidate(results []CandidateResult) int {
	for i, r := range results {
		if r.Rank == 1 {
			return i
		}
	}
	return 0
}

// Predict predicts with the refitted best estimator.
func (g *GridSearchCV) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !g.fitted {
		return nil, errors.NewNotFittedError("GridSearchCV", "Predict")
	}
	return g.bestEstimator.Predict(X)
}

// Score returns the search's scorer applied to the best estimator on (X, y).
func (g *GridSearchCV) Score(X, y mat.Matrix) (float64, error) {
	pred, err := g.Predict(X)
	if err != nil {
		return 0, err
	}
	return g.scoring(y, pred)
}

// BestEstimator returns the best candidate refitted on the full data.
func (g *GridSearchCV) BestEstimator() model.Classifier {
	return g.bestEstimator
}

// BestParams returns the winning parameter set.
func (g *GridSearchCV) BestParams() map[string]interface{} {
	if g.bestIndex < 0 {
		return nil
	}
	return g.results[g.bestIndex].Params
}

// BestScore returns the mean fold score of the winning candidate.
func (g *GridSearchCV) BestScore() float64 {
	if g.bestIndex < 0 {
		return math.NaN()
	}
	return g.results[g.bestIndex].MeanTestScore
}

// BestIndex returns the index of the winning candidate, -1 before Fit.
func (g *GridSearchCV) BestIndex() int {
	return g.bestIndex
}

// CVResults returns one entry per candidate in ParameterGrid order.
func (g *GridSearchCV) CVResults() []CandidateResult {
	return g.results
}

// RefitTime is the duration of the final fit on the full data.
func (g *GridSearchCV) RefitTime() time.Duration {
	return g.refitTime
}
