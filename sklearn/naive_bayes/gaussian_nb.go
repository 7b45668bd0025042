// Package naive_bayes implements Gaussian naive Bayes.
package naive_bayes

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/sasmita-sabat/censusml/core/model"
	"github.com/sasmita-sabat/censusml/pkg/errors"
	"github.com/sasmita-sabat/censusml/pkg/log"
)

// GaussianNB はガウス分布を仮定したナイーブベイズ分類器
//
// 各クラス・各特徴量の平均と分散を保持し、PartialFit で逐次更新できる。
// 分散には数値安定性のため var_smoothing × (全特徴量の分散の最大値) を加える。
type GaussianNB struct {
	state *model.StateManager

	varSmoothing float64
	priors       []float64

	classes    []int
	classIdx   map[int]int
	classCount []float64
	theta      [][]float64 // per-class feature means
	variance   [][]float64 // per-class feature variances, epsilon included
	epsilon    float64

	nSamplesSeen int
}

// Option configures a GaussianNB.
type Option func(*GaussianNB)

// WithVarSmoothing sets the fraction of the largest feature variance added to
// every variance. Default 1e-9.
func WithVarSmoothing(v float64) Option {
	return func(nb *GaussianNB) { nb.varSmoothing = v }
}

// WithPriors fixes the class priors instead of estimating them from counts.
func WithPriors(priors []float64) Option {
	return func(nb *GaussianNB) { nb.priors = append([]float64(nil), priors...) }
}

// NewGaussianNB creates a GaussianNB.
func NewGaussianNB(opts ...Option) *GaussianNB {
	nb := &GaussianNB{
		state:        model.NewStateManager(),
		varSmoothing: 1e-9,
	}
	for _, opt := range opts {
		opt(nb)
	}
	return nb
}

// Fit discards any previous state and fits on X, y.
func (nb *GaussianNB) Fit(X, y mat.Matrix) error {
	if _, _, err := model.CheckXY("GaussianNB.Fit", X, y); err != nil {
		return err
	}
	labels, err := model.Labels("GaussianNB.Fit", y)
	if err != nil {
		return err
	}

	nb.reset()
	return nb.partialFit(X, labels, model.UniqueClasses(labels))
}

// PartialFit updates the model with one batch. classes must list every class
// on the first call and is ignored afterwards.
func (nb *GaussianNB) PartialFit(X, y mat.Matrix, classes []int) error {
	if _, _, err := model.CheckXY("GaussianNB.PartialFit", X, y); err != nil {
		return err
	}
	labels, err := model.Labels("GaussianNB.PartialFit", y)
	if err != nil {
		return err
	}
	if !nb.state.IsFitted() && len(classes) == 0 {
		return errors.NewValueError("GaussianNB.PartialFit", "classes must be passed on the first call")
	}
	return nb.partialFit(X, labels, classes)
}

func (nb *GaussianNB) reset() {
	nb.state.Reset()
	nb.classes = nil
	nb.classIdx = nil
	nb.classCount = nil
	nb.theta = nil
	nb.variance = nil
	nb.epsilon = 0
	nb.nSamplesSeen = 0
}

func (nb *GaussianNB) partialFit(X mat.Matrix, labels []int, classes []int) error {
	nSamples, nFeatures := X.Dims()

	firstCall := !nb.state.IsFitted()
	if firstCall {
		if nb.priors != nil {
			if len(nb.priors) != len(classes) {
				return errors.NewDimensionError("GaussianNB.Fit", len(classes), len(nb.priors), 0)
			}
			sum := 0.0
			for _, p := range nb.priors {
				if p < 0 {
					return errors.NewValidationError("priors", "must be non-negative", nb.priors)
				}
				sum += p
			}
			if math.Abs(sum-1) > 1e-8 {
				return errors.NewValidationError("priors", "must sum to 1", nb.priors)
			}
		}
		nb.classes = append([]int(nil), classes...)
		nb.classIdx = model.ClassIndex(nb.classes)
		nb.classCount = make([]float64, len(classes))
		nb.theta = make([][]float64, len(classes))
		nb.variance = make([][]float64, len(classes))
		for k := range classes {
			nb.theta[k] = make([]float64, nFeatures)
			nb.variance[k] = make([]float64, nFeatures)
		}
	} else if err := nb.state.RequireFeatures("GaussianNB.PartialFit", nFeatures); err != nil {
		return err
	}

	// epsilon is recomputed per batch; the previous one is removed first
	col := make([]float64, nSamples)
	maxVar := 0.0
	for j := 0; j < nFeatures; j++ {
		mat.Col(col, j, X)
		_, v := stat.PopMeanVariance(col, nil)
		if v > maxVar {
			maxVar = v
		}
	}
	if !firstCall {
		for k := range nb.variance {
			for j := range nb.variance[k] {
				nb.variance[k][j] -= nb.epsilon
			}
		}
	}
	nb.epsilon = nb.varSmoothing * maxVar

	rows := make([][]int, len(nb.classes))
	for i, l := range labels {
		k, ok := nb.classIdx[l]
		if !ok {
			return errors.NewValidationError("y", fmt.Sprintf("label %d not in classes %v", l, nb.classes), l)
		}
		rows[k] = append(rows[k], i)
	}

	for k, idx := range rows {
		if len(idx) == 0 {
			continue
		}
		nNew := float64(len(idx))
		nPast := nb.classCount[k]
		nTotal := nPast + nNew

		for j := 0; j < nFeatures; j++ {
			vals := make([]float64, len(idx))
			for r, i := range idx {
				vals[r] = X.At(i, j)
			}
			muNew, varNew := stat.PopMeanVariance(vals, nil)

			if nPast == 0 {
				nb.theta[k][j] = muNew
				nb.variance[k][j] = varNew
				continue
			}
			muOld, varOld := nb.theta[k][j], nb.variance[k][j]
			d := muOld - muNew
			ssd := nPast*varOld + nNew*varNew + nNew*nPast/nTotal*d*d
			nb.theta[k][j] = (nPast*muOld + nNew*muNew) / nTotal
			nb.variance[k][j] = ssd / nTotal
		}
		nb.classCount[k] = nTotal
	}

	for k := range nb.variance {
		for j := range nb.variance[k] {
			nb.variance[k][j] += nb.epsilon
		}
	}

	nb.nSamplesSeen += nSamples
	nb.state.SetDimensions(nFeatures, nb.nSamplesSeen)
	nb.state.SetFitted()

	log.GetLoggerWithName("naive_bayes").Debug("GaussianNB batch fitted",
		log.ModelNameKey, "GaussianNB",
		log.SamplesKey, nSamples,
		log.FeaturesKey, nFeatures,
		log.ClassesKey, len(nb.classes),
	)
	return nil
}

func (nb *GaussianNB) logPriors() []float64 {
	out := make([]float64, len(nb.classes))
	if nb.priors != nil {
		for k, p := range nb.priors {
			out[k] = math.Log(p)
		}
		return out
	}
	total := 0.0
	for _, c := range nb.classCount {
		total += c
	}
	for k, c := range nb.classCount {
		out[k] = math.Log(c / total)
	}
	return out
}

// jointLogLikelihood returns log P(c) + log P(x|c) for every sample and class.
func (nb *GaussianNB) jointLogLikelihood(op string, X mat.Matrix) (*mat.Dense, error) {
	if err := nb.state.RequireFitted("GaussianNB", op); err != nil {
		return nil, err
	}
	nSamples, nFeatures := X.Dims()
	if err := nb.state.RequireFeatures("GaussianNB."+op, nFeatures); err != nil {
		return nil, err
	}

	nClasses := len(nb.classes)
	priors := nb.logPriors()
	normTerm := make([]float64, nClasses)
	for k := 0; k < nClasses; k++ {
		s := 0.0
		for j := 0; j < nFeatures; j++ {
			s += math.Log(2 * math.Pi * nb.variance[k][j])
		}
		normTerm[k] = -0.5 * s
	}

	jll := mat.NewDense(nSamples, nClasses, nil)
	for i := 0; i < nSamples; i++ {
		for k := 0; k < nClasses; k++ {
			s := 0.0
			for j := 0; j < nFeatures; j++ {
				d := X.At(i, j) - nb.theta[k][j]
				s += d * d / nb.variance[k][j]
			}
			jll.Set(i, k, priors[k]+normTerm[k]-0.5*s)
		}
	}
	return jll, nil
}

// Predict returns the most probable class per sample as an n×1 matrix.
func (nb *GaussianNB) Predict(X mat.Matrix) (mat.Matrix, error) {
	jll, err := nb.jointLogLikelihood("Predict", X)
	if err != nil {
		return nil, err
	}
	n, _ := jll.Dims()
	out := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		best := 0
		for k := 1; k < len(nb.classes); k++ {
			if jll.At(i, k) > jll.At(i, best) {
				best = k
			}
		}
		out.Set(i, 0, float64(nb.classes[best]))
	}
	return out, nil
}

// PredictLogProba returns normalised log probabilities, columns in Classes() order.
func (nb *GaussianNB) PredictLogProba(X mat.Matrix) (mat.Matrix, error) {
	jll, err := nb.jointLogLikelihood("PredictLogProba", X)
	if err != nil {
		return nil, err
	}
	n, c := jll.Dims()
	row := make([]float64, c)
	for i := 0; i < n; i++ {
		mat.Row(row, i, jll)
		norm := errors.LogSumExp(row)
		for k := 0; k < c; k++ {
			jll.Set(i, k, row[k]-norm)
		}
	}
	return jll, nil
}

// PredictProba returns class probabilities, columns in Classes() order.
func (nb *GaussianNB) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	logProba, err := nb.PredictLogProba(X)
	if err != nil {
		return nil, err
	}
	proba := mat.DenseCopyOf(logProba)
	proba.Apply(func(_, _ int, v float64) float64 { return math.Exp(v) }, proba)
	return proba, nil
}

// Score returns the mean accuracy on X, y.
func (nb *GaussianNB) Score(X, y mat.Matrix) (float64, error) {
	pred, err := nb.Predict(X)
	if err != nil {
		return 0, err
	}
	n, _ := y.Dims()
	pn, _ := pred.Dims()
	if n != pn {
		return 0, errors.NewDimensionError("GaussianNB.Score", pn, n, 0)
	}
	correct := 0
	for i := 0; i < n; i++ {
		if pred.At(i, 0) == y.At(i, 0) {
			correct++
		}
	}
	return float64(correct) / float64(n), nil
}

// Classes returns the class labels in column order.
func (nb *GaussianNB) Classes() []int {
	return append([]int(nil), nb.classes...)
}

// ClassCount returns the number of training samples seen per class.
func (nb *GaussianNB) ClassCount() []float64 {
	return append([]float64(nil), nb.classCount...)
}

// Theta returns a copy of the per-class feature means.
func (nb *GaussianNB) Theta() [][]float64 {
	out := make([][]float64, len(nb.theta))
	for k := range nb.theta {
		out[k] = append([]float64(nil), nb.theta[k]...)
	}
	return out
}

// Var returns a copy of the per-class feature variances.
func (nb *GaussianNB) Var() [][]float64 {
	out := make([][]float64, len(nb.variance))
	for k := range nb.variance {
		out[k] = append([]float64(nil), nb.variance[k]...)
	}
	return out
}

// NSamplesSeen returns the number of samples consumed by Fit and PartialFit.
func (nb *GaussianNB) NSamplesSeen() int {
	return nb.nSamplesSeen
}

// GetParams returns the hyperparameters.
func (nb *GaussianNB) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"var_smoothing": nb.varSmoothing,
		"priors":        append([]float64(nil), nb.priors...),
	}
}

// SetParams sets var_smoothing and priors.
func (nb *GaussianNB) SetParams(params map[string]interface{}) error {
	for k, v := range params {
		switch k {
		case "var_smoothing":
			f, err := model.FloatParam(k, v)
			if err != nil {
				return err
			}
			if f < 0 {
				return errors.NewValidationError(k, "must be non-negative", v)
			}
			nb.varSmoothing = f
		case "priors":
			switch p := v.(type) {
			case nil:
				nb.priors = nil
			case []float64:
				nb.priors = append([]float64(nil), p...)
			default:
				return errors.NewValidationError(k, "must be []float64 or nil", v)
			}
		default:
			return errors.NewValidationError(k, "unknown parameter for GaussianNB", v)
		}
	}
	return nil
}

// Clone returns an unfitted GaussianNB with the same parameters.
func (nb *GaussianNB) Clone() model.Classifier {
	return NewGaussianNB(WithVarSmoothing(nb.varSmoothing), WithPriors(nb.priors))
}

// String implements fmt.Stringer.
func (nb *GaussianNB) String() string {
	return fmt.Sprintf("GaussianNB(var_smoothing=%g)", nb.varSmoothing)
}
