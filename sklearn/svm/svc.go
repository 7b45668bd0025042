// Package svm implements a C-support vector classifier trained with SMO.
package svm

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/sasmita-sabat/censusml/core/model"
	"github.com/sasmita-sabat/censusml/pkg/errors"
	"github.com/sasmita-sabat/censusml/pkg/log"
)

// Gamma settings resolved at fit time.
const (
	GammaScale = "scale"
	GammaAuto  = "auto"
)

// binaryModel is the decision function for one pair of classes:
// f(x) = Σ coef_i K(sv_i, x) − rho, positive for the second class.
type binaryModel struct {
	first, second int // class indices
	sv            *mat.Dense
	svNorms       []float64
	svIndex       []int // rows of the training data
	coef          []float64
	rho           float64
}

// SVC は C-サポートベクター分類器
//
// 2値問題は SMO（libsvm と同じ作業集合選択）で解き、3クラス以上は one-vs-one で投票する。
// 2クラスの場合 DecisionFunction が正なら Classes()[1] を予測する。
type SVC struct {
	state *model.StateManager

	c         float64
	kernel    string
	gamma     interface{} // "scale", "auto" or float64
	degree    int
	coef0     float64
	tol       float64
	maxIter   int
	cacheSize float64 // MB

	classes    []int
	models     []binaryModel
	gamma_     float64
	nSupport   []int
	iterations []int
}

// Option configures an SVC.
type Option func(*SVC)

// WithC sets the regularisation parameter. Default 1.
func WithC(c float64) Option { return func(s *SVC) { s.c = c } }

// WithKernel sets "rbf", "linear", "poly" or "sigmoid". Default "rbf".
func WithKernel(kernel string) Option { return func(s *SVC) { s.kernel = kernel } }

// WithGamma sets a fixed kernel coefficient.
func WithGamma(gamma float64) Option { return func(s *SVC) { s.gamma = gamma } }

// WithGammaMode sets "scale" (default) or "auto".
func WithGammaMode(mode string) Option { return func(s *SVC) { s.gamma = mode } }

// WithDegree sets the polynomial degree. Default 3.
func WithDegree(d int) Option { return func(s *SVC) { s.degree = d } }

// WithCoef0 sets the independent term of poly and sigmoid kernels.
func WithCoef0(c float64) Option { return func(s *SVC) { s.coef0 = c } }

// WithTol sets the stopping tolerance on the maximal violation. Default 1e-3.
func WithTol(tol float64) Option { return func(s *SVC) { s.tol = tol } }

// WithMaxIter caps SMO iterations per binary problem; -1 means no cap.
func WithMaxIter(n int) Option { return func(s *SVC) { s.maxIter = n } }

// WithCacheSize sets the kernel row cache size in megabytes. Default 200.
func WithCacheSize(mb float64) Option { return func(s *SVC) { s.cacheSize = mb } }

// NewSVC creates an SVC with scikit-learn defaults.
func NewSVC(opts ...Option) *SVC {
	s := &SVC{
		state:     model.NewStateManager(),
		c:         1.0,
		kernel:    KernelRBF,
		gamma:     GammaScale,
		degree:    3,
		tol:       1e-3,
		maxIter:   -1,
		cacheSize: 200,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *SVC) validate() error {
	if s.c <= 0 {
		return errors.NewValidationError("C", "must be positive", s.c)
	}
	switch s.kernel {
	case KernelRBF, KernelLinear, KernelPoly, KernelSigmoid:
	default:
		return errors.NewValidationError("kernel", "must be one of rbf, linear, poly, sigmoid", s.kernel)
	}
	switch g := s.gamma.(type) {
	case string:
		if g != GammaScale && g != GammaAuto {
			return errors.NewValidationError("gamma", "must be 'scale', 'auto' or a positive number", g)
		}
	case float64:
		if g <= 0 {
			return errors.NewValidationError("gamma", "must be positive", g)
		}
	default:
		return errors.NewValidationError("gamma", "must be 'scale', 'auto' or a positive number", g)
	}
	if s.degree < 0 {
		return errors.NewValidationError("degree", "must be non-negative", s.degree)
	}
	if s.tol <= 0 {
		return errors.NewValidationError("tol", "must be positive", s.tol)
	}
	return nil
}

func (s *SVC) resolveGamma(X *mat.Dense) float64 {
	_, p := X.Dims()
	switch g := s.gamma.(type) {
	case float64:
		return g
	case string:
		if g == GammaAuto {
			return 1 / float64(p)
		}
	}
	_, variance := stat.PopMeanVariance(X.RawMatrix().Data, nil)
	if variance == 0 {
		return 1
	}
	return 1 / (float64(p) * variance)
}

// Fit trains one binary machine per pair of classes.
func (s *SVC) Fit(X, y mat.Matrix) error {
	if err := s.validate(); err != nil {
		return err
	}
	nSamples, nFeatures, err := model.CheckXY("SVC.Fit", X, y)
	if err != nil {
		return err
	}
	labels, err := model.Labels("SVC.Fit", y)
	if err != nil {
		return err
	}
	classes := model.UniqueClasses(labels)
	if len(classes) < 2 {
		return errors.NewValueError("SVC.Fit",
			fmt.Sprintf("the number of classes has to be greater than one; got %d class", len(classes)))
	}

	s.state.Reset()
	Xd := mat.NewDense(nSamples, nFeatures, nil)
	Xd.Copy(X)
	s.classes = classes
	s.gamma_ = s.resolveGamma(Xd)
	k := kernel{kind: s.kernel, gamma: s.gamma_, coef0: s.coef0, degree: s.degree}

	classIdx := model.ClassIndex(classes)
	byClass := make([][]int, len(classes))
	for i, l := range labels {
		c := classIdx[l]
		byClass[c] = append(byClass[c], i)
	}

	maxIter := s.maxIter
	if maxIter <= 0 {
		maxIter = max(10_000_000, 100*nSamples)
	}

	logger := log.GetLoggerWithName("svm").With(log.ModelNameKey, "SVC")
	s.models = s.models[:0]
	s.iterations = s.iterations[:0]
	s.nSupport = make([]int, len(classes))
	isSupport := make([][]bool, len(classes))
	for c := range isSupport {
		isSupport[c] = make([]bool, len(byClass[c]))
	}

	for a := 0; a < len(classes); a++ {
		for b := a + 1; b < len(classes); b++ {
			rows := append(append([]int(nil), byClass[a]...), byClass[b]...)
			sub := mat.NewDense(len(rows), nFeatures, nil)
			yy := make([]float64, len(rows))
			for r, i := range rows {
				sub.SetRow(r, Xd.RawRowView(i))
				yy[r] = -1
				if r >= len(byClass[a]) {
					yy[r] = 1
				}
			}

			q := newQMatrix(sub, yy, k, s.cacheSize)
			sol := newSolver(q, yy, s.c, s.tol, maxIter).solve()
			if !sol.converged {
				errors.Warn(errors.NewConvergenceWarning("SVC", sol.iterations,
					fmt.Sprintf("solver stopped at max_iter for classes %d vs %d", classes[a], classes[b])))
			}

			bm := binaryModel{first: a, second: b, rho: sol.rho}
			for r, alpha := range sol.alpha {
				if alpha <= 0 {
					continue
				}
				bm.svIndex = append(bm.svIndex, rows[r])
				bm.coef = append(bm.coef, alpha*yy[r])
				if r < len(byClass[a]) {
					isSupport[a][r] = true
				} else {
					isSupport[b][r-len(byClass[a])] = true
				}
			}
			if len(bm.svIndex) > 0 {
				bm.sv = mat.NewDense(len(bm.svIndex), nFeatures, nil)
				for r, i := range bm.svIndex {
					bm.sv.SetRow(r, Xd.RawRowView(i))
				}
				bm.svNorms = rowNorms(bm.sv)
			}
			s.models = append(s.models, bm)
			s.iterations = append(s.iterations, sol.iterations)

			logger.Debug("SMO finished",
				log.IterationKey, sol.iterations,
				"svm.n_support", len(bm.svIndex),
				"svm.cache_hits", q.hits,
				"svm.cache_misses", q.misses,
			)
		}
	}

	for c := range isSupport {
		for _, sup := range isSupport[c] {
			if sup {
				s.nSupport[c]++
			}
		}
	}

	s.state.SetDimensions(nFeatures, nSamples)
	s.state.SetFitted()
	return nil
}

func (s *SVC) decide(bm *binaryModel, x []float64, xNorm float64) float64 {
	k := kernel{kind: s.kernel, gamma: s.gamma_, coef0: s.coef0, degree: s.degree}
	sum := -bm.rho
	for r, coef := range bm.coef {
		sum += coef * k.eval(bm.sv.RawRowView(r), x, bm.svNorms[r], xNorm)
	}
	return sum
}

func (s *SVC) ovo(op string, X mat.Matrix) (*mat.Dense, error) {
	if err := s.state.RequireFitted("SVC", op); err != nil {
		return nil, err
	}
	n, p := X.Dims()
	if err := s.state.RequireFeatures("SVC."+op, p); err != nil {
		return nil, err
	}
	Xd := mat.NewDense(n, p, nil)
	Xd.Copy(X)
	norms := rowNorms(Xd)

	out := mat.NewDense(n, len(s.models), nil)
	for i := 0; i < n; i++ {
		x := Xd.RawRowView(i)
		for m := range s.models {
			out.Set(i, m, s.decide(&s.models[m], x, norms[i]))
		}
	}
	return out, nil
}

// DecisionFunction returns signed distances. With two classes the result is
// n×1 and positive values mean Classes()[1]; otherwise it holds one column
// per class pair (0,1), (0,2), …, (1,2), … positive for the later class.
func (s *SVC) DecisionFunction(X mat.Matrix) (mat.Matrix, error) {
	return s.ovo("DecisionFunction", X)
}

// Predict returns the class chosen by one-vs-one voting; ties go to the
// lower class.
func (s *SVC) Predict(X mat.Matrix) (mat.Matrix, error) {
	dec, err := s.ovo("Predict", X)
	if err != nil {
		return nil, err
	}
	n, _ := dec.Dims()
	out := mat.NewDense(n, 1, nil)
	votes := make([]int, len(s.classes))
	for i := 0; i < n; i++ {
		for c := range votes {
			votes[c] = 0
		}
		for m, bm := range s.models {
			if dec.At(i, m) > 0 {
				votes[bm.second]++
			} else {
				votes[bm.first]++
			}
		}
		best := 0
		for c := 1; c < len(votes); c++ {
			if votes[c] > votes[best] {
				best = c
			}
		}
		out.Set(i, 0, float64(s.classes[best]))
	}
	return out, nil
}

// Classes returns the class labels in sorted order.
func (s *SVC) Classes() []int {
	return append([]int(nil), s.classes...)
}

// NSupport returns the number of support vectors per class.
func (s *SVC) NSupport() []int {
	return append([]int(nil), s.nSupport...)
}

// Intercept returns −rho for each binary machine.
func (s *SVC) Intercept() []float64 {
	out := make([]float64, len(s.models))
	for m, bm := range s.models {
		out[m] = -bm.rho
	}
	return out
}

// Gamma returns the kernel coefficient used by the last Fit.
func (s *SVC) Gamma() float64 {
	return s.gamma_
}

// GetParams returns the hyperparameters.
func (s *SVC) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"C":          s.c,
		"kernel":     s.kernel,
		"gamma":      s.gamma,
		"degree":     s.degree,
		"coef0":      s.coef0,
		"tol":        s.tol,
		"max_iter":   s.maxIter,
		"cache_size": s.cacheSize,
	}
}

// SetParams sets hyperparameters by name. gamma accepts "scale", "auto" or a
// number.
func (s *SVC) SetParams(params map[string]interface{}) error {
	for k, v := range params {
		var err error
		switch k {
		case "C":
			s.c, err = model.FloatParam(k, v)
		case "kernel":
			s.kernel, err = model.StringParam(k, v)
		case "gamma":
			if str, ok := v.(string); ok {
				s.gamma = str
			} else {
				var g float64
				g, err = model.FloatParam(k, v)
				s.gamma = g
			}
		case "degree":
			s.degree, err = model.IntParam(k, v)
		case "coef0":
			s.coef0, err = model.FloatParam(k, v)
		case "tol":
			s.tol, err = model.FloatParam(k, v)
		case "max_iter":
			s.maxIter, err = model.IntParam(k, v)
		case "cache_size":
			s.cacheSize, err = model.FloatParam(k, v)
		default:
			err = errors.NewValidationError(k, "unknown parameter for SVC", v)
		}
		if err != nil {
			return err
		}
	}
	return s.validate()
}

// Clone returns an unfitted SVC with the same parameters.
func (s *SVC) Clone() model.Classifier {
	c := NewSVC(
		WithC(s.c),
		WithKernel(s.kernel),
		WithDegree(s.degree),
		WithCoef0(s.coef0),
		WithTol(s.tol),
		WithMaxIter(s.maxIter),
		WithCacheSize(s.cacheSize),
	)
	c.gamma = s.gamma
	return c
}

// String implements fmt.Stringer.
func (s *SVC) String() string {
	return fmt.Sprintf("SVC(C=%g, kernel=%s, gamma=%v)", s.c, s.kernel, s.gamma)
}
