package experiment

import (
	"context"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"

	"github.com/sasmita-sabat/censusml/census"
	"github.com/sasmita-sabat/censusml/core/model"
	"github.com/sasmita-sabat/censusml/metrics"
	"github.com/sasmita-sabat/censusml/model_selection"
	"github.com/sasmita-sabat/censusml/pkg/errors"
	"github.com/sasmita-sabat/censusml/pkg/log"
)

// Result is the outcome of one Evaluate call.
type Result struct {
	RunID      string
	Classifier string

	// Accuracy on the test split as a fraction; AccuracyPercent is ×100.
	Accuracy        float64
	AccuracyPercent float64

	BestParams map[string]interface{}
	BestScore  float64
	CVResults  []model_selection.CandidateResult

	// ConfusionMatrix rows are true labels, columns predicted labels, both
	// ordered by Labels.
	ConfusionMatrix *mat.Dense
	Labels          []int

	// AUC is NaN when the best estimator exposes neither probabilities nor
	// a decision function.
	AUC float64

	SearchDuration time.Duration
	RefitDuration  time.Duration
	ScoreDuration  time.Duration
}

type options struct {
	folds   int
	nJobs   int
	verbose int
	out     io.Writer
	runID   string
}

// Option configures Evaluate.
type Option func(*options)

// WithFolds sets the number of stratified CV folds. Default 3.
func WithFolds(k int) Option { return func(o *options) { o.folds = k } }

// WithNJobs bounds concurrent fits in the grid search. Default 1.
func WithNJobs(n int) Option { return func(o *options) { o.nJobs = n } }

// WithVerbose sets the grid search verbosity. Default 1.
func WithVerbose(level int) Option { return func(o *options) { o.verbose = level } }

// WithOutput sets the console writer. Default io.Discard.
func WithOutput(w io.Writer) Option { return func(o *options) { o.out = w } }

// WithRunID overrides the generated run id.
func WithRunID(id string) Option { return func(o *options) { o.runID = id } }

// Evaluate grid-searches the classifier registered as name on the training
// split, refits the best candidate and scores it on the test split. An
// unknown name fails before anything is trained.
func Evaluate(ctx context.Context, name string, ds *census.Dataset, opts ...Option) (*Result, error) {
	o := options{folds: 3, nJobs: 1, verbose: 1, out: io.Discard}
	for _, opt := range opts {
		opt(&o)
	}
	if o.runID == "" {
		o.runID = uuid.NewString()
	}

	entry, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	if ds == nil || ds.TrainX.Rows() == 0 || ds.TestX.Rows() == 0 {
		return nil, errors.NewModelError("experiment.Evaluate", "empty train or test split", errors.ErrEmptyData)
	}

	logger := log.GetLoggerWithName("experiment").With(
		log.RunIDKey, o.runID,
		log.ModelNameKey, name,
	)

	search := model_selection.NewGridSearchCV(entry.New(), entry.Grid,
		model_selection.WithCV(model_selection.NewStratifiedKFold(o.folds, false, 0)),
		model_selection.WithNJobs(o.nJobs),
		model_selection.WithVerbose(o.verbose),
		model_selection.WithOutput(o.out),
	)

	fmt.Fprintln(o.out, "Training model...")
	start := time.Now()
	if err := search.Fit(ctx, ds.TrainX.X, census.LabelMatrix(ds.TrainY)); err != nil {
		logger.Error("Training failed", err)
		return nil, errors.Wrapf(err, "train %s", name)
	}
	searchDuration := time.Since(start)

	start = time.Now()
	yPred, err := search.Predict(ds.TestX.X)
	if err != nil {
		return nil, errors.Wrap(err, "predict test split")
	}
	yTrue := mat.NewVecDense(len(ds.TestY), nil)
	for i, l := range ds.TestY {
		yTrue.SetVec(i, float64(l))
	}
	predVec, err := metrics.FirstColumn("experiment.Evaluate", yPred)
	if err != nil {
		return nil, err
	}
	acc, err := metrics.Accuracy(yTrue, predVec)
	if err != nil {
		return nil, err
	}
	cm, labels, err := metrics.ConfusionMatrix(yTrue, predVec, nil)
	if err != nil {
		return nil, err
	}
	auc := rocAUC(search.BestEstimator(), ds.TestX.X, yTrue)
	scoreDuration := time.Since(start)

	res := &Result{
		RunID:           o.runID,
		Classifier:      name,
		Accuracy:        acc,
		AccuracyPercent: acc * 100,
		BestParams:      search.BestParams(),
		BestScore:       search.BestScore(),
		CVResults:       search.CVResults(),
		ConfusionMatrix: cm,
		Labels:          labels,
		AUC:             auc,
		SearchDuration:  searchDuration,
		RefitDuration:   search.RefitTime(),
		ScoreDuration:   scoreDuration,
	}

	logger.Info("Model evaluated",
		log.HyperParamsKey, model_selection.FormatParams(res.BestParams),
		log.ScoreKey, res.BestScore,
		log.AccuracyKey, res.Accuracy,
		log.AUCKey, res.AUC,
		log.PredsKey, len(ds.TestY),
		log.DurationMsKey, searchDuration.Milliseconds(),
	)
	return res, nil
}

// rocAUC scores the positive class with probabilities when the estimator has
// them, otherwise with its decision function. Binary problems only.
func rocAUC(est model.Classifier, X mat.Matrix, yTrue *mat.VecDense) float64 {
	var scores mat.Matrix
	col := 0
	switch e := est.(type) {
	case model.ProbaPredictor:
		classes := e.Classes()
		if len(classes) != 2 {
			return math.NaN()
		}
		p, err := e.PredictProba(X)
		if err != nil {
			return math.NaN()
		}
		scores, col = p, 1
	case model.DecisionFunctioner:
		d, err := e.DecisionFunction(X)
		if err != nil {
			return math.NaN()
		}
		if _, c := d.Dims(); c != 1 {
			return math.NaN()
		}
		scores = d
	default:
		return math.NaN()
	}

	s := mat.NewVecDense(yTrue.Len(), mat.Col(nil, col, scores))
	auc, err := metrics.AUC(yTrue, s)
	if err != nil {
		log.GetLoggerWithName("experiment").Warn("ROC AUC unavailable", err)
		return math.NaN()
	}
	return auc
}
