package log

// Model and operation context.
const (
	// ModelNameKey identifies the estimator type, e.g. "GaussianNB".
	ModelNameKey = "model.name"

	// EstimatorIDKey identifies one estimator instance or one run.
	EstimatorIDKey = "estimator.id"

	// OperationKey is the ML operation: "fit", "predict", "transform", "score".
	OperationKey = "ml.operation"

	// ComponentKey is the package emitting the record.
	ComponentKey = "ml.component"

	// PhaseKey is the lifecycle phase: "preprocessing", "training", "testing".
	PhaseKey = "ml.phase"

	// StageKey names a census pipeline stage: "load", "clean", "standardize", ...
	StageKey = "pipeline.stage"

	// RunIDKey correlates every record of one CLI invocation.
	RunIDKey = "run.id"
)

// Data shape.
const (
	SamplesKey     = "data.samples"
	TestSamplesKey = "data.test_samples"
	FeaturesKey    = "data.features"
	ClassesKey     = "data.classes"
	RemovedKey     = "data.removed"
	TableKey       = "data.table"
	PathKey        = "data.path"
)

// Performance and scores.
const (
	DurationMsKey = "perf.duration_ms"
	AccuracyKey   = "metrics.accuracy"
	ScoreKey      = "metrics.cv_score"
	AUCKey        = "metrics.roc_auc"
	IterationKey  = "training.iteration"
	PredsKey      = "preds.count"
)

// Hyperparameter search.
const (
	HyperParamsKey = "model.hyperparams"
	CandidatesKey  = "search.candidates"
	FoldsKey       = "search.folds"
	FoldKey        = "search.fold"
	CandidateKey   = "search.candidate"
	JobsKey        = "search.n_jobs"
)

// Error context.
const (
	ErrAttrKey    = "error"
	StacktraceKey = "stacktrace"
)

// Standard attribute values.
const (
	OperationFit          = "fit"
	OperationPredict      = "predict"
	OperationTransform    = "transform"
	OperationFitTransform = "fit_transform"
	OperationScore        = "score"
	OperationPartialFit   = "partial_fit"

	PhaseTraining      = "training"
	PhaseValidation    = "validation"
	PhaseTesting       = "testing"
	PhasePreprocessing = "preprocessing"
)
