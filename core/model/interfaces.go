// Package model defines the estimator contracts shared by the classifiers and
// the model selection code.
package model

import (
	"gonum.org/v1/gonum/mat"
)

// Fitter は学習可能なモデルのインターフェース
type Fitter interface {
	// Fit はモデルを訓練データで学習させる。y は n×1 の列ベクトル。
	Fit(X, y mat.Matrix) error
}

// Predictor は予測可能なモデルのインターフェース
type Predictor interface {
	// Predict は入力データに対する予測を n×1 で返す
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// ParameterGetter is the interface for models that expose their parameters.
type ParameterGetter interface {
	// GetParams returns the model's hyperparameters keyed by their
	// scikit-learn names.
	GetParams() map[string]interface{}
}

// ParameterSetter is the interface for models that allow parameter modification.
type ParameterSetter interface {
	// SetParams sets the model's hyperparameters. Unknown names and values of
	// the wrong type are rejected.
	SetParams(params map[string]interface{}) error
}

// Classifier is what the grid search drives: a fittable, parameterised
// predictor that can produce an unfitted copy of itself.
type Classifier interface {
	Fitter
	Predictor
	ParameterGetter
	ParameterSetter

	// Clone returns a new unfitted classifier with the same parameters.
	Clone() Classifier
}

// ProbaPredictor is implemented by classifiers that estimate class
// probabilities. Columns follow Classes().
type ProbaPredictor interface {
	PredictProba(X mat.Matrix) (mat.Matrix, error)
	Classes() []int
}

// DecisionFunctioner is implemented by margin classifiers. For two classes the
// result is n×1 and positive values favour the second class.
type DecisionFunctioner interface {
	DecisionFunction(X mat.Matrix) (mat.Matrix, error)
}

// Transformer はデータ変換のインターフェース
type Transformer interface {
	// Fit は変換に必要なパラメータを学習する
	Fit(X mat.Matrix) error

	// Transform はデータを変換する
	Transform(X mat.Matrix) (mat.Matrix, error)

	// FitTransform はFitとTransformを同時に実行する
	FitTransform(X mat.Matrix) (mat.Matrix, error)
}
