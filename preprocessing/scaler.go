// Package preprocessing provides feature scaling over gonum matrices.
package preprocessing

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/sasmita-sabat/censusml/core/model"
	"github.com/sasmita-sabat/censusml/pkg/errors"
)

// StandardScaler はscikit-learn互換の標準化スケーラー
// データを平均0、標準偏差1に変換する
//
// 標準偏差は母標準偏差（ddof=0）。標準偏差が0の列は変換結果がNaNになり、
// Fit時にZeroVarianceWarningを一度だけ発行する。
type StandardScaler struct {
	state *model.StateManager

	// Mean は各特徴量の平均値
	Mean []float64

	// Scale は各特徴量の標準偏差
	Scale []float64

	// WithMean は平均を引くかどうか (デフォルト: true)
	WithMean bool

	// WithStd は標準偏差で割るかどうか (デフォルト: true)
	WithStd bool

	featureNames []string
}

// ScalerOption configures a StandardScaler.
type ScalerOption func(*StandardScaler)

// WithMean は平均を引くかどうかを設定する
func WithMean(withMean bool) ScalerOption {
	return func(s *StandardScaler) { s.WithMean = withMean }
}

// WithStd は標準偏差で割るかどうかを設定する
func WithStd(withStd bool) ScalerOption {
	return func(s *StandardScaler) { s.WithStd = withStd }
}

// WithFeatureNames names the columns in warnings.
func WithFeatureNames(names ...string) ScalerOption {
	return func(s *StandardScaler) { s.featureNames = append([]string(nil), names...) }
}

// NewStandardScaler は新しいStandardScalerを作成する
//
// 使用例:
//
//	scaler := preprocessing.NewStandardScaler()
//	err := scaler.Fit(X)
//	XScaled, err := scaler.Transform(X)
func NewStandardScaler(opts ...ScalerOption) *StandardScaler {
	s := &StandardScaler{
		state:    model.NewStateManager(),
		WithMean: true,
		WithStd:  true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Fit は訓練データから統計情報（平均、母標準偏差）を計算する
func (s *StandardScaler) Fit(X mat.Matrix) error {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewModelError("StandardScaler.Fit", "empty data", errors.ErrEmptyData)
	}
	if s.featureNames != nil && len(s.featureNames) != c {
		return errors.NewDimensionError("StandardScaler.Fit", len(s.featureNames), c, 1)
	}

	s.Mean = make([]float64, c)
	s.Scale = make([]float64, c)

	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, X)
		mean, std := stat.PopMeanStdDev(col, nil)

		if s.WithMean {
			s.Mean[j] = mean
		}
		if !s.WithStd {
			s.Scale[j] = 1.0
			continue
		}
		s.Scale[j] = std
		if std == 0 {
			errors.Warn(errors.NewZeroVarianceWarning(s.featureName(j), mean))
		}
	}

	s.state.SetDimensions(c, r)
	s.state.SetFitted()
	return nil
}

func (s *StandardScaler) featureName(j int) string {
	if j < len(s.featureNames) {
		return s.featureNames[j]
	}
	return fmt.Sprintf("x%d", j)
}

// Transform は学習済みの統計情報を使ってデータを標準化する。
// 標準偏差0の列は0/0となりNaNを返す。
func (s *StandardScaler) Transform(X mat.Matrix) (mat.Matrix, error) {
	if err := s.state.RequireFitted("StandardScaler", "Transform"); err != nil {
		return nil, err
	}

	r, c := X.Dims()
	if err := s.state.RequireFeatures("StandardScaler.Transform", c); err != nil {
		return nil, err
	}

	result := mat.NewDense(r, c, nil)
	result.Apply(func(_, j int, v float64) float64 {
		return (v - s.Mean[j]) / s.Scale[j]
	}, X)
	return result, nil
}

// FitTransform は訓練データで学習し、同じデータを変換する
func (s *StandardScaler) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := s.Fit(X); err != nil {
		return nil, err
	}
	return s.Transform(X)
}

// InverseTransform は標準化されたデータを元のスケールに戻す
func (s *StandardScaler) InverseTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := s.state.RequireFitted("StandardScaler", "InverseTransform"); err != nil {
		return nil, err
	}

	r, c := X.Dims()
	if err := s.state.RequireFeatures("StandardScaler.InverseTransform", c); err != nil {
		return nil, err
	}

	result := mat.NewDense(r, c, nil)
	result.Apply(func(_, j int, v float64) float64 {
		return v*s.Scale[j] + s.Mean[j]
	}, X)
	return result, nil
}

// IsFitted reports whether Fit has completed.
func (s *StandardScaler) IsFitted() bool {
	return s.state.IsFitted()
}

// ZeroVarianceColumns returns the indices of columns whose fitted standard
// deviation is zero.
func (s *StandardScaler) ZeroVarianceColumns() []int {
	var out []int
	for j, sc := range s.Scale {
		if s.WithStd && (sc == 0 || math.IsNaN(sc)) {
			out = append(out, j)
		}
	}
	return out
}

// GetParams はスケーラーのパラメータを取得する
func (s *StandardScaler) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"with_mean": s.WithMean,
		"with_std":  s.WithStd,
	}
}

// String はスケーラーの文字列表現を返す
func (s *StandardScaler) String() string {
	if !s.state.IsFitted() {
		return fmt.Sprintf("StandardScaler(with_mean=%t, with_std=%t)", s.WithMean, s.WithStd)
	}
	nFeatures, _ := s.state.GetDimensions()
	return fmt.Sprintf("StandardScaler(with_mean=%t, with_std=%t, n_features=%d)",
		s.WithMean, s.WithStd, nFeatures)
}
