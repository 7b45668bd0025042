package preprocessing

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/sasmita-sabat/censusml/pkg/errors"
)

func TestStandardScaler_FitTransform(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{
		1, 10,
		2, 20,
		3, 30,
		4, 40,
	})

	scaler := NewStandardScaler()
	Xs, err := scaler.FitTransform(X)
	if err != nil {
		t.Fatalf("FitTransform failed: %v", err)
	}

	// population std of {1,2,3,4} is sqrt(1.25)
	if math.Abs(scaler.Scale[0]-math.Sqrt(1.25)) > 1e-12 {
		t.Errorf("Scale[0] = %v, want %v", scaler.Scale[0], math.Sqrt(1.25))
	}

	r, c := Xs.Dims()
	for j := 0; j < c; j++ {
		sum, sq := 0.0, 0.0
		for i := 0; i < r; i++ {
			v := Xs.At(i, j)
			sum += v
			sq += v * v
		}
		mean := sum / float64(r)
		std := math.Sqrt(sq/float64(r) - mean*mean)
		if math.Abs(mean) > 1e-9 {
			t.Errorf("column %d mean = %v, want 0", j, mean)
		}
		if math.Abs(std-1) > 1e-9 {
			t.Errorf("column %d std = %v, want 1", j, std)
		}
	}
}

func TestStandardScaler_TransformUsesFittedStatistics(t *testing.T) {
	train := mat.NewDense(3, 1, []float64{0, 1, 2})
	test := mat.NewDense(2, 1, []float64{5, 7})

	scaler := NewStandardScaler()
	if err := scaler.Fit(train); err != nil {
		t.Fatal(err)
	}
	got, err := scaler.Transform(test)
	if err != nil {
		t.Fatal(err)
	}

	std := math.Sqrt(2.0 / 3.0)
	for i, x := range []float64{5, 7} {
		want := (x - 1) / std
		if math.Abs(got.At(i, 0)-want) > 1e-12 {
			t.Errorf("row %d = %v, want %v", i, got.At(i, 0), want)
		}
	}
}

func TestStandardScaler_ZeroVariance(t *testing.T) {
	var warnings []error
	errors.SetZerologWarnFunc(func(w error) { warnings = append(warnings, w) })
	defer errors.SetZerologWarnFunc(nil)

	X := mat.NewDense(3, 2, []float64{
		1, 0,
		2, 0,
		3, 0,
	})

	scaler := NewStandardScaler(WithFeatureNames("age", "capital-loss"))
	Xs, err := scaler.FitTransform(X)
	if err != nil {
		t.Fatalf("zero variance must not be an error: %v", err)
	}

	for i := 0; i < 3; i++ {
		if !math.IsNaN(Xs.At(i, 1)) {
			t.Errorf("row %d constant column = %v, want NaN", i, Xs.At(i, 1))
		}
	}
	if cols := scaler.ZeroVarianceColumns(); len(cols) != 1 || cols[0] != 1 {
		t.Errorf("ZeroVarianceColumns() = %v", cols)
	}

	if len(warnings) != 1 {
		t.Fatalf("expected 1 warning, got %d", len(warnings))
	}
	var zv *errors.ZeroVarianceWarning
	if !errors.As(warnings[0], &zv) || zv.Column != "capital-loss" {
		t.Errorf("warning = %v", warnings[0])
	}
}

func TestStandardScaler_InverseTransform(t *testing.T) {
	X := mat.NewDense(3, 2, []float64{1, 5, 2, 7, 6, 9})

	scaler := NewStandardScaler()
	Xs, err := scaler.FitTransform(X)
	if err != nil {
		t.Fatal(err)
	}
	back, err := scaler.InverseTransform(Xs)
	if err != nil {
		t.Fatal(err)
	}
	if !mat.EqualApprox(back, X, 1e-12) {
		t.Errorf("InverseTransform did not restore input:\n%v", mat.Formatted(back))
	}
}

func TestStandardScaler_Errors(t *testing.T) {
	scaler := NewStandardScaler()

	_, err := scaler.Transform(mat.NewDense(1, 1, []float64{1}))
	var notFitted *errors.NotFittedError
	if !errors.As(err, &notFitted) {
		t.Errorf("Transform before Fit = %v, want NotFittedError", err)
	}

	if err := scaler.Fit(&mat.Dense{}); err == nil {
		t.Error("Fit on empty data should fail")
	}

	if err := scaler.Fit(mat.NewDense(2, 2, []float64{1, 2, 3, 4})); err != nil {
		t.Fatal(err)
	}
	_, err = scaler.Transform(mat.NewDense(1, 3, []float64{1, 2, 3}))
	var dimErr *errors.DimensionError
	if !errors.As(err, &dimErr) {
		t.Errorf("Transform with wrong width = %v, want DimensionError", err)
	}
}

func TestStandardScaler_WithoutStd(t *testing.T) {
	X := mat.NewDense(2, 1, []float64{2, 4})
	scaler := NewStandardScaler(WithStd(false))

	Xs, err := scaler.FitTransform(X)
	if err != nil {
		t.Fatal(err)
	}
	if Xs.At(0, 0) != -1 || Xs.At(1, 0) != 1 {
		t.Errorf("centred values = %v, %v", Xs.At(0, 0), Xs.At(1, 0))
	}
}
