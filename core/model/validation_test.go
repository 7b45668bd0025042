package model

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"gonum.org/v1/gonum/mat"
)

func TestCheckXY(t *testing.T) {
	tests := []struct {
		name    string
		X, y    mat.Matrix
		wantErr bool
	}{
		{"ok", mat.NewDense(3, 2, nil), mat.NewDense(3, 1, nil), false},
		{"nil X", nil, mat.NewDense(3, 1, nil), true},
		{"row mismatch", mat.NewDense(3, 2, nil), mat.NewDense(2, 1, nil), true},
		{"wide y", mat.NewDense(3, 2, nil), mat.NewDense(3, 2, nil), true},
		{"empty", &mat.Dense{}, &mat.Dense{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := CheckXY("Fit", tt.X, tt.y)
			if (err != nil) != tt.wantErr {
				t.Errorf("CheckXY() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLabelsAndClasses(t *testing.T) {
	y := mat.NewDense(5, 1, []float64{1, 0, 2, 0, 1})
	labels, err := Labels("Fit", y)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]int{1, 0, 2, 0, 1}, labels); diff != "" {
		t.Errorf("Labels() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{0, 1, 2}, UniqueClasses(labels)); diff != "" {
		t.Errorf("UniqueClasses() mismatch (-want +got):\n%s", diff)
	}
	if idx := ClassIndex([]int{0, 1, 2}); idx[2] != 2 {
		t.Errorf("ClassIndex() = %v", idx)
	}

	if _, err := Labels("Fit", mat.NewDense(1, 1, []float64{0.5})); err == nil {
		t.Error("fractional label should be rejected")
	}
}

func TestParamReaders(t *testing.T) {
	if v, err := IntParam("max_depth", 3.0); err != nil || v != 3 {
		t.Errorf("IntParam(3.0) = %v, %v", v, err)
	}
	if _, err := IntParam("max_depth", 2.5); err == nil {
		t.Error("IntParam(2.5) should fail")
	}
	if v, err := FloatParam("C", 5); err != nil || v != 5 {
		t.Errorf("FloatParam(5) = %v, %v", v, err)
	}
	if _, err := StringParam("kernel", 1); err == nil {
		t.Error("StringParam(1) should fail")
	}
}
