package errors

import (
	"fmt"
	"strings"
	"testing"
)

func TestNewModelError(t *testing.T) {
	tests := []struct {
		name    string
		op      string
		kind    string
		err     error
		wantMsg string
	}{
		{
			name:    "with original error",
			op:      "Fit",
			kind:    "invalid input",
			err:     fmt.Errorf("test error"),
			wantMsg: "censusml: Fit: invalid input: test error",
		},
		{
			name:    "without original error",
			op:      "Predict",
			kind:    "not fitted",
			err:     nil,
			wantMsg: "censusml: Predict: not fitted",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewModelError(tt.op, tt.kind, tt.err)

			if err.Error() != tt.wantMsg {
				t.Errorf("Error() = %v, want %v", err.Error(), tt.wantMsg)
			}

			// スタックトレースの存在確認
			formatted := fmt.Sprintf("%+v", err)
			if !strings.Contains(formatted, "errors_test.go") {
				t.Error("Expected stack trace to contain test file name")
			}

			var modelErr *ModelError
			if !As(err, &modelErr) {
				t.Error("Error should be castable to *ModelError")
			}
		})
	}
}

func TestNewDimensionError(t *testing.T) {
	err := NewDimensionError("Predict", 104, 99, 1)

	want := "censusml: Predict: dimension mismatch on axis 1 (features). Expected 104, got 99"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}

	var dimErr *DimensionError
	if !As(err, &dimErr) {
		t.Fatal("Error should be castable to *DimensionError")
	}
	if dimErr.Expected != 104 || dimErr.Got != 99 {
		t.Errorf("unexpected fields: %+v", dimErr)
	}
}

func TestNewNotFittedError(t *testing.T) {
	err := NewNotFittedError("GaussianNB", "Predict")

	want := "censusml: GaussianNB: this model is not fitted yet. Call Fit() before using Predict()"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}

	var notFittedErr *NotFittedError
	if !As(err, &notFittedErr) {
		t.Error("Error should be castable to *NotFittedError")
	}
}

func TestParseError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantMsg string
	}{
		{
			name:    "field count",
			err:     NewFieldCountError("data/train_data.txt", 7, 15, 14),
			wantMsg: "censusml: parse data/train_data.txt:7: expected 15 fields, got 14",
		},
		{
			name:    "bad value",
			err:     NewParseError("train", 3, "age", `invalid number "abc"`),
			wantMsg: `censusml: parse train:3: column 'age': invalid number "abc"`,
		},
		{
			name:    "file level",
			err:     NewParseError("test.txt", 0, "", "unexpected EOF"),
			wantMsg: "censusml: parse test.txt: unexpected EOF",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Error() != tt.wantMsg {
				t.Errorf("Error() = %v, want %v", tt.err.Error(), tt.wantMsg)
			}
			var parseErr *ParseError
			if !As(tt.err, &parseErr) {
				t.Error("Error should be castable to *ParseError")
			}
		})
	}
}

func TestLabelError(t *testing.T) {
	err := NewLabelError("test", 12, " >50K.", []string{" <=50K", " >50K"})

	var labelErr *LabelError
	if !As(err, &labelErr) {
		t.Fatal("Error should be castable to *LabelError")
	}
	if labelErr.Row != 12 || labelErr.Value != " >50K." {
		t.Errorf("unexpected fields: %+v", labelErr)
	}
	if !strings.Contains(err.Error(), `" >50K."`) {
		t.Errorf("message should quote the offending value: %v", err)
	}
}

func TestUnknownClassifierError(t *testing.T) {
	err := Wrap(NewUnknownClassifierError("random_forest", []string{"naive_bayes", "svm"}), "evaluate")

	var unknown *UnknownClassifierError
	if !As(err, &unknown) {
		t.Fatal("wrapped error should still be castable to *UnknownClassifierError")
	}
	if unknown.Name != "random_forest" {
		t.Errorf("Name = %q", unknown.Name)
	}
	if !strings.Contains(err.Error(), "model not found") {
		t.Errorf("unexpected message: %v", err)
	}
}

func TestWarnRouting(t *testing.T) {
	var got []error
	SetZerologWarnFunc(func(w error) { got = append(got, w) })
	defer SetZerologWarnFunc(nil)

	Warn(NewZeroVarianceWarning("capital-gain", 0))
	Warn(NewConvergenceWarning("SMO", 10, ""))

	if len(got) != 2 {
		t.Fatalf("expected 2 routed warnings, got %d", len(got))
	}
	var zv *ZeroVarianceWarning
	if !As(got[0], &zv) || zv.Column != "capital-gain" {
		t.Errorf("first warning = %v", got[0])
	}
}

func TestWarnFallbackHandler(t *testing.T) {
	var got error
	SetWarningHandler(func(w error) { got = w })
	defer SetWarningHandler(nil)

	Warn(NewUndefinedMetricWarning("AUC", "only one class present", 0.5))
	if got == nil || !strings.Contains(got.Error(), "'AUC' is ill-defined") {
		t.Errorf("fallback handler got %v", got)
	}
}

func TestWrapfAndIs(t *testing.T) {
	wrapped := Wrapf(ErrEmptyData, "in %s: expected %d, got %d", "Predict", 10, 5)

	if !Is(wrapped, ErrEmptyData) {
		t.Error("Expected Is(wrapped, ErrEmptyData) to be true")
	}

	expectedMsg := "in Predict: expected 10, got 5"
	if !strings.Contains(wrapped.Error(), expectedMsg) {
		t.Errorf("Expected wrapped error to contain %q", expectedMsg)
	}
}

func TestErrorChaining(t *testing.T) {
	err1 := fmt.Errorf("base error")
	err2 := Wrap(err1, "wrapped once")
	err3 := NewModelError("Operation", "failed", err2)

	if !strings.Contains(err3.Error(), "base error") {
		t.Error("Expected error chain to contain base error")
	}

	formatted := fmt.Sprintf("%+v", err3)
	if !strings.Contains(formatted, "errors_test.go") {
		t.Error("Expected detailed error to contain stack trace")
	}
}
