package model

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/sasmita-sabat/censusml/pkg/errors"
)

// CheckXY validates a training pair: non-empty X, y with one column and the
// same number of rows. It returns the sample and feature counts.
func CheckXY(op string, X, y mat.Matrix) (nSamples, nFeatures int, err error) {
	if X == nil || y == nil {
		return 0, 0, errors.NewValueError(op, "nil input")
	}
	nSamples, nFeatures = X.Dims()
	if nSamples == 0 || nFeatures == 0 {
		return 0, 0, errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}
	yRows, yCols := y.Dims()
	if yRows != nSamples {
		return 0, 0, errors.NewDimensionError(op, nSamples, yRows, 0)
	}
	if yCols != 1 {
		return 0, 0, errors.NewDimensionError(op, 1, yCols, 1)
	}
	return nSamples, nFeatures, nil
}

// Labels converts the column vector y to integer class labels. Values that
// are not whole numbers are rejected.
func Labels(op string, y mat.Matrix) ([]int, error) {
	n, _ := y.Dims()
	out := make([]int, n)
	for i := 0; i < n; i++ {
		v := y.At(i, 0)
		if math.IsNaN(v) || v != math.Trunc(v) {
			return nil, errors.NewValidationError("y", "class labels must be integers", v)
		}
		out[i] = int(v)
	}
	return out, nil
}

// UniqueClasses returns the sorted distinct labels.
func UniqueClasses(labels []int) []int {
	seen := make(map[int]struct{})
	for _, l := range labels {
		seen[l] = struct{}{}
	}
	classes := make([]int, 0, len(seen))
	for l := range seen {
		classes = append(classes, l)
	}
	sort.Ints(classes)
	return classes
}

// ClassIndex maps each label to its position in classes.
func ClassIndex(classes []int) map[int]int {
	idx := make(map[int]int, len(classes))
	for i, c := range classes {
		idx[c] = i
	}
	return idx
}

// IntParam reads an integer hyperparameter from a SetParams map, accepting
// Go ints and whole float64 values.
func IntParam(name string, v interface{}) (int, error) {
	switch x := v.(type) {
	case int:
		return x, nil
	case int64:
		return int(x), nil
	case float64:
		if x == math.Trunc(x) {
			return int(x), nil
		}
	}
	return 0, errors.NewValidationError(name, "must be an integer", v)
}

// FloatParam reads a float hyperparameter, accepting any Go number.
func FloatParam(name string, v interface{}) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	}
	return 0, errors.NewValidationError(name, "must be a number", v)
}

// StringParam reads a string hyperparameter.
func StringParam(name string, v interface{}) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", errors.NewValidationError(name, "must be a string", v)
	}
	return s, nil
}
