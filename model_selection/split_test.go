package model_selection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/sasmita-sabat/censusml/pkg/errors"
)

func checkPartition(t *testing.T, folds []Fold, n int) {
	t.Helper()
	coverage := make(map[int]int)
	for i, fold := range folds {
		assert.Equal(t, n, len(fold.TrainIndices)+len(fold.TestIndices), "Fold %d size", i)
		testSet := make(map[int]bool)
		for _, idx := range fold.TestIndices {
			testSet[idx] = true
			coverage[idx]++
		}
		for _, idx := range fold.TrainIndices {
			assert.False(t, testSet[idx], "Train index %d in test set of fold %d", idx, i)
		}
		assert.IsIncreasing(t, fold.TrainIndices)
		assert.IsIncreasing(t, fold.TestIndices)
	}
	for i := 0; i < n; i++ {
		assert.Equal(t, 1, coverage[i], "Index %d coverage", i)
	}
}

func TestKFold(t *testing.T) {
	t.Run("Basic KFold split", func(t *testing.T) {
		n := 100
		X := mat.NewDense(n, 2, nil)
		y := mat.NewDense(n, 1, nil)
		for i := 0; i < n; i++ {
			X.Set(i, 0, float64(i))
			y.Set(i, 0, float64(i%2))
		}

		kf := NewKFold(5, false, 42)
		assert.Equal(t, 5, kf.GetNSplits())

		folds, err := kf.Split(X, y)
		require.NoError(t, err)
		require.Len(t, folds, 5)
		for i, fold := range folds {
			assert.Equal(t, 80, len(fold.TrainIndices), "Fold %d train size", i)
			assert.Equal(t, 20, len(fold.TestIndices), "Fold %d test size", i)
		}
		assert.Equal(t, 0, folds[0].TestIndices[0])
		assert.Equal(t, 99, folds[4].TestIndices[19])
		checkPartition(t, folds, n)
	})

	t.Run("Uneven sizes go to the first folds", func(t *testing.T) {
		X := mat.NewDense(7, 1, nil)
		folds, err := NewKFold(3, false, 0).Split(X, nil)
		require.NoError(t, err)
		assert.Equal(t, []int{0, 1, 2}, folds[0].TestIndices)
		assert.Equal(t, []int{3, 4}, folds[1].TestIndices)
		assert.Equal(t, []int{5, 6}, folds[2].TestIndices)
	})

	t.Run("Shuffle is seeded", func(t *testing.T) {
		X := mat.NewDense(50, 1, nil)
		a, err := NewKFold(5, true, 7).Split(X, nil)
		require.NoError(t, err)
		b, err := NewKFold(5, true, 7).Split(X, nil)
		require.NoError(t, err)
		plain, err := NewKFold(5, false, 7).Split(X, nil)
		require.NoError(t, err)

		assert.Equal(t, a, b)
		assert.NotEqual(t, plain[0].TestIndices, a[0].TestIndices)
		checkPartition(t, a, 50)
	})

	t.Run("Too many splits", func(t *testing.T) {
		_, err := NewKFold(5, false, 0).Split(mat.NewDense(3, 1, nil), nil)
		var ve *errors.ValidationError
		assert.True(t, errors.As(err, &ve))
	})

	t.Run("Default number of splits", func(t *testing.T) {
		assert.Equal(t, 5, NewKFold(1, false, 0).GetNSplits())
		assert.Equal(t, 5, NewStratifiedKFold(0, false, 0).GetNSplits())
	})
}

func TestStratifiedKFold(t *testing.T) {
	t.Run("Deterministic assignment", func(t *testing.T) {
		X := mat.NewDense(6, 1, nil)
		y := mat.NewDense(6, 1, []float64{0, 0, 0, 0, 1, 1})

		folds, err := NewStratifiedKFold(3, false, 0).Split(X, y)
		require.NoError(t, err)
		assert.Equal(t, []int{0, 1}, folds[0].TestIndices)
		assert.Equal(t, []int{2, 4}, folds[1].TestIndices)
		assert.Equal(t, []int{3, 5}, folds[2].TestIndices)
		assert.Equal(t, []int{2, 3, 4, 5}, folds[0].TrainIndices)
	})

	t.Run("Class proportions are preserved", func(t *testing.T) {
		n := 100
		X := mat.NewDense(n, 1, nil)
		y := mat.NewDense(n, 1, nil)
		for i := 0; i < n; i++ {
			if i%4 == 0 {
				y.Set(i, 0, 1) // 25% positive
			}
		}

		folds, err := NewStratifiedKFold(5, false, 0).Split(X, y)
		require.NoError(t, err)
		checkPartition(t, folds, n)
		for i, fold := range folds {
			pos := 0
			for _, idx := range fold.TestIndices {
				if y.At(idx, 0) == 1 {
					pos++
				}
			}
			assert.Equal(t, 20, len(fold.TestIndices), "Fold %d size", i)
			assert.Equal(t, 5, pos, "Fold %d positives", i)
		}
	})

	t.Run("Shuffle keeps proportions", func(t *testing.T) {
		n := 60
		X := mat.NewDense(n, 1, nil)
		y := mat.NewDense(n, 1, nil)
		for i := 0; i < n/3; i++ {
			y.Set(i, 0, 1)
		}

		folds, err := NewStratifiedKFold(4, true, 3).Split(X, y)
		require.NoError(t, err)
		checkPartition(t, folds, n)
		for _, fold := range folds {
			pos := 0
			for _, idx := range fold.TestIndices {
				pos += int(y.At(idx, 0))
			}
			assert.Equal(t, 5, pos)
		}
	})

	t.Run("Every class smaller than n_splits", func(t *testing.T) {
		X := mat.NewDense(4, 1, nil)
		y := mat.NewDense(4, 1, []float64{0, 0, 1, 1})
		_, err := NewStratifiedKFold(3, false, 0).Split(X, y)
		var ve *errors.ValidationError
		require.True(t, errors.As(err, &ve))
		assert.Equal(t, "n_splits", ve.ParamName)
	})

	t.Run("Non-integer labels", func(t *testing.T) {
		X := mat.NewDense(4, 1, nil)
		y := mat.NewDense(4, 1, []float64{0, 0.5, 1, 1})
		_, err := NewStratifiedKFold(2, false, 0).Split(X, y)
		assert.Error(t, err)
	})
}
