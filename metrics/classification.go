// Package metrics implements classification scores over gonum vectors.
package metrics

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/sasmita-sabat/censusml/pkg/errors"
)

// logLossEps clips probabilities away from 0 and 1 before taking logs.
const logLossEps = 1e-15

func checkPair(op string, yTrue, yPred *mat.VecDense) (int, error) {
	if yTrue == nil || yPred == nil {
		return 0, errors.NewValueError(op, "nil vector")
	}
	n := yTrue.Len()
	if n == 0 {
		return 0, errors.NewValueError(op, "empty vector")
	}
	if yPred.Len() != n {
		return 0, errors.NewDimensionError(op, n, yPred.Len(), 0)
	}
	return n, nil
}

func checkBinary(op string, y *mat.VecDense) error {
	for i := 0; i < y.Len(); i++ {
		if v := y.AtVec(i); v != 0 && v != 1 {
			return errors.NewValueError(op, "y_true must contain only 0 and 1")
		}
	}
	return nil
}

// Accuracy は正解率（一致したラベルの割合）を計算する
func Accuracy(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("Accuracy", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	correct := 0
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) == yPred.AtVec(i) {
			correct++
		}
	}
	return float64(correct) / float64(n), nil
}

// ClassificationError は誤分類率（1 - Accuracy）を計算する
func ClassificationError(yTrue, yPred *mat.VecDense) (float64, error) {
	acc, err := Accuracy(yTrue, yPred)
	if err != nil {
		return 0, errors.Wrap(err, "ClassificationError")
	}
	return 1 - acc, nil
}

// AUC computes the area under the ROC curve for binary labels with the
// Mann-Whitney rank statistic. Tied scores share their average rank. When
// y_true holds a single class the score is undefined: an
// UndefinedMetricWarning is emitted and 0.5 returned.
func AUC(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("AUC", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	if err := checkBinary("AUC", yTrue); err != nil {
		return 0, err
	}

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return yPred.AtVec(idx[a]) < yPred.AtVec(idx[b])
	})

	var nPos, nNeg int
	rankSumPos := 0.0
	for start := 0; start < n; {
		end := start + 1
		for end < n && yPred.AtVec(idx[end]) == yPred.AtVec(idx[start]) {
			end++
		}
		// ranks are 1-based; the tie group [start, end) shares the mean rank
		avgRank := float64(start+end+1) / 2
		for k := start; k < end; k++ {
			if yTrue.AtVec(idx[k]) == 1 {
				nPos++
				rankSumPos += avgRank
			} else {
				nNeg++
			}
		}
		start = end
	}

	if nPos == 0 || nNeg == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("AUC", "only one class present in y_true", 0.5))
		return 0.5, nil
	}

	u := rankSumPos - float64(nPos*(nPos+1))/2
	return u / float64(nPos*nNeg), nil
}

// AUCMatrix computes AUC on the first column of two matrices, the shape
// estimators return predictions in.
func AUCMatrix(yTrue, yPred mat.Matrix) (float64, error) {
	t, err := FirstColumn("AUC", yTrue)
	if err != nil {
		return 0, err
	}
	p, err := FirstColumn("AUC", yPred)
	if err != nil {
		return 0, err
	}
	return AUC(t, p)
}

// BinaryLogLoss は2値分類の対数損失を計算する。予測確率は [eps, 1-eps] にクリップする。
func BinaryLogLoss(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("BinaryLogLoss", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	if err := checkBinary("BinaryLogLoss", yTrue); err != nil {
		return 0, err
	}

	var sum float64
	for i := 0; i < n; i++ {
		p := errors.ClipValue(yPred.AtVec(i), logLossEps, 1-logLossEps)
		if yTrue.AtVec(i) == 1 {
			sum -= math.Log(p)
		} else {
			sum -= math.Log(1 - p)
		}
	}
	return sum / float64(n), nil
}

// ConfusionMatrix counts predictions per (true, predicted) label pair. Rows
// follow the true label and columns the predicted label, both ordered by
// labels. A nil labels uses the sorted union of both vectors. Pairs whose
// labels are not listed are ignored.
func ConfusionMatrix(yTrue, yPred *mat.VecDense, labels []int) (*mat.Dense, []int, error) {
	n, err := checkPair("ConfusionMatrix", yTrue, yPred)
	if err != nil {
		return nil, nil, err
	}

	if labels == nil {
		seen := make(map[int]struct{})
		for i := 0; i < n; i++ {
			seen[int(yTrue.AtVec(i))] = struct{}{}
			seen[int(yPred.AtVec(i))] = struct{}{}
		}
		for l := range seen {
			labels = append(labels, l)
		}
		sort.Ints(labels)
	}
	if len(labels) == 0 {
		return nil, nil, errors.NewValueError("ConfusionMatrix", "no labels")
	}

	pos := make(map[int]int, len(labels))
	for i, l := range labels {
		pos[l] = i
	}

	cm := mat.NewDense(len(labels), len(labels), nil)
	for i := 0; i < n; i++ {
		r, ok1 := pos[int(yTrue.AtVec(i))]
		c, ok2 := pos[int(yPred.AtVec(i))]
		if ok1 && ok2 {
			cm.Set(r, c, cm.At(r, c)+1)
		}
	}
	return cm, labels, nil
}

// AccuracyMatrix computes Accuracy on the first column of two matrices.
func AccuracyMatrix(yTrue, yPred mat.Matrix) (float64, error) {
	t, err := FirstColumn("Accuracy", yTrue)
	if err != nil {
		return 0, err
	}
	p, err := FirstColumn("Accuracy", yPred)
	if err != nil {
		return 0, err
	}
	return Accuracy(t, p)
}

// FirstColumn copies the first column of m into a vector.
func FirstColumn(op string, m mat.Matrix) (*mat.VecDense, error) {
	if m == nil {
		return nil, errors.NewValueError(op, "nil matrix")
	}
	r, c := m.Dims()
	if r == 0 || c == 0 {
		return nil, errors.NewValueError(op, "empty matrix")
	}
	return mat.NewVecDense(r, mat.Col(nil, 0, m)), nil
}
