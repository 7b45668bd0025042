// Package neighbors implements brute-force k-nearest-neighbour classification.
package neighbors

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/sasmita-sabat/censusml/core/model"
	"github.com/sasmita-sabat/censusml/core/parallel"
	"github.com/sasmita-sabat/censusml/pkg/errors"
)

const (
	// WeightsUniform gives every neighbour one vote.
	WeightsUniform = "uniform"
	// WeightsDistance weights votes by inverse distance.
	WeightsDistance = "distance"

	// query rows per distance block; bounds the block to blockRows×nTrain floats
	blockRows = 256
)

// KNeighborsClassifier はユークリッド距離による k 近傍法分類器
//
// 距離は ‖a‖² + ‖b‖² − 2a·b をブロック単位の行列積で求めて候補を選び、
// 選ばれた k 個については距離を直接計算し直す。
// 等距離の近傍は訓練データの順序が早いものを優先し、投票が同数の場合は小さいクラスを選ぶ。
type KNeighborsClassifier struct {
	state *model.StateManager

	nNeighbors int
	weights    string

	fitX     *mat.Dense
	fitNorms []float64
	fitY     []int // class indices
	classes  []int
}

// Option configures a KNeighborsClassifier.
type Option func(*KNeighborsClassifier)

// WithNNeighbors sets k. Default 5.
func WithNNeighbors(k int) Option {
	return func(knn *KNeighborsClassifier) { knn.nNeighbors = k }
}

// WithWeights sets "uniform" or "distance". Default "uniform".
func WithWeights(weights string) Option {
	return func(knn *KNeighborsClassifier) { knn.weights = weights }
}

// NewKNeighborsClassifier creates a classifier.
func NewKNeighborsClassifier(opts ...Option) *KNeighborsClassifier {
	knn := &KNeighborsClassifier{
		state:      model.NewStateManager(),
		nNeighbors: 5,
		weights:    WeightsUniform,
	}
	for _, opt := range opts {
		opt(knn)
	}
	return knn
}

func (knn *KNeighborsClassifier) validate() error {
	if knn.nNeighbors < 1 {
		return errors.NewValidationError("n_neighbors", "must be at least 1", knn.nNeighbors)
	}
	if knn.weights != WeightsUniform && knn.weights != WeightsDistance {
		return errors.NewValidationError("weights", "must be 'uniform' or 'distance'", knn.weights)
	}
	return nil
}

// Fit stores the training data.
func (knn *KNeighborsClassifier) Fit(X, y mat.Matrix) error {
	if err := knn.validate(); err != nil {
		return err
	}
	nSamples, nFeatures, err := model.CheckXY("KNeighborsClassifier.Fit", X, y)
	if err != nil {
		return err
	}
	labels, err := model.Labels("KNeighborsClassifier.Fit", y)
	if err != nil {
		return err
	}

	knn.state.Reset()
	knn.fitX = mat.DenseCopyOf(X)
	knn.fitNorms = make([]float64, nSamples)
	for i := 0; i < nSamples; i++ {
		row := knn.fitX.RawRowView(i)
		knn.fitNorms[i] = floats.Dot(row, row)
	}
	knn.classes = model.UniqueClasses(labels)
	classIdx := model.ClassIndex(knn.classes)
	knn.fitY = make([]int, nSamples)
	for i, l := range labels {
		knn.fitY[i] = classIdx[l]
	}

	knn.state.SetDimensions(nFeatures, nSamples)
	knn.state.SetFitted()
	return nil
}

type neighbor struct {
	index int
	dist  float64
}

// KNeighbors returns, for every row of X, the indices of its k nearest
// training samples and their distances, nearest first.
func (knn *KNeighborsClassifier) KNeighbors(X mat.Matrix) ([][]int, [][]float64, error) {
	nbrs, err := knn.kneighbors("KNeighbors", X)
	if err != nil {
		return nil, nil, err
	}
	idx := make([][]int, len(nbrs))
	dist := make([][]float64, len(nbrs))
	for i, row := range nbrs {
		idx[i] = make([]int, len(row))
		dist[i] = make([]float64, len(row))
		for j, nb := range row {
			idx[i][j] = nb.index
			dist[i][j] = nb.dist
		}
	}
	return idx, dist, nil
}

func (knn *KNeighborsClassifier) kneighbors(op string, X mat.Matrix) ([][]neighbor, error) {
	if err := knn.state.RequireFitted("KNeighborsClassifier", op); err != nil {
		return nil, err
	}
	nQuery, nFeatures := X.Dims()
	if err := knn.state.RequireFeatures("KNeighborsClassifier."+op, nFeatures); err != nil {
		return nil, err
	}
	_, nFit := knn.state.GetDimensions()
	k := knn.nNeighbors
	if k > nFit {
		return nil, errors.NewValueError("KNeighborsClassifier."+op,
			fmt.Sprintf("expected n_neighbors <= n_samples_fit, got n_neighbors=%d, n_samples_fit=%d", k, nFit))
	}

	query := mat.DenseCopyOf(X)
	out := make([][]neighbor, nQuery)
	nBlocks := (nQuery + blockRows - 1) / blockRows

	parallel.Parallelize(nBlocks, func(startBlock, endBlock int) {
		for blk := startBlock; blk < endBlock; blk++ {
			lo := blk * blockRows
			hi := min(lo+blockRows, nQuery)
			knn.searchBlock(query, lo, hi, k, out)
		}
	})
	return out, nil
}

// searchBlock fills out[lo:hi] with the k nearest neighbours of those query rows.
func (knn *KNeighborsClassifier) searchBlock(query *mat.Dense, lo, hi, k int, out [][]neighbor) {
	nFit, nFeatures := knn.fitX.Dims()
	block := query.Slice(lo, hi, 0, nFeatures)

	var cross mat.Dense
	cross.Mul(block, knn.fitX.T())

	for r := 0; r < hi-lo; r++ {
		q := query.RawRowView(lo + r)
		qNorm := floats.Dot(q, q)

		// best holds the k smallest squared distances seen so far, ascending;
		// strict comparison keeps the earlier training row on ties
		best := make([]neighbor, 0, k)
		for j := 0; j < nFit; j++ {
			d := qNorm + knn.fitNorms[j] - 2*cross.At(r, j)
			if len(best) == k && d >= best[k-1].dist {
				continue
			}
			pos := sort.Search(len(best), func(i int) bool { return best[i].dist > d })
			if len(best) < k {
				best = append(best, neighbor{})
			}
			copy(best[pos+1:], best[pos:len(best)-1])
			best[pos] = neighbor{index: j, dist: d}
		}

		for n := range best {
			best[n].dist = floats.Distance(q, knn.fitX.RawRowView(best[n].index), 2)
		}
		sort.SliceStable(best, func(a, b int) bool {
			if best[a].dist != best[b].dist {
				return best[a].dist < best[b].dist
			}
			return best[a].index < best[b].index
		})
		out[lo+r] = best
	}
}

// votes returns the per-class vote totals of one neighbourhood.
func (knn *KNeighborsClassifier) votes(row []neighbor) []float64 {
	v := make([]float64, len(knn.classes))
	if knn.weights == WeightsUniform {
		for _, nb := range row {
			v[knn.fitY[nb.index]]++
		}
		return v
	}

	// exact matches take all the weight
	exact := false
	for _, nb := range row {
		if nb.dist == 0 {
			exact = true
			v[knn.fitY[nb.index]]++
		}
	}
	if exact {
		return v
	}
	for _, nb := range row {
		v[knn.fitY[nb.index]] += 1 / nb.dist
	}
	return v
}

// PredictProba returns normalised neighbour votes, columns in Classes() order.
func (knn *KNeighborsClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	nbrs, err := knn.kneighbors("PredictProba", X)
	if err != nil {
		return nil, err
	}
	out := mat.NewDense(len(nbrs), len(knn.classes), nil)
	for i, row := range nbrs {
		v := knn.votes(row)
		total := floats.Sum(v)
		for c := range v {
			out.Set(i, c, v[c]/total)
		}
	}
	return out, nil
}

// Predict returns the class with the most (weighted) votes.
func (knn *KNeighborsClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	nbrs, err := knn.kneighbors("Predict", X)
	if err != nil {
		return nil, err
	}
	out := mat.NewDense(len(nbrs), 1, nil)
	for i, row := range nbrs {
		v := knn.votes(row)
		best := 0
		for c := 1; c < len(v); c++ {
			if v[c] > v[best] {
				best = c
			}
		}
		out.Set(i, 0, float64(knn.classes[best]))
	}
	return out, nil
}

// Classes returns the class labels in PredictProba column order.
func (knn *KNeighborsClassifier) Classes() []int {
	return append([]int(nil), knn.classes...)
}

// GetParams returns the hyperparameters.
func (knn *KNeighborsClassifier) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"n_neighbors": knn.nNeighbors,
		"weights":     knn.weights,
	}
}

// SetParams sets n_neighbors and weights.
func (knn *KNeighborsClassifier) SetParams(params map[string]interface{}) error {
	for k, v := range params {
		switch k {
		case "n_neighbors":
			n, err := model.IntParam(k, v)
			if err != nil {
				return err
			}
			knn.nNeighbors = n
		case "weights":
			s, err := model.StringParam(k, v)
			if err != nil {
				return err
			}
			knn.weights = s
		default:
			return errors.NewValidationError(k, "unknown parameter for KNeighborsClassifier", v)
		}
	}
	return knn.validate()
}

// Clone returns an unfitted classifier with the same parameters.
func (knn *KNeighborsClassifier) Clone() model.Classifier {
	return NewKNeighborsClassifier(WithNNeighbors(knn.nNeighbors), WithWeights(knn.weights))
}

// String implements fmt.Stringer.
func (knn *KNeighborsClassifier) String() string {
	return fmt.Sprintf("KNeighborsClassifier(n_neighbors=%d, weights=%s)", knn.nNeighbors, knn.weights)
}
