package model_selection

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/sasmita-sabat/censusml/core/model"
	"github.com/sasmita-sabat/censusml/pkg/errors"
)

// Splitter generates train/test index sets for cross-validation.
type Splitter interface {
	Split(X, y mat.Matrix) ([]Fold, error)
	GetNSplits() int
}

// Fold is one train/test partition. Both index lists are ascending.
type Fold struct {
	TrainIndices []int
	TestIndices  []int
}

// KFold splits consecutive blocks of samples into folds. The first
// n % NSplits folds get one extra sample.
type KFold struct {
	NSplits    int
	Shuffle    bool
	RandomSeed int
}

// NewKFold creates a k-fold splitter. nSplits below 2 falls back to 5.
func NewKFold(nSplits int, shuffle bool, randomSeed int) *KFold {
	if nSplits < 2 {
		nSplits = 5
	}
	return &KFold{NSplits: nSplits, Shuffle: shuffle, RandomSeed: randomSeed}
}

// GetNSplits returns the number of folds.
func (kf *KFold) GetNSplits() int {
	return kf.NSplits
}

// Split assigns each sample to exactly one test fold.
func (kf *KFold) Split(X, _ mat.Matrix) ([]Fold, error) {
	nSamples, _ := X.Dims()
	if kf.NSplits > nSamples {
		return nil, errors.NewValidationError("n_splits",
			"cannot be greater than the number of samples", kf.NSplits)
	}

	indices := make([]int, nSamples)
	for i := range indices {
		indices[i] = i
	}
	if kf.Shuffle {
		r := rand.New(rand.NewPCG(uint64(kf.RandomSeed), uint64(kf.RandomSeed)))
		r.Shuffle(len(indices), func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})
	}

	testFold := make([]int, nSamples)
	foldSize := nSamples / kf.NSplits
	remainder := nSamples % kf.NSplits
	current := 0
	for f := 0; f < kf.NSplits; f++ {
		size := foldSize
		if f < remainder {
			size++
		}
		for _, idx := range indices[current : current+size] {
			testFold[idx] = f
		}
		current += size
	}
	return foldsFromAssignment(testFold, kf.NSplits), nil
}

// StratifiedKFold keeps the class proportions of y in every fold. Without
// shuffling, samples of each class are dealt to folds in their original
// order, with per-fold class counts allocated the way scikit-learn does.
type StratifiedKFold struct {
	NSplits    int
	Shuffle    bool
	RandomSeed int
}

// NewStratifiedKFold creates a stratified k-fold splitter. nSplits below 2
// falls back to 5.
func NewStratifiedKFold(nSplits int, shuffle bool, randomSeed int) *StratifiedKFold {
	if nSplits < 2 {
		nSplits = 5
	}
	return &StratifiedKFold{NSplits: nSplits, Shuffle: shuffle, RandomSeed: randomSeed}
}

// GetNSplits returns the number of folds.
func (skf *StratifiedKFold) GetNSplits() int {
	return skf.NSplits
}

// Split generates stratified folds. It fails when NSplits exceeds the sample
// count or the size of every class.
func (skf *StratifiedKFold) Split(X, y mat.Matrix) ([]Fold, error) {
	nSamples, _ := X.Dims()
	if _, _, err := model.CheckXY("StratifiedKFold.Split", X, y); err != nil {
		return nil, err
	}
	if skf.NSplits > nSamples {
		return nil, errors.NewValidationError("n_splits",
			"cannot be greater than the number of samples", skf.NSplits)
	}
	labels, err := model.Labels("StratifiedKFold.Split", y)
	if err != nil {
		return nil, err
	}

	// encode classes by order of first appearance
	code := make(map[int]int)
	encoded := make([]int, nSamples)
	var counts []int
	for i, l := range labels {
		c, ok := code[l]
		if !ok {
			c = len(counts)
			code[l] = c
			counts = append(counts, 0)
		}
		encoded[i] = c
		counts[c]++
	}
	nClasses := len(counts)

	largest := 0
	for _, c := range counts {
		largest = max(largest, c)
	}
	if skf.NSplits > largest {
		return nil, errors.NewValidationError("n_splits",
			"cannot be greater than the number of members in each class", skf.NSplits)
	}

	// allocation[f][k]: samples of class k in fold f, taken from the sorted
	// label sequence dealt round-robin
	sorted := make([]int, 0, nSamples)
	for k := 0; k < nClasses; k++ {
		for j := 0; j < counts[k]; j++ {
			sorted = append(sorted, k)
		}
	}
	allocation := make([][]int, skf.NSplits)
	for f := range allocation {
		allocation[f] = make([]int, nClasses)
		for i := f; i < nSamples; i += skf.NSplits {
			allocation[f][sorted[i]]++
		}
	}

	members := make([][]int, nClasses)
	for i, c := range encoded {
		members[c] = append(members[c], i)
	}

	var r *rand.Rand
	if skf.Shuffle {
		r = rand.New(rand.NewPCG(uint64(skf.RandomSeed), uint64(skf.RandomSeed)))
	}

	testFold := make([]int, nSamples)
	for k := 0; k < nClasses; k++ {
		assign := make([]int, 0, counts[k])
		for f := 0; f < skf.NSplits; f++ {
			for j := 0; j < allocation[f][k]; j++ {
				assign = append(assign, f)
			}
		}
		if r != nil {
			r.Shuffle(len(assign), func(i, j int) {
				assign[i], assign[j] = assign[j], assign[i]
			})
		}
		for j, idx := range members[k] {
			testFold[idx] = assign[j]
		}
	}
	return foldsFromAssignment(testFold, skf.NSplits), nil
}

// foldsFromAssignment builds folds from a per-sample test fold number.
func foldsFromAssignment(testFold []int, nSplits int) []Fold {
	folds := make([]Fold, nSplits)
	for idx, f := range testFold {
		for g := range folds {
			if g == f {
				folds[g].TestIndices = append(folds[g].TestIndices, idx)
			} else {
				folds[g].TrainIndices = append(folds[g].TrainIndices, idx)
			}
		}
	}
	return folds
}

// subset copies the rows of X and y listed in indices.
func subset(X, y *mat.Dense, indices []int) (*mat.Dense, *mat.Dense) {
	_, xCols := X.Dims()
	xs := mat.NewDense(len(indices), xCols, nil)
	ys := mat.NewDense(len(indices), 1, nil)
	for i, idx := range indices {
		xs.SetRow(i, X.RawRowView(idx))
		ys.Set(i, 0, y.At(idx, 0))
	}
	return xs, ys
}
