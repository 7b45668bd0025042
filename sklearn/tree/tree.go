// Package tree implements a CART decision tree classifier.
package tree

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/sasmita-sabat/censusml/core/model"
	"github.com/sasmita-sabat/censusml/core/parallel"
	"github.com/sasmita-sabat/censusml/pkg/errors"
	"github.com/sasmita-sabat/censusml/pkg/log"
)

const (
	// CriterionGini は Gini 不純度
	CriterionGini = "gini"
	// CriterionEntropy は情報エントロピー
	CriterionEntropy = "entropy"

	// nodes with fewer sample×feature cells than this are searched sequentially
	parallelSplitThreshold = 1 << 16
)

// node is one entry of the flattened tree. Leaves have left == -1.
type node struct {
	feature   int
	threshold float64
	left      int
	right     int
	impurity  float64
	nSamples  int
	counts    []float64
}

// DecisionTreeClassifier は CART による決定木分類器
//
// 各ノードで全特徴量の全閾値（隣接する異なる値の中点）を調べ、
// 不純度の重み付き減少が最大の分割を選ぶ。同点の場合は先に見つかった特徴量を採用する。
type DecisionTreeClassifier struct {
	state *model.StateManager

	criterion       string
	maxDepth        int // 0 means unbounded
	minSamplesSplit int
	minSamplesLeaf  int

	classes             []int
	nClasses_           int
	nodes               []node
	featureImportances_ []float64
}

// Option configures a DecisionTreeClassifier.
type Option func(*DecisionTreeClassifier)

// WithCriterion sets "gini" or "entropy".
func WithCriterion(criterion string) Option {
	return func(dt *DecisionTreeClassifier) { dt.criterion = criterion }
}

// WithMaxDepth limits the depth of the tree. 0 leaves it unbounded.
func WithMaxDepth(depth int) Option {
	return func(dt *DecisionTreeClassifier) { dt.maxDepth = depth }
}

// WithMinSamplesSplit sets the minimum node size that may be split.
func WithMinSamplesSplit(n int) Option {
	return func(dt *DecisionTreeClassifier) { dt.minSamplesSplit = n }
}

// WithMinSamplesLeaf sets the minimum number of samples in each leaf.
func WithMinSamplesLeaf(n int) Option {
	return func(dt *DecisionTreeClassifier) { dt.minSamplesLeaf = n }
}

// NewDecisionTreeClassifier creates a tree with scikit-learn defaults:
// gini, unbounded depth, min_samples_split 2, min_samples_leaf 1.
func NewDecisionTreeClassifier(opts ...Option) *DecisionTreeClassifier {
	dt := &DecisionTreeClassifier{
		state:           model.NewStateManager(),
		criterion:       CriterionGini,
		minSamplesSplit: 2,
		minSamplesLeaf:  1,
	}
	for _, opt := range opts {
		opt(dt)
	}
	return dt
}

func (dt *DecisionTreeClassifier) validate() error {
	if dt.criterion != CriterionGini && dt.criterion != CriterionEntropy {
		return errors.NewValidationError("criterion", "must be 'gini' or 'entropy'", dt.criterion)
	}
	if dt.maxDepth < 0 {
		return errors.NewValidationError("max_depth", "must be positive or unbounded", dt.maxDepth)
	}
	if dt.minSamplesSplit < 2 {
		return errors.NewValidationError("min_samples_split", "must be at least 2", dt.minSamplesSplit)
	}
	if dt.minSamplesLeaf < 1 {
		return errors.NewValidationError("min_samples_leaf", "must be at least 1", dt.minSamplesLeaf)
	}
	return nil
}

// Fit builds the tree from X, y.
func (dt *DecisionTreeClassifier) Fit(X, y mat.Matrix) error {
	if err := dt.validate(); err != nil {
		return err
	}
	nSamples, nFeatures, err := model.CheckXY("DecisionTreeClassifier.Fit", X, y)
	if err != nil {
		return err
	}
	labels, err := model.Labels("DecisionTreeClassifier.Fit", y)
	if err != nil {
		return err
	}

	dt.state.Reset()
	dt.classes = model.UniqueClasses(labels)
	dt.nClasses_ = len(dt.classes)
	classIdx := model.ClassIndex(dt.classes)

	b := &builder{
		dt:          dt,
		X:           mat.DenseCopyOf(X),
		y:           make([]int, nSamples),
		nFeatures:   nFeatures,
		importances: make([]float64, nFeatures),
	}
	for i, l := range labels {
		b.y[i] = classIdx[l]
	}

	idx := make([]int, nSamples)
	for i := range idx {
		idx[i] = i
	}
	dt.nodes = dt.nodes[:0]
	b.grow(idx, 0)

	total := 0.0
	for _, v := range b.importances {
		total += v
	}
	if total > 0 {
		for j := range b.importances {
			b.importances[j] /= total
		}
	}
	dt.featureImportances_ = b.importances

	dt.state.SetDimensions(nFeatures, nSamples)
	dt.state.SetFitted()

	log.GetLoggerWithName("tree").Debug("Decision tree grown",
		log.ModelNameKey, "DecisionTreeClassifier",
		log.SamplesKey, nSamples,
		log.FeaturesKey, nFeatures,
		"tree.depth", dt.GetDepth(),
		"tree.leaves", dt.GetNLeaves(),
	)
	return nil
}

type builder struct {
	dt          *DecisionTreeClassifier
	X           *mat.Dense
	y           []int
	nFeatures   int
	importances []float64
}

type split struct {
	feature     int
	threshold   float64
	improvement float64
	found       bool
}

func (b *builder) impurity(counts []float64, n float64) float64 {
	if n == 0 {
		return 0
	}
	switch b.dt.criterion {
	case CriterionEntropy:
		h := 0.0
		for _, c := range counts {
			if c > 0 {
				p := c / n
				h -= p * math.Log2(p)
			}
		}
		return h
	default:
		g := 1.0
		for _, c := range counts {
			p := c / n
			g -= p * p
		}
		return g
	}
}

// grow appends the subtree for idx and returns its node index.
func (b *builder) grow(idx []int, depth int) int {
	dt := b.dt
	counts := make([]float64, dt.nClasses_)
	for _, i := range idx {
		counts[b.y[i]]++
	}
	n := len(idx)
	imp := b.impurity(counts, float64(n))

	id := len(dt.nodes)
	dt.nodes = append(dt.nodes, node{
		feature:  -1,
		left:     -1,
		right:    -1,
		impurity: imp,
		nSamples: n,
		counts:   counts,
	})

	if imp <= 0 ||
		(dt.maxDepth > 0 && depth >= dt.maxDepth) ||
		n < dt.minSamplesSplit ||
		n < 2*dt.minSamplesLeaf {
		return id
	}

	best := b.bestSplit(idx, counts, imp)
	if !best.found {
		return id
	}

	var left, right []int
	for _, i := range idx {
		if b.X.At(i, best.feature) <= best.threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	b.importances[best.feature] += best.improvement

	l := b.grow(left, depth+1)
	r := b.grow(right, depth+1)
	nd := &dt.nodes[id]
	nd.feature = best.feature
	nd.threshold = best.threshold
	nd.left = l
	nd.right = r
	return id
}

// bestSplit searches every feature. Large nodes fan out over CPU cores; the
// per-feature winners are reduced in feature order so the result does not
// depend on scheduling.
func (b *builder) bestSplit(idx []int, counts []float64, parentImp float64) split {
	perFeature := make([]split, b.nFeatures)
	parallel.ParallelizeWithThreshold(b.nFeatures, parallelSplitThreshold/max(len(idx), 1), func(start, end int) {
		for j := start; j < end; j++ {
			perFeature[j] = b.scanFeature(idx, j, counts, parentImp)
		}
	})

	best := split{}
	for _, s := range perFeature {
		if s.found && (!best.found || s.improvement > best.improvement) {
			best = s
		}
	}
	return best
}

func (b *builder) scanFeature(idx []int, j int, counts []float64, parentImp float64) split {
	dt := b.dt
	n := len(idx)
	sorted := append([]int(nil), idx...)
	sort.SliceStable(sorted, func(a, c int) bool {
		return b.X.At(sorted[a], j) < b.X.At(sorted[c], j)
	})

	leftCounts := make([]float64, len(counts))
	rightCounts := append([]float64(nil), counts...)
	best := split{feature: j}
	nf := float64(n)

	for pos := 0; pos < n-1; pos++ {
		c := b.y[sorted[pos]]
		leftCounts[c]++
		rightCounts[c]--

		v, next := b.X.At(sorted[pos], j), b.X.At(sorted[pos+1], j)
		if v == next {
			continue
		}
		nLeft := pos + 1
		nRight := n - nLeft
		if nLeft < dt.minSamplesLeaf || nRight < dt.minSamplesLeaf {
			continue
		}

		weighted := (float64(nLeft)*b.impurity(leftCounts, float64(nLeft)) +
			float64(nRight)*b.impurity(rightCounts, float64(nRight))) / nf
		improvement := nf * (parentImp - weighted)
		if !best.found || improvement > best.improvement {
			best.found = true
			best.improvement = improvement
			best.threshold = v + (next-v)/2
			// midpoint may round up to next for adjacent floats
			if best.threshold == next {
				best.threshold = v
			}
		}
	}
	return best
}

func (dt *DecisionTreeClassifier) leaf(X mat.Matrix, i int) *node {
	k := 0
	for dt.nodes[k].left != -1 {
		nd := &dt.nodes[k]
		if X.At(i, nd.feature) <= nd.threshold {
			k = nd.left
		} else {
			k = nd.right
		}
	}
	return &dt.nodes[k]
}

func (dt *DecisionTreeClassifier) checkPredict(op string, X mat.Matrix) (int, error) {
	if err := dt.state.RequireFitted("DecisionTreeClassifier", op); err != nil {
		return 0, err
	}
	n, p := X.Dims()
	if err := dt.state.RequireFeatures("DecisionTreeClassifier."+op, p); err != nil {
		return 0, err
	}
	return n, nil
}

// PredictProba returns leaf class frequencies, columns in Classes() order.
func (dt *DecisionTreeClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	n, err := dt.checkPredict("PredictProba", X)
	if err != nil {
		return nil, err
	}
	out := mat.NewDense(n, dt.nClasses_, nil)
	for i := 0; i < n; i++ {
		leaf := dt.leaf(X, i)
		for k, c := range leaf.counts {
			out.Set(i, k, c/float64(leaf.nSamples))
		}
	}
	return out, nil
}

// Predict returns the majority class of each sample's leaf.
func (dt *DecisionTreeClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	n, err := dt.checkPredict("Predict", X)
	if err != nil {
		return nil, err
	}
	out := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		leaf := dt.leaf(X, i)
		best := 0
		for k := 1; k < len(leaf.counts); k++ {
			if leaf.counts[k] > leaf.counts[best] {
				best = k
			}
		}
		out.Set(i, 0, float64(dt.classes[best]))
	}
	return out, nil
}

// Score returns the mean accuracy on X, y, or 0 when prediction fails.
func (dt *DecisionTreeClassifier) Score(X, y mat.Matrix) float64 {
	pred, err := dt.Predict(X)
	if err != nil {
		return 0
	}
	n, _ := y.Dims()
	if n == 0 {
		return 0
	}
	correct := 0
	for i := 0; i < n; i++ {
		if pred.At(i, 0) == y.At(i, 0) {
			correct++
		}
	}
	return float64(correct) / float64(n)
}

// GetDepth returns the depth of the fitted tree; a single leaf has depth 0.
func (dt *DecisionTreeClassifier) GetDepth() int {
	if len(dt.nodes) == 0 {
		return 0
	}
	var depth func(k int) int
	depth = func(k int) int {
		nd := dt.nodes[k]
		if nd.left == -1 {
			return 0
		}
		return 1 + max(depth(nd.left), depth(nd.right))
	}
	return depth(0)
}

// GetNLeaves returns the number of leaves.
func (dt *DecisionTreeClassifier) GetNLeaves() int {
	n := 0
	for _, nd := range dt.nodes {
		if nd.left == -1 {
			n++
		}
	}
	return n
}

// GetFeatureImportances returns the normalised total impurity decrease per feature.
func (dt *DecisionTreeClassifier) GetFeatureImportances() []float64 {
	return append([]float64(nil), dt.featureImportances_...)
}

// Classes returns the class labels in PredictProba column order.
func (dt *DecisionTreeClassifier) Classes() []int {
	return append([]int(nil), dt.classes...)
}

// GetParams returns the hyperparameters. max_depth is nil when unbounded.
func (dt *DecisionTreeClassifier) GetParams() map[string]interface{} {
	var maxDepth interface{}
	if dt.maxDepth > 0 {
		maxDepth = dt.maxDepth
	}
	return map[string]interface{}{
		"criterion":         dt.criterion,
		"max_depth":         maxDepth,
		"min_samples_split": dt.minSamplesSplit,
		"min_samples_leaf":  dt.minSamplesLeaf,
	}
}

// SetParams sets hyperparameters by name. A nil max_depth means unbounded.
func (dt *DecisionTreeClassifier) SetParams(params map[string]interface{}) error {
	for k, v := range params {
		switch k {
		case "criterion":
			s, err := model.StringParam(k, v)
			if err != nil {
				return err
			}
			dt.criterion = s
		case "max_depth":
			if v == nil {
				dt.maxDepth = 0
				continue
			}
			d, err := model.IntParam(k, v)
			if err != nil {
				return err
			}
			if d < 1 {
				return errors.NewValidationError(k, "must be at least 1 or nil", v)
			}
			dt.maxDepth = d
		case "min_samples_split":
			n, err := model.IntParam(k, v)
			if err != nil {
				return err
			}
			dt.minSamplesSplit = n
		case "min_samples_leaf":
			n, err := model.IntParam(k, v)
			if err != nil {
				return err
			}
			dt.minSamplesLeaf = n
		default:
			return errors.NewValidationError(k, "unknown parameter for DecisionTreeClassifier", v)
		}
	}
	return dt.validate()
}

// Clone returns an unfitted tree with the same parameters.
func (dt *DecisionTreeClassifier) Clone() model.Classifier {
	return NewDecisionTreeClassifier(
		WithCriterion(dt.criterion),
		WithMaxDepth(dt.maxDepth),
		WithMinSamplesSplit(dt.minSamplesSplit),
		WithMinSamplesLeaf(dt.minSamplesLeaf),
	)
}

// String implements fmt.Stringer.
func (dt *DecisionTreeClassifier) String() string {
	depth := "None"
	if dt.maxDepth > 0 {
		depth = fmt.Sprint(dt.maxDepth)
	}
	return fmt.Sprintf("DecisionTreeClassifier(criterion=%s, max_depth=%s, min_samples_split=%d, min_samples_leaf=%d)",
		dt.criterion, depth, dt.minSamplesSplit, dt.minSamplesLeaf)
}
