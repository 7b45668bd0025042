package svm

import (
	"math"

	"github.com/golang/groupcache/lru"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Kernel names accepted by SVC.
const (
	KernelRBF     = "rbf"
	KernelLinear  = "linear"
	KernelPoly    = "poly"
	KernelSigmoid = "sigmoid"
)

// kernel evaluates K(a, b) for one kernel type with resolved parameters.
type kernel struct {
	kind   string
	gamma  float64
	coef0  float64
	degree int
}

// eval computes K(a, b). For rbf, aNorm and bNorm are the squared norms of a
// and b; other kernels ignore them.
func (k kernel) eval(a, b []float64, aNorm, bNorm float64) float64 {
	dot := floats.Dot(a, b)
	switch k.kind {
	case KernelLinear:
		return dot
	case KernelPoly:
		return math.Pow(k.gamma*dot+k.coef0, float64(k.degree))
	case KernelSigmoid:
		return math.Tanh(k.gamma*dot + k.coef0)
	default:
		d := aNorm + bNorm - 2*dot
		if d < 0 {
			d = 0
		}
		return math.Exp(-k.gamma * d)
	}
}

func rowNorms(X *mat.Dense) []float64 {
	n, _ := X.Dims()
	norms := make([]float64, n)
	for i := 0; i < n; i++ {
		row := X.RawRowView(i)
		norms[i] = floats.Dot(row, row)
	}
	return norms
}

// qMatrix serves rows of Q_ij = y_i y_j K(x_i, x_j) from an LRU cache sized
// in megabytes. Not safe for concurrent use; each solver owns one.
type qMatrix struct {
	X     *mat.Dense
	y     []float64
	norms []float64
	k     kernel
	diag  []float64
	cache *lru.Cache

	hits, misses int
}

func newQMatrix(X *mat.Dense, y []float64, k kernel, cacheMB float64) *qMatrix {
	n, _ := X.Dims()
	q := &qMatrix{
		X:     X,
		y:     y,
		norms: rowNorms(X),
		k:     k,
		diag:  make([]float64, n),
	}

	rows := int(cacheMB * (1 << 20) / float64(8*max(n, 1)))
	if rows < 2 {
		rows = 2
	}
	q.cache = lru.New(rows)

	for i := 0; i < n; i++ {
		xi := X.RawRowView(i)
		q.diag[i] = k.eval(xi, xi, q.norms[i], q.norms[i])
	}
	return q
}

// row returns Q_i. The slice is shared with the cache and must not be modified.
func (q *qMatrix) row(i int) []float64 {
	if v, ok := q.cache.Get(i); ok {
		q.hits++
		return v.([]float64)
	}
	q.misses++

	n := len(q.y)
	out := make([]float64, n)
	xi := q.X.RawRowView(i)
	for j := 0; j < n; j++ {
		out[j] = q.y[i] * q.y[j] * q.k.eval(xi, q.X.RawRowView(j), q.norms[i], q.norms[j])
	}
	q.cache.Add(i, out)
	return out
}
