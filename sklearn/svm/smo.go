package svm

import (
	"math"
)

// tau replaces a non-positive curvature in the two-variable subproblem.
const tau = 1e-12

// solution is the result of one binary C-SVC problem.
type solution struct {
	alpha      []float64
	rho        float64
	iterations int
	converged  bool
}

// solver minimises ½αᵀQα − eᵀα subject to yᵀα = 0 and 0 ≤ α ≤ C with
// sequential minimal optimisation. Working pairs are chosen by maximal
// violation for i and second-order gain for j; no shrinking is applied.
type solver struct {
	q       *qMatrix
	y       []float64
	c       float64
	eps     float64
	maxIter int

	alpha []float64
	grad  []float64
}

func newSolver(q *qMatrix, y []float64, c, eps float64, maxIter int) *solver {
	n := len(y)
	s := &solver{
		q:       q,
		y:       y,
		c:       c,
		eps:     eps,
		maxIter: maxIter,
		alpha:   make([]float64, n),
		grad:    make([]float64, n),
	}
	for i := range s.grad {
		s.grad[i] = -1
	}
	return s
}

func (s *solver) isUpper(i int) bool { return s.alpha[i] >= s.c }
func (s *solver) isLower(i int) bool { return s.alpha[i] <= 0 }

// selectWorkingSet returns the pair (i, j) to optimise, or ok == false once
// the maximal violation is below eps.
func (s *solver) selectWorkingSet() (i, j int, ok bool) {
	gMax := math.Inf(-1)
	gMax2 := math.Inf(-1)
	i, j = -1, -1

	for t := range s.y {
		if s.y[t] > 0 {
			if !s.isUpper(t) && -s.grad[t] >= gMax {
				gMax = -s.grad[t]
				i = t
			}
		} else if !s.isLower(t) && s.grad[t] >= gMax {
			gMax = s.grad[t]
			i = t
		}
	}
	if i == -1 {
		return -1, -1, false
	}

	qi := s.q.row(i)
	objMin := math.Inf(1)
	for t := range s.y {
		var gradDiff, quad float64
		if s.y[t] > 0 {
			if s.isLower(t) {
				continue
			}
			if s.grad[t] >= gMax2 {
				gMax2 = s.grad[t]
			}
			gradDiff = gMax + s.grad[t]
			quad = s.q.diag[i] + s.q.diag[t] - 2*s.y[i]*qi[t]
		} else {
			if s.isUpper(t) {
				continue
			}
			if -s.grad[t] >= gMax2 {
				gMax2 = -s.grad[t]
			}
			gradDiff = gMax - s.grad[t]
			quad = s.q.diag[i] + s.q.diag[t] + 2*s.y[i]*qi[t]
		}
		if gradDiff <= 0 {
			continue
		}
		if quad <= 0 {
			quad = tau
		}
		if obj := -(gradDiff * gradDiff) / quad; obj <= objMin {
			objMin = obj
			j = t
		}
	}

	if gMax+gMax2 < s.eps || j == -1 {
		return -1, -1, false
	}
	return i, j, true
}

// step solves the two-variable subproblem for (i, j) analytically and updates
// the gradient.
func (s *solver) step(i, j int) {
	qi := s.q.row(i)
	qj := s.q.row(j)
	c := s.c
	oldI, oldJ := s.alpha[i], s.alpha[j]

	if s.y[i] != s.y[j] {
		quad := s.q.diag[i] + s.q.diag[j] + 2*qi[j]
		if quad <= 0 {
			quad = tau
		}
		delta := (-s.grad[i] - s.grad[j]) / quad
		diff := oldI - oldJ
		s.alpha[i] += delta
		s.alpha[j] += delta

		if diff > 0 {
			if s.alpha[j] < 0 {
				s.alpha[j] = 0
				s.alpha[i] = diff
			}
		} else if s.alpha[i] < 0 {
			s.alpha[i] = 0
			s.alpha[j] = -diff
		}
		if diff > 0 {
			if s.alpha[i] > c {
				s.alpha[i] = c
				s.alpha[j] = c - diff
			}
		} else if s.alpha[j] > c {
			s.alpha[j] = c
			s.alpha[i] = c + diff
		}
	} else {
		quad := s.q.diag[i] + s.q.diag[j] - 2*qi[j]
		if quad <= 0 {
			quad = tau
		}
		delta := (s.grad[i] - s.grad[j]) / quad
		sum := oldI + oldJ
		s.alpha[i] -= delta
		s.alpha[j] += delta

		if sum > c {
			if s.alpha[i] > c {
				s.alpha[i] = c
				s.alpha[j] = sum - c
			}
		} else if s.alpha[j] < 0 {
			s.alpha[j] = 0
			s.alpha[i] = sum
		}
		if sum > c {
			if s.alpha[j] > c {
				s.alpha[j] = c
				s.alpha[i] = sum - c
			}
		} else if s.alpha[i] < 0 {
			s.alpha[i] = 0
			s.alpha[j] = sum
		}
	}

	dI := s.alpha[i] - oldI
	dJ := s.alpha[j] - oldJ
	for t := range s.grad {
		s.grad[t] += qi[t]*dI + qj[t]*dJ
	}
}

// rho returns the offset b of the decision function Σ αᵢyᵢK(xᵢ, x) − b,
// averaged over free vectors or taken midway between the bounds.
func (s *solver) rho() float64 {
	ub, lb := math.Inf(1), math.Inf(-1)
	nFree := 0
	sumFree := 0.0

	for i := range s.y {
		yG := s.y[i] * s.grad[i]
		switch {
		case s.isUpper(i):
			if s.y[i] < 0 {
				ub = math.Min(ub, yG)
			} else {
				lb = math.Max(lb, yG)
			}
		case s.isLower(i):
			if s.y[i] > 0 {
				ub = math.Min(ub, yG)
			} else {
				lb = math.Max(lb, yG)
			}
		default:
			nFree++
			sumFree += yG
		}
	}
	if nFree > 0 {
		return sumFree / float64(nFree)
	}
	return (ub + lb) / 2
}

func (s *solver) solve() solution {
	iter := 0
	converged := false
	for {
		if s.maxIter > 0 && iter >= s.maxIter {
			break
		}
		i, j, ok := s.selectWorkingSet()
		if !ok {
			converged = true
			break
		}
		s.step(i, j)
		iter++
	}
	return solution{
		alpha:      s.alpha,
		rho:        s.rho(),
		iterations: iter,
		converged:  converged,
	}
}
