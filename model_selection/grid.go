// Package model_selection provides cross-validation splitters and an
// exhaustive grid search over classifier hyperparameters.
package model_selection

import (
	"fmt"
	"sort"
	"strings"
)

// ParamGrid maps a hyperparameter name to the values to try. A nil value in
// a list is passed through to the estimator (e.g. max_depth=None).
type ParamGrid map[string][]interface{}

// Size returns the number of candidates the grid expands to. An empty grid is
// one candidate with default parameters.
func (g ParamGrid) Size() int {
	n := 1
	for _, values := range g {
		n *= len(values)
	}
	return n
}

// ParameterGrid expands g into its Cartesian product. Keys are iterated in
// sorted order and the last key varies fastest, so candidate indices are
// stable across runs.
func ParameterGrid(g ParamGrid) []map[string]interface{} {
	keys := make([]string, 0, len(g))
	for k := range g {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	candidates := []map[string]interface{}{{}}
	for _, k := range keys {
		values := g[k]
		next := make([]map[string]interface{}, 0, len(candidates)*len(values))
		for _, base := range candidates {
			for _, v := range values {
				c := make(map[string]interface{}, len(base)+1)
				for bk, bv := range base {
					c[bk] = bv
				}
				c[k] = v
				next = append(next, c)
			}
		}
		candidates = next
	}
	return candidates
}

// FormatParams renders params as "k1=v1, k2=v2" in key order, with nil shown
// as None.
func FormatParams(params map[string]interface{}) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		v := params[k]
		if v == nil {
			parts[i] = k + "=None"
			continue
		}
		parts[i] = fmt.Sprintf("%s=%v", k, v)
	}
	return strings.Join(parts, ", ")
}
