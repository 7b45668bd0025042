// Package experiment trains a named classifier on an encoded census dataset
// with a cross-validated grid search and evaluates it on the test split.
package experiment

import (
	"sort"

	"github.com/sasmita-sabat/censusml/core/model"
	"github.com/sasmita-sabat/censusml/model_selection"
	"github.com/sasmita-sabat/censusml/pkg/errors"
	"github.com/sasmita-sabat/censusml/sklearn/naive_bayes"
	"github.com/sasmita-sabat/censusml/sklearn/neighbors"
	"github.com/sasmita-sabat/censusml/sklearn/svm"
	"github.com/sasmita-sabat/censusml/sklearn/tree"
)

// Classifier names accepted by Lookup.
const (
	NaiveBayes   = "naive_bayes"
	DecisionTree = "decision_tree"
	KNN          = "knn"
	SVM          = "svm"
)

// DefaultClassifier is used when no classifier is named.
const DefaultClassifier = NaiveBayes

// Entry pairs a classifier constructor with its search grid.
type Entry struct {
	Name string
	New  func() model.Classifier
	Grid model_selection.ParamGrid
}

var registry = map[string]Entry{
	NaiveBayes: {
		Name: NaiveBayes,
		New:  func() model.Classifier { return naive_bayes.NewGaussianNB() },
		Grid: model_selection.ParamGrid{},
	},
	DecisionTree: {
		Name: DecisionTree,
		New:  func() model.Classifier { return tree.NewDecisionTreeClassifier() },
		Grid: model_selection.ParamGrid{
			"criterion":         {"gini", "entropy"},
			"max_depth":         {nil, 2, 3},
			"min_samples_split": {2, 3, 4},
		},
	},
	KNN: {
		Name: KNN,
		New:  func() model.Classifier { return neighbors.NewKNeighborsClassifier() },
		Grid: model_selection.ParamGrid{
			"n_neighbors": {3, 5, 6, 8, 10, 15},
			"weights":     {"uniform", "distance"},
		},
	},
	SVM: {
		Name: SVM,
		New:  func() model.Classifier { return svm.NewSVC() },
		Grid: model_selection.ParamGrid{
			"C":      {0.1, 1.0, 5.0, 10.0},
			"kernel": {"rbf", "linear"},
			"gamma":  {0.1, 0.5, 1.0},
		},
	},
}

// Names returns the registered classifier names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the entry registered under name, or an
// UnknownClassifierError.
func Lookup(name string) (Entry, error) {
	e, ok := registry[name]
	if !ok {
		return Entry{}, errors.NewUnknownClassifierError(name, Names())
	}
	return e, nil
}
