// Package census implements the census income data pipeline: loading the two
// headerless files, dropping rows with missing values, standardizing numeric
// columns, splitting off the label and one-hot encoding the features.
//
// Tables are gota DataFrames. Every stage takes the Schema explicitly; column
// order in the Schema is the column order of every table the package returns.
package census

import (
	"sort"

	"github.com/sasmita-sabat/censusml/pkg/errors"
)

// Schema describes a delimited census table.
type Schema struct {
	// Columns lists every column name in file order, label included.
	Columns []string
	// Numeric columns are standardized and passed through encoding.
	Numeric []string
	// Categorical columns are one-hot encoded. Every feature column that is
	// not numeric is categorical.
	Categorical []string
	// Label is the name of the target column.
	Label string
	// LabelCodes maps raw label strings to class codes.
	LabelCodes map[string]int
	// Missing is the raw field value that marks a missing entry.
	Missing string
}

// AdultSchema returns the schema of the UCI adult census files.
func AdultSchema() Schema {
	s, err := NewSchema(
		[]string{
			"age", "workclass", "fnlwgt", "education", "education-num",
			"marital-status", "occupation", "relationship", "race",
			"sex", "capital-gain", "capital-loss", "hours-per-week",
			"native-country", "income",
		},
		[]string{"age", "fnlwgt", "education-num", "capital-gain", "capital-loss", "hours-per-week"},
		"income",
		map[string]int{" <=50K": 0, " >50K": 1},
		" ?",
	)
	if err != nil {
		panic(err)
	}
	return s
}

// NewSchema builds a Schema, deriving the categorical columns. It rejects
// duplicate names and numeric or label columns that are not in columns.
func NewSchema(columns, numeric []string, label string, labelCodes map[string]int, missing string) (Schema, error) {
	pos := make(map[string]int, len(columns))
	for i, c := range columns {
		if _, dup := pos[c]; dup {
			return Schema{}, errors.NewValidationError("columns", "duplicate column name", c)
		}
		pos[c] = i
	}
	if _, ok := pos[label]; !ok {
		return Schema{}, errors.NewValidationError("label", "not a column", label)
	}
	if len(labelCodes) == 0 {
		return Schema{}, errors.NewValidationError("label_codes", "at least one label is required", labelCodes)
	}

	isNumeric := make(map[string]bool, len(numeric))
	for _, c := range numeric {
		if _, ok := pos[c]; !ok {
			return Schema{}, errors.NewValidationError("numeric", "not a column", c)
		}
		if c == label {
			return Schema{}, errors.NewValidationError("numeric", "label column cannot be numeric", c)
		}
		isNumeric[c] = true
	}

	s := Schema{
		Columns:    append([]string(nil), columns...),
		Label:      label,
		LabelCodes: make(map[string]int, len(labelCodes)),
		Missing:    missing,
	}
	for _, c := range columns {
		switch {
		case c == label:
		case isNumeric[c]:
			s.Numeric = append(s.Numeric, c)
		default:
			s.Categorical = append(s.Categorical, c)
		}
	}
	for k, v := range labelCodes {
		s.LabelCodes[k] = v
	}
	return s, nil
}

// Features returns the feature column names in schema order.
func (s Schema) Features() []string {
	out := make([]string, 0, len(s.Columns)-1)
	for _, c := range s.Columns {
		if c != s.Label {
			out = append(out, c)
		}
	}
	return out
}

// IsCategorical reports whether column is one-hot encoded.
func (s Schema) IsCategorical(column string) bool {
	for _, c := range s.Categorical {
		if c == column {
			return true
		}
	}
	return false
}

// KnownLabels returns the raw label strings ordered by code.
func (s Schema) KnownLabels() []string {
	out := make([]string, 0, len(s.LabelCodes))
	for k := range s.LabelCodes {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		ci, cj := s.LabelCodes[out[i]], s.LabelCodes[out[j]]
		if ci != cj {
			return ci < cj
		}
		return out[i] < out[j]
	})
	return out
}
