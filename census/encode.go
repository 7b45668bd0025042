package census

import (
	"sort"
	"time"

	"github.com/go-gota/gota/dataframe"
	"gonum.org/v1/gonum/mat"

	"github.com/sasmita-sabat/censusml/pkg/errors"
	"github.com/sasmita-sabat/censusml/pkg/log"
)

// Features is an encoded feature matrix with its column names. X is nil when
// there are no rows.
type Features struct {
	Columns []string
	X       *mat.Dense
}

// Rows returns the number of encoded rows.
func (f Features) Rows() int {
	if f.X == nil {
		return 0
	}
	r, _ := f.X.Dims()
	return r
}

// Dataset is the encoded train/test split handed to the classifiers.
type Dataset struct {
	TrainX Features
	TrainY []int
	TestX  Features
	TestY  []int
}

// LabelMatrix returns labels as an n×1 matrix, or nil for no labels.
func LabelMatrix(labels []int) *mat.Dense {
	if len(labels) == 0 {
		return nil
	}
	m := mat.NewDense(len(labels), 1, nil)
	for i, l := range labels {
		m.Set(i, 0, float64(l))
	}
	return m
}

// Encode one-hot encodes the categorical columns of trainX and testX jointly,
// so both outputs share one column layout, and maps the labels to codes.
//
// Columns follow pandas.get_dummies: non-categorical features first in schema
// order, then for each categorical column one indicator per distinct value
// seen in either table, in lexicographic order, named "<column>_<value>".
// A label outside schema.LabelCodes is a LabelError.
func Encode(schema Schema, trainX dataframe.DataFrame, trainY []string, testX dataframe.DataFrame, testY []string) (*Dataset, error) {
	start := time.Now()
	nTrain, nTest := trainX.Nrow(), testX.Nrow()
	if len(trainY) != nTrain {
		return nil, errors.NewDimensionError("census.Encode", nTrain, len(trainY), 0)
	}
	if len(testY) != nTest {
		return nil, errors.NewDimensionError("census.Encode", nTest, len(testY), 0)
	}

	combined := trainX.RBind(testX)
	if combined.Err != nil {
		return nil, errors.Wrap(combined.Err, "concatenate train and test features")
	}

	type block struct {
		values []float64 // pass-through column
		codes  []int     // categorical: index into levels per row
		levels []string
	}
	var blocks []block
	var names []string
	var categorical []block

	for _, column := range combined.Names() {
		if schema.IsCategorical(column) {
			continue
		}
		values, err := floatColumn(combined, column, "features")
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, block{values: values})
		names = append(names, column)
	}
	for _, column := range combined.Names() {
		if !schema.IsCategorical(column) {
			continue
		}
		records := combined.Col(column).Records()
		levels := distinct(records)
		index := make(map[string]int, len(levels))
		for i, l := range levels {
			index[l] = i
			names = append(names, column+"_"+l)
		}
		codes := make([]int, len(records))
		for i, r := range records {
			codes[i] = index[r]
		}
		categorical = append(categorical, block{codes: codes, levels: levels})
	}
	blocks = append(blocks, categorical...)

	width := len(names)
	fill := func(lo, hi int) *mat.Dense {
		if hi == lo {
			return nil
		}
		X := mat.NewDense(hi-lo, width, nil)
		for i := lo; i < hi; i++ {
			row := X.RawRowView(i - lo)
			col := 0
			for _, b := range blocks {
				if b.levels == nil {
					row[col] = b.values[i]
					col++
					continue
				}
				row[col+b.codes[i]] = 1
				col += len(b.levels)
			}
		}
		return X
	}

	trainCodes, err := mapLabels(schema, "train", trainY)
	if err != nil {
		return nil, err
	}
	testCodes, err := mapLabels(schema, "test", testY)
	if err != nil {
		return nil, err
	}

	ds := &Dataset{
		TrainX: Features{Columns: names, X: fill(0, nTrain)},
		TrainY: trainCodes,
		TestX:  Features{Columns: append([]string(nil), names...), X: fill(nTrain, nTrain+nTest)},
		TestY:  testCodes,
	}

	log.GetLoggerWithName("census").Info("Features encoded",
		log.StageKey, "encode",
		log.FeaturesKey, width,
		log.SamplesKey, nTrain,
		log.TestSamplesKey, nTest,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return ds, nil
}

func distinct(values []string) []string {
	seen := make(map[string]struct{}, 16)
	for _, v := range values {
		seen[v] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func mapLabels(schema Schema, table string, labels []string) ([]int, error) {
	out := make([]int, len(labels))
	for i, l := range labels {
		code, ok := schema.LabelCodes[l]
		if !ok {
			return nil, errors.NewLabelError(table, i, l, schema.KnownLabels())
		}
		out[i] = code
	}
	return out, nil
}
