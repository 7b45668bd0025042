package census

import (
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"gonum.org/v1/gonum/mat"

	"github.com/sasmita-sabat/censusml/pkg/errors"
	"github.com/sasmita-sabat/censusml/pkg/log"
	"github.com/sasmita-sabat/censusml/preprocessing"
)

// ScalerState holds the per-column mean and population standard deviation
// fitted on a training table. Apply is the only way to use it; it never
// refits.
type ScalerState struct {
	columns []string
	scaler  *preprocessing.StandardScaler
}

// FitStandardizer fits the numeric columns of train. A column with zero
// standard deviation is accepted; it emits a ZeroVarianceWarning and turns
// into NaN when applied.
func FitStandardizer(schema Schema, train dataframe.DataFrame) (ScalerState, error) {
	X, err := numericMatrix(train, schema.Numeric, "train")
	if err != nil {
		return ScalerState{}, err
	}
	if X == nil {
		return ScalerState{}, errors.NewModelError("census.FitStandardizer", "empty training table", errors.ErrEmptyData)
	}

	scaler := preprocessing.NewStandardScaler(preprocessing.WithFeatureNames(schema.Numeric...))
	if err := scaler.Fit(X); err != nil {
		return ScalerState{}, err
	}
	return ScalerState{
		columns: append([]string(nil), schema.Numeric...),
		scaler:  scaler,
	}, nil
}

// Columns returns the standardized column names.
func (s ScalerState) Columns() []string { return s.columns }

// Mean returns the fitted means in Columns order.
func (s ScalerState) Mean() []float64 { return s.scaler.Mean }

// Std returns the fitted population standard deviations in Columns order.
func (s ScalerState) Std() []float64 { return s.scaler.Scale }

// Apply replaces the numeric columns of df with (x - mean) / std as float
// columns. Other columns are untouched.
func (s ScalerState) Apply(df dataframe.DataFrame) (dataframe.DataFrame, error) {
	if s.scaler == nil {
		return dataframe.DataFrame{}, errors.NewNotFittedError("ScalerState", "Apply")
	}
	X, err := numericMatrix(df, s.columns, "table")
	if err != nil {
		return dataframe.DataFrame{}, err
	}

	scaled := make([][]float64, len(s.columns))
	if X != nil {
		out, err := s.scaler.Transform(X)
		if err != nil {
			return dataframe.DataFrame{}, err
		}
		for j := range s.columns {
			scaled[j] = mat.Col(nil, j, out)
		}
	}

	for j, name := range s.columns {
		values := scaled[j]
		if values == nil {
			values = []float64{}
		}
		df = df.Mutate(series.New(values, series.Float, name))
		if df.Err != nil {
			return dataframe.DataFrame{}, errors.Wrapf(df.Err, "replace column %s", name)
		}
	}
	return df, nil
}

// Standardize fits on train and applies the same statistics to both tables.
func Standardize(schema Schema, train, test dataframe.DataFrame) (dataframe.DataFrame, dataframe.DataFrame, ScalerState, error) {
	state, err := FitStandardizer(schema, train)
	if err != nil {
		return dataframe.DataFrame{}, dataframe.DataFrame{}, ScalerState{}, err
	}
	if train, err = state.Apply(train); err != nil {
		return dataframe.DataFrame{}, dataframe.DataFrame{}, ScalerState{}, errors.Wrap(err, "standardize train")
	}
	if test, err = state.Apply(test); err != nil {
		return dataframe.DataFrame{}, dataframe.DataFrame{}, ScalerState{}, errors.Wrap(err, "standardize test")
	}

	log.GetLoggerWithName("census").Info("Numeric columns standardized",
		log.StageKey, "standardize",
		log.FeaturesKey, len(state.columns),
		"zero_variance", len(state.scaler.ZeroVarianceColumns()),
	)
	return train, test, state, nil
}

// numericMatrix reads columns of df as floats. It returns nil for a table
// without rows.
func numericMatrix(df dataframe.DataFrame, columns []string, table string) (*mat.Dense, error) {
	n := df.Nrow()
	if n == 0 || len(columns) == 0 {
		return nil, nil
	}
	X := mat.NewDense(n, len(columns), nil)
	for j, name := range columns {
		values, err := floatColumn(df, name, table)
		if err != nil {
			return nil, err
		}
		X.SetCol(j, values)
	}
	return X, nil
}

// floatColumn returns column name as floats. String fields are parsed after
// trimming surrounding whitespace.
func floatColumn(df dataframe.DataFrame, name, table string) ([]float64, error) {
	col := df.Col(name)
	if col.Err != nil {
		return nil, errors.Wrapf(col.Err, "column %s", name)
	}
	if col.Type() == series.Float || col.Type() == series.Int {
		return col.Float(), nil
	}
	records := col.Records()
	out := make([]float64, len(records))
	for i, r := range records {
		v, err := strconv.ParseFloat(strings.TrimSpace(r), 64)
		if err != nil {
			return nil, errors.NewParseError(table, i+1, name, "not a number: "+strconv.Quote(r))
		}
		out[i] = v
	}
	return out, nil
}
