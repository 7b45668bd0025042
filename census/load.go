package census

import (
	"encoding/csv"
	"io"
	"os"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/sasmita-sabat/censusml/pkg/errors"
	"github.com/sasmita-sabat/censusml/pkg/log"
)

// Read parses one headerless comma-delimited stream into a table of string
// columns named by the schema. Fields are not trimmed. name identifies the
// stream in errors.
func Read(schema Schema, name string, r io.Reader) (dataframe.DataFrame, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	want := len(schema.Columns)
	cols := make([][]string, want)
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				return dataframe.DataFrame{}, errors.NewParseError(name, pe.Line, "", pe.Err.Error())
			}
			return dataframe.DataFrame{}, errors.Wrapf(err, "read %s", name)
		}
		if len(record) != want {
			line, _ := cr.FieldPos(0)
			return dataframe.DataFrame{}, errors.NewFieldCountError(name, line, want, len(record))
		}
		for j, field := range record {
			cols[j] = append(cols[j], field)
		}
	}

	df := stringFrame(schema.Columns, cols)
	if df.Err != nil {
		return dataframe.DataFrame{}, errors.Wrapf(df.Err, "build table %s", name)
	}
	return df, nil
}

// Load reads the training and test files.
func Load(schema Schema, trainPath, testPath string) (train, test dataframe.DataFrame, err error) {
	start := time.Now()
	if train, err = loadFile(schema, trainPath); err != nil {
		return dataframe.DataFrame{}, dataframe.DataFrame{}, err
	}
	if test, err = loadFile(schema, testPath); err != nil {
		return dataframe.DataFrame{}, dataframe.DataFrame{}, err
	}

	log.GetLoggerWithName("census").Info("Data loaded",
		log.StageKey, "load",
		log.TableKey, "train",
		log.SamplesKey, train.Nrow(),
		log.TestSamplesKey, test.Nrow(),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return train, test, nil
}

func loadFile(schema Schema, path string) (dataframe.DataFrame, error) {
	f, err := os.Open(path)
	if err != nil {
		return dataframe.DataFrame{}, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	log.GetLoggerWithName("census").Debug("Reading table", log.PathKey, path)
	return Read(schema, path, f)
}

// stringFrame builds a table of string columns; cols[j] holds column names[j].
func stringFrame(names []string, cols [][]string) dataframe.DataFrame {
	ss := make([]series.Series, len(names))
	for j, name := range names {
		values := cols[j]
		if values == nil {
			values = []string{}
		}
		ss[j] = series.New(values, series.String, name)
	}
	return dataframe.New(ss...)
}
