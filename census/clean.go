package census

import (
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/sasmita-sabat/censusml/pkg/log"
)

// CleanStats reports what Clean removed and what is left.
type CleanStats struct {
	TrainRemoved int
	TestRemoved  int
	TrainRows    int
	TestRows     int
}

// Clean drops every row of train and test that has a missing value in any
// column. A field equal to schema.Missing counts as missing. Surviving rows
// keep their order.
func Clean(schema Schema, train, test dataframe.DataFrame) (dataframe.DataFrame, dataframe.DataFrame, CleanStats) {
	cleanTrain, trainRemoved := dropMissing(train, schema.Missing)
	cleanTest, testRemoved := dropMissing(test, schema.Missing)

	stats := CleanStats{
		TrainRemoved: trainRemoved,
		TestRemoved:  testRemoved,
		TrainRows:    cleanTrain.Nrow(),
		TestRows:     cleanTest.Nrow(),
	}
	log.GetLoggerWithName("census").Info("Rows with missing values dropped",
		log.StageKey, "clean",
		log.RemovedKey, trainRemoved+testRemoved,
		log.SamplesKey, stats.TrainRows,
		log.TestSamplesKey, stats.TestRows,
	)
	return cleanTrain, cleanTest, stats
}

// dropMissing marks sentinel fields as NaN and keeps the rows with no NaN.
func dropMissing(df dataframe.DataFrame, sentinel string) (dataframe.DataFrame, int) {
	n := df.Nrow()
	missing := make([]bool, n)
	for _, name := range df.Names() {
		col := df.Col(name)
		if col.Type() == series.String {
			values := col.Records()
			for i, v := range values {
				if v == sentinel {
					values[i] = "NaN"
				}
			}
			col = series.New(values, series.String, name)
		}
		for i, nan := range col.IsNaN() {
			if nan {
				missing[i] = true
			}
		}
	}

	keep := make([]int, 0, n)
	for i, m := range missing {
		if !m {
			keep = append(keep, i)
		}
	}
	removed := n - len(keep)
	switch {
	case removed == 0:
		return df, 0
	case len(keep) == 0:
		return emptyLike(df), removed
	}
	return df.Subset(keep), removed
}

// emptyLike returns a table with the columns of df and no rows.
func emptyLike(df dataframe.DataFrame) dataframe.DataFrame {
	names := df.Names()
	ss := make([]series.Series, len(names))
	for j, name := range names {
		ss[j] = series.New([]string{}, df.Col(name).Type(), name)
	}
	return dataframe.New(ss...)
}
