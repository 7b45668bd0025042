package census

import (
	"fmt"
	"io"
)

// Prepare runs load, clean, standardize, split and encode in order and
// writes the progress banners and row counts to w.
func Prepare(schema Schema, trainPath, testPath string, w io.Writer) (*Dataset, error) {
	fmt.Fprintln(w, "Loading data...")
	train, test, err := Load(schema, trainPath, testPath)
	if err != nil {
		return nil, err
	}
	fmt.Fprintln(w, "Training Data Loaded.")
	fmt.Fprintf(w, "Total training instances: %d\n", train.Nrow())
	fmt.Fprintf(w, "Total testing instances: %d\n\n", test.Nrow())

	fmt.Fprintln(w, "Cleaning data...")
	train, test, stats := Clean(schema, train, test)
	fmt.Fprintf(w, "Number of training instances removed: %d\n", stats.TrainRemoved)
	fmt.Fprintf(w, "Number of testing instances removed: %d\n", stats.TestRemoved)
	fmt.Fprintf(w, "Total training instances: %d\n", stats.TrainRows)
	fmt.Fprintf(w, "Total testing instances: %d\n\n", stats.TestRows)

	fmt.Fprintln(w, "Standardizing the data...")
	train, test, _, err = Standardize(schema, train, test)
	if err != nil {
		return nil, err
	}

	trainX, trainY := Split(schema, train)
	testX, testY := Split(schema, test)
	return Encode(schema, trainX, trainY, testX, testY)
}
