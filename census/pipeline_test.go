package census

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestPrepare_EndToEnd(t *testing.T) {
	captureWarnings(t)
	rows := strings.SplitAfter(adultRows, "\n")
	train := writeFile(t, "train_data.txt", rows[0]+rows[8]+rows[6])
	test := writeFile(t, "test_data.txt", rows[1]+rows[2])

	var out bytes.Buffer
	ds, err := Prepare(AdultSchema(), train, test, &out)
	if err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}

	if ds.TrainX.Rows() != 2 || ds.TestX.Rows() != 2 {
		t.Fatalf("rows = %d/%d, want 2/2", ds.TrainX.Rows(), ds.TestX.Rows())
	}
	if diff := cmp.Diff(ds.TrainX.Columns, ds.TestX.Columns); diff != "" {
		t.Errorf("train and test columns differ (-train +test):\n%s", diff)
	}
	if diff := cmp.Diff([]int{0, 1}, ds.TrainY); diff != "" {
		t.Errorf("train labels mismatch (-want +got):\n%s", diff)
	}

	// " Private" appears only in test but still gets a train column of zeros
	col := -1
	for j, name := range ds.TrainX.Columns {
		if name == "workclass_ Private" {
			col = j
		}
	}
	if col < 0 {
		t.Fatalf("workclass_ Private missing from %q", ds.TrainX.Columns)
	}
	if ds.TrainX.X.At(0, col) != 0 || ds.TrainX.X.At(1, col) != 0 {
		t.Error("train rows must have 0 in a test-only category column")
	}
	if ds.TestX.X.At(1, col) != 1 {
		t.Error("second test row is Private")
	}

	for _, want := range []string{
		"Loading data...",
		"Total training instances: 3",
		"Number of training instances removed: 1",
		"Total training instances: 2",
		"Standardizing the data...",
	} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
}

func TestPrepare_MissingFile(t *testing.T) {
	var out bytes.Buffer
	if _, err := Prepare(AdultSchema(), "does/not/exist", "nor/this", &out); err == nil {
		t.Error("expected an error for a missing file")
	}
}
