package census

import (
	"github.com/go-gota/gota/dataframe"
)

// Split separates the label column from the feature columns. The feature
// table keeps schema order.
func Split(schema Schema, df dataframe.DataFrame) (dataframe.DataFrame, []string) {
	labels := df.Col(schema.Label).Records()
	return df.Drop(schema.Label), labels
}
