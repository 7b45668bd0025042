// Package censusml predicts whether a person's income exceeds $50K/yr from
// the UCI Adult census data.
//
// The work is split into small packages:
//
//   - census: load the comma-separated train/test files, drop rows holding
//     the " ?" missing-value marker, standardize numeric columns with
//     training statistics, split off the income label and one-hot encode
//     both tables into one shared column layout.
//   - sklearn/naive_bayes, sklearn/tree, sklearn/neighbors, sklearn/svm:
//     the four classifiers, with a scikit-learn-like Fit/Predict API.
//   - model_selection: parameter grids, (stratified) k-fold splits and
//     GridSearchCV.
//   - experiment: the named-classifier registry and Evaluate, which
//     grid-searches on train and scores accuracy on test.
//   - config, report, cmd/censusml: run configuration, score charts and
//     the command-line entry point.
//
// # Quick Start
//
//	schema := census.AdultSchema()
//	ds, err := census.Prepare(schema, "data/train_data.txt", "data/test_data.txt", os.Stdout)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	res, err := experiment.Evaluate(ctx, experiment.KNN, ds, experiment.WithOutput(os.Stdout))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println("Model Accuracy:", res.AccuracyPercent)
//
// From the command line:
//
//	censusml -c decision_tree --jobs -1
//
// # Errors
//
// Failures are typed (see pkg/errors): ParseError for malformed input,
// LabelError for an income value outside the known classes and
// UnknownClassifierError for an unregistered classifier name. Numerical
// conditions such as a zero-variance column are reported as warnings
// through the structured logger and do not stop the run.
package censusml
