package main

import (
	"bufio"
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"

	"github.com/sasmita-sabat/censusml/census"
	"github.com/sasmita-sabat/censusml/config"
	"github.com/sasmita-sabat/censusml/experiment"
	"github.com/sasmita-sabat/censusml/pkg/log"
	"github.com/sasmita-sabat/censusml/report"
)

const defaultClassifierWarning = "No classifier provided. Using naive_bayes as default."

type flags struct {
	configPath string
	clf        string
	train      string
	test       string
	folds      int
	jobs       int
	noPause    bool
	plot       string
	logLevel   string
	logFormat  string
}

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	var f flags
	cmd := &cobra.Command{
		Use:   "censusml",
		Short: "Predict whether income exceeds $50K/yr from census data",
		Long: `censusml loads the Adult census train/test files, drops rows with missing
values, standardizes the numeric columns, one-hot encodes the categorical ones,
then grid-searches the chosen classifier with cross-validation and reports its
accuracy on the test file.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(cmd, f)
			if err != nil {
				return err
			}
			return run(cmd, cfg, stdin, stdout, stderr)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	fs := cmd.Flags()
	fs.StringVarP(&f.clf, "clf", "c", "", "classifier: naive_bayes, decision_tree, knn or svm")
	fs.StringVar(&f.configPath, "config", "", "YAML config file")
	fs.StringVar(&f.train, "train", "", "training data file")
	fs.StringVar(&f.test, "test", "", "test data file")
	fs.IntVar(&f.folds, "cv", 0, "cross-validation folds")
	fs.IntVar(&f.jobs, "jobs", 0, "concurrent fits, -1 for all CPUs")
	fs.BoolVar(&f.noPause, "no-pause", false, "do not wait for ENTER before training")
	fs.StringVar(&f.plot, "plot", "", "write a chart of CV scores to this file")
	fs.StringVar(&f.logLevel, "log-level", "", "debug, info, warn or error")
	fs.StringVar(&f.logFormat, "log-format", "", "json or console")
	return cmd
}

// resolveConfig layers explicitly set flags over config.Load.
func resolveConfig(cmd *cobra.Command, f flags) (config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return cfg, err
	}
	changed := cmd.Flags().Changed
	if changed("clf") {
		cfg.Classifier = f.clf
	}
	if changed("train") {
		cfg.TrainPath = f.train
	}
	if changed("test") {
		cfg.TestPath = f.test
	}
	if changed("cv") {
		cfg.Folds = f.folds
	}
	if changed("jobs") {
		cfg.Jobs = f.jobs
	}
	if changed("no-pause") {
		cfg.Pause = !f.noPause
	}
	if changed("plot") {
		cfg.PlotPath = f.plot
	}
	if changed("log-level") {
		cfg.LogLevel = f.logLevel
	}
	if changed("log-format") {
		cfg.LogFormat = f.logFormat
	}
	return cfg, cfg.Validate()
}

// classifierName maps anything other than a registered name to the default.
func classifierName(name string) (string, bool) {
	if slices.Contains(experiment.Names(), name) {
		return name, false
	}
	return experiment.DefaultClassifier, true
}

func run(cmd *cobra.Command, cfg config.Config, stdin io.Reader, stdout, stderr io.Writer) error {
	if err := log.SetupLogger(cfg.LogLevel, stderr, cfg.LogFormat == config.FormatConsole); err != nil {
		return err
	}

	name, defaulted := classifierName(cfg.Classifier)
	if defaulted {
		fmt.Fprintln(stdout, defaultClassifierWarning)
		log.GetLoggerWithName("cli").Warn("Classifier defaulted",
			"requested", cfg.Classifier,
			log.ModelNameKey, name,
		)
	}

	ds, err := census.Prepare(census.AdultSchema(), cfg.TrainPath, cfg.TestPath, stdout)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, "\nData sucessfully loaded.")

	if cfg.Pause {
		fmt.Fprint(stdout, "Press ENTER to continue...")
		if _, err := bufio.NewReader(stdin).ReadString('\n'); err != nil && err != io.EOF {
			return err
		}
	}

	res, err := experiment.Evaluate(cmd.Context(), name, ds,
		experiment.WithFolds(cfg.Folds),
		experiment.WithNJobs(cfg.Jobs),
		experiment.WithOutput(stdout),
	)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, "Model Accuracy:", res.AccuracyPercent)

	if cfg.PlotPath != "" {
		if err := report.SaveScores(res.CVResults, name, cfg.PlotPath); err != nil {
			return err
		}
	}
	return nil
}
