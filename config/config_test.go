package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/sasmita-sabat/censusml/pkg/errors"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "censusml.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoad_Layering(t *testing.T) {
	path := writeConfig(t, `
train: /data/adult.data
classifier: knn
cv: 5
jobs: 4
pause: false
`)
	t.Setenv("CENSUSML_CV", "10")
	t.Setenv("CENSUSML_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	want := Default()
	want.TrainPath = "/data/adult.data"
	want.Classifier = "knn"
	want.Folds = 10
	want.Jobs = 4
	want.Pause = false
	want.LogLevel = "debug"
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_EmptyFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, "\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_Errors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file: got %v, want os.ErrNotExist", err)
	}
	if _, err := Load(writeConfig(t, "folds: 3\n")); err == nil {
		t.Error("unknown key should be rejected")
	}
	if _, err := Load(writeConfig(t, "cv: [1, 2]\n")); err == nil {
		t.Error("malformed value should be rejected")
	}

	t.Setenv("CENSUSML_JOBS", "many")
	if _, err := Load(""); err == nil {
		t.Error("non-numeric CENSUSML_JOBS should be rejected")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		param  string
	}{
		{"empty train", func(c *Config) { c.TrainPath = "" }, "train"},
		{"empty test", func(c *Config) { c.TestPath = "" }, "test"},
		{"one fold", func(c *Config) { c.Folds = 1 }, "cv"},
		{"negative folds", func(c *Config) { c.Folds = -3 }, "cv"},
		{"zero jobs", func(c *Config) { c.Jobs = 0 }, "jobs"},
		{"jobs below -1", func(c *Config) { c.Jobs = -2 }, "jobs"},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
		{"bad format", func(c *Config) { c.LogFormat = "xml" }, "log_format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			var ve *errors.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("got %v, want ValidationError", err)
			}
			if ve.ParamName != tt.param {
				t.Errorf("ParamName = %q, want %q", ve.ParamName, tt.param)
			}
		})
	}

	cfg := Default()
	cfg.Jobs = -1
	if err := cfg.Validate(); err != nil {
		t.Errorf("jobs=-1 should be valid: %v", err)
	}
}
