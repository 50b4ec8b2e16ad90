package config

import (
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"SWEEP_ROOT", "SWEEP_RESULTS_DIR", "SWEEP_MAX_CONCURRENCY", "SWEEP_GRACE_PERIOD", "SWEEP_STAGGER", "SWEEP_STATUS_INTERVAL", "SWEEP_MAKE"} {
		t.Setenv(k, "")
	}

	s, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if s.MaxConcurrency != DefaultMaxConcurrency || s.GracePeriod != DefaultGracePeriod || s.MakeBinary != "make" {
		t.Errorf("defaults = %+v", s)
	}
	if s.ResultsDir != "results_all" {
		t.Errorf("results dir = %s", s.ResultsDir)
	}
}

func TestLoadOverrides(t *testing.T) {
	root := t.TempDir()
	t.Setenv("SWEEP_ROOT", root)
	t.Setenv("SWEEP_RESULTS_DIR", "")
	t.Setenv("SWEEP_MAX_CONCURRENCY", "8")
	t.Setenv("SWEEP_GRACE_PERIOD", "2s")
	t.Setenv("SWEEP_STAGGER", "100ms")

	s, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if s.MaxConcurrency != 8 || s.GracePeriod != 2*time.Second || s.StartStagger != 100*time.Millisecond {
		t.Errorf("overrides = %+v", s)
	}
	if s.ResultsDir != filepath.Join(root, "results_all") {
		t.Errorf("results dir = %s", s.ResultsDir)
	}
	if s.Makefile("alg24") != filepath.Join(root, "makefile_alg24") || s.StatusFile("bracha") != filepath.Join(root, "status_bracha.txt") {
		t.Errorf("derived paths: %s %s", s.Makefile("alg24"), s.StatusFile("bracha"))
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"SWEEP_MAX_CONCURRENCY": "0",
		"SWEEP_GRACE_PERIOD":    "soon",
		"SWEEP_STAGGER":         "-1s",
	}
	for key, val := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, val)
			if _, err := Load(); err == nil {
				t.Errorf("%s=%s accepted", key, val)
			}
		})
	}
}
