package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultMaxConcurrency = 4
	DefaultGracePeriod    = 5 * time.Second
	DefaultStatusInterval = 5 * time.Second
)

// Settings are the environment-level knobs shared by every sweep command.
type Settings struct {
	Root           string // repository holding quantas/, makefiles and result trees
	ResultsDir     string
	MaxConcurrency int
	GracePeriod    time.Duration
	StartStagger   time.Duration
	StatusInterval time.Duration
	MakeBinary     string
	CollectorURL   string
	LogFile        string
}

// ConfigDir is where the generator writes per-peer configuration files.
func (s Settings) ConfigDir() string {
	return filepath.Join(s.Root, "quantas")
}

// Makefile is the per-algorithm makefile the external tool is driven through.
func (s Settings) Makefile(alg string) string {
	return filepath.Join(s.Root, "makefile_"+alg)
}

// StatusFile is the append-only completion log of one algorithm's batch.
func (s Settings) StatusFile(alg string) string {
	return filepath.Join(s.Root, fmt.Sprintf("status_%s.txt", alg))
}

// Load reads .env if present, then the environment.
func Load() (Settings, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	root := getEnv("SWEEP_ROOT", ".")
	s := Settings{
		Root:         root,
		ResultsDir:   getEnv("SWEEP_RESULTS_DIR", filepath.Join(root, "results_all")),
		MakeBinary:   getEnv("SWEEP_MAKE", "make"),
		CollectorURL: os.Getenv("COLLECTOR_URL"),
		LogFile:      os.Getenv("SWEEP_LOG_FILE"),
	}

	var err error
	if s.MaxConcurrency, err = getEnvInt("SWEEP_MAX_CONCURRENCY", DefaultMaxConcurrency); err != nil {
		return Settings{}, err
	}
	if s.MaxConcurrency <= 0 {
		return Settings{}, fmt.Errorf("invalid SWEEP_MAX_CONCURRENCY %d", s.MaxConcurrency)
	}
	if s.GracePeriod, err = getEnvDuration("SWEEP_GRACE_PERIOD", DefaultGracePeriod); err != nil {
		return Settings{}, err
	}
	if s.StartStagger, err = getEnvDuration("SWEEP_STAGGER", 0); err != nil {
		return Settings{}, err
	}
	if s.StatusInterval, err = getEnvDuration("SWEEP_STATUS_INTERVAL", DefaultStatusInterval); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s: negative duration", key)
	}
	return d, nil
}
