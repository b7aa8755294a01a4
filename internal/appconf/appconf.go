// Package appconf loads builder configuration from the environment.
// A .env file in the working directory is honored when present.
package appconf

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Environment represents the application runtime environment.
type Environment int

const (
	Development Environment = iota
	Test
	Production
)

func (e Environment) String() string {
	switch e {
	case Test:
		return "test"
	case Production:
		return "production"
	default:
		return "development"
	}
}

// EnvFlagFromString maps an ENV value to an Environment, defaulting to Development.
func EnvFlagFromString(s string) Environment {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "test":
		return Test
	case "production", "prod":
		return Production
	default:
		return Development
	}
}

// DefaultGTFSURL is the Irish Rail static GTFS archive published by TFI.
const DefaultGTFSURL = "https://www.transportforireland.ie/transitData/Data/GTFS_Irish_Rail.zip"

// Config holds all configuration for a builder run.
type Config struct {
	GtfsURL               string
	StaticAuthHeaderKey   string
	StaticAuthHeaderValue string
	OutDir                string
	DBPath                string
	WindowDays            int
	TargetDate            string // YYYYMMDD, empty means "today"
	PruneMode             string // "factual" or "off"
	OverlapMaxDays        int
	ListenAddr            string // empty disables the status API
	RateLimit             int    // requests per second for the status API
	GzipArtifacts         bool
	Env                   Environment
	Verbose               bool
}

// Load reads configuration from a .env file (if any) and the environment.
func Load() (Config, error) {
	// Ignore a missing .env; the environment alone is fine.
	_ = godotenv.Load()

	cfg := Config{
		GtfsURL:               getenvDefault("GTFS_URL", DefaultGTFSURL),
		StaticAuthHeaderKey:   os.Getenv("GTFS_AUTH_HEADER_KEY"),
		StaticAuthHeaderValue: os.Getenv("GTFS_AUTH_HEADER_VALUE"),
		OutDir:                getenvDefault("OUT_DIR", "out"),
		TargetDate:            strings.TrimSpace(os.Getenv("TARGET_DATE")),
		ListenAddr:            os.Getenv("LISTEN_ADDR"),
		GzipArtifacts:         parseBool(os.Getenv("GZIP_ARTIFACTS")),
		Env:                   EnvFlagFromString(os.Getenv("ENV")),
		Verbose:               parseBool(os.Getenv("VERBOSE")),
	}

	cfg.DBPath = getenvDefault("DB_PATH", cfg.OutDir+"/gtfs.db")

	var err error
	if cfg.WindowDays, err = intEnv("WINDOW_DAYS", 90); err != nil {
		return Config{}, err
	}
	if cfg.OverlapMaxDays, err = intEnv("OVERLAP_MAX_DAYS", 45); err != nil {
		return Config{}, err
	}
	if cfg.RateLimit, err = intEnv("RATE_LIMIT", 10); err != nil {
		return Config{}, err
	}

	mode := strings.ToLower(getenvDefault("PRUNE_OVERLAPS", "factual"))
	if mode != "factual" && mode != "off" {
		return Config{}, fmt.Errorf("invalid PRUNE_OVERLAPS: %q (want \"factual\" or \"off\")", mode)
	}
	cfg.PruneMode = mode

	return cfg, nil
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func intEnv(k string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", k, v)
	}
	return n, nil
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	}
	return false
}
