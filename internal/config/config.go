package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds the server's resolved non-secret defaults plus the
// environment-provided secrets needed to construct embedding
// providers.
type Config struct {
	DBPath string

	Alpha      float64
	BatchSize  int
	K          int
	BM25K      int
	VectorK    int

	ProviderAPIKey  string
	ProviderBaseURL string
}

// Defaults returns the code-level fallback configuration, used when
// neither an env var nor a CUE file supplies a value.
func Defaults() Config {
	return Config{
		DBPath:    "docindex.db",
		Alpha:     0.5,
		BatchSize: 128,
		K:         10,
		BM25K:     50,
		VectorK:   100,
	}
}

// Load resolves configuration: it starts from Defaults, applies
// cuePath's scalar fields if the file exists (a not-exist error from
// loadCUE is swallowed, not an error), then applies environment variable
// overrides, which always win.
func Load(cuePath string) (Config, error) {
	cfg := Defaults()

	if cuePath != "" {
		overlay, err := loadCUE(cuePath)
		if err != nil && !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("config: load cue: %w", err)
		}
		if err == nil {
			applyOverlay(&cfg, overlay)
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("DOCINDEX_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("DOCINDEX_ALPHA"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Alpha = f
		}
	}
	if v := os.Getenv("DOCINDEX_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.BatchSize = n
		}
	}
	if v := os.Getenv("DOCINDEX_K"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.K = n
		}
	}
	if v := os.Getenv("DOCINDEX_BM25_K"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.BM25K = n
		}
	}
	if v := os.Getenv("DOCINDEX_VECTOR_K"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.VectorK = n
		}
	}
	cfg.ProviderAPIKey = os.Getenv("DOCINDEX_PROVIDER_API_KEY")
	if v := os.Getenv("DOCINDEX_PROVIDER_BASE_URL"); v != "" {
		cfg.ProviderBaseURL = v
	}
}
