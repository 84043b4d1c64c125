package config

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
)

// loadEnvFiles loads environment variables from .env/.env.local files.
// Existing process environment variables are not overwritten. Missing files
// are not an error.
func loadEnvFiles() {
	for _, envPath := range []string{".env", ".env.local"} {
		if _, err := os.Stat(envPath); err != nil {
			continue
		}
		if err := godotenv.Load(envPath); err != nil {
			slog.Warn("Failed to load env file", "path", envPath, "error", err)
			continue
		}
		slog.Debug("Loaded environment variables", "path", envPath)
	}
}

// applyEnvOverrides maps selected environment variables onto the config.
// Only operational endpoints are overridable; build semantics stay in the file.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ASSETPIPE_NATS_URL"); v != "" {
		cfg.Notify.NATSURL = v
	}
	if v := os.Getenv("ASSETPIPE_OUTPUT_DIR"); v != "" {
		cfg.Output.Dir = v
	}
	if v := os.Getenv("ASSETPIPE_CACHE_DIR"); v != "" {
		cfg.Cache.Dir = v
	}
}
