package utils

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads the given files (".env" when none are given) into the
// process environment. Variables already set are never overridden and
// missing files are not an error.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				Logger.Debugf("No %s file found, relying on process environment", f)
				continue
			}
			return err
		}
		Logger.Debugf("Loaded environment from %s", f)
	}
	return nil
}

// EnvOr returns the trimmed value of key, or def when unset or blank.
func EnvOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// EnvInt parses key as an int, returning def when unset. A malformed value
// is logged and ignored.
func EnvInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		Logger.WithError(err).Warnf("Invalid %s '%s', using default %d", key, raw, def)
		return def
	}
	return v
}

// EnvFloat parses key as a float64, returning def when unset or malformed.
func EnvFloat(key string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		Logger.WithError(err).Warnf("Invalid %s '%s', using default %v", key, raw, def)
		return def
	}
	return v
}

// EnvBool parses key as a bool, returning def when unset or malformed.
func EnvBool(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		Logger.WithError(err).Warnf("Invalid %s '%s', using default %t", key, raw, def)
		return def
	}
	return v
}

// EnvDuration parses key with time.ParseDuration ("10m", "30s").
func EnvDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		Logger.WithError(err).Warnf("Invalid %s '%s', using default %v", key, raw, def)
		return def
	}
	return v
}
