package config

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tildaslashalef/semdiff/internal/loggy"
)

//go:embed env.sample
var configFS embed.FS

// WriteSampleEnv writes the embedded env.sample to <configDir>/.env and
// returns the path. An existing file is kept unless overwrite is set, in
// which case it is backed up first.
func WriteSampleEnv(configDir string, overwrite bool) (string, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return "", fmt.Errorf("creating config directory: %w", err)
	}

	target := filepath.Join(configDir, ".env")
	if existing, err := os.ReadFile(target); err == nil {
		if !overwrite {
			return target, nil
		}
		backup := fmt.Sprintf("%s.%s.bak", target, time.Now().Format("2006-01-02"))
		if err := os.WriteFile(backup, existing, 0o600); err != nil {
			return "", fmt.Errorf("failed to write backup file: %w", err)
		}
		loggy.Info("Created backup of existing file", "original", target, "backup", backup)
	}

	data, err := configFS.ReadFile("env.sample")
	if err != nil {
		return "", fmt.Errorf("reading embedded sample: %w", err)
	}
	if err := os.WriteFile(target, data, 0o600); err != nil {
		return "", fmt.Errorf("writing %s: %w", target, err)
	}

	loggy.Info("Wrote sample configuration", "target", target)
	return target, nil
}
