package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-dnp3/dnp3master/internal/config"
	"github.com/go-dnp3/dnp3master/internal/logx"
)

// InitLogger initializes logx from loaded configuration, matching the
// teacher's InitLogger helper.
func InitLogger(cfg *config.Config) error {
	if err := logx.Init(logx.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

func defaultStateDir() string {
	stateDir := os.Getenv("XDG_STATE_HOME")
	if stateDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "/tmp"
		}
		stateDir = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(stateDir, "dnp3master")
}

func defaultPidFile() string {
	return filepath.Join(defaultStateDir(), "dnp3master.pid")
}
