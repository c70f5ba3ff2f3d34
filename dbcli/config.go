package dbcli

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the server settings loaded from the yaml config file.
type Config struct {
	Listen    string `yaml:"listen"`
	DataDir   string `yaml:"dataDir"`
	DBName    string `yaml:"dbName"`
	CacheRows int64  `yaml:"cacheRows"`
}

// DefaultConfig returns the settings used when no config file is present.
func DefaultConfig() Config {
	return Config{
		Listen:    ":3000",
		DataDir:   "files",
		CacheRows: 1024,
	}
}

// LoadConfig reads path and overlays it on the defaults. A missing file is
// not an error; the defaults are returned as-is.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if cfg.Listen == "" {
		cfg.Listen = ":3000"
	}
	if cfg.DataDir == "" {
		cfg.DataDir = "files"
	}
	if cfg.CacheRows <= 0 {
		cfg.CacheRows = 1024
	}
	return cfg, nil
}
