package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

type Config struct {
	RPCAddress         string `toml:"RPCAddress"`
	DataDir            string `toml:"DataDir"`
	NodeKeyPath        string `toml:"NodeKeyPath"`
	NetworkName        string `toml:"NetworkName"`
	AdminAddress       string `toml:"AdminAddress"`
	ComplianceRegistry string `toml:"ComplianceRegistry"`
	Environment        string `toml:"Environment"`
}

// Load loads the configuration from the given path, creating a default config
// file when none exists yet.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config file %s contains unknown field %s", path, undecoded[0])
	}

	cfg.normalize(path)
	return cfg, nil
}

func (cfg *Config) normalize(path string) {
	dir := filepath.Dir(path)
	if strings.TrimSpace(cfg.RPCAddress) == "" {
		cfg.RPCAddress = "localhost:8645"
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = filepath.Join(dir, "data")
	}
	if strings.TrimSpace(cfg.NodeKeyPath) == "" {
		cfg.NodeKeyPath = filepath.Join(dir, "node.key")
	}
	if strings.TrimSpace(cfg.NetworkName) == "" {
		cfg.NetworkName = "propchain-local"
	}
	cfg.AdminAddress = strings.TrimSpace(cfg.AdminAddress)
	cfg.ComplianceRegistry = strings.TrimSpace(cfg.ComplianceRegistry)
	cfg.Environment = strings.TrimSpace(cfg.Environment)
}

func createDefault(path string) (*Config, error) {
	cfg := &Config{}
	cfg.normalize(path)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	if err := toml.NewEncoder(file).Encode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
