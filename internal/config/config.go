package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

type ServerConfig struct {
	Port string `toml:"port"`
}

type StorageConfig struct {
	// Backend selects the graph persistence driver: "sqlite" or "memgraph".
	Backend string `toml:"backend"`
	// Path is the sqlite database file for the sqlite backend.
	Path string `toml:"path"`
}

type MemgraphConfig struct {
	URI      string `toml:"uri"`
	User     string `toml:"user"`
	Password string `toml:"password"`
}

type ManuscriptConfig struct {
	// Path is the sqlite database file holding chapter text.
	Path string `toml:"path"`
}

type Config struct {
	Server     ServerConfig     `toml:"server"`
	Storage    StorageConfig    `toml:"storage"`
	Memgraph   MemgraphConfig   `toml:"memgraph"`
	Manuscript ManuscriptConfig `toml:"manuscript"`
}

func Default() *Config {
	return &Config{
		Server:     ServerConfig{Port: "8080"},
		Storage:    StorageConfig{Backend: "sqlite", Path: "atlas.db"},
		Memgraph:   MemgraphConfig{URI: "bolt://localhost:7687"},
		Manuscript: ManuscriptConfig{Path: "manuscript.db"},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}

	return cfg, nil
}
