// Package config loads the TOML configuration that selects a world's
// storage directory, height preset and log level, following the
// read-or-create-default pattern the example proxy's readConfig uses
// (cqdetdev/draco main.go) with github.com/pelletier/go-toml.
package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml"
)

// Config is the on-disk configuration for a voxelcol world.
type Config struct {
	Storage struct {
		// Dir is the directory the leveldb database lives in.
		Dir string `toml:"dir"`
	} `toml:"storage"`
	World struct {
		// Height names a preset registered in world/height, e.g. "overworld".
		Height string `toml:"height"`
	} `toml:"world"`
	Log struct {
		Level string `toml:"level"`
	} `toml:"log"`
}

// Default returns the configuration written out the first time a world is
// created.
func Default() Config {
	c := Config{}
	c.Storage.Dir = "world"
	c.World.Height = "overworld"
	c.Log.Level = "info"
	return c
}

// Load reads the configuration at path, creating it with Default's values
// if it does not yet exist.
func Load(path string) (Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := Default().write(path); err != nil {
			return Config{}, fmt.Errorf("config: write default: %w", err)
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	c := Default()
	if err := toml.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("config: decode %s: %w", path, err)
	}
	return c, nil
}

func (c Config) write(path string) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
