package loader

import (
	"os"

	"github.com/BurntSushi/toml"

	"github.com/evolvkit/native-runtime/errors"
)

// Config is the on-disk loader configuration, decoded from TOML.
type Config struct {
	SearchPaths   []string `toml:"search_paths"`
	MaxModules    int      `toml:"max_modules"`
	EnableHotSwap *bool    `toml:"enable_hot_swap"`
	MapExecutable *bool    `toml:"map_executable"`
}

// LoadConfig reads a TOML configuration file and merges it over the
// default options. Fields absent from the file keep their defaults.
func LoadConfig(path string) (Options, error) {
	opts := DefaultOptions()

	data, err := os.ReadFile(path)
	if err != nil {
		return opts, errors.New(errors.PhaseLoad, errors.KindIO).
			Detail("read config %s", path).
			Cause(err).
			Build()
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return opts, errors.New(errors.PhaseLoad, errors.KindInvalidArgument).
			Detail("parse config %s", path).
			Cause(err).
			Build()
	}

	if len(cfg.SearchPaths) > 0 {
		opts.SearchPaths = cfg.SearchPaths
	}
	if cfg.MaxModules > 0 {
		opts.MaxModules = cfg.MaxModules
	}
	if cfg.EnableHotSwap != nil {
		opts.EnableHotSwap = *cfg.EnableHotSwap
	}
	if cfg.MapExecutable != nil {
		opts.MapExecutable = *cfg.MapExecutable
	}
	return opts, nil
}
