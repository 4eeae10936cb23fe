//go:build !tinygo

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"trafficlight-go/errcode"

	"github.com/caarlos0/env"
	"github.com/pelletier/go-toml/v2"
)

// Load builds a Config with precedence env > file > profile. The profile is
// the board named in the file's [board] section, or "host" when none is
// given. A missing file is not an error; an unreadable or malformed one is.
func Load(path string) (Config, error) {
	var data []byte
	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case err == nil:
			data = b
		case errors.Is(err, fs.ErrNotExist):
		default:
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	}
	return Parse(data)
}

// Parse is Load on in-memory TOML.
func Parse(data []byte) (Config, error) {
	name := "host"
	if len(data) > 0 {
		var head struct {
			Board struct {
				Name string `toml:"name"`
			} `toml:"board"`
		}
		if err := toml.Unmarshal(data, &head); err != nil {
			return Config{}, fmt.Errorf("config: parse: %w", err)
		}
		if head.Board.Name != "" {
			name = head.Board.Name
		}
	}
	if v := os.Getenv("TL_BOARD"); v != "" {
		name = v
	}
	cfg, ok := ProfileLookup(name)
	if !ok {
		return Config{}, &errcode.E{C: errcode.Unsupported, Op: "config.load", Msg: "unknown board " + name}
	}

	if len(data) > 0 {
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse: %w", err)
		}
	}
	for _, section := range []any{&cfg.Board, &cfg.Timing, &cfg.Timing.Durations} {
		if err := env.Parse(section); err != nil {
			return Config{}, fmt.Errorf("config: environment: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Encode renders cfg as TOML, e.g. for "trafficsim config".
func Encode(cfg Config) ([]byte, error) {
	return toml.Marshal(cfg)
}
