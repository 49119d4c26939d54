package cmd

import (
	"time"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/inquire/cli/config"
)

// Resolution order for every setting: an explicitly set flag, then the
// config file value, then the flag default.

func resolveString(c *cli.Context, name, fromConfig string) string {
	if c.IsSet(name) || fromConfig == "" {
		return c.String(name)
	}
	return fromConfig
}

func resolveInt(c *cli.Context, name string, fromConfig int) int {
	if c.IsSet(name) || fromConfig == 0 {
		return c.Int(name)
	}
	return fromConfig
}

func resolveInt64(c *cli.Context, name string, fromConfig int64) int64 {
	if c.IsSet(name) || fromConfig == 0 {
		return c.Int64(name)
	}
	return fromConfig
}

func resolveFloat(c *cli.Context, name string, fromConfig float64) float64 {
	if c.IsSet(name) || fromConfig == 0 {
		return c.Float64(name)
	}
	return fromConfig
}

func resolveBool(c *cli.Context, name string, fromConfig bool) bool {
	if c.IsSet(name) {
		return c.Bool(name)
	}
	return fromConfig || c.Bool(name)
}

func resolveDuration(c *cli.Context, name string, fromConfig time.Duration) time.Duration {
	if c.IsSet(name) || fromConfig == 0 {
		return c.Duration(name)
	}
	return fromConfig
}

// configVal reads a field from a possibly nil config.
func configVal[T any](cfg *config.Config, get func(*config.Config) T) T {
	if cfg == nil {
		var zero T
		return zero
	}
	return get(cfg)
}
