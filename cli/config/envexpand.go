// Package config handles YAML config file loading for inquire export.
package config

import (
	"os"
	"regexp"
)

// envVarPattern matches ${VAR} and ${VAR:-default}.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}]*))?\}`)

// ExpandEnv replaces ${VAR} with the variable's value and ${VAR:-default}
// with the value, or default when the variable is unset or empty.
//
// Unset variables without defaults expand to empty string (not an error);
// a missing secret is reported by Config.Validate.
func ExpandEnv(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if value := os.Getenv(groups[1]); value != "" {
			return value
		}
		return groups[2]
	})
}
