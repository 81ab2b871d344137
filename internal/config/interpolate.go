package config

import (
	"os"
	"regexp"
)

var envPattern = regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

// Interpolate replaces ${VAR} and ${VAR:default} with values from the
// environment. An unset variable without a default becomes the empty string.
func Interpolate(text string) string {
	return envPattern.ReplaceAllStringFunc(text, func(match string) string {
		groups := envPattern.FindStringSubmatch(match)

		if value, ok := os.LookupEnv(groups[1]); ok {
			return value
		}

		return groups[2]
	})
}
