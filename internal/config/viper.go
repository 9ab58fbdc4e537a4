// Package config reads settings shared through viper and the process
// environment.
package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"
)

// GetString returns key from viper, falling back to the raw environment
// variable of the same name. Values are trimmed.
func GetString(key string) string {
	v, _ := LookupString(key)
	return v
}

// LookupString is GetString that also reports whether a non-empty value
// was found.
func LookupString(key string) (string, bool) {
	if v := strings.TrimSpace(viper.GetString(key)); v != "" {
		return v, true
	}
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v, true
	}
	return "", false
}
