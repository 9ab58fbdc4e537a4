// Package secrets resolves credentials by name.
//
// Credentials are looked up through a Method. Only the environment is
// implemented; the secrets manager method is recognised but reports
// errors.ErrNotImplemented.
package secrets

import (
	"fmt"
	"strings"

	"github.com/agentstation/upcmap/internal/config"
	"github.com/agentstation/upcmap/pkg/errors"
)

// Method names a way of fetching a secret.
type Method string

// Supported methods.
const (
	EnvVar         Method = "env_var"
	SecretsManager Method = "secrets_manager"
)

// Methods returns the supported methods.
func Methods() []Method {
	return []Method{EnvVar, SecretsManager}
}

// Lookup returns the credential stored under name and whether it was found.
type Lookup func(name string) (string, bool)

// Get fetches a secret using method. EnvVar takes the variable name;
// SecretsManager takes the secret name and a region.
// A missing environment variable is not an error and yields "".
func Get(method Method, args ...string) (string, error) {
	switch method {
	case EnvVar:
		if len(args) != 1 {
			return "", errors.NewValidationError("args", args, "env_var expects a variable name")
		}
		return config.GetString(args[0]), nil
	case SecretsManager:
		return "", fmt.Errorf("secrets manager lookup: %w", errors.ErrNotImplemented)
	default:
		names := make([]string, 0, len(Methods()))
		for _, m := range Methods() {
			names = append(names, string(m))
		}
		return "", errors.NewValidationError("method", method, "method must be one of: "+strings.Join(names, ", "))
	}
}

// EnvLookup returns a Lookup backed by the environment and viper.
func EnvLookup() Lookup {
	return func(name string) (string, bool) {
		v, err := Get(EnvVar, name)
		return v, err == nil && v != ""
	}
}

// MapLookup returns a Lookup over a fixed map.
func MapLookup(values map[string]string) Lookup {
	return func(name string) (string, bool) {
		v, ok := values[name]
		return v, ok && v != ""
	}
}

// None returns a Lookup that never finds anything.
func None() Lookup {
	return func(string) (string, bool) {
		return "", false
	}
}
