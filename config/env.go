package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// EnvPrefix prefixes environment overrides: AUTOMINT_CLI_PATH sets cli.path.
const EnvPrefix = "AUTOMINT_"

// envKey maps an environment variable name to a config key.
func envKey(name string) (string, bool) {
	if !strings.HasPrefix(name, EnvPrefix) {
		return "", false
	}
	rest := strings.TrimPrefix(name, EnvPrefix)
	if rest == "" {
		return "", false
	}
	return strings.ReplaceAll(strings.ToLower(rest), "_", "."), true
}

// LoadEnv collects AUTOMINT_* settings from the optional .env file at path
// and the process environment. The process environment wins.
func LoadEnv(path string) (map[string]string, error) {
	values := make(map[string]string)

	if path != "" {
		dotenv, err := godotenv.Read(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		for name, value := range dotenv {
			if key, ok := envKey(name); ok {
				values[key] = value
			}
		}
	}

	for _, kv := range os.Environ() {
		name, value, _ := strings.Cut(kv, "=")
		if key, ok := envKey(name); ok {
			values[key] = value
		}
	}
	return values, nil
}
