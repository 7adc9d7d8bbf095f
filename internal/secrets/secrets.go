// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys and credentials from a directory of
// plain-text files. Each file in the directory represents one secret: the
// filename is the key name and the file contents (trimmed) are the value.
// An environment variable VALUATION_ENGINE_<KEY> (key uppercased, dashes
// to underscores) overrides the file value.
//
// Supported key files: marketplace-api-key, anthropic-api-key.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// envPrefix is the prefix for environment-variable overrides.
const envPrefix = "VALUATION_ENGINE_"

// knownKeys lists the secrets the engine looks for even when no secrets
// directory exists, so pure-env deployments work.
var knownKeys = []string{"marketplace-api-key", "anthropic-api-key"}

// envName maps a secret key to its override variable name.
func envName(key string) string {
	return envPrefix + strings.ToUpper(strings.ReplaceAll(key, "-", "_"))
}

// Load reads all files in dir and returns a map of filename to trimmed
// contents, with environment overrides applied on top. A missing directory
// or missing files are not errors; Load returns whatever the environment
// provides. Unreadable files produce a warning on stderr but do not abort.
func Load(dir string) (map[string]string, error) {
	secrets := make(map[string]string)

	entries, err := os.ReadDir(dir)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not read secret %s: %v\n", entry.Name(), err)
			continue
		}

		if value := strings.TrimSpace(string(data)); value != "" {
			secrets[entry.Name()] = value
		}
	}

	// Environment overrides win over files.
	for _, key := range knownKeys {
		if v := strings.TrimSpace(os.Getenv(envName(key))); v != "" {
			secrets[key] = v
		}
	}

	return secrets, nil
}
