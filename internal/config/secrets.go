package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultSecretsFile is read when SHHS_SECRETS_FILE is unset.
const DefaultSecretsFile = ".secrets/secrets.yaml"

// Secrets is a read-only view of the YAML secrets file, addressed by
// dotted paths such as "neis.service_key".
type Secrets struct {
	path   string
	values map[string]string
}

// LoadSecrets reads path. A missing file yields an empty store; a file that
// exists but does not parse is an error. ${VAR} references are expanded.
func LoadSecrets(path string) (*Secrets, error) {
	s := &Secrets{path: path, values: map[string]string{}}
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read secrets file %s: %w", path, err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse secrets file %s: %w", path, err)
	}
	flatten("", raw, s.values)
	return s, nil
}

func flatten(prefix string, in map[string]any, out map[string]string) {
	for k, v := range in {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case map[string]any:
			flatten(key, val, out)
		case nil:
		default:
			out[key] = strings.TrimSpace(fmt.Sprint(val))
		}
	}
}

// Get returns the value at path, or "" when absent.
func (s *Secrets) Get(path string) string {
	if s == nil {
		return ""
	}
	return s.values[path]
}

// Path returns the file the store was read from.
func (s *Secrets) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}
