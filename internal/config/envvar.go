package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

// EnvVarSpec represents a parsed environment variable specification
type EnvVarSpec struct {
	// VarName is the environment variable name (e.g., "DINGTALK_CLIENT_ID")
	VarName string

	HasDefault   bool
	DefaultValue string

	// IsLiteral indicates the value is used as written
	IsLiteral    bool
	LiteralValue string
}

// envVarPattern matches ${VAR} and ${VAR:default} syntax
var envVarPattern = regexp.MustCompile(`^\$\{([A-Z_][A-Z0-9_]*)(:[^}]*)?\}$`)

// LookupFunc resolves an environment variable, like os.LookupEnv.
type LookupFunc func(name string) (string, bool)

// ParseEnvVar parses a config value that may contain environment variable syntax
//
// Supported formats:
//   - ${VAR}         - Required environment variable
//   - ${VAR:default} - Optional environment variable with default
//   - literal        - Plain literal value (no env var)
//
// Examples:
//
//	ParseEnvVar("${DINGTALK_CLIENT_SECRET}") -> required env var
//	ParseEnvVar("${SERVE_ADDR::8080}") -> env var with default ":8080"
//	ParseEnvVar("oapi.dingtalk.com") -> literal value
func ParseEnvVar(value string) (*EnvVarSpec, error) {
	matches := envVarPattern.FindStringSubmatch(value)
	if matches == nil {
		return &EnvVarSpec{IsLiteral: true, LiteralValue: value}, nil
	}

	varName := matches[1]
	defaultPart := matches[2]

	if !isValidEnvVarName(varName) {
		return nil, fmt.Errorf("invalid environment variable name: %s", varName)
	}

	spec := &EnvVarSpec{
		VarName:    varName,
		HasDefault: defaultPart != "",
	}
	if spec.HasDefault {
		spec.DefaultValue = strings.TrimPrefix(defaultPart, ":")
	}
	return spec, nil
}

// Value resolves the spec with lookup. A required variable that is unset is an error.
func (s *EnvVarSpec) Value(lookup LookupFunc) (string, error) {
	if s.IsLiteral {
		return s.LiteralValue, nil
	}
	if v, ok := lookup(s.VarName); ok {
		return v, nil
	}
	if s.HasDefault {
		return s.DefaultValue, nil
	}
	return "", fmt.Errorf("required environment variable %s is not set", s.VarName)
}

// isValidEnvVarName checks if a string is a valid environment variable name
// Valid names: Start with A-Z or underscore, contain only A-Z, 0-9, underscore
func isValidEnvVarName(name string) bool {
	if name == "" {
		return false
	}

	first := name[0]
	if !((first >= 'A' && first <= 'Z') || first == '_') {
		return false
	}

	for i := 1; i < len(name); i++ {
		c := name[i]
		if !((c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_') {
			return false
		}
	}

	return true
}

// ResolveEnv walks a decoded YAML document and substitutes every string leaf
// written as ${VAR} or ${VAR:default}. Other values pass through unchanged.
// A nil lookup uses os.LookupEnv.
func ResolveEnv(value any, lookup LookupFunc) (any, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	return resolve(value, lookup, "")
}

func resolve(value any, lookup LookupFunc, path string) (any, error) {
	switch v := value.(type) {
	case string:
		spec, err := ParseEnvVar(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", displayPath(path), err)
		}
		s, err := spec.Value(lookup)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", displayPath(path), err)
		}
		return s, nil

	case map[string]any:
		out := make(map[string]any, len(v))
		for k, val := range v {
			resolved, err := resolve(val, lookup, joinPath(path, k))
			if err != nil {
				return nil, err
			}
			out[k] = resolved
		}
		return out, nil

	case []any:
		out := make([]any, len(v))
		for i, val := range v {
			resolved, err := resolve(val, lookup, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
			out[i] = resolved
		}
		return out, nil

	default:
		return value, nil
	}
}

func joinPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

func displayPath(path string) string {
	if path == "" {
		return "<root>"
	}
	return path
}
