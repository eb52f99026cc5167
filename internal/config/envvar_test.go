package config

import (
	"reflect"
	"strings"
	"testing"
)

func lookupFrom(env map[string]string) LookupFunc {
	return func(name string) (string, bool) {
		v, ok := env[name]
		return v, ok
	}
}

func TestParseEnvVar_RequiredVariable(t *testing.T) {
	spec, err := ParseEnvVar("${DINGTALK_CLIENT_ID}")
	if err != nil {
		t.Fatalf("ParseEnvVar failed: %v", err)
	}

	if spec.IsLiteral {
		t.Error("Expected IsLiteral=false for env var")
	}
	if spec.VarName != "DINGTALK_CLIENT_ID" {
		t.Errorf("Expected VarName='DINGTALK_CLIENT_ID', got '%s'", spec.VarName)
	}
	if spec.HasDefault {
		t.Error("Expected HasDefault=false for required variable")
	}
}

func TestParseEnvVar_DefaultWithSpecialChars(t *testing.T) {
	tests := []struct {
		input           string
		expectedVar     string
		expectedDefault string
	}{
		{"${SERVE_ADDR::8080}", "SERVE_ADDR", ":8080"},
		{"${TOKEN_URL:https://api.dingtalk.com/v1.0/oauth2/accessToken}", "TOKEN_URL", "https://api.dingtalk.com/v1.0/oauth2/accessToken"},
		{"${API_KEY:}", "API_KEY", ""},
	}

	for _, test := range tests {
		spec, err := ParseEnvVar(test.input)
		if err != nil {
			t.Errorf("ParseEnvVar(%q) failed: %v", test.input, err)
			continue
		}

		if !spec.HasDefault {
			t.Errorf("ParseEnvVar(%q): expected HasDefault=true", test.input)
		}
		if spec.VarName != test.expectedVar {
			t.Errorf("ParseEnvVar(%q): expected VarName=%q, got %q",
				test.input, test.expectedVar, spec.VarName)
		}
		if spec.DefaultValue != test.expectedDefault {
			t.Errorf("ParseEnvVar(%q): expected DefaultValue=%q, got %q",
				test.input, test.expectedDefault, spec.DefaultValue)
		}
	}
}

func TestParseEnvVar_InvalidSyntax(t *testing.T) {
	tests := []string{
		"",
		"${lowercase}",
		"${123VAR}",
		"${VAR-NAME}",
		"$VAR",
		"${VAR",
		"${}",
		"prefix ${VAR}",
	}

	for _, test := range tests {
		spec, err := ParseEnvVar(test)
		if err != nil {
			t.Errorf("ParseEnvVar(%q) should not error, got: %v", test, err)
			continue
		}

		if !spec.IsLiteral {
			t.Errorf("ParseEnvVar(%q) should treat as literal, got IsLiteral=false", test)
		}
		if spec.LiteralValue != test {
			t.Errorf("ParseEnvVar(%q) should preserve value as literal, got %q",
				test, spec.LiteralValue)
		}
	}
}

func TestEnvVarSpec_Value(t *testing.T) {
	lookup := lookupFrom(map[string]string{"SET": "from-env", "EMPTY": ""})

	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"literal", "literal", false},
		{"${SET}", "from-env", false},
		{"${SET:fallback}", "from-env", false},
		{"${EMPTY:fallback}", "", false},
		{"${UNSET:fallback}", "fallback", false},
		{"${UNSET}", "", true},
	}

	for _, test := range tests {
		spec, _ := ParseEnvVar(test.input)
		got, err := spec.Value(lookup)
		if (err != nil) != test.wantErr {
			t.Errorf("Value(%q) error = %v, wantErr %v", test.input, err, test.wantErr)
			continue
		}
		if got != test.want {
			t.Errorf("Value(%q) = %q, expected %q", test.input, got, test.want)
		}
	}
}

func TestResolveEnv_Nested(t *testing.T) {
	doc := map[string]any{
		"log_level": "${LOG_LEVEL:info}",
		"credentials": map[string]any{
			"records": map[string]any{
				"dingtalkApi": map[string]any{
					"clientId":     "${CLIENT_ID}",
					"clientSecret": "${CLIENT_SECRET}",
				},
			},
		},
		"plugin": map[string]any{
			"legacy_hosts": []any{"oapi.dingtalk.com", "${EXTRA_HOST:}"},
		},
		"http": map[string]any{"max_retries": 2},
	}

	got, err := ResolveEnv(doc, lookupFrom(map[string]string{
		"CLIENT_ID":     "ding-app",
		"CLIENT_SECRET": "s3cret",
		"EXTRA_HOST":    "oapi.example.test",
	}))
	if err != nil {
		t.Fatalf("ResolveEnv failed: %v", err)
	}

	want := map[string]any{
		"log_level": "info",
		"credentials": map[string]any{
			"records": map[string]any{
				"dingtalkApi": map[string]any{
					"clientId":     "ding-app",
					"clientSecret": "s3cret",
				},
			},
		},
		"plugin": map[string]any{
			"legacy_hosts": []any{"oapi.dingtalk.com", "oapi.example.test"},
		},
		"http": map[string]any{"max_retries": 2},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ResolveEnv mismatch:\n got %#v\nwant %#v", got, want)
	}
}

func TestResolveEnv_MissingVariableNamesPath(t *testing.T) {
	doc := map[string]any{
		"plugin": map[string]any{"hosts": []any{"a", "${MISSING_HOST}"}},
	}

	_, err := ResolveEnv(doc, lookupFrom(nil))
	if err == nil {
		t.Fatal("Expected error for unset required variable")
	}
	if !strings.Contains(err.Error(), "plugin.hosts[1]") {
		t.Errorf("Expected error to name the path, got %v", err)
	}
	if !strings.Contains(err.Error(), "MISSING_HOST") {
		t.Errorf("Expected error to name the variable, got %v", err)
	}
}

func TestIsValidEnvVarName(t *testing.T) {
	tests := []struct {
		name  string
		valid bool
	}{
		{"VALID_NAME", true},
		{"_PRIVATE", true},
		{"VAR123", true},
		{"lowercase", false},
		{"123VAR", false},
		{"VAR-NAME", false},
		{"", false},
	}

	for _, test := range tests {
		result := isValidEnvVarName(test.name)
		if result != test.valid {
			t.Errorf("isValidEnvVarName(%q) = %v, expected %v",
				test.name, result, test.valid)
		}
	}
}
