package runtime

import (
	"testing"
	"time"
)

func TestToString(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{"string", "abc", "abc"},
		{"int", 42, "42"},
		{"whole float", float64(20), "20"},
		{"fraction", 1.5, "1.5"},
		{"bool", true, "true"},
		{"nil", nil, ""},
		{"slice", []any{"a", 1.0}, `["a",1]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ToString(tt.input); got != tt.expected {
				t.Errorf("Expected '%s', got '%s'", tt.expected, got)
			}
		})
	}
}

func TestToStringValueMap(t *testing.T) {
	result := ToStringValueMap(map[string]any{
		"maxResults": float64(100),
		"operatorId": "union-1",
		"empty":      nil,
	})

	if result["maxResults"] != "100" {
		t.Errorf("Expected maxResults='100', got '%s'", result["maxResults"])
	}
	if result["operatorId"] != "union-1" {
		t.Errorf("Expected operatorId='union-1', got '%s'", result["operatorId"])
	}
	if v, ok := result["empty"]; !ok || v != "" {
		t.Errorf("Expected empty='' to be present, got %q (present=%v)", v, ok)
	}
}

func TestToInt(t *testing.T) {
	tests := []struct {
		input any
		want  int
		ok    bool
	}{
		{3, 3, true},
		{float64(7), 7, true},
		{"12", 12, true},
		{" 5 ", 5, true},
		{"abc", 0, false},
		{nil, 0, false},
	}

	for _, tt := range tests {
		got, ok := ToInt(tt.input)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ToInt(%v): expected (%d, %v), got (%d, %v)", tt.input, tt.want, tt.ok, got, ok)
		}
	}
}

type decodeTarget struct {
	UserID  string            `json:"userId" yaml:"user_id"`
	Size    int               `json:"size" yaml:"size"`
	Enabled bool              `json:"enabled" yaml:"enabled"`
	Timeout time.Duration     `json:"timeout" yaml:"timeout"`
	Labels  map[string]string `json:"labels" yaml:"labels"`
}

func TestMapToStruct_TypeCoercion(t *testing.T) {
	var result decodeTarget
	err := mapToStruct(map[string]any{
		"userId":  12345.0,
		"size":    "20",
		"enabled": "true",
		"timeout": "5s",
		"labels":  map[string]any{"team": "ops"},
	}, &result)
	if err != nil {
		t.Fatalf("mapToStruct failed: %v", err)
	}

	if result.UserID != "12345" {
		t.Errorf("Expected UserID='12345', got '%s'", result.UserID)
	}
	if result.Size != 20 {
		t.Errorf("Expected Size=20, got %d", result.Size)
	}
	if !result.Enabled {
		t.Error("Expected Enabled=true")
	}
	if result.Timeout != 5*time.Second {
		t.Errorf("Expected Timeout=5s, got %v", result.Timeout)
	}
	if result.Labels["team"] != "ops" {
		t.Errorf("Expected Labels[team]='ops', got '%s'", result.Labels["team"])
	}
}

func TestMapToStructFromYAML_UsesYAMLTags(t *testing.T) {
	var result decodeTarget
	if err := mapToStructFromYAML(map[string]any{"user_id": "u1"}, &result); err != nil {
		t.Fatalf("mapToStructFromYAML failed: %v", err)
	}
	if result.UserID != "u1" {
		t.Errorf("Expected UserID='u1', got '%s'", result.UserID)
	}
}

func TestMapToStruct_InvalidInput(t *testing.T) {
	var result decodeTarget
	if err := mapToStruct(map[string]any{"size": map[string]any{"x": 1}}, &result); err == nil {
		t.Error("Expected error for map into int, got nil")
	}
}

func TestStructToMap(t *testing.T) {
	result, err := StructToMap(struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}{"sheet", 3})
	if err != nil {
		t.Fatalf("StructToMap failed: %v", err)
	}
	if result["name"] != "sheet" {
		t.Errorf("Expected name='sheet', got %v", result["name"])
	}
	if result["count"] != float64(3) {
		t.Errorf("Expected count=3, got %v", result["count"])
	}
}
