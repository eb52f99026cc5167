package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sflowg/dingtalk/internal/config"
	"github.com/sflowg/dingtalk/plugins/dingtalk"
	"github.com/sflowg/dingtalk/plugins/dingtalk/credentials"
	"github.com/sflowg/dingtalk/runtime"
)

func newTestApp(t *testing.T, handler http.Handler) *app {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg, err := config.Parse(map[string]any{
		"credentials": map[string]any{
			"records": map[string]any{
				credentials.APIName: map[string]any{
					"clientId":     "key",
					"clientSecret": "${TEST_SECRET}",
					"accessToken":  "tok",
				},
			},
		},
		"plugin": map[string]any{
			"base_url":      server.URL + "/v1.0",
			"oapi_base_url": server.URL,
			"token_url":     server.URL + "/v1.0/oauth2/accessToken",
			"legacy_hosts":  []any{strings.TrimPrefix(server.URL, "http://")},
		},
	}, func(name string) (string, bool) {
		if name == "TEST_SECRET" {
			return "secret", true
		}
		return "", false
	})
	if err != nil {
		t.Fatalf("config.Parse failed: %v", err)
	}

	a, err := newApp(context.Background(), cfg, io.Discard)
	if err != nil {
		t.Fatalf("newApp failed: %v", err)
	}
	t.Cleanup(func() { a.close(context.Background()) })
	return a
}

func TestNewApp_SeedsCredentials(t *testing.T) {
	a := newTestApp(t, http.NotFoundHandler())

	creds, err := a.container.Credentials.Get(context.Background(), credentials.APIName)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if creds.String("clientSecret") != "secret" {
		t.Errorf("Expected env-substituted secret, got %q", creds.String("clientSecret"))
	}
	if _, ok := a.container.Node(dingtalk.NodeName); !ok {
		t.Error("Expected the DingTalk node to be registered")
	}
}

func TestExecuteNode(t *testing.T) {
	a := newTestApp(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path != "/topapi/v2/user/get" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"errcode": 0,
			"result":  map[string]any{"userid": body["userid"], "token": r.URL.Query().Get("access_token")},
		})
	}))

	input := runInput{
		Parameters: map[string]any{"resource": "user", "operation": "user.get"},
		Items:      []map[string]any{{"id": "u1"}},
	}
	if err := applySets(&input, []string{"userId=={{ json.id }}"}); err != nil {
		t.Fatalf("applySets failed: %v", err)
	}

	items, err := executeNode(context.Background(), a.container, input, false)
	if err != nil {
		t.Fatalf("executeNode failed: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("Expected 1 item, got %d", len(items))
	}

	var buf bytes.Buffer
	if err := writeJSON(&buf, items); err != nil {
		t.Fatalf("writeJSON failed: %v", err)
	}
	if !strings.Contains(buf.String(), `"userid": "u1"`) || !strings.Contains(buf.String(), `"token": "tok"`) {
		t.Errorf("Unexpected output: %s", buf.String())
	}
}

func TestApplySets(t *testing.T) {
	input := runInput{}
	if err := applySets(&input, []string{"resource=auth", "operation=auth.getAccessToken", "q=a=b"}); err != nil {
		t.Fatalf("applySets failed: %v", err)
	}
	if input.Parameters["q"] != "a=b" {
		t.Errorf("Expected value after the first '=' to be kept, got %v", input.Parameters["q"])
	}

	for _, bad := range []string{"novalue", "=x"} {
		if err := applySets(&runInput{}, []string{bad}); err == nil {
			t.Errorf("Expected applySets(%q) to fail", bad)
		}
	}
}

func TestLoadRunInput(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "input.yaml")
	jsonPath := filepath.Join(dir, "input.json")
	_ = os.WriteFile(yamlPath, []byte("parameters:\n  resource: user\nitems:\n  - id: a\n  - id: b\ncontinueOnFail: true\n"), 0o600)
	_ = os.WriteFile(jsonPath, []byte(`{"parameters":{"resource":"user"},"items":[{"id":"a"}]}`), 0o600)

	in, err := loadRunInput(yamlPath)
	if err != nil {
		t.Fatalf("loadRunInput yaml failed: %v", err)
	}
	if len(in.Items) != 2 || !in.ContinueOnFail || in.Parameters["resource"] != "user" {
		t.Errorf("Unexpected yaml input: %+v", in)
	}

	in, err = loadRunInput(jsonPath)
	if err != nil {
		t.Fatalf("loadRunInput json failed: %v", err)
	}
	if in.Items[0]["id"] != "a" {
		t.Errorf("Unexpected json input: %+v", in)
	}
}

func TestDescribe(t *testing.T) {
	a := newTestApp(t, http.NotFoundHandler())

	all, err := describe(a.container, "")
	if err != nil {
		t.Fatalf("describe failed: %v", err)
	}
	m := all.(map[string]any)
	if len(m["nodes"].([]runtime.NodeDescription)) != 2 {
		t.Errorf("Expected node and trigger, got %v", m["nodes"])
	}
	if len(m["credentials"].([]map[string]any)) != 2 {
		t.Errorf("Expected two credential types, got %v", m["credentials"])
	}

	one, err := describe(a.container, dingtalk.TriggerName)
	if err != nil {
		t.Fatalf("describe trigger failed: %v", err)
	}
	if one.(runtime.NodeDescription).Name != dingtalk.TriggerName {
		t.Errorf("Unexpected description: %v", one)
	}

	if _, err := describe(a.container, "nope"); err == nil {
		t.Error("Expected unknown node to fail")
	}
}

func TestRouter(t *testing.T) {
	a := newTestApp(t, http.NotFoundHandler())
	g := newRouter(a)

	req := httptest.NewRequest(http.MethodPost, "/nodes/"+dingtalk.NodeName+"/execute",
		strings.NewReader(`{"parameters":{"resource":"user","operation":"user.nope"}}`))
	w := httptest.NewRecorder()
	g.ServeHTTP(w, req)

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("Expected 422, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "not found") {
		t.Errorf("Expected unknown operation message, got %s", w.Body.String())
	}
}

func TestLineEmitter(t *testing.T) {
	var buf bytes.Buffer
	emit := newLineEmitter(&buf)

	if err := emit(runtime.JSONItems(map[string]any{"a": 1}, map[string]any{"b": "<x>"})); err != nil {
		t.Fatalf("emit failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected 2 lines, got %q", buf.String())
	}
	if lines[1] != `{"b":"<x>"}` {
		t.Errorf("Expected unescaped JSON line, got %s", lines[1])
	}
}
