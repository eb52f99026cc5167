package dingtalk

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sflowg/dingtalk/plugins/dingtalk/credentials"
	"github.com/sflowg/dingtalk/runtime"
	"github.com/sflowg/dingtalk/runtime/credstore"
)

type harness struct {
	server    *httptest.Server
	container *runtime.Container
	store     *credstore.Memory
	plugin    *Plugin
}

func newHarness(t *testing.T, handler http.Handler) *harness {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	store := credstore.NewMemory()
	require.NoError(t, store.Set(context.Background(), credentials.APIName, runtime.Credentials{
		"corpId": "corp", "clientId": "key", "clientSecret": "secret", "accessToken": "tok", "userUnionId": "union-1",
	}))

	container := runtime.NewContainer(slog.New(slog.NewTextHandler(io.Discard, nil)), store,
		runtime.NewHTTPClient(runtime.HTTPConfig{Timeout: 5 * time.Second}))

	p := &Plugin{}
	host := strings.TrimPrefix(server.URL, "http://")
	require.NoError(t, runtime.InitializeConfig(&p.Config, map[string]any{
		"base_url":      server.URL + "/v1.0",
		"oapi_base_url": server.URL,
		"token_url":     server.URL + "/v1.0/oauth2/accessToken",
		"legacy_hosts":  []any{host},
		"robot_url":     server.URL + "/robot/send",
		"stream": map[string]any{
			"gateway_url":     server.URL + "/gateway",
			"heartbeat":       "@every 1h",
			"reconnect_delay": "10ms",
		},
	}))
	require.NoError(t, container.RegisterPlugin("dingtalk", p))
	require.NoError(t, container.Initialize(context.Background()))
	t.Cleanup(func() { _ = container.Shutdown(context.Background()) })

	return &harness{server: server, container: container, store: store, plugin: p}
}

func (h *harness) execute(t *testing.T, params map[string]any, items []runtime.Item, opts ...runtime.ExecutionOption) ([]runtime.Item, error) {
	t.Helper()
	node, ok := h.container.Node(NodeName)
	require.True(t, ok)
	desc := node.Description()
	exec := runtime.NewExecution(context.Background(), h.container, &desc, params, items, opts...)
	return node.Execute(exec)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestConfigDefaults(t *testing.T) {
	var cfg Config
	require.NoError(t, runtime.InitializeConfig(&cfg, nil))

	assert.Equal(t, "https://api.dingtalk.com/v1.0", cfg.BaseURL)
	assert.Equal(t, []string{"oapi.dingtalk.com"}, cfg.LegacyHosts)
	assert.Equal(t, "*/30 * * * * *", cfg.Stream.Heartbeat)
	assert.Equal(t, time.Second, cfg.Stream.ReconnectDelay)

	err := runtime.InitializeConfig(&Config{}, map[string]any{"stream": map[string]any{"heartbeat": "every now and then"}})
	assert.Error(t, err)
}

func TestRegister(t *testing.T) {
	h := newHarness(t, http.NotFoundHandler())

	_, ok := h.container.CredentialType(credentials.APIName)
	assert.True(t, ok)
	_, ok = h.container.CredentialType(credentials.RobotName)
	assert.True(t, ok)
	_, ok = h.container.Trigger(TriggerName)
	assert.True(t, ok)

	for _, task := range []string{
		"dingtalk.sheetSearch",
		"dingtalk.notableColumns",
		"dingtalk.workbookSheetsSearch",
		"dingtalk.workbookColumns",
		"dingtalk.workflowProcessVariables",
	} {
		assert.NotNil(t, h.container.GetTask(task), task)
	}

	node, _ := h.container.Node(NodeName)
	props := node.Description().Properties
	require.NotEmpty(t, props)
	assert.Equal(t, "resource", props[0].Name)
	var resources []any
	for _, o := range props[0].Options {
		resources = append(resources, o.Value)
	}
	assert.Equal(t, []any{"auth", "doc", "notable", "robot", "todo", "user", "workbooks", "workflow"}, resources)
}

func TestExecute_UnknownOperation(t *testing.T) {
	h := newHarness(t, http.NotFoundHandler())

	tests := []struct {
		name    string
		op      string
		wantMsg string
	}{
		{"empty", "", `Operation "<empty>" not found`},
		{"unknown", "nope.nothing", `Operation "nope.nothing" not found`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.execute(t, map[string]any{"resource": "auth", "operation": tt.op}, nil)
			var opErr *runtime.OperationError
			require.ErrorAs(t, err, &opErr)
			assert.Equal(t, tt.wantMsg, opErr.Message)
			assert.Equal(t, 0, opErr.ItemIndex)
		})
	}
}

func TestExecute_PerItem(t *testing.T) {
	h := newHarness(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["userid"] == "bad" {
			w.WriteHeader(http.StatusBadRequest)
			writeJSON(w, map[string]any{"errcode": 60121, "errmsg": "找不到该用户"})
			return
		}
		writeJSON(w, map[string]any{"errcode": 0, "result": map[string]any{"userid": body["userid"]}})
	}))

	params := map[string]any{"resource": "user", "operation": "user.get", "userId": "={{ json.id }}"}
	items := runtime.JSONItems(map[string]any{"id": "u1"}, map[string]any{"id": "bad"}, map[string]any{"id": "u3"})

	out, err := h.execute(t, params, items, runtime.WithContinueOnFail(true))
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, 0, out[0].PairedItem.Item)
	assert.Contains(t, out[1].JSON["error"], "找不到该用户")
	assert.Equal(t, 1, out[1].PairedItem.Item)
	assert.Equal(t, 2, out[2].PairedItem.Item)

	_, err = h.execute(t, params, items)
	var opErr *runtime.OperationError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, 1, opErr.ItemIndex)
	var httpErr *runtime.HTTPError
	assert.ErrorAs(t, err, &httpErr)
}

func TestExecute_NotInitialized(t *testing.T) {
	p := &Plugin{}
	require.NoError(t, runtime.InitializeConfig(&p.Config, nil))
	container := runtime.NewContainer(slog.New(slog.NewTextHandler(io.Discard, nil)), credstore.NewMemory(), nil)
	require.NoError(t, container.RegisterPlugin("dingtalk", p))

	_, err := p.node.Execute(runtime.NewExecution(context.Background(), container, nil, nil, nil))
	assert.ErrorContains(t, err, "not initialized")
}

func TestTasks(t *testing.T) {
	h := newHarness(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1.0/notable/bases/base-1/sheets":
			writeJSON(w, map[string]any{"value": []any{
				map[string]any{"id": "s1", "name": "任务"},
				map[string]any{"id": "s2", "name": "Bugs"},
			}})
		case "/v1.0/notable/bases/base-1/sheets/s1/fields":
			writeJSON(w, map[string]any{"value": []any{
				map[string]any{"name": "标题", "type": "text"},
				map[string]any{"name": "标签", "type": "multipleSelect"},
				map[string]any{"name": "其他", "type": "formula"},
			}})
		case "/v1.0/doc/workbooks/wb/sheets":
			writeJSON(w, map[string]any{"value": []any{
				map[string]any{"id": "a", "name": "Sales"},
				map[string]any{"id": "b", "name": "Costs"},
			}})
		case "/v1.0/doc/workbooks/wb/sheets/a/ranges/B1:D1":
			writeJSON(w, map[string]any{"values": []any{[]any{"Name", "", "Amount"}}})
		default:
			http.NotFound(w, r)
		}
	}))
	exec := runtime.NewExecution(context.Background(), h.container, nil, nil, nil)

	out, err := h.container.GetTask("dingtalk.sheetSearch").Execute(exec, map[string]any{"baseId": "base-1"})
	require.NoError(t, err)
	assert.Equal(t, []map[string]any{{"name": "任务", "value": "s1"}, {"name": "Bugs", "value": "s2"}}, out["results"])

	out, err = h.container.GetTask("dingtalk.notableColumns").Execute(exec, map[string]any{"baseId": "base-1", "sheetIdOrName": "s1"})
	require.NoError(t, err)
	fields := out["fields"].([]map[string]any)
	require.Len(t, fields, 3)
	assert.Equal(t, "标签 (multipleSelect)", fields[1]["displayName"])
	assert.Equal(t, "array", fields[1]["type"])
	assert.Equal(t, "string", fields[2]["type"])

	out, err = h.container.GetTask("dingtalk.workbookSheetsSearch").Execute(exec, map[string]any{"workbookId": "wb", "filter": "SAL"})
	require.NoError(t, err)
	assert.Equal(t, []map[string]any{{"name": "Sales", "value": "a"}}, out["results"])

	out, err = h.container.GetTask("dingtalk.workbookColumns").Execute(exec, map[string]any{
		"workbookId": "wb", "sheetId": "a", "headerRange": "B1:D1",
	})
	require.NoError(t, err)
	fields = out["fields"].([]map[string]any)
	require.Len(t, fields, 3)
	assert.Equal(t, "B", fields[0]["id"])
	assert.Equal(t, "Name (B)", fields[0]["displayName"])
	assert.Equal(t, "列 C", fields[1]["displayName"])
	assert.Equal(t, "Amount (D)", fields[2]["displayName"])

	out, err = h.container.GetTask("dingtalk.workflowProcessVariables").Execute(exec, map[string]any{})
	require.NoError(t, err)
	assert.Empty(t, out["fields"])
	assert.NotEmpty(t, out["emptyFieldsNotice"])
}

func TestTrigger(t *testing.T) {
	conns := make(chan *websocket.Conn, 4)
	var server *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/gateway", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"endpoint": "ws" + strings.TrimPrefix(server.URL, "http") + "/connect", "ticket": "t"})
	})
	mux.HandleFunc("/connect", func(w http.ResponseWriter, r *http.Request) {
		upgrader := websocket.Upgrader{}
		ws, err := upgrader.Upgrade(w, r, nil)
		if err == nil {
			conns <- ws
		}
	})
	h := newHarness(t, mux)
	server = h.server

	trigger, _ := h.container.Trigger(TriggerName)
	desc := trigger.Description()

	t.Run("unsupported event", func(t *testing.T) {
		exec := runtime.NewExecution(context.Background(), h.container, &desc, map[string]any{"event": "webhook"}, nil)
		_, err := trigger.Trigger(exec)
		assert.ErrorContains(t, err, `Unsupported trigger event "webhook"`)
	})

	t.Run("event delivered", func(t *testing.T) {
		emitted := make(chan []runtime.Item, 1)
		exec := runtime.NewExecution(context.Background(), h.container, &desc, nil, nil,
			runtime.WithEmitter(func(items []runtime.Item) error {
				emitted <- items
				return nil
			}))
		resp, err := trigger.Trigger(exec)
		require.NoError(t, err)

		var ws *websocket.Conn
		select {
		case ws = <-conns:
		case <-time.After(5 * time.Second):
			t.Fatal("no stream connection")
		}
		defer ws.Close()

		require.NoError(t, ws.WriteJSON(map[string]any{
			"specVersion": "1.0", "type": "EVENT",
			"headers": map[string]any{"messageId": "m1", "topic": "*"},
			"data":    `{"ok":true}`,
		}))
		select {
		case items := <-emitted:
			require.Len(t, items, 1)
			assert.Equal(t, map[string]any{"ok": true}, items[0].JSON["data"])
		case <-time.After(5 * time.Second):
			t.Fatal("no event emitted")
		}

		require.NoError(t, resp.Close(context.Background()))
		require.NoError(t, resp.Close(context.Background()))
	})

	t.Run("missing credentials", func(t *testing.T) {
		require.NoError(t, h.store.Set(context.Background(), credentials.APIName, runtime.Credentials{"clientId": "key"}))
		exec := runtime.NewExecution(context.Background(), h.container, &desc, nil, nil)
		_, err := trigger.Trigger(exec)
		assert.ErrorContains(t, err, "Missing DingTalk credentials")
	})
}
