// Package operationtest runs operations against an httptest server standing
// in for both DingTalk API hosts.
package operationtest

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sflowg/dingtalk/plugins/dingtalk/credentials"
	"github.com/sflowg/dingtalk/plugins/dingtalk/operation"
	"github.com/sflowg/dingtalk/plugins/dingtalk/transport"
	"github.com/sflowg/dingtalk/runtime"
	"github.com/sflowg/dingtalk/runtime/credstore"
)

const (
	AccessToken = "tok"
	UnionID     = "union-1"
	TokenPath   = "/v1.0/oauth2/accessToken"
)

// Env is a container wired to an httptest server. The modern API lives
// under /v1.0 and the legacy API at the server root.
type Env struct {
	Server    *httptest.Server
	Store     *credstore.Memory
	Container *runtime.Container
	Client    *transport.Client
	node      *runtime.NodeDescription
}

// New starts handler and registers the application and robot credentials.
func New(t testing.TB, handler http.Handler, bundles ...operation.Bundle) *Env {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	ctx := context.Background()
	store := credstore.NewMemory()
	require.NoError(t, store.Set(ctx, credentials.APIName, runtime.Credentials{
		"clientId":     "key",
		"clientSecret": "secret",
		"accessToken":  AccessToken,
		"userUnionId":  UnionID,
	}))
	require.NoError(t, store.Set(ctx, credentials.RobotName, runtime.Credentials{
		"accessToken": "robot-token",
	}))

	container := runtime.NewContainer(slog.New(slog.NewTextHandler(io.Discard, nil)), store,
		runtime.NewHTTPClient(runtime.HTTPConfig{Timeout: 5 * time.Second}))
	require.NoError(t, container.RegisterCredentialType(credentials.NewAPI(server.URL+TokenPath)))
	require.NoError(t, container.RegisterCredentialType(credentials.NewRobot(server.URL+"/robot/send")))

	registry, err := operation.NewRegistry(bundles...)
	require.NoError(t, err)

	return &Env{
		Server:    server,
		Store:     store,
		Container: container,
		Client:    transport.New(server.URL+"/v1.0", server.URL),
		node:      &runtime.NodeDescription{Name: "dingtalk", DisplayName: "DingTalk", Properties: registry.Properties()},
	}
}

// Context returns an operation context for params over items.
func (e *Env) Context(params map[string]any, items ...runtime.Item) *operation.Context {
	exec := runtime.NewExecution(context.Background(), e.Container, e.node, params, items)
	return operation.NewContext(exec, e.Client)
}

// Run looks up the selected operation and runs it for item 0.
func (e *Env) Run(t testing.TB, def operation.Def, params map[string]any, items ...runtime.Item) (runtime.Item, error) {
	t.Helper()
	return def.Run(e.Context(params, items...), 0)
}

// JSON writes v as a JSON response.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = jsonEncoder(w).Encode(v)
}

func jsonEncoder(w io.Writer) *json.Encoder {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc
}

// Recorder captures the last request seen by a handler.
type Recorder struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   map[string]any
	Raw    []byte
}

// Record fills r from req.
func (r *Recorder) Record(req *http.Request) {
	r.Method = req.Method
	r.Path = req.URL.Path
	r.Query = req.URL.Query()
	r.Header = req.Header.Clone()
	r.Raw, _ = io.ReadAll(req.Body)
	r.Body = nil
	_ = json.Unmarshal(r.Raw, &r.Body)
}
