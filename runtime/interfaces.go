package runtime

import "context"

// Initializer interface allows plugins to perform startup initialization.
// Plugins implementing this interface will have Initialize called at container startup.
type Initializer interface {
	// Initialize is called once when the container starts up.
	// Config is already applied to the plugin struct when this runs.
	Initialize(ctx context.Context) error
}

// Shutdowner interface allows plugins to perform graceful shutdown.
type Shutdowner interface {
	Shutdown(ctx context.Context) error
}

// Registrar is implemented by plugins that contribute nodes, triggers or
// credential types to the container.
type Registrar interface {
	Register(c *Container) error
}

// Node is an action node: it maps the input items of one execution to output items.
type Node interface {
	Description() NodeDescription
	Execute(exec *Execution) ([]Item, error)
}

// TriggerNode starts a long-lived event source. Events reach the host through Execution.Emit.
type TriggerNode interface {
	Description() NodeDescription
	Trigger(exec *Execution) (*TriggerResponse, error)
}

// TriggerResponse is returned by a started trigger.
type TriggerResponse struct {
	// Close tears the trigger down. It must be safe to call more than once.
	Close func(ctx context.Context) error
	// Manual resolves after the next event was emitted, used for one-shot test runs.
	Manual func(ctx context.Context) error
}

// CredentialStore persists credential records by credential type name.
type CredentialStore interface {
	Get(ctx context.Context, name string) (Credentials, error)
	Set(ctx context.Context, name string, creds Credentials) error
}

// HTTPDoer executes plain HTTP requests.
type HTTPDoer interface {
	Do(ctx context.Context, req *HTTPRequest) (*HTTPResponse, error)
}

// Task is a named host-callable function, discovered from plugin methods.
type Task interface {
	Execute(exec *Execution, args map[string]any) (map[string]any, error)
}
