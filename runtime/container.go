package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sort"
	"strings"
)

// Container holds the host services shared by every execution together with
// the plugins, nodes, triggers and credential types registered on it.
type Container struct {
	Logger      *slog.Logger
	Credentials CredentialStore
	HTTP        *HTTPClient
	Cron        *Scheduler
	Tasks       map[string]Task

	plugins         map[string]any
	pluginOrder     []string
	nodes           map[string]Node
	triggers        map[string]TriggerNode
	credentialTypes map[string]CredentialType
}

func NewContainer(logger *slog.Logger, store CredentialStore, httpClient *HTTPClient) *Container {
	if logger == nil {
		logger = slog.Default()
	}
	return &Container{
		Logger:          logger,
		Credentials:     store,
		HTTP:            httpClient,
		Cron:            NewScheduler(),
		Tasks:           make(map[string]Task),
		plugins:         make(map[string]any),
		nodes:           make(map[string]Node),
		triggers:        make(map[string]TriggerNode),
		credentialTypes: make(map[string]CredentialType),
	}
}

func (c *Container) GetTask(name string) Task {
	task, ok := c.Tasks[name]
	if !ok {
		return nil
	}
	return task
}

// RegisterPlugin registers a plugin instance, lets it contribute nodes and
// credential types, and auto-discovers its tasks from exported methods.
func (c *Container) RegisterPlugin(pluginName string, plugin any) error {
	if plugin == nil {
		return fmt.Errorf("plugin cannot be nil")
	}
	if _, exists := c.plugins[pluginName]; exists {
		return fmt.Errorf("plugin %q already registered", pluginName)
	}

	c.plugins[pluginName] = plugin
	c.pluginOrder = append(c.pluginOrder, pluginName)

	if r, ok := plugin.(Registrar); ok {
		if err := r.Register(c); err != nil {
			return fmt.Errorf("plugin %q registration failed: %w", pluginName, err)
		}
	}

	pluginType := reflect.TypeOf(plugin)
	pluginValue := reflect.ValueOf(plugin)

	for i := 0; i < pluginType.NumMethod(); i++ {
		method := pluginType.Method(i)
		if !method.IsExported() {
			continue
		}

		// func (p *Plugin) TaskName(exec *Execution, args map[string]any) (map[string]any, error)
		if !isValidTaskSignature(method.Type) {
			continue
		}

		taskName := fmt.Sprintf("%s.%s", pluginName, toLowerFirst(method.Name))
		c.Tasks[taskName] = &pluginTaskWrapper{plugin: pluginValue, method: method}
	}

	c.Logger.Debug("Plugin registered", "plugin", pluginName)
	return nil
}

func (c *Container) GetPlugin(name string) any {
	return c.plugins[name]
}

func (c *Container) RegisterNode(node Node) error {
	name := node.Description().Name
	if _, exists := c.nodes[name]; exists {
		return fmt.Errorf("node %q already registered", name)
	}
	c.nodes[name] = node
	return nil
}

func (c *Container) RegisterTrigger(trigger TriggerNode) error {
	name := trigger.Description().Name
	if _, exists := c.triggers[name]; exists {
		return fmt.Errorf("trigger %q already registered", name)
	}
	c.triggers[name] = trigger
	return nil
}

func (c *Container) RegisterCredentialType(ct CredentialType) error {
	if _, exists := c.credentialTypes[ct.Name()]; exists {
		return fmt.Errorf("credential type %q already registered", ct.Name())
	}
	c.credentialTypes[ct.Name()] = ct
	return nil
}

func (c *Container) Node(name string) (Node, bool) {
	n, ok := c.nodes[name]
	return n, ok
}

func (c *Container) Trigger(name string) (TriggerNode, bool) {
	t, ok := c.triggers[name]
	return t, ok
}

func (c *Container) CredentialType(name string) (CredentialType, bool) {
	ct, ok := c.credentialTypes[name]
	return ct, ok
}

// Descriptions lists node and trigger descriptions sorted by name.
func (c *Container) Descriptions() []NodeDescription {
	out := make([]NodeDescription, 0, len(c.nodes)+len(c.triggers))
	for _, n := range c.nodes {
		out = append(out, n.Description())
	}
	for _, t := range c.triggers {
		out = append(out, t.Description())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// CredentialTypes lists registered credential types sorted by name.
func (c *Container) CredentialTypes() []CredentialType {
	out := make([]CredentialType, 0, len(c.credentialTypes))
	for _, ct := range c.credentialTypes {
		out = append(out, ct)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Initialize calls Initialize on plugins in registration order.
func (c *Container) Initialize(ctx context.Context) error {
	for _, name := range c.pluginOrder {
		init, ok := c.plugins[name].(Initializer)
		if !ok {
			continue
		}
		if err := init.Initialize(ctx); err != nil {
			c.Logger.ErrorContext(ctx, "Plugin initialization failed", "plugin", name, "error", err)
			return fmt.Errorf("plugin %q initialization failed: %w", name, err)
		}
	}
	return nil
}

// Shutdown stops the scheduler and shuts plugins down in reverse order.
func (c *Container) Shutdown(ctx context.Context) error {
	if c.Cron != nil {
		c.Cron.Stop()
	}

	var errs []error
	for i := len(c.pluginOrder) - 1; i >= 0; i-- {
		name := c.pluginOrder[i]
		s, ok := c.plugins[name].(Shutdowner)
		if !ok {
			continue
		}
		if err := s.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("plugin %q shutdown failed: %w", name, err))
		}
	}

	if c.HTTP != nil {
		c.HTTP.Close()
	}
	return errors.Join(errs...)
}

// isValidTaskSignature checks if method has valid task signature
// Valid: func(exec *Execution, args map[string]any) (map[string]any, error)
func isValidTaskSignature(methodType reflect.Type) bool {
	if methodType.NumIn() != 3 || methodType.NumOut() != 2 {
		return false
	}

	executionPtrType := reflect.TypeOf((*Execution)(nil))
	mapType := reflect.TypeOf(map[string]any(nil))
	errorType := reflect.TypeOf((*error)(nil)).Elem()

	return methodType.In(1) == executionPtrType &&
		methodType.In(2) == mapType &&
		methodType.Out(0) == mapType &&
		methodType.Out(1) == errorType
}

func toLowerFirst(s string) string {
	if s == "" {
		return ""
	}
	return strings.ToLower(s[:1]) + s[1:]
}

// pluginTaskWrapper wraps a plugin method to implement Task interface
type pluginTaskWrapper struct {
	plugin reflect.Value
	method reflect.Method
}

func (w *pluginTaskWrapper) Execute(exec *Execution, args map[string]any) (map[string]any, error) {
	results := w.method.Func.Call([]reflect.Value{
		w.plugin,
		reflect.ValueOf(exec),
		reflect.ValueOf(args),
	})

	resultMap, _ := results[0].Interface().(map[string]any)

	var err error
	if !results[1].IsNil() {
		err = results[1].Interface().(error)
	}

	return resultMap, err
}
