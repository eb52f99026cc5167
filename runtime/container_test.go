package runtime

import (
	"context"
	"errors"
	"testing"
)

type fakePlugin struct {
	initialized bool
	shutdown    bool
	registered  bool
}

func (p *fakePlugin) Initialize(ctx context.Context) error {
	p.initialized = true
	return nil
}

func (p *fakePlugin) Shutdown(ctx context.Context) error {
	p.shutdown = true
	return nil
}

func (p *fakePlugin) Register(c *Container) error {
	p.registered = true
	return c.RegisterNode(fakeNode{})
}

func (p *fakePlugin) ListSheets(exec *Execution, args map[string]any) (map[string]any, error) {
	return map[string]any{"results": []any{args["filter"]}}, nil
}

func (p *fakePlugin) NotATask(s string) string { return s }

type fakeNode struct{}

func (fakeNode) Description() NodeDescription { return NodeDescription{Name: "fake"} }
func (fakeNode) Execute(exec *Execution) ([]Item, error) {
	return JSONItems(map[string]any{"ok": true}), nil
}

type failingPlugin struct{}

func (failingPlugin) Initialize(ctx context.Context) error { return errors.New("no config") }

func TestContainer_RegisterPlugin(t *testing.T) {
	c := NewContainer(nil, nil, nil)
	p := &fakePlugin{}

	if err := c.RegisterPlugin("fake", p); err != nil {
		t.Fatalf("RegisterPlugin failed: %v", err)
	}
	if !p.registered {
		t.Error("Expected Register to be called")
	}
	if _, ok := c.Node("fake"); !ok {
		t.Error("Expected node 'fake' to be registered")
	}

	task := c.GetTask("fake.listSheets")
	if task == nil {
		t.Fatal("Expected task 'fake.listSheets' to be discovered")
	}
	if c.GetTask("fake.notATask") != nil {
		t.Error("Expected method with wrong signature to be skipped")
	}

	out, err := task.Execute(NewExecution(context.Background(), c, nil, nil, nil), map[string]any{"filter": "x"})
	if err != nil {
		t.Fatalf("task failed: %v", err)
	}
	if out["results"].([]any)[0] != "x" {
		t.Errorf("Expected task result, got %v", out)
	}

	if err := c.RegisterPlugin("fake", p); err == nil {
		t.Error("Expected duplicate plugin registration to fail")
	}
}

func TestContainer_Lifecycle(t *testing.T) {
	c := NewContainer(nil, nil, nil)
	p := &fakePlugin{}
	_ = c.RegisterPlugin("fake", p)

	if err := c.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if !p.initialized {
		t.Error("Expected Initialize to be called")
	}
	if err := c.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
	if !p.shutdown {
		t.Error("Expected Shutdown to be called")
	}
}

func TestContainer_InitializeError(t *testing.T) {
	c := NewContainer(nil, nil, nil)
	_ = c.RegisterPlugin("broken", failingPlugin{})

	if err := c.Initialize(context.Background()); err == nil {
		t.Error("Expected initialization error")
	}
}

func TestExecution_EmitWithoutEmitter(t *testing.T) {
	exec := NewExecution(context.Background(), nil, nil, nil, nil)
	if err := exec.Emit(nil); !errors.Is(err, ErrNoEmitter) {
		t.Errorf("Expected ErrNoEmitter, got %v", err)
	}
}

func TestExecution_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	exec := NewExecution(ctx, nil, nil, nil, nil)
	cancel()

	select {
	case <-exec.Done():
	default:
		t.Fatal("Expected execution to observe cancellation")
	}
	if !errors.Is(exec.Err(), context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", exec.Err())
	}
}
