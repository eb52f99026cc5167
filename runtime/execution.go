package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

var _ context.Context = &Execution{}

// ErrNoEmitter is returned by Emit when the execution was not started for a trigger.
var ErrNoEmitter = errors.New("execution has no emitter")

// Execution is the per-invocation handle a node receives.
type Execution struct {
	ID             string
	Node           *NodeDescription
	Parameters     map[string]any
	Items          []Item
	ContinueOnFail bool
	Container      *Container

	logger    *slog.Logger
	emit      func([]Item) error
	evaluator *ExpressionEvaluator
	ctx       context.Context // real context carrying deadline/cancellation
}

// ExecutionOption customizes an Execution.
type ExecutionOption func(*Execution)

func WithContinueOnFail(continueOnFail bool) ExecutionOption {
	return func(e *Execution) { e.ContinueOnFail = continueOnFail }
}

// WithEmitter sets the sink used by triggers to publish items.
func WithEmitter(emit func([]Item) error) ExecutionOption {
	return func(e *Execution) { e.emit = emit }
}

func NewExecution(ctx context.Context, container *Container, node *NodeDescription, parameters map[string]any, items []Item, opts ...ExecutionOption) *Execution {
	if ctx == nil {
		ctx = context.Background()
	}
	if parameters == nil {
		parameters = map[string]any{}
	}
	if len(items) == 0 {
		items = []Item{{JSON: map[string]any{}}}
	}

	exec := &Execution{
		ID:         uuid.New().String(),
		Node:       node,
		Parameters: parameters,
		Items:      items,
		Container:  container,
		evaluator:  NewExpressionEvaluator(),
		ctx:        ctx,
	}
	for _, opt := range opts {
		opt(exec)
	}

	logger := slog.Default()
	if container != nil && container.Logger != nil {
		logger = container.Logger
	}
	attrs := []any{"execution_id", exec.ID}
	if node != nil {
		attrs = append(attrs, "node", node.Name)
	}
	exec.logger = logger.With(attrs...)

	return exec
}

// context.Context implementation, delegating to the embedded ctx so that
// cancellation reaches HTTP calls and sockets opened by nodes.

func (e *Execution) Deadline() (deadline time.Time, ok bool) {
	return e.ctx.Deadline()
}

func (e *Execution) Done() <-chan struct{} {
	return e.ctx.Done()
}

func (e *Execution) Err() error {
	return e.ctx.Err()
}

func (e *Execution) Value(key any) any {
	return e.ctx.Value(key)
}

// WithContext returns a shallow copy of the Execution with a new embedded context.
func (e *Execution) WithContext(ctx context.Context) *Execution {
	copy := *e
	copy.ctx = ctx
	return &copy
}

func (e *Execution) Logger() *slog.Logger {
	return e.logger
}

// NodeName is the name used in errors raised by this execution.
func (e *Execution) NodeName() string {
	if e.Node == nil {
		return ""
	}
	return e.Node.Name
}

// Emit publishes items from a trigger.
func (e *Execution) Emit(items []Item) error {
	if e.emit == nil {
		return ErrNoEmitter
	}
	return e.emit(items)
}

// RegisterCron schedules fn on the host scheduler and returns its cancel func.
func (e *Execution) RegisterCron(spec string, fn func()) (func(), error) {
	if e.Container == nil || e.Container.Cron == nil {
		return nil, fmt.Errorf("no scheduler available")
	}
	return e.Container.Cron.Register(spec, fn)
}

// BinaryData returns the binary property of the item at itemIndex.
func (e *Execution) BinaryData(itemIndex int, property string) (BinaryData, error) {
	if itemIndex < 0 || itemIndex >= len(e.Items) {
		return BinaryData{}, NewOperationError(e.NodeName(), fmt.Sprintf("no item at index %d", itemIndex))
	}
	bin, ok := e.Items[itemIndex].Binary[property]
	if !ok {
		return BinaryData{}, NewOperationError(e.NodeName(),
			fmt.Sprintf("item has no binary property %q", property)).WithItemIndex(itemIndex)
	}
	return bin, nil
}

func (e *Execution) GetCredentials(ctx context.Context, name string) (Credentials, error) {
	if e.Container == nil || e.Container.Credentials == nil {
		return nil, fmt.Errorf("no credential store available")
	}
	creds, err := e.Container.Credentials.Get(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to load credentials %q: %w", name, err)
	}
	return creds, nil
}

// HTTPRequest performs an unauthenticated request and returns the decoded body.
func (e *Execution) HTTPRequest(ctx context.Context, req *HTTPRequest) (any, error) {
	if e.Container == nil || e.Container.HTTP == nil {
		return nil, fmt.Errorf("no HTTP client available")
	}
	resp, err := e.Container.HTTP.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	return resp.Decode(), nil
}
