// Package operation defines DingTalk operation descriptors, resource bundles
// and the parameter helpers shared between resources.
package operation

import (
	"fmt"

	"github.com/sflowg/dingtalk/plugins/dingtalk/transport"
	"github.com/sflowg/dingtalk/runtime"
)

// RunFunc executes an operation for one input item.
type RunFunc func(c *Context, itemIndex int) (runtime.Item, error)

// Def describes one operation, e.g. "user.get".
type Def struct {
	Value       string
	Name        string
	Action      string
	Description string
	// Properties are shown only while this operation is selected.
	Properties []runtime.NodeProperty
	Run        RunFunc
}

// Show returns display options selecting this operation.
func (d Def) Show() *runtime.DisplayOptions {
	return runtime.ShowOnly("operation", d.Value)
}

// Context is what an operation runs against.
type Context struct {
	*runtime.Execution
	Client *transport.Client
}

func NewContext(exec *runtime.Execution, client *transport.Client) *Context {
	return &Context{Execution: exec, Client: client}
}

// Request performs an authenticated DingTalk request with token refresh.
func (c *Context) Request(opts transport.Options) (any, error) {
	return c.Client.Do(c.Execution, opts)
}

// RequestObject is Request for endpoints that answer with a JSON object.
// Anything else is wrapped as {"data": value}.
func (c *Context) RequestObject(opts transport.Options) (map[string]any, error) {
	data, err := c.Request(opts)
	if err != nil {
		return nil, err
	}
	if m, ok := data.(map[string]any); ok {
		return m, nil
	}
	return map[string]any{"data": data}, nil
}

// Errorf builds a user-facing error for the item at itemIndex.
func (c *Context) Errorf(itemIndex int, format string, args ...any) *runtime.OperationError {
	return runtime.NewOperationError(c.NodeName(), fmt.Sprintf(format, args...)).WithItemIndex(itemIndex)
}
