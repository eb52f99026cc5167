package dingtalk

import (
	"errors"
	"fmt"

	"github.com/sflowg/dingtalk/plugins/dingtalk/credentials"
	"github.com/sflowg/dingtalk/plugins/dingtalk/operation"
	"github.com/sflowg/dingtalk/runtime"
)

const NodeName = "dingtalkNode"

// Node runs the selected operation once per input item.
type Node struct {
	plugin *Plugin
}

func (n *Node) Description() runtime.NodeDescription {
	return runtime.NodeDescription{
		DisplayName: "Dingtalk Node",
		Name:        NodeName,
		Icon:        "file:icon.png",
		Group:       []string{"transform"},
		Version:     1,
		Subtitle:    `={{$parameter["operation"]}}`,
		Description: "Interact with the Dingtalk API",
		Inputs:      []string{"main"},
		Outputs:     []string{"main"},
		Credentials: []runtime.CredentialRef{{Name: credentials.APIName, Required: true}},
		Properties:  n.plugin.registry.Properties(),
	}
}

// Execute looks the operation up once, from the first item, and runs it for
// every item. With continue-on-fail a failing item yields {error: message};
// otherwise the first failure aborts with its item index attached.
func (n *Node) Execute(exec *runtime.Execution) ([]runtime.Item, error) {
	if n.plugin.client == nil {
		return nil, runtime.NewOperationError(NodeName, "dingtalk plugin is not initialized")
	}

	value, err := exec.StringParameter("operation", 0)
	if err != nil {
		return nil, err
	}
	def, ok := n.plugin.registry.Lookup(value)
	if !ok {
		if value == "" {
			value = "<empty>"
		}
		return nil, runtime.NewOperationError(exec.NodeName(),
			fmt.Sprintf("Operation %q not found", value)).WithItemIndex(0)
	}

	c := operation.NewContext(exec, n.plugin.client)
	results := make([]runtime.Item, 0, len(exec.Items))
	for i := range exec.Items {
		item, err := def.Run(c, i)
		if err == nil {
			results = append(results, item)
			continue
		}

		if exec.ContinueOnFail {
			exec.Logger().WarnContext(exec, "Operation failed, continuing",
				"operation", def.Value,
				"item_index", i,
				"error", err)
			results = append(results, runtime.NewItem(map[string]any{"error": errorMessage(err)}, i))
			continue
		}
		return nil, runtime.WrapOperationError(exec.NodeName(), err).WithItemIndex(i)
	}
	return results, nil
}

// errorMessage is the message without the item suffix.
func errorMessage(err error) string {
	var opErr *runtime.OperationError
	if errors.As(err, &opErr) {
		return opErr.Message
	}
	return err.Error()
}
