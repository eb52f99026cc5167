package workflow

import (
	"net/http"
	"strings"

	"github.com/sflowg/dingtalk/plugins/dingtalk/operation"
	"github.com/sflowg/dingtalk/plugins/dingtalk/transport"
)

const schemaPath = "/workflow/forms/schemas/processCodes"

// FormControl is one input control of an approval form.
type FormControl struct {
	ID       string
	Label    string
	BizAlias string
	Required bool
	// Path holds the labels of the enclosing groups followed by Label.
	Path []string
}

// DisplayName renders the breadcrumb path with the business alias, if any.
func (f FormControl) DisplayName() string {
	name := strings.Join(f.Path, " / ")
	if name == "" {
		name = f.Label
	}
	if f.BizAlias != "" {
		return name + " (" + f.BizAlias + ")"
	}
	return name
}

// FetchFormControls loads the form schema of processCode and returns its
// controls in document order, first occurrence per ID.
func FetchFormControls(c *operation.Context, processCode string) ([]FormControl, error) {
	if processCode == "" {
		return nil, nil
	}
	resp, err := c.RequestObject(transport.Options{
		Method: http.MethodGet,
		URL:    schemaPath,
		Query:  map[string]any{"processCode": processCode},
	})
	if err != nil {
		return nil, err
	}

	result, _ := resp["result"].(map[string]any)
	schema, _ := result["schemaContent"].(map[string]any)
	items, _ := schema["items"].([]any)

	seen := map[string]bool{}
	var controls []FormControl
	for _, ctl := range collectControls(items, nil) {
		if seen[ctl.ID] {
			continue
		}
		seen[ctl.ID] = true
		controls = append(controls, ctl)
	}
	return controls, nil
}

// collectControls walks the component tree. Components with both an id and
// a label are controls; every component contributes its label, alias or
// component name to the path of its children.
func collectControls(items []any, ancestors []string) []FormControl {
	var out []FormControl
	for _, raw := range items {
		node, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		props, _ := node["props"].(map[string]any)
		label := text(props["label"])
		bizAlias := text(props["bizAlias"])
		id := text(props["id"])
		required, _ := props["required"].(bool)

		group := label
		if group == "" {
			group = bizAlias
		}
		if group == "" {
			group = text(node["componentName"])
		}
		if group == "" {
			group = "Unknown"
		}

		if id != "" && label != "" {
			path := append(append([]string{}, ancestors...), label)
			out = append(out, FormControl{ID: id, Label: label, BizAlias: bizAlias, Required: required, Path: path})
		}

		if children, ok := node["children"].([]any); ok && len(children) > 0 {
			next := append(append([]string{}, ancestors...), group)
			out = append(out, collectControls(children, next)...)
		}
	}
	return out
}

func text(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

// ResourceMapperFields describes controls as resource mapper columns.
func ResourceMapperFields(controls []FormControl) []map[string]any {
	fields := make([]map[string]any, 0, len(controls))
	for _, ctl := range controls {
		fields = append(fields, map[string]any{
			"id":               ctl.ID,
			"displayName":      ctl.DisplayName(),
			"required":         ctl.Required,
			"defaultMatch":     false,
			"canBeUsedToMatch": true,
			"display":          true,
			"readOnly":         false,
			"type":             "string",
		})
	}
	return fields
}


const variablesNotice = "请先填写审批流的唯一码（processCode），然后再尝试加载表单控件。"

// ProcessVariables describes the controls of the selected processCode. The
// notice is set instead when no processCode is configured.
func ProcessVariables(c *operation.Context) (fields []map[string]any, notice string, err error) {
	processCode, err := c.StringParameter("processCode", 0)
	if err != nil {
		return nil, "", err
	}
	if strings.TrimSpace(processCode) == "" {
		return []map[string]any{}, variablesNotice, nil
	}
	controls, err := FetchFormControls(c, strings.TrimSpace(processCode))
	if err != nil {
		return nil, "", err
	}
	return ResourceMapperFields(controls), "", nil
}
