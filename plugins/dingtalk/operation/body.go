package operation

import (
	"encoding/json"
	"fmt"

	"github.com/sflowg/dingtalk/runtime"
)

const (
	BodyModeFields = "fields"
	BodyModeJSON   = "json"
)

// BodyOptions configure BodyProps and BodyData.
type BodyOptions struct {
	DefaultJSONBody string
	JSONDescription string
	// FieldProperties are shown in fields mode.
	FieldProperties []runtime.NodeProperty
	DefaultMode     string
	// HideModeSelector fixes the mode to DefaultMode.
	HideModeSelector bool
	// Fields builds the body in fields mode.
	Fields func(c *Context, itemIndex int) (map[string]any, error)
}

func (o BodyOptions) defaultMode() string {
	if o.DefaultMode == "" {
		return BodyModeFields
	}
	return o.DefaultMode
}

// BodyProps returns the sendBody selector, the jsonBody editor and the field
// properties, all shown under show.
func BodyProps(show *runtime.DisplayOptions, opts BodyOptions) []runtime.NodeProperty {
	defaultJSON := opts.DefaultJSONBody
	if defaultJSON == "" {
		defaultJSON = "{}"
	}
	description := opts.JSONDescription
	if description == "" {
		description = "请求体JSON数据"
	}

	var props []runtime.NodeProperty
	jsonShow, fieldsShow := show, show
	if !opts.HideModeSelector {
		props = append(props, runtime.NodeProperty{
			DisplayName: "发送请求体",
			Name:        "sendBody",
			Type:        runtime.PropertyOptions,
			Options: []runtime.PropertyOption{
				{Name: "使用下面定义的表单", Value: BodyModeFields},
				{Name: "使用JSON", Value: BodyModeJSON},
			},
			Default:        opts.defaultMode(),
			Description:    "如何发送请求体数据",
			DisplayOptions: show,
		})
		jsonShow = show.With("sendBody", BodyModeJSON)
		fieldsShow = show.With("sendBody", BodyModeFields)
	}

	props = append(props, runtime.NodeProperty{
		DisplayName:    "请求体JSON",
		Name:           "jsonBody",
		Type:           runtime.PropertyJSON,
		Default:        defaultJSON,
		Description:    description,
		DisplayOptions: jsonShow,
	})

	for _, p := range opts.FieldProperties {
		merged := fieldsShow
		if p.DisplayOptions != nil {
			for k, v := range p.DisplayOptions.Show {
				merged = merged.With(k, v...)
			}
		}
		p.DisplayOptions = merged
		props = append(props, p)
	}
	return props
}

// BodyData returns the request body for the selected mode: the parsed JSON
// editor content, or the result of opts.Fields.
func BodyData(c *Context, itemIndex int, opts BodyOptions) (map[string]any, error) {
	mode := opts.defaultMode()
	if !opts.HideModeSelector && c.HasParameter("sendBody") {
		m, err := c.StringParameter("sendBody", itemIndex)
		if err != nil {
			return nil, err
		}
		mode = m
	}

	if mode == BodyModeJSON {
		raw, err := c.GetParameter("jsonBody", itemIndex)
		if err != nil {
			return nil, err
		}
		if raw == nil {
			raw = map[string]any{}
		}
		return ParseJSONBody(c.NodeName(), raw, itemIndex)
	}

	if opts.Fields != nil {
		return opts.Fields(c, itemIndex)
	}
	return map[string]any{}, nil
}

// ParseJSONBody accepts a JSON string or an already decoded object and
// requires a JSON object.
func ParseJSONBody(node string, raw any, itemIndex int) (map[string]any, error) {
	body := raw
	if s, ok := raw.(string); ok {
		var decoded any
		if err := json.Unmarshal([]byte(s), &decoded); err != nil {
			return nil, runtime.NewOperationError(node, "request body is not valid JSON").
				WithDescription(err.Error()).
				WithItemIndex(itemIndex)
		}
		body = decoded
	}

	obj, ok := body.(map[string]any)
	if !ok {
		return nil, runtime.NewOperationError(node,
			fmt.Sprintf("request body must be a JSON object, got %T", body)).WithItemIndex(itemIndex)
	}
	return obj, nil
}

// JSONExample renders v as an indented JSON default for a json property.
func JSONExample(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		panic(err)
	}
	return string(data)
}
