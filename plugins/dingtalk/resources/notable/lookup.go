package notable

import (
	"net/http"

	"github.com/sflowg/dingtalk/plugins/dingtalk/operation"
	"github.com/sflowg/dingtalk/plugins/dingtalk/transport"
	"github.com/sflowg/dingtalk/runtime"
)

// fieldTypes maps notable field types to resource mapper types.
var fieldTypes = map[string]string{
	"text":               "string",
	"number":             "number",
	"singleSelect":       "string",
	"multipleSelect":     "array",
	"date":               "dateTime",
	"user":               "object",
	"department":         "object",
	"attachment":         "object",
	"unidirectionalLink": "object",
	"bidirectionalLink":  "object",
	"url":                "object",
}

// SearchSheets lists the sheets of the selected base as {name, value} results.
func SearchSheets(c *operation.Context) ([]map[string]any, error) {
	t, err := resolveTarget(c, 0, false)
	if err != nil {
		return nil, err
	}
	if t.Operator == "" {
		return nil, c.Errorf(0, "operatorId is required")
	}
	c.Logger().DebugContext(c, "Searching notable sheets", "base_id", t.Base)

	resp, err := c.RequestObject(transport.Options{Method: http.MethodGet, URL: t.basePath() + "/sheets", Query: t.query()})
	if err != nil {
		return nil, err
	}
	sheets, _ := resp["value"].([]any)
	results := make([]map[string]any, 0, len(sheets))
	for _, raw := range sheets {
		s, _ := raw.(map[string]any)
		results = append(results, map[string]any{
			"name":  runtime.ToString(s["name"]),
			"value": runtime.ToString(s["id"]),
		})
	}
	return results, nil
}

// ColumnFields describes the fields of the selected sheet as resource mapper
// columns keyed by field name.
func ColumnFields(c *operation.Context) ([]map[string]any, error) {
	t, err := resolveTarget(c, 0, true)
	if err != nil {
		return nil, err
	}
	resp, err := c.RequestObject(transport.Options{Method: http.MethodGet, URL: t.sheetPath("fields"), Query: t.query()})
	if err != nil {
		return nil, err
	}

	list, _ := resp["value"].([]any)
	fields := make([]map[string]any, 0, len(list))
	for _, raw := range list {
		f, _ := raw.(map[string]any)
		name := runtime.ToString(f["name"])
		kind := runtime.ToString(f["type"])
		mapped, ok := fieldTypes[kind]
		if !ok {
			mapped = "string"
		}
		fields = append(fields, map[string]any{
			"id":               name,
			"displayName":      name + " (" + kind + ")",
			"required":         false,
			"defaultMatch":     false,
			"canBeUsedToMatch": true,
			"display":          true,
			"removed":          true,
			"readOnly":         false,
			"type":             mapped,
		})
	}
	return fields, nil
}
