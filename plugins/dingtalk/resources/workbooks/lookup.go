package workbooks

import (
	"net/http"
	"strings"

	"github.com/sflowg/dingtalk/plugins/dingtalk/operation"
	"github.com/sflowg/dingtalk/runtime"
)

// SearchSheets lists the sheets of the selected workbook whose name contains
// filter, ignoring case.
func SearchSheets(c *operation.Context, filter string) ([]map[string]any, error) {
	t, err := ResolveTarget(c, 0, false)
	if err != nil || t.Operator == "" {
		return nil, c.Errorf(0, "请先配置 操作人 和表格文件")
	}
	resp, err := t.Request(c, http.MethodGet, t.Path("sheets"), nil, nil)
	if err != nil {
		return nil, err
	}

	filter = strings.ToLower(strings.TrimSpace(filter))
	sheets, _ := resp["value"].([]any)
	results := make([]map[string]any, 0, len(sheets))
	for _, raw := range sheets {
		s, _ := raw.(map[string]any)
		name := runtime.ToString(s["name"])
		if filter != "" && !strings.Contains(strings.ToLower(name), filter) {
			continue
		}
		results = append(results, map[string]any{"name": name, "value": runtime.ToString(s["id"])})
	}
	return results, nil
}

// HeaderFields reads the header row named by headerRange and describes each
// column as a resource mapper field keyed by column letter.
func HeaderFields(c *operation.Context) ([]map[string]any, error) {
	t, err := ResolveTarget(c, 0, true)
	if err != nil || t.Operator == "" {
		return nil, c.Errorf(0, "请先配置 操作人、表格文件 和 工作表")
	}
	headerRange, err := c.StringParameter("headerRange", 0)
	if err != nil || strings.TrimSpace(headerRange) == "" {
		return nil, c.Errorf(0, "请先配置标题行范围，例如 A1:C1")
	}
	r, err := ParseRange(headerRange)
	if err != nil {
		return nil, c.Errorf(0, "%s", err.Error())
	}

	resp, err := t.Request(c, http.MethodGet, t.SheetPath("ranges", headerRange),
		map[string]any{"select": "values"}, nil)
	if err != nil {
		return nil, err
	}

	values, _ := resp["values"].([]any)
	if len(values) == 0 {
		return []map[string]any{}, nil
	}
	header, _ := values[0].([]any)
	fields := make([]map[string]any, 0, len(header))
	for i, v := range header {
		column := ColumnName(r.StartCol + i)
		displayName := "列 " + column
		if title := runtime.ToString(v); title != "" {
			displayName = title + " (" + column + ")"
		}
		fields = append(fields, map[string]any{
			"id":               column,
			"displayName":      displayName,
			"required":         false,
			"defaultMatch":     false,
			"canBeUsedToMatch": true,
			"display":          true,
			"removed":          true,
			"readOnly":         false,
			"type":             "string",
		})
	}
	return fields, nil
}
