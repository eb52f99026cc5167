// Package workbooks implements the online spreadsheet operations.
package workbooks

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/sflowg/dingtalk/plugins/dingtalk/operation"
	"github.com/sflowg/dingtalk/plugins/dingtalk/transport"
	"github.com/sflowg/dingtalk/runtime"
)

func Bundle() operation.Bundle {
	return operation.MustBundle("workbooks", "表格",
		columnsDelete, columnsVisibility,
		rangesAppend, rangesClearData, rangesGet, rangeUpdate,
		rowsInsertBefore, rowsVisibility,
		sheetsGet, sheetsGetAll,
	)
}

// WorkbookProperty is the workbookId locator.
func WorkbookProperty(show *runtime.DisplayOptions) runtime.NodeProperty {
	return runtime.NodeProperty{
		DisplayName: "表格文件",
		Name:        "workbookId",
		Type:        runtime.PropertyResourceLocator,
		Default:     map[string]any{"mode": "id", "value": ""},
		Required:    true,
		Modes: []runtime.LocatorMode{
			{DisplayName: "By ID", Name: "id", Type: "string"},
			{
				DisplayName:       "From URL",
				Name:              "url",
				Type:              "string",
				Placeholder:       "https://alidocs.dingtalk.com/i/nodes/...?",
				ValidateRegex:     `^https://[^/]*alidocs\.dingtalk\.com/.+`,
				ValidationMessage: "请输入合法的表格URL",
				ExtractRegex:      `/i/nodes/([^/?#]+)`,
			},
		},
		Description:    "表格文件 ID ，知识库 API 返回的nodeId(dentryUuid)即是表格workbookId，可通过调用[获取节点]和[创建知识库文档]获取。",
		DisplayOptions: show,
	}
}

// SheetProperty is the sheetId locator backed by the workbookSheetsSearch task.
func SheetProperty(show *runtime.DisplayOptions) runtime.NodeProperty {
	return runtime.NodeProperty{
		DisplayName: "工作表",
		Name:        "sheetId",
		Type:        runtime.PropertyResourceLocator,
		Default:     map[string]any{"mode": "id", "value": ""},
		Required:    true,
		TypeOptions: map[string]any{"loadOptionsDependsOn": []string{"workbookId.value"}},
		Modes: []runtime.LocatorMode{
			{DisplayName: "From List", Name: "list", Type: "list", SearchListMethod: "workbookSheetsSearch"},
			{DisplayName: "By ID", Name: "id", Type: "string"},
		},
		Description:    "工作表ID或名称，可调用[获取所有工作表]获取id或name参数值。",
		DisplayOptions: show,
	}
}

// TargetProps returns the operator, workbook and optional sheet properties
// for op, followed by extra, all shown only for op.
func TargetProps(op string, withSheet bool, extra ...runtime.NodeProperty) []runtime.NodeProperty {
	show := runtime.ShowOnly("operation", op)
	props := append(operation.OperatorProps(show), WorkbookProperty(show))
	if withSheet {
		props = append(props, SheetProperty(show))
	}
	for _, p := range extra {
		p.DisplayOptions = show
		props = append(props, p)
	}
	return props
}

// Target addresses a workbook and, for sheet level operations, one sheet.
type Target struct {
	Workbook string `json:"workbookId" validate:"required"`
	Sheet    string `json:"sheetId"`
	Operator string `json:"-"`
}

// Path returns the workbook URL path followed by parts.
func (t Target) Path(parts ...string) string {
	p := "/doc/workbooks/" + url.PathEscape(t.Workbook)
	if len(parts) == 0 {
		return p
	}
	return p + "/" + strings.Join(parts, "/")
}

func (t Target) SheetPath(parts ...string) string {
	return t.Path(append([]string{"sheets", url.PathEscape(t.Sheet)}, parts...)...)
}

// ResolveTarget reads the workbook, sheet and operator for the item.
func ResolveTarget(c *operation.Context, itemIndex int, needSheet bool) (Target, error) {
	var t Target
	if err := c.DecodeParameters(itemIndex, &t); err != nil {
		return t, err
	}
	if needSheet && t.Sheet == "" {
		return t, c.Errorf(itemIndex, "sheetId is required")
	}
	operator, err := operation.OperatorID(c, itemIndex)
	if err != nil {
		return t, err
	}
	t.Operator = operator
	return t, nil
}

// Request sends a request scoped to the operator.
func (t Target) Request(c *operation.Context, method, path string, query map[string]any, body any) (map[string]any, error) {
	q := map[string]any{"operatorId": t.Operator}
	for k, v := range query {
		q[k] = v
	}
	return c.RequestObject(transport.Options{Method: method, URL: path, Query: q, Body: body})
}

var sheetsGetAll = operation.Def{
	Value:       "workbooks.sheets.getAll",
	Name:        "获取所有工作表",
	Description: "获取指定表格中所有的工作表信息",
	Properties:  TargetProps("workbooks.sheets.getAll", false),
	Run: func(c *operation.Context, itemIndex int) (runtime.Item, error) {
		t, err := ResolveTarget(c, itemIndex, false)
		if err != nil {
			return runtime.Item{}, err
		}
		resp, err := t.Request(c, http.MethodGet, t.Path("sheets"), nil, nil)
		if err != nil {
			return runtime.Item{}, err
		}
		return runtime.NewItem(resp, itemIndex), nil
	},
}

var sheetsGet = operation.Def{
	Value:       "workbooks.sheets.get",
	Name:        "获取工作表",
	Description: "获取某个工作表属性",
	Properties:  TargetProps("workbooks.sheets.get", true),
	Run: func(c *operation.Context, itemIndex int) (runtime.Item, error) {
		t, err := ResolveTarget(c, itemIndex, true)
		if err != nil {
			return runtime.Item{}, err
		}
		resp, err := t.Request(c, http.MethodGet, t.SheetPath(), nil, nil)
		if err != nil {
			return runtime.Item{}, err
		}
		return runtime.NewItem(resp, itemIndex), nil
	},
}
