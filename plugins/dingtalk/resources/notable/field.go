package notable

import (
	"net/http"
	"net/url"

	"github.com/sflowg/dingtalk/plugins/dingtalk/operation"
	"github.com/sflowg/dingtalk/runtime"
)

const (
	opFieldGetAll = "notable.field.getAll"
	opFieldCreate = "notable.field.create"
	opFieldUpdate = "notable.field.update"
	opFieldDelete = "notable.field.delete"
)

func fieldNameProperty(show *runtime.DisplayOptions) runtime.NodeProperty {
	return runtime.NodeProperty{
		DisplayName:    "字段ID或字段名称 (fieldIdOrName)",
		Name:           "fieldIdOrName",
		Type:           runtime.PropertyString,
		Default:        "",
		Required:       true,
		DisplayOptions: show,
	}
}

func fieldBodyProperty(show *runtime.DisplayOptions, example map[string]any, doc string) runtime.NodeProperty {
	return runtime.NodeProperty{
		DisplayName:    "请求体 JSON",
		Name:           "body",
		Type:           runtime.PropertyJSON,
		Default:        operation.JSONExample(example),
		Required:       true,
		Description:    "官方文档: " + doc,
		DisplayOptions: show,
	}
}

var fieldGetAll = operation.Def{
	Value:       opFieldGetAll,
	Name:        "获取所有字段",
	Description: "获取在数据表中的所有字段",
	Properties:  targetProps(runtime.ShowOnly("operation", opFieldGetAll), true),
	Run: func(c *operation.Context, itemIndex int) (runtime.Item, error) {
		t, err := resolveTarget(c, itemIndex, true)
		if err != nil {
			return runtime.Item{}, err
		}
		return do(c, itemIndex, http.MethodGet, t.sheetPath("fields"), t, nil)
	},
}

var fieldCreate = operation.Def{
	Value:       opFieldCreate,
	Name:        "创建字段",
	Description: "在数据表中创建一个字段",
	Properties: targetProps(runtime.ShowOnly("operation", opFieldCreate), true,
		fieldBodyProperty(runtime.ShowOnly("operation", opFieldCreate), map[string]any{
			"name":     "状态",
			"property": map[string]any{"choices": []any{map[string]any{"name": "完成"}, map[string]any{"name": "失败"}}},
			"type":     "singleSelect",
		}, "https://open.dingtalk.com/document/orgapp/api-noatable-createfield")),
	Run: func(c *operation.Context, itemIndex int) (runtime.Item, error) {
		t, err := resolveTarget(c, itemIndex, true)
		if err != nil {
			return runtime.Item{}, err
		}
		body, err := jsonParameter(c, itemIndex, "body")
		if err != nil {
			return runtime.Item{}, err
		}
		return do(c, itemIndex, http.MethodPost, t.sheetPath("fields"), t, body)
	},
}

var fieldUpdate = operation.Def{
	Value:       opFieldUpdate,
	Name:        "更新字段",
	Description: "在数据表中更新一个字段",
	Properties: targetProps(runtime.ShowOnly("operation", opFieldUpdate), true,
		fieldNameProperty(runtime.ShowOnly("operation", opFieldUpdate)),
		fieldBodyProperty(runtime.ShowOnly("operation", opFieldUpdate), map[string]any{
			"name":     "字段名",
			"property": map[string]any{"choices": []any{map[string]any{"name": "选项一"}, map[string]any{"name": "选项二"}}},
		}, "https://open.dingtalk.com/document/orgapp/api-noatable-updatefield")),
	Run: func(c *operation.Context, itemIndex int) (runtime.Item, error) {
		t, field, err := fieldTarget(c, itemIndex)
		if err != nil {
			return runtime.Item{}, err
		}
		body, err := jsonParameter(c, itemIndex, "body")
		if err != nil {
			return runtime.Item{}, err
		}
		return do(c, itemIndex, http.MethodPut, t.sheetPath("fields", url.PathEscape(field)), t, body)
	},
}

var fieldDelete = operation.Def{
	Value:       opFieldDelete,
	Name:        "删除字段",
	Description: "在AI表格中删除一个字段",
	Properties: targetProps(runtime.ShowOnly("operation", opFieldDelete), true,
		fieldNameProperty(runtime.ShowOnly("operation", opFieldDelete))),
	Run: func(c *operation.Context, itemIndex int) (runtime.Item, error) {
		t, field, err := fieldTarget(c, itemIndex)
		if err != nil {
			return runtime.Item{}, err
		}
		return do(c, itemIndex, http.MethodDelete, t.sheetPath("fields", url.PathEscape(field)), t, nil)
	},
}

func fieldTarget(c *operation.Context, itemIndex int) (target, string, error) {
	t, err := resolveTarget(c, itemIndex, true)
	if err != nil {
		return t, "", err
	}
	var in struct {
		Field string `json:"fieldIdOrName" validate:"required"`
	}
	if err := c.DecodeParameters(itemIndex, &in); err != nil {
		return t, "", err
	}
	return t, in.Field, nil
}

func jsonParameter(c *operation.Context, itemIndex int, name string) (map[string]any, error) {
	raw, err := c.GetParameter(name, itemIndex)
	if err != nil {
		return nil, err
	}
	return operation.ParseJSONBody(c.NodeName(), raw, itemIndex)
}
