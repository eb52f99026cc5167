package notable

import (
	"net/http"

	"github.com/sflowg/dingtalk/plugins/dingtalk/operation"
	"github.com/sflowg/dingtalk/plugins/dingtalk/transport"
	"github.com/sflowg/dingtalk/runtime"
)

const (
	opSheetGetAll = "notable.sheet.getAll"
	opSheetGet    = "notable.sheet.get"
	opSheetCreate = "notable.sheet.create"
	opSheetUpdate = "notable.sheet.update"
	opSheetDelete = "notable.sheet.delete"
)

func sheetNameProperty(show *runtime.DisplayOptions, placeholder string) runtime.NodeProperty {
	return runtime.NodeProperty{
		DisplayName:    "数据表名称",
		Name:           "name",
		Type:           runtime.PropertyString,
		Default:        "",
		Placeholder:    placeholder,
		Required:       true,
		DisplayOptions: show,
	}
}

var sheetGetAll = operation.Def{
	Value:       opSheetGetAll,
	Name:        "获取所有数据表",
	Description: "获取AI表格所有的数据表",
	Properties:  targetProps(runtime.ShowOnly("operation", opSheetGetAll), false),
	Run: func(c *operation.Context, itemIndex int) (runtime.Item, error) {
		t, err := resolveTarget(c, itemIndex, false)
		if err != nil {
			return runtime.Item{}, err
		}
		return do(c, itemIndex, http.MethodGet, t.basePath()+"/sheets", t, nil)
	},
}

var sheetGet = operation.Def{
	Value:       opSheetGet,
	Name:        "获取数据表",
	Description: "获取AI表格中一个数据表的信息",
	Properties:  targetProps(runtime.ShowOnly("operation", opSheetGet), true),
	Run: func(c *operation.Context, itemIndex int) (runtime.Item, error) {
		t, err := resolveTarget(c, itemIndex, true)
		if err != nil {
			return runtime.Item{}, err
		}
		return do(c, itemIndex, http.MethodGet, t.sheetPath(), t, nil)
	},
}

var sheetCreate = operation.Def{
	Value:       opSheetCreate,
	Name:        "新建数据表",
	Description: "在AI表格中创建一个新的数据表",
	Properties: targetProps(runtime.ShowOnly("operation", opSheetCreate), false,
		sheetNameProperty(runtime.ShowOnly("operation", opSheetCreate), "新建数据表")),
	Run: func(c *operation.Context, itemIndex int) (runtime.Item, error) {
		t, err := resolveTarget(c, itemIndex, false)
		if err != nil {
			return runtime.Item{}, err
		}
		var in struct {
			Name string `json:"name" validate:"required"`
		}
		if err := c.DecodeParameters(itemIndex, &in); err != nil {
			return runtime.Item{}, err
		}
		return do(c, itemIndex, http.MethodPost, t.basePath()+"/sheets", t, map[string]any{"name": in.Name})
	},
}

var sheetUpdate = operation.Def{
	Value:       opSheetUpdate,
	Name:        "更新数据表",
	Description: "更新一个数据表的信息",
	Properties: targetProps(runtime.ShowOnly("operation", opSheetUpdate), true,
		sheetNameProperty(runtime.ShowOnly("operation", opSheetUpdate), "重命名后的数据表")),
	Run: func(c *operation.Context, itemIndex int) (runtime.Item, error) {
		t, err := resolveTarget(c, itemIndex, true)
		if err != nil {
			return runtime.Item{}, err
		}
		var in struct {
			Name string `json:"name" validate:"required"`
		}
		if err := c.DecodeParameters(itemIndex, &in); err != nil {
			return runtime.Item{}, err
		}
		return do(c, itemIndex, http.MethodPut, t.sheetPath(), t, map[string]any{"name": in.Name})
	},
}

var sheetDelete = operation.Def{
	Value:       opSheetDelete,
	Name:        "AI表格 删除数据表",
	Description: "在AI表格中删除一个数据表，接口文档：https://open.dingtalk.com/document/development/api-noatable-deletesheet",
	Properties:  targetProps(runtime.ShowOnly("operation", opSheetDelete), true),
	Run: func(c *operation.Context, itemIndex int) (runtime.Item, error) {
		t, err := resolveTarget(c, itemIndex, true)
		if err != nil {
			return runtime.Item{}, err
		}
		return do(c, itemIndex, http.MethodDelete, t.sheetPath(), t, nil)
	},
}

// do sends one request scoped to the operator and wraps the response.
func do(c *operation.Context, itemIndex int, method, path string, t target, body any) (runtime.Item, error) {
	resp, err := c.RequestObject(transport.Options{
		Method: method,
		URL:    path,
		Query:  t.query(),
		Body:   body,
	})
	if err != nil {
		return runtime.Item{}, err
	}
	return runtime.NewItem(resp, itemIndex), nil
}
