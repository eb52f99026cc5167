// Package doc implements document resources and the workbook sheet
// management calls of the document API.
package doc

import (
	"net/http"

	"github.com/sflowg/dingtalk/plugins/dingtalk/operation"
	"github.com/sflowg/dingtalk/plugins/dingtalk/resources/workbooks"
	"github.com/sflowg/dingtalk/runtime"
)

const (
	opSheetCreate = "doc.workbooks.sheetCreate"
	opSheetDelete = "doc.workbooks.sheetDelete"
	opRowsDelete  = "doc.workbooks.rows.delete"
)

func Bundle() operation.Bundle {
	return operation.MustBundle("doc", "文档",
		resourceGetUploadInfo, resourceUpload,
		sheetCreate, sheetDelete, rowsDelete,
	)
}

var sheetCreate = operation.Def{
	Value:       opSheetCreate,
	Name:        "表格 创建工作表",
	Description: "在表格文档中创建一个新的工作表",
	Properties: workbooks.TargetProps(opSheetCreate, false, runtime.NodeProperty{
		DisplayName: "工作表的名称",
		Name:        "name",
		Type:        runtime.PropertyString,
		Default:     "",
		Required:    true,
	}),
	Run: func(c *operation.Context, itemIndex int) (runtime.Item, error) {
		t, err := workbooks.ResolveTarget(c, itemIndex, false)
		if err != nil {
			return runtime.Item{}, err
		}
		var in struct {
			Name string `json:"name" validate:"required"`
		}
		if err := c.DecodeParameters(itemIndex, &in); err != nil {
			return runtime.Item{}, err
		}
		resp, err := t.Request(c, http.MethodPost, t.Path("sheets"), nil, map[string]any{"name": in.Name})
		if err != nil {
			return runtime.Item{}, err
		}
		return runtime.NewItem(resp, itemIndex), nil
	},
}

var sheetDelete = operation.Def{
	Value:       opSheetDelete,
	Name:        "表格 删除工作表",
	Description: "删除表格内的某个工作表",
	Properties:  workbooks.TargetProps(opSheetDelete, true),
	Run: func(c *operation.Context, itemIndex int) (runtime.Item, error) {
		t, err := workbooks.ResolveTarget(c, itemIndex, true)
		if err != nil {
			return runtime.Item{}, err
		}
		resp, err := t.Request(c, http.MethodDelete, t.SheetPath(), nil, nil)
		if err != nil {
			return runtime.Item{}, err
		}
		return runtime.NewItem(resp, itemIndex), nil
	},
}

var rowsDelete = workbooks.DimensionOp(opRowsDelete, "表格 删除行", "删除指定的行", "deleteRows",
	[]runtime.NodeProperty{
		workbooks.CursorProperty("row", "要删除的第一行的游标", "要删除的第一行的游标, 从0开始"),
		workbooks.CountProperty("rowCount", "要删除的行的数量"),
	}, workbooks.RowsBody(false))
