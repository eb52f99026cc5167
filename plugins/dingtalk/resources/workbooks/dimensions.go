package workbooks

import (
	"net/http"

	"github.com/sflowg/dingtalk/plugins/dingtalk/operation"
	"github.com/sflowg/dingtalk/runtime"
)

var visibilityProperty = runtime.NodeProperty{
	DisplayName: "可见性",
	Name:        "visibility",
	Type:        runtime.PropertyOptions,
	Default:     "visible",
	Required:    true,
	Options: []runtime.PropertyOption{
		{Name: "可见", Value: "visible"},
		{Name: "隐藏", Value: "hidden"},
	},
}

// CursorProperty is a 0-based row or column index.
func CursorProperty(name, displayName, description string) runtime.NodeProperty {
	return runtime.NodeProperty{
		DisplayName: displayName,
		Name:        name,
		Type:        runtime.PropertyNumber,
		Default:     0,
		Required:    true,
		Description: description,
	}
}

func CountProperty(name, displayName string) runtime.NodeProperty {
	return runtime.NodeProperty{
		DisplayName: displayName,
		Name:        name,
		Type:        runtime.PropertyNumber,
		Default:     1,
		Required:    true,
	}
}

type rowsInput struct {
	Row        int    `json:"row" validate:"gte=0"`
	RowCount   int    `json:"rowCount" default:"1" validate:"gte=1"`
	Visibility string `json:"visibility" default:"visible" validate:"oneof=visible hidden"`
}

type columnsInput struct {
	Column      int    `json:"column" validate:"gte=0"`
	ColumnCount int    `json:"columnCount" default:"1" validate:"gte=1"`
	Visibility  string `json:"visibility" default:"visible" validate:"oneof=visible hidden"`
}

// DimensionOp builds an operation that posts a cursor and count to a sheet action.
func DimensionOp(value, name, description, action string, props []runtime.NodeProperty, body func(c *operation.Context, itemIndex int) (map[string]any, error)) operation.Def {
	return operation.Def{
		Value:       value,
		Name:        name,
		Description: description,
		Properties:  TargetProps(value, true, props...),
		Run: func(c *operation.Context, itemIndex int) (runtime.Item, error) {
			t, err := ResolveTarget(c, itemIndex, true)
			if err != nil {
				return runtime.Item{}, err
			}
			payload, err := body(c, itemIndex)
			if err != nil {
				return runtime.Item{}, err
			}
			resp, err := t.Request(c, http.MethodPost, t.SheetPath(action), nil, payload)
			if err != nil {
				return runtime.Item{}, err
			}
			return runtime.NewItem(resp, itemIndex), nil
		},
	}
}

// RowsBody reads row and rowCount, plus visibility when withVisibility is set.
func RowsBody(withVisibility bool) func(c *operation.Context, itemIndex int) (map[string]any, error) {
	return func(c *operation.Context, itemIndex int) (map[string]any, error) {
		var in rowsInput
		if err := c.DecodeParameters(itemIndex, &in); err != nil {
			return nil, err
		}
		body := map[string]any{"row": in.Row, "rowCount": in.RowCount}
		if withVisibility {
			body["visibility"] = in.Visibility
		}
		return body, nil
	}
}

func columnsBody(withVisibility bool) func(c *operation.Context, itemIndex int) (map[string]any, error) {
	return func(c *operation.Context, itemIndex int) (map[string]any, error) {
		var in columnsInput
		if err := c.DecodeParameters(itemIndex, &in); err != nil {
			return nil, err
		}
		body := map[string]any{"column": in.Column, "columnCount": in.ColumnCount}
		if withVisibility {
			body["visibility"] = in.Visibility
		}
		return body, nil
	}
}

var rowsVisibility = DimensionOp("workbooks.rows.visibility", "设置行隐藏或显示", "设置行的可见性", "setRowsVisibility",
	[]runtime.NodeProperty{
		CursorProperty("row", "要显示或者隐藏的第一行的游标", "要显示或者隐藏的第一行的游标, 从0开始"),
		CountProperty("rowCount", "要显示或隐藏的行的数量"),
		visibilityProperty,
	}, RowsBody(true))

var rowsInsertBefore = DimensionOp("workbooks.rows.insertBefore", "指定行上方插入若干行", "在指定行上方插入若干行", "insertRowsBefore",
	[]runtime.NodeProperty{
		CursorProperty("row", "指定行的游标", "指定行的游标, 从0开始"),
		CountProperty("rowCount", "插入行的数量"),
	}, RowsBody(false))

var columnsVisibility = DimensionOp("workbooks.columns.visibility", "设置列隐藏或显示", "设置列的可见性", "setColumnsVisibility",
	[]runtime.NodeProperty{
		CursorProperty("column", "要显示或隐藏的第一列的游标", "要显示或隐藏的第一列的游标，从0开始"),
		CountProperty("columnCount", "要显示或隐藏的列的数量"),
		visibilityProperty,
	}, columnsBody(true))

var columnsDelete = DimensionOp("workbooks.columns.delete", "删除列", "删除表格中的列", "deleteColumns",
	[]runtime.NodeProperty{
		CursorProperty("column", "要删除的第一列的游标", "要删除的第一列的游标，从0开始"),
		CountProperty("columnCount", "要删除的列的数量"),
	}, columnsBody(false))
