package workbooks

import (
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/sflowg/dingtalk/plugins/dingtalk/operation"
	"github.com/sflowg/dingtalk/runtime"
)

const (
	opRangesGet       = "workbooks.ranges.get"
	opRangesAppend    = "workbooks.ranges.append"
	opRangesClearData = "workbooks.ranges.clearData"
	opRangeUpdate     = "workbooks.range.update"
)

var rangePattern = regexp.MustCompile(`^([A-Za-z]+)(\d+):([A-Za-z]+)(\d+)$`)

// Range is a rectangular A1 style address. Columns are 0-based, rows 1-based.
type Range struct {
	StartCol, StartRow int
	EndCol, EndRow     int
}

// ParseRange parses addresses such as "A1:C1".
func ParseRange(address string) (Range, error) {
	m := rangePattern.FindStringSubmatch(strings.TrimSpace(address))
	if m == nil {
		return Range{}, fmt.Errorf("无效的范围地址: %s", address)
	}
	startRow, _ := strconv.Atoi(m[2])
	endRow, _ := strconv.Atoi(m[4])
	return Range{
		StartCol: ColumnIndex(m[1]),
		StartRow: startRow,
		EndCol:   ColumnIndex(m[3]),
		EndRow:   endRow,
	}, nil
}

// Columns returns the number of columns spanned.
func (r Range) Columns() int {
	return r.EndCol - r.StartCol + 1
}

// ColumnIndex converts a column name to its 0-based index: A is 0, AA is 26.
func ColumnIndex(name string) int {
	index := 0
	for _, ch := range strings.ToUpper(name) {
		index = index*26 + int(ch-'A'+1)
	}
	return index - 1
}

// ColumnName converts a 0-based index back to its column name.
func ColumnName(index int) string {
	var name []byte
	for n := index; n >= 0; n = n/26 - 1 {
		name = append([]byte{byte('A' + n%26)}, name...)
	}
	return string(name)
}

func rangeAddressProperty(displayName, placeholder, description string) runtime.NodeProperty {
	return runtime.NodeProperty{
		DisplayName: displayName,
		Name:        "rangeAddress",
		Type:        runtime.PropertyString,
		Default:     "",
		Placeholder: placeholder,
		Required:    true,
		Description: description,
	}
}

type rangeInput struct {
	RangeAddress string `json:"rangeAddress" validate:"required"`
}

var rangesGet = operation.Def{
	Value:       opRangesGet,
	Name:        "获取单元格区域",
	Description: "获取单元格属性",
	Properties: TargetProps(opRangesGet, true,
		rangeAddressProperty("Range地址", "例如: A3:C3", "要获取的单元格范围, 格式为 区域内左上角单元格:区域内右下角单元格, 例如：B2:C3"),
		runtime.NodeProperty{
			DisplayName: "筛选要返回的字段",
			Name:        "select",
			Type:        runtime.PropertyString,
			Default:     "values",
			Placeholder: "例如: values,formulas",
			Description: "筛选要返回的字段，该参数不传则返回所有字段。返回多个字段时，使用逗号分隔，例如values,formulas。",
		},
	),
	Run: func(c *operation.Context, itemIndex int) (runtime.Item, error) {
		t, err := ResolveTarget(c, itemIndex, true)
		if err != nil {
			return runtime.Item{}, err
		}
		var in struct {
			RangeAddress string `json:"rangeAddress" validate:"required"`
			Select       string `json:"select"`
		}
		if err := c.DecodeParameters(itemIndex, &in); err != nil {
			return runtime.Item{}, err
		}
		query := map[string]any{}
		if in.Select != "" {
			query["select"] = in.Select
		}
		resp, err := t.Request(c, http.MethodGet, t.SheetPath("ranges", in.RangeAddress), query, nil)
		if err != nil {
			return runtime.Item{}, err
		}
		return runtime.NewItem(resp, itemIndex), nil
	},
}

var rangesClearData = operation.Def{
	Value:       opRangesClearData,
	Name:        "清除单元格区域内数据",
	Description: "清除单元格内的数据，不包括格式",
	Properties: TargetProps(opRangesClearData, true,
		rangeAddressProperty("需要清除的单元格范围", "例如: B2:C3", "需要清除的单元格范围，格式为 区域内左上角单元格:区域内右下角单元格, 例如：B2:C3")),
	Run: func(c *operation.Context, itemIndex int) (runtime.Item, error) {
		t, err := ResolveTarget(c, itemIndex, true)
		if err != nil {
			return runtime.Item{}, err
		}
		var in rangeInput
		if err := c.DecodeParameters(itemIndex, &in); err != nil {
			return runtime.Item{}, err
		}
		resp, err := t.Request(c, http.MethodPost, t.SheetPath("ranges", in.RangeAddress, "clearData"), nil, nil)
		if err != nil {
			return runtime.Item{}, err
		}
		return runtime.NewItem(resp, itemIndex), nil
	},
}

var rangeUpdate = operation.Def{
	Value:       opRangeUpdate,
	Name:        "更新单元格区域",
	Description: "更新单元格信息",
	Properties: TargetProps(opRangeUpdate, true,
		rangeAddressProperty("Range地址", "例如: B2:C3", "需要更新的单元格范围，格式为 区域内左上角单元格:区域内右下角单元格, 例如：B2:C3"),
		runtime.NodeProperty{
			DisplayName: "请求体JSON",
			Name:        "jsonBody",
			Type:        runtime.PropertyJSON,
			Default:     operation.JSONExample(map[string]any{"values": [][]string{{"B2", "C2"}, {"B3", "C3"}}}),
			Required:    true,
			Description: "请求体JSON数据。https://open.dingtalk.com/document/development/update-cell-properties",
		},
	),
	Run: func(c *operation.Context, itemIndex int) (runtime.Item, error) {
		t, err := ResolveTarget(c, itemIndex, true)
		if err != nil {
			return runtime.Item{}, err
		}
		var in rangeInput
		if err := c.DecodeParameters(itemIndex, &in); err != nil {
			return runtime.Item{}, err
		}
		raw, err := c.GetParameter("jsonBody", itemIndex)
		if err != nil {
			return runtime.Item{}, err
		}
		body, err := operation.ParseJSONBody(c.NodeName(), raw, itemIndex)
		if err != nil {
			return runtime.Item{}, err
		}
		resp, err := t.Request(c, http.MethodPut, t.SheetPath("ranges", in.RangeAddress), nil, body)
		if err != nil {
			return runtime.Item{}, err
		}
		return runtime.NewItem(resp, itemIndex), nil
	},
}

var rangesAppend = operation.Def{
	Value:       opRangesAppend,
	Name:        "插入数据行",
	Description: "读取标题行后，在工作表末尾追加一行数据",
	Properties: TargetProps(opRangesAppend, true,
		runtime.NodeProperty{
			DisplayName: "标题行范围",
			Name:        "headerRange",
			Type:        runtime.PropertyString,
			Default:     "",
			Placeholder: "例如: A1:C1",
			Required:    true,
			Description: "标题行的范围地址，例如 A1:C1 表示第一行的 A 到 C 列作为标题",
		},
		runtime.NodeProperty{
			DisplayName:      "Columns",
			Name:             "columns",
			Type:             runtime.PropertyResourceMapper,
			Default:          map[string]any{"mappingMode": operation.MappingDefineBelow, "value": nil},
			NoDataExpression: true,
			Required:         true,
			TypeOptions: map[string]any{
				"loadOptionsDependsOn": []string{"operatorId.value", "workbookId.value", "sheetId.value", "headerRange"},
				"resourceMapper": map[string]any{
					"resourceMapperMethod": "workbookColumns",
					"mode":                 "add",
					"fieldWords":           map[string]any{"singular": "column", "plural": "columns"},
					"addAllFields":         true,
					"multiKeyMatch":        false,
					"supportAutoMap":       false,
				},
			},
		},
	),
	Run: runAppend,
}

// runAppend writes one row below the last non-empty row. The sheet reports
// lastNonEmptyRow 0-based and -1 when empty, so the new 1-based row is
// lastNonEmptyRow+2. Columns missing from the mapping are sent as "".
func runAppend(c *operation.Context, itemIndex int) (runtime.Item, error) {
	t, err := ResolveTarget(c, itemIndex, true)
	if err != nil {
		return runtime.Item{}, err
	}
	var in struct {
		HeaderRange string `json:"headerRange" validate:"required"`
	}
	if err := c.DecodeParameters(itemIndex, &in); err != nil {
		return runtime.Item{}, err
	}
	header, err := ParseRange(in.HeaderRange)
	if err != nil {
		return runtime.Item{}, c.Errorf(itemIndex, "%v", err)
	}

	record, err := operation.MappedValues(c, itemIndex, "columns")
	if err != nil {
		return runtime.Item{}, err
	}
	if len(record) == 0 {
		return runtime.Item{}, c.Errorf(itemIndex, "请至少填写一个字段的值")
	}

	sheet, err := t.Request(c, http.MethodGet, t.SheetPath(), nil, nil)
	if err != nil {
		return runtime.Item{}, err
	}
	lastNonEmptyRow := -1
	if v, ok := runtime.ToInt(sheet["lastNonEmptyRow"]); ok {
		lastNonEmptyRow = v
	}
	appendRow := lastNonEmptyRow + 2

	row := make([]any, header.Columns())
	for i := range row {
		v, ok := record[ColumnName(header.StartCol+i)]
		if !ok || v == nil {
			v = ""
		}
		row[i] = v
	}

	appendRange := fmt.Sprintf("%s%d:%s%d", ColumnName(header.StartCol), appendRow, ColumnName(header.EndCol), appendRow)
	c.Logger().DebugContext(c, "appending row", "range", appendRange, "columns", len(row))

	resp, err := t.Request(c, http.MethodPut, t.SheetPath("ranges", appendRange), nil,
		map[string]any{"values": []any{row}})
	if err != nil {
		return runtime.Item{}, err
	}
	resp["appendedRange"] = appendRange
	resp["appendedRow"] = appendRow
	return runtime.NewItem(resp, itemIndex), nil
}
