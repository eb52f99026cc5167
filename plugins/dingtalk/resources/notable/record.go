package notable

import (
	"net/http"
	"net/url"

	"github.com/sflowg/dingtalk/plugins/dingtalk/operation"
	"github.com/sflowg/dingtalk/runtime"
)

const (
	opRecordGet    = "notable.record.get"
	opRecordGetAll = "notable.record.getAll"
	opRecordInsert = "notable.record.insert"
	opRecordAdd    = "notable.record.add"
	opRecordUpdate = "notable.record.update"
	opRecordDelete = "notable.record.delete"
)

// columnsProperty is the resource mapper filled from the notableColumns task.
func columnsProperty(show *runtime.DisplayOptions, addAllFields bool) runtime.NodeProperty {
	return runtime.NodeProperty{
		DisplayName:      "Columns",
		Name:             "columns",
		Type:             runtime.PropertyResourceMapper,
		Default:          map[string]any{"mappingMode": operation.MappingDefineBelow, "value": nil},
		NoDataExpression: true,
		Required:         true,
		TypeOptions: map[string]any{
			"loadOptionsDependsOn": []string{"operatorId.value", "baseId.value", "sheetIdOrName.value"},
			"resourceMapper": map[string]any{
				"resourceMapperMethod": "notableColumns",
				"mode":                 "add",
				"fieldWords":           map[string]any{"singular": "column", "plural": "columns"},
				"addAllFields":         addAllFields,
				"multiKeyMatch":        true,
			},
		},
		DisplayOptions: show,
	}
}

var recordGet = operation.Def{
	Value:       opRecordGet,
	Name:        "获取记录",
	Description: "获取AI表格中的一行记录",
	Properties: targetProps(runtime.ShowOnly("operation", opRecordGet), true, runtime.NodeProperty{
		DisplayName:    "记录ID (recordId)",
		Name:           "recordId",
		Type:           runtime.PropertyString,
		Default:        "",
		Required:       true,
		Description:    "要查询的记录 ID",
		DisplayOptions: runtime.ShowOnly("operation", opRecordGet),
	}),
	Run: func(c *operation.Context, itemIndex int) (runtime.Item, error) {
		t, err := resolveTarget(c, itemIndex, true)
		if err != nil {
			return runtime.Item{}, err
		}
		var in struct {
			RecordID string `json:"recordId" validate:"required"`
		}
		if err := c.DecodeParameters(itemIndex, &in); err != nil {
			return runtime.Item{}, err
		}
		return do(c, itemIndex, http.MethodGet, t.sheetPath("records", url.PathEscape(in.RecordID)), t, nil)
	},
}

// filter operators that take no value
var valuelessOperators = map[string]bool{"empty": true, "notEmpty": true}

var showRecordList = runtime.ShowOnly("operation", opRecordGetAll)

var recordListBody = operation.BodyOptions{
	DefaultJSONBody: operation.JSONExample(map[string]any{
		"filter": map[string]any{
			"combination": "and",
			"conditions": []any{
				map[string]any{"field": "标题", "operator": "equal", "value": []any{"test"}},
				map[string]any{"field": "标签", "operator": "contain", "value": []any{"重要", "紧急"}},
			},
		},
	}),
	JSONDescription: "请求体JSON。https://open.dingtalk.com/document/development/api-notable-listrecords",
	FieldProperties: []runtime.NodeProperty{
		{
			DisplayName: "筛选条件",
			Name:        "filter",
			Type:        runtime.PropertyFixedCollection,
			Default:     map[string]any{},
			Placeholder: "添加筛选条件",
			TypeOptions: map[string]any{"multipleValueButtonText": "添加筛选条件", "multipleValues": true, "sortable": true},
			Options: []runtime.PropertyOption{{
				Name:  "筛选条件",
				Value: "conditions",
				Values: []runtime.NodeProperty{
					{DisplayName: "字段", Name: "field", Type: runtime.PropertyString, Default: ""},
					{
						DisplayName: "条件类型",
						Name:        "operator",
						Type:        runtime.PropertyOptions,
						Default:     "equal",
						Options: []runtime.PropertyOption{
							{Name: "等于", Value: "equal"},
							{Name: "不等于", Value: "notEqual"},
							{Name: "包含", Value: "contain"},
							{Name: "不包含", Value: "notContain"},
							{Name: "为空", Value: "empty"},
							{Name: "不为空", Value: "notEmpty"},
							{Name: "大于", Value: "greater"},
							{Name: "大于等于", Value: "greaterEqual"},
							{Name: "小于", Value: "less"},
							{Name: "小于等于", Value: "lessEqual"},
						},
					},
					operation.CommaSeparatedProperty(runtime.NodeProperty{
						DisplayName:    "条件值",
						Name:           "value",
						DisplayOptions: runtime.ShowOnly("operator", "equal", "notEqual", "contain", "notContain", "greater", "greaterEqual", "less", "lessEqual"),
					}),
				},
			}},
		},
		{
			DisplayName: "筛选条件组合方式",
			Name:        "combination",
			Type:        runtime.PropertyOptions,
			Default:     "and",
			Options: []runtime.PropertyOption{
				{Name: "AND", Value: "and", Description: "同时满足所有条件"},
				{Name: "OR", Value: "or", Description: "满足任一条件"},
			},
		},
		{
			DisplayName: "每页获取的数据量",
			Name:        "maxResults",
			Type:        runtime.PropertyNumber,
			Default:     100,
			Description: "每页获取的数据量，默认值为100，最小值为1，最大值为100。",
		},
		{
			DisplayName: "上一次查询返回的游标",
			Name:        "nextToken",
			Type:        runtime.PropertyString,
			Default:     "",
			Description: "上一次查询返回的游标，首次查询时不需要传",
		},
	},
	Fields: buildListBody,
}

var recordList = operation.Def{
	Value:       opRecordGetAll,
	Name:        "列出多行记录",
	Description: "获取AI表格里指定数据表的多行记录",
	Properties:  targetProps(showRecordList, true, operation.BodyProps(showRecordList, recordListBody)...),
	Run: func(c *operation.Context, itemIndex int) (runtime.Item, error) {
		t, err := resolveTarget(c, itemIndex, true)
		if err != nil {
			return runtime.Item{}, err
		}
		body, err := operation.BodyData(c, itemIndex, recordListBody)
		if err != nil {
			return runtime.Item{}, err
		}
		return do(c, itemIndex, http.MethodPost, t.sheetPath("records", "list"), t, body)
	},
}

type listInput struct {
	Filter struct {
		Conditions []struct {
			Field    string `json:"field"`
			Operator string `json:"operator"`
			Value    any    `json:"value"`
		} `json:"conditions"`
	} `json:"filter"`
	Combination string `json:"combination" default:"and" validate:"oneof=and or"`
	MaxResults  int    `json:"maxResults" default:"100" validate:"gte=0,lte=100"`
	NextToken   string `json:"nextToken"`
}

// buildListBody turns the filter collection into the records/list body.
// Condition values are comma separated lists; empty and notEmpty send "".
func buildListBody(c *operation.Context, itemIndex int) (map[string]any, error) {
	var in listInput
	if err := c.DecodeParameters(itemIndex, &in); err != nil {
		return nil, err
	}

	body := map[string]any{}
	if len(in.Filter.Conditions) > 0 {
		conditions := make([]any, 0, len(in.Filter.Conditions))
		for _, cond := range in.Filter.Conditions {
			var value any = ""
			if !valuelessOperators[cond.Operator] {
				value = conditionValues(cond.Value)
			}
			conditions = append(conditions, map[string]any{
				"field":    cond.Field,
				"operator": cond.Operator,
				"value":    value,
			})
		}
		body["filter"] = map[string]any{"combination": in.Combination, "conditions": conditions}
	}
	if in.MaxResults > 0 {
		body["maxResults"] = in.MaxResults
	}
	if in.NextToken != "" {
		body["nextToken"] = in.NextToken
	}
	return body, nil
}

func conditionValues(v any) []string {
	if list, ok := v.([]any); ok {
		out := make([]string, 0, len(list))
		for _, item := range list {
			out = append(out, runtime.ToString(item))
		}
		return out
	}
	return operation.SplitCommaSeparated(runtime.ToString(v))
}

var showRecordInsert = runtime.ShowOnly("operation", opRecordInsert)

var recordInsertBody = operation.BodyOptions{
	DefaultJSONBody: operation.JSONExample(map[string]any{
		"records": []any{map[string]any{"fields": map[string]any{"字段名": "字段值"}}},
	}),
	JSONDescription: "请求体JSON数据。https://open.dingtalk.com/document/development/api-notable-insertrecords",
	FieldProperties: []runtime.NodeProperty{columnsProperty(nil, true)},
	Fields: func(c *operation.Context, itemIndex int) (map[string]any, error) {
		fields, err := operation.MappedValues(c, itemIndex, "columns")
		if err != nil {
			return nil, err
		}
		return map[string]any{"records": []any{map[string]any{"fields": fields}}}, nil
	},
}

var recordInsert = operation.Def{
	Value:       opRecordInsert,
	Name:        "新增记录",
	Description: "在AI表格里的指定数据表中新增行记录",
	Properties:  targetProps(showRecordInsert, true, operation.BodyProps(showRecordInsert, recordInsertBody)...),
	Run: func(c *operation.Context, itemIndex int) (runtime.Item, error) {
		t, err := resolveTarget(c, itemIndex, true)
		if err != nil {
			return runtime.Item{}, err
		}
		body, err := operation.BodyData(c, itemIndex, recordInsertBody)
		if err != nil {
			return runtime.Item{}, err
		}
		return do(c, itemIndex, http.MethodPost, t.sheetPath("records"), t, body)
	},
}

var recordAdd = operation.Def{
	Value:       opRecordAdd,
	Name:        "AI表格 新增记录",
	Description: "向指定 AI 表格的数据表新增记录",
	Properties: targetProps(runtime.ShowOnly("operation", opRecordAdd), true, runtime.NodeProperty{
		DisplayName:    "请求体 JSON",
		Name:           "data",
		Type:           runtime.PropertyJSON,
		Default:        `{"records":[{"fields":{"标题":"测试1"}}]}`,
		Required:       true,
		Description:    `形如：{"records":[{"fields":{"字段名":"值"}}]}`,
		DisplayOptions: runtime.ShowOnly("operation", opRecordAdd),
	}),
	Run: func(c *operation.Context, itemIndex int) (runtime.Item, error) {
		t, err := resolveTarget(c, itemIndex, true)
		if err != nil {
			return runtime.Item{}, err
		}
		body, err := jsonParameter(c, itemIndex, "data")
		if err != nil {
			return runtime.Item{}, err
		}
		if _, ok := body["records"].([]any); !ok {
			return runtime.Item{}, c.Errorf(itemIndex, "请求体缺少必填字段：records（数组），每项需包含 fields 对象")
		}
		return do(c, itemIndex, http.MethodPost, t.sheetPath("records"), t, body)
	},
}

var showRecordUpdate = runtime.ShowOnly("operation", opRecordUpdate)

var recordUpdateBody = operation.BodyOptions{
	DefaultJSONBody: operation.JSONExample(map[string]any{
		"records": []any{map[string]any{"id": "rec001", "fields": map[string]any{"标题": "新标题"}}},
	}),
	JSONDescription: "请求体JSON数据。https://open.dingtalk.com/document/development/api-notable-updaterecords",
	FieldProperties: []runtime.NodeProperty{
		{DisplayName: "记录ID", Name: "recordId", Type: runtime.PropertyString, Default: "", Required: true},
		columnsProperty(nil, false),
	},
	Fields: func(c *operation.Context, itemIndex int) (map[string]any, error) {
		recordID, err := c.StringParameter("recordId", itemIndex)
		if err != nil {
			return nil, err
		}
		if recordID == "" {
			return nil, c.Errorf(itemIndex, "recordId is required")
		}
		fields, err := operation.MappedValues(c, itemIndex, "columns")
		if err != nil {
			return nil, err
		}
		return map[string]any{"records": []any{map[string]any{"id": recordID, "fields": fields}}}, nil
	},
}

var recordUpdate = operation.Def{
	Value:       opRecordUpdate,
	Name:        "更新记录",
	Description: "在数据表中更新多行记录",
	Properties:  targetProps(showRecordUpdate, true, operation.BodyProps(showRecordUpdate, recordUpdateBody)...),
	Run: func(c *operation.Context, itemIndex int) (runtime.Item, error) {
		t, err := resolveTarget(c, itemIndex, true)
		if err != nil {
			return runtime.Item{}, err
		}
		body, err := operation.BodyData(c, itemIndex, recordUpdateBody)
		if err != nil {
			return runtime.Item{}, err
		}
		return do(c, itemIndex, http.MethodPut, t.sheetPath("records"), t, body)
	},
}

var showRecordDelete = runtime.ShowOnly("operation", opRecordDelete)

var recordDeleteBody = operation.BodyOptions{
	DefaultJSONBody: operation.JSONExample(map[string]any{"recordIds": []string{"rec001", "rec002"}}),
	JSONDescription: "请求体JSON数据。https://open.dingtalk.com/document/development/api-noatable-deleterecords",
	FieldProperties: []runtime.NodeProperty{
		operation.CommaSeparatedProperty(runtime.NodeProperty{
			DisplayName: "记录ID列表",
			Name:        "recordIds",
			Required:    true,
			Placeholder: "例如：rec001, rec002",
			Description: `要删除的记录ID列表，多个参数请用","分隔。支持表达式和固定值`,
		}),
	},
	Fields: func(c *operation.Context, itemIndex int) (map[string]any, error) {
		ids, err := operation.CommaSeparatedValues(c, itemIndex, "recordIds")
		if err != nil {
			return nil, err
		}
		return map[string]any{"recordIds": ids}, nil
	},
}

var recordDelete = operation.Def{
	Value:       opRecordDelete,
	Name:        "删除多行记录",
	Description: "删除数据表中的多行记录",
	Properties:  targetProps(showRecordDelete, true, operation.BodyProps(showRecordDelete, recordDeleteBody)...),
	Run: func(c *operation.Context, itemIndex int) (runtime.Item, error) {
		t, err := resolveTarget(c, itemIndex, true)
		if err != nil {
			return runtime.Item{}, err
		}
		body, err := operation.BodyData(c, itemIndex, recordDeleteBody)
		if err != nil {
			return runtime.Item{}, err
		}
		return do(c, itemIndex, http.MethodPost, t.sheetPath("records", "delete"), t, body)
	},
}
