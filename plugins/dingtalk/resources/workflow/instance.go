package workflow

import (
	"maps"
	"net/http"
	"slices"

	"github.com/sflowg/dingtalk/plugins/dingtalk/operation"
	"github.com/sflowg/dingtalk/plugins/dingtalk/transport"
	"github.com/sflowg/dingtalk/runtime"
)

// maxFormVariables is the API limit on form values per update.
const maxFormVariables = 150

var showUpdate = runtime.ShowOnly("operation", opInstancesUpdate)

var updateBody = operation.BodyOptions{
	DefaultJSONBody: operation.JSONExample(map[string]any{
		"opUserId":          "",
		"processCode":       "",
		"processInstanceId": "",
		"formComponentValues": []any{
			map[string]any{"id": "TextField_1", "bizAlias": "", "value": "", "extValue": ""},
		},
		"remark": "",
	}),
	FieldProperties: []runtime.NodeProperty{
		{DisplayName: "操作人userId", Name: "opUserId", Type: runtime.PropertyString, Default: "", Required: true},
		{
			DisplayName: "审批模板唯一码",
			Name:        "processCode",
			Type:        runtime.PropertyString,
			Default:     "",
			Required:    true,
			Description: "用于加载表单控件",
		},
		{DisplayName: "审批实例ID", Name: "processInstanceId", Type: runtime.PropertyString, Default: "", Required: true},
		{
			DisplayName:      "表单控件",
			Name:             "variables",
			Type:             runtime.PropertyResourceMapper,
			Default:          map[string]any{"mappingMode": operation.MappingDefineBelow, "value": nil},
			NoDataExpression: true,
			Required:         true,
			TypeOptions: map[string]any{
				"loadOptionsDependsOn": []string{"processCode"},
				"resourceMapper": map[string]any{
					"resourceMapperMethod": "workflowProcessVariables",
					"mode":                 "add",
					"fieldWords":           map[string]any{"singular": "控件", "plural": "控件"},
					"addAllFields":         false,
					"multiKeyMatch":        false,
				},
			},
		},
		{DisplayName: "备注", Name: "remark", Type: runtime.PropertyString, Default: ""},
	},
	Fields: updateFields,
}

var instancesUpdate = operation.Def{
	Value:       opInstancesUpdate,
	Name:        "💎更新流程表单审批实例",
	Description: "更新审批实例中的表单控件值，仅支持专业版",
	Properties:  operation.BodyProps(showUpdate, updateBody),
	Run: func(c *operation.Context, itemIndex int) (runtime.Item, error) {
		body, err := operation.BodyData(c, itemIndex, updateBody)
		if err != nil {
			return runtime.Item{}, err
		}
		values, _ := body["formComponentValues"].([]any)
		if len(values) == 0 {
			return runtime.Item{}, c.Errorf(itemIndex, "请至少映射一个表单控件的值")
		}
		if len(values) > maxFormVariables {
			return runtime.Item{}, c.Errorf(itemIndex, "变量数量不能超过 %d 个", maxFormVariables)
		}
		return send(c, itemIndex, transport.Options{
			Method: http.MethodPut,
			URL:    "/workflow/premium/processInstances",
			Body:   body,
		})
	},
}

func updateFields(c *operation.Context, itemIndex int) (map[string]any, error) {
	var in struct {
		OpUserID          string `json:"opUserId" validate:"required"`
		ProcessCode       string `json:"processCode" validate:"required"`
		ProcessInstanceID string `json:"processInstanceId" validate:"required"`
		Remark            string `json:"remark"`
	}
	if err := c.DecodeParameters(itemIndex, &in); err != nil {
		return nil, err
	}
	mapped, err := operation.MappedValues(c, itemIndex, "variables")
	if err != nil {
		return nil, err
	}

	aliases := map[string]string{}
	if len(mapped) > 0 {
		controls, err := FetchFormControls(c, in.ProcessCode)
		if err != nil {
			return nil, err
		}
		for _, ctl := range controls {
			aliases[ctl.ID] = ctl.BizAlias
		}
	}

	body := map[string]any{
		"opUserId":            in.OpUserID,
		"processCode":         in.ProcessCode,
		"processInstanceId":   in.ProcessInstanceID,
		"formComponentValues": FormComponentValues(mapped, aliases),
	}
	if in.Remark != "" {
		body["remark"] = in.Remark
	}
	return body, nil
}

// FormComponentValues turns mapped control values into the API list, sorted
// by control ID. A {value, extValue} object fills both fields.
func FormComponentValues(mapped map[string]any, aliases map[string]string) []any {
	ids := slices.Sorted(maps.Keys(mapped))
	out := make([]any, 0, len(ids))
	for _, id := range ids {
		raw := mapped[id]
		if raw == nil {
			continue
		}
		entry := map[string]any{"id": id}
		if alias := aliases[id]; alias != "" {
			entry["bizAlias"] = alias
		}
		if obj, ok := raw.(map[string]any); ok {
			if _, has := obj["value"]; has {
				entry["value"] = runtime.ToString(obj["value"])
				if ext, ok := obj["extValue"]; ok && ext != nil {
					entry["extValue"] = runtime.ToString(ext)
				}
				out = append(out, entry)
				continue
			}
		}
		entry["value"] = runtime.ToString(raw)
		out = append(out, entry)
	}
	return out
}

var showComments = runtime.ShowOnly("operation", opInstancesComments)

var commentsBody = operation.BodyOptions{
	DefaultJSONBody: operation.JSONExample(map[string]any{
		"processInstanceId": "",
		"text":              "",
		"commentUserId":     "",
		"file": map[string]any{
			"photos":      []any{},
			"attachments": []any{},
		},
	}),
	FieldProperties: []runtime.NodeProperty{
		{DisplayName: "审批实例ID", Name: "processInstanceId", Type: runtime.PropertyString, Default: "", Required: true},
		{DisplayName: "评论内容", Name: "text", Type: runtime.PropertyString, Default: "", Required: true},
		{DisplayName: "评论人的userId", Name: "commentUserId", Type: runtime.PropertyString, Default: "", Required: true},
		{
			DisplayName: "文件",
			Name:        "file",
			Type:        runtime.PropertyCollection,
			Default:     map[string]any{},
			Values: []runtime.NodeProperty{
				operation.CommaSeparatedProperty(runtime.NodeProperty{
					DisplayName: "图片URL列表",
					Name:        "photos",
				}),
				{
					DisplayName: "附件列表",
					Name:        "attachments",
					Type:        runtime.PropertyFixedCollection,
					Default:     map[string]any{},
					TypeOptions: map[string]any{"multipleValues": true, "multipleValueButtonText": "添加附件"},
					Options: []runtime.PropertyOption{{
						Name:  "附件",
						Value: "attachment",
						Values: []runtime.NodeProperty{
							{DisplayName: "钉盘空间ID", Name: "spaceId", Type: runtime.PropertyString, Default: ""},
							{DisplayName: "文件大小", Name: "fileSize", Type: runtime.PropertyString, Default: ""},
							{DisplayName: "文件ID", Name: "fileId", Type: runtime.PropertyString, Default: ""},
							{DisplayName: "文件名称", Name: "fileName", Type: runtime.PropertyString, Default: ""},
							{DisplayName: "文件类型", Name: "fileType", Type: runtime.PropertyString, Default: ""},
						},
					}},
				},
			},
		},
	},
	Fields: commentFields,
}

var instancesComments = operation.Def{
	Value:       opInstancesComments,
	Name:        "添加审批评论",
	Description: "为审批实例添加评论，可附带图片和钉盘附件",
	Properties:  operation.BodyProps(showComments, commentsBody),
	Run: func(c *operation.Context, itemIndex int) (runtime.Item, error) {
		body, err := operation.BodyData(c, itemIndex, commentsBody)
		if err != nil {
			return runtime.Item{}, err
		}
		return send(c, itemIndex, transport.Options{
			Method: http.MethodPost,
			URL:    "/workflow/processInstances/comments",
			Body:   body,
		})
	},
}

func commentFields(c *operation.Context, itemIndex int) (map[string]any, error) {
	var in struct {
		ProcessInstanceID string         `json:"processInstanceId" validate:"required"`
		Text              string         `json:"text" validate:"required"`
		CommentUserID     string         `json:"commentUserId" validate:"required"`
		File              map[string]any `json:"file"`
	}
	if err := c.DecodeParameters(itemIndex, &in); err != nil {
		return nil, err
	}

	body := map[string]any{
		"processInstanceId": in.ProcessInstanceID,
		"text":              in.Text,
		"commentUserId":     in.CommentUserID,
	}

	file := map[string]any{}
	if photos := operation.SplitCommaSeparated(runtime.ToString(in.File["photos"])); len(photos) > 0 {
		file["photos"] = photos
	}
	attachments, _ := in.File["attachments"].(map[string]any)
	if list, ok := attachments["attachment"].([]any); ok && len(list) > 0 {
		file["attachments"] = list
	}
	if len(file) > 0 {
		body["file"] = file
	}
	return body, nil
}
