// Package workflow implements the OA approval operations.
package workflow

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sflowg/dingtalk/plugins/dingtalk/operation"
	"github.com/sflowg/dingtalk/plugins/dingtalk/transport"
	"github.com/sflowg/dingtalk/runtime"
)

const (
	opFormsSchemas        = "workflow.forms.schemas"
	opInstances           = "workflow.processes.instances"
	opInstanceIDs         = "workflow.processes.instanceIds"
	opInstancesUpdate     = "workflow.processes.instancesUpdate"
	opInstancesComments   = "workflow.processes.instancesComments"
	opSpacesInfos         = "workflow.processes.instances.spacesInfos"
	opDownload            = "workflow.processes.instances.download"
	opTemplatesVisibility = "workflow.processes.templates.userVisibilities"
)

func Bundle() operation.Bundle {
	return operation.MustBundle("workflow", "OA审批",
		formsSchemas, instances, instanceIDs, instancesUpdate,
		instancesComments, spacesInfos, download, templatesVisibility,
	)
}

func props(op string, list ...runtime.NodeProperty) []runtime.NodeProperty {
	show := runtime.ShowOnly("operation", op)
	for i := range list {
		list[i].DisplayOptions = show
	}
	return list
}

func stringProp(name, displayName string, required bool) runtime.NodeProperty {
	return runtime.NodeProperty{DisplayName: displayName, Name: name, Type: runtime.PropertyString, Default: "", Required: required}
}

func send(c *operation.Context, itemIndex int, opts transport.Options) (runtime.Item, error) {
	resp, err := c.RequestObject(opts)
	if err != nil {
		return runtime.Item{}, err
	}
	return runtime.NewItem(resp, itemIndex), nil
}

var formsSchemas = operation.Def{
	Value:       opFormsSchemas,
	Name:        "获取表单Schema",
	Description: "通过 processCode，获取对应表单的 schema 信息",
	Properties: props(opFormsSchemas,
		stringProp("processCode", "表单的唯一码", true),
		stringProp("appUuid", "应用搭建隔离信息", false),
	),
	Run: func(c *operation.Context, itemIndex int) (runtime.Item, error) {
		var in struct {
			ProcessCode string `json:"processCode" validate:"required"`
			AppUUID     string `json:"appUuid"`
		}
		if err := c.DecodeParameters(itemIndex, &in); err != nil {
			return runtime.Item{}, err
		}
		query := map[string]any{"processCode": in.ProcessCode}
		if in.AppUUID != "" {
			query["appUuid"] = in.AppUUID
		}
		return send(c, itemIndex, transport.Options{Method: http.MethodGet, URL: schemaPath, Query: query})
	},
}

var instances = operation.Def{
	Value:       opInstances,
	Name:        "获取单个审批实例详情",
	Description: "根据审批实例ID，获取审批实例详情",
	Properties:  props(opInstances, stringProp("processInstanceId", "审批实例ID", true)),
	Run: func(c *operation.Context, itemIndex int) (runtime.Item, error) {
		var in struct {
			ProcessInstanceID string `json:"processInstanceId" validate:"required"`
		}
		if err := c.DecodeParameters(itemIndex, &in); err != nil {
			return runtime.Item{}, err
		}
		return send(c, itemIndex, transport.Options{
			Method: http.MethodGet,
			URL:    "/workflow/processInstances",
			Query:  map[string]any{"processInstanceId": in.ProcessInstanceID},
		})
	},
}

var instanceIDs = operation.Def{
	Value:       opInstanceIDs,
	Name:        "获取审批实例ID列表",
	Description: "获取权限范围内的相关部门审批实例ID列表",
	Properties: props(opInstanceIDs,
		stringProp("processCode", "审批流的唯一码", true),
		runtime.NodeProperty{
			DisplayName: "审批实例开始时间",
			Name:        "startTime",
			Type:        runtime.PropertyDateTime,
			Default:     "",
			Required:    true,
			Description: "Unix时间戳，单位毫秒。例如：2020.4.10 00:00:00对应的时间戳1586448000000。",
		},
		runtime.NodeProperty{
			DisplayName: "审批实例结束时间",
			Name:        "endTime",
			Type:        runtime.PropertyDateTime,
			Default:     "",
			Description: "Unix时间戳，单位毫秒。例如：2020.4.14 23:59:59对应的时间戳1586879999000。",
		},
		operation.CommaSeparatedProperty(runtime.NodeProperty{
			DisplayName: "发起人userId列表",
			Name:        "userIds",
			Description: "发起人userId列表，最大列表长度为10",
		}),
		runtime.NodeProperty{
			DisplayName: "流程实例状态",
			Name:        "statusList",
			Type:        runtime.PropertyMultiOptions,
			Default:     []any{},
			Options: []runtime.PropertyOption{
				{Name: "审批中", Value: "RUNNING"},
				{Name: "已撤销", Value: "TERMINATED"},
				{Name: "审批完成", Value: "COMPLETED"},
				{Name: "审批完成(有空值)", Value: "COMPLETED_WITH_BLANKS"},
			},
			Description: "默认全部状态",
		},
		runtime.NodeProperty{DisplayName: "分页大小", Name: "maxResults", Type: runtime.PropertyNumber, Default: 20},
		runtime.NodeProperty{DisplayName: "分页游标", Name: "nextToken", Type: runtime.PropertyNumber, Default: 0},
	),
	Run: runInstanceIDs,
}

type instanceIDsInput struct {
	ProcessCode string   `json:"processCode" validate:"required"`
	StartTime   any      `json:"startTime"`
	EndTime     any      `json:"endTime"`
	StatusList  []string `json:"statusList"`
	MaxResults  int      `json:"maxResults" default:"20"`
	NextToken   int      `json:"nextToken"`
}

func runInstanceIDs(c *operation.Context, itemIndex int) (runtime.Item, error) {
	var in instanceIDsInput
	if err := c.DecodeParameters(itemIndex, &in); err != nil {
		return runtime.Item{}, err
	}
	userIDs, err := operation.CommaSeparatedValues(c, itemIndex, "userIds")
	if err != nil {
		return runtime.Item{}, err
	}

	body := map[string]any{
		"processCode": in.ProcessCode,
		"maxResults":  in.MaxResults,
		"nextToken":   in.NextToken,
	}
	for key, raw := range map[string]any{"startTime": in.StartTime, "endTime": in.EndTime} {
		ms, ok, err := Millis(raw)
		if err != nil {
			return runtime.Item{}, c.Errorf(itemIndex, "invalid %s: %v", key, err)
		}
		if ok {
			body[key] = ms
		}
	}
	if len(in.StatusList) > 0 {
		body["statusList"] = in.StatusList
	}
	if len(userIDs) > 0 {
		body["userIds"] = userIDs
	}

	return send(c, itemIndex, transport.Options{
		Method: http.MethodPost,
		URL:    "/workflow/processes/instanceIds/query",
		Body:   body,
	})
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Millis converts a Unix millisecond value or a date string to Unix
// milliseconds. Empty values report ok=false.
func Millis(v any) (int64, bool, error) {
	switch t := v.(type) {
	case nil:
		return 0, false, nil
	case time.Time:
		return t.UnixMilli(), true, nil
	case int:
		return int64(t), true, nil
	case int64:
		return t, true, nil
	case float64:
		return int64(t), true, nil
	}

	s := strings.TrimSpace(runtime.ToString(v))
	if s == "" {
		return 0, false, nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, true, nil
	}
	for _, layout := range dateLayouts {
		if ts, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return ts.UnixMilli(), true, nil
		}
	}
	return 0, false, fmt.Errorf("unrecognized date %q", s)
}

var spacesInfos = operation.Def{
	Value:       opSpacesInfos,
	Name:        "获取审批钉盘空间信息",
	Description: "获取审批钉盘空间的ID并授予当前用户上传附件的权限",
	Properties: props(opSpacesInfos,
		stringProp("userId", "用户的userId", true),
		runtime.NodeProperty{
			DisplayName: "应用的AgentID(可选)",
			Name:        "agentId",
			Type:        runtime.PropertyString,
			Default:     "",
			Description: "https://open.dingtalk.com/document/development/basic-concepts-beta#884d363067bnq",
		},
	),
	Run: func(c *operation.Context, itemIndex int) (runtime.Item, error) {
		var in struct {
			UserID  string `json:"userId" validate:"required"`
			AgentID string `json:"agentId"`
		}
		if err := c.DecodeParameters(itemIndex, &in); err != nil {
			return runtime.Item{}, err
		}
		body := map[string]any{"userId": in.UserID}
		if in.AgentID != "" {
			if n, err := strconv.ParseInt(in.AgentID, 10, 64); err == nil {
				body["agentId"] = n
			} else {
				body["agentId"] = in.AgentID
			}
		}
		return send(c, itemIndex, transport.Options{
			Method: http.MethodPost,
			URL:    "/workflow/processInstances/spaces/infos/query",
			Body:   body,
		})
	},
}

var download = operation.Def{
	Value:       opDownload,
	Name:        "下载审批附件",
	Description: "获取审批文件下载授权，并且生成下载链接",
	Properties: props(opDownload,
		stringProp("processInstanceId", "审批实例ID", true),
		runtime.NodeProperty{
			DisplayName: "文件fileId",
			Name:        "fileId",
			Type:        runtime.PropertyString,
			Default:     "",
			Required:    true,
			Description: "调用 [获取单个审批实例详情] 获取fileId参数值。",
		},
		runtime.NodeProperty{
			DisplayName: "是否包含评论中的附件",
			Name:        "withCommentAttatchment",
			Type:        runtime.PropertyBoolean,
			Default:     false,
			Description: "默认忽略评论中附件",
		},
	),
	Run: func(c *operation.Context, itemIndex int) (runtime.Item, error) {
		var in struct {
			ProcessInstanceID string `json:"processInstanceId" validate:"required"`
			FileID            string `json:"fileId" validate:"required"`
			// the API spells it this way
			WithCommentAttachment bool `json:"withCommentAttatchment"`
		}
		if err := c.DecodeParameters(itemIndex, &in); err != nil {
			return runtime.Item{}, err
		}
		return send(c, itemIndex, transport.Options{
			Method: http.MethodPost,
			URL:    "/workflow/processInstances/spaces/files/urls/download",
			Body: map[string]any{
				"processInstanceId":      in.ProcessInstanceID,
				"fileId":                 in.FileID,
				"withCommentAttatchment": in.WithCommentAttachment,
			},
		})
	},
}

var templatesVisibility = operation.Def{
	Value:       opTemplatesVisibility,
	Name:        "获取指定用户可见的审批表单列表",
	Description: "根据员工的userId分页获取该用户可见的审批表单列表",
	Properties: props(opTemplatesVisibility,
		stringProp("userId", "用户ID", true),
		runtime.NodeProperty{DisplayName: "分页大小", Name: "maxResults", Type: runtime.PropertyNumber, Default: 100},
		runtime.NodeProperty{DisplayName: "分页游标", Name: "nextToken", Type: runtime.PropertyNumber, Default: 0},
	),
	Run: func(c *operation.Context, itemIndex int) (runtime.Item, error) {
		var in struct {
			UserID     string `json:"userId" validate:"required"`
			MaxResults int    `json:"maxResults" default:"100"`
			NextToken  int    `json:"nextToken"`
		}
		if err := c.DecodeParameters(itemIndex, &in); err != nil {
			return runtime.Item{}, err
		}
		return send(c, itemIndex, transport.Options{
			Method: http.MethodGet,
			URL:    "/workflow/processes/userVisibilities/templates",
			Query:  map[string]any{"userId": in.UserID, "maxResults": in.MaxResults, "nextToken": in.NextToken},
		})
	},
}
