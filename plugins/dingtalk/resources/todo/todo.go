// Package todo implements the to-do resource.
package todo

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/sflowg/dingtalk/plugins/dingtalk/operation"
	"github.com/sflowg/dingtalk/plugins/dingtalk/transport"
	"github.com/sflowg/dingtalk/runtime"
)

const opTasksQuery = "todo.tasks.query"

func Bundle() operation.Bundle {
	return operation.MustBundle("todo", "待办", tasksQuery)
}

var showQuery = runtime.ShowOnly("operation", opTasksQuery)

var queryBody = operation.BodyOptions{
	DefaultJSONBody: "{}",
	JSONDescription: `请求体JSON数据。<a href="https://open.dingtalk.com/document/orgapp/query-the-to-do-list-of-enterprise-users" target="_blank">查看官方API文档</a>`,
	FieldProperties: []runtime.NodeProperty{
		{
			DisplayName: "分页游标",
			Name:        "nextToken",
			Type:        runtime.PropertyString,
			Default:     "",
			Description: "上次查询返回的分页token，为空时从头查询",
		},
		{
			DisplayName: "待办完成状态",
			Name:        "isDone",
			Type:        runtime.PropertyOptions,
			Default:     "",
			Options: []runtime.PropertyOption{
				{Name: "所有", Value: ""},
				{Name: "已完成", Value: true},
				{Name: "未完成", Value: false},
			},
		},
		{
			DisplayName: "查询目标用户角色类型",
			Name:        "roleTypes",
			Type:        runtime.PropertyJSON,
			Default:     "[]",
			Description: `executor：执行人，creator：创建人，participant：参与人。外层list表示或的关系，内层list表示与的关系，例如 [["executor", "creator"]]`,
		},
		{
			DisplayName: "待办的业务类型",
			Name:        "todoType",
			Type:        runtime.PropertyOptions,
			Default:     "",
			Options: []runtime.PropertyOption{
				{Name: "所有", Value: ""},
				{Name: "待办", Value: "TODO"},
				{Name: "待阅", Value: "READ"},
			},
		},
	},
	Fields: queryFields,
}

var tasksQuery = operation.Def{
	Value:       opTasksQuery,
	Name:        "查询企业下用户待办列表",
	Description: "获取该授权企业下某用户的待办列表",
	Properties:  append(operation.OperatorProps(showQuery), operation.BodyProps(showQuery, queryBody)...),
	Run: func(c *operation.Context, itemIndex int) (runtime.Item, error) {
		operatorID, err := operation.OperatorID(c, itemIndex)
		if err != nil {
			return runtime.Item{}, err
		}
		if operatorID == "" {
			return runtime.Item{}, c.Errorf(itemIndex, "operatorId is required")
		}
		body, err := operation.BodyData(c, itemIndex, queryBody)
		if err != nil {
			return runtime.Item{}, err
		}

		resp, err := c.RequestObject(transport.Options{
			Method: http.MethodPost,
			URL:    "/todo/users/" + url.PathEscape(operatorID) + "/org/tasks/query",
			Body:   body,
		})
		if err != nil {
			return runtime.Item{}, err
		}
		return runtime.NewItem(resp, itemIndex), nil
	},
}

// queryFields keeps only the filters that are set.
func queryFields(c *operation.Context, itemIndex int) (map[string]any, error) {
	var in struct {
		NextToken string `json:"nextToken"`
		IsDone    any    `json:"isDone"`
		RoleTypes any    `json:"roleTypes"`
		TodoType  string `json:"todoType"`
	}
	if err := c.DecodeParameters(itemIndex, &in); err != nil {
		return nil, err
	}

	body := map[string]any{}
	if in.NextToken != "" {
		body["nextToken"] = in.NextToken
	}
	if done, ok := runtime.ToBool(in.IsDone); ok {
		body["isDone"] = done
	}
	roles, err := roleTypes(in.RoleTypes)
	if err != nil {
		return nil, c.Errorf(itemIndex, "roleTypes must be a JSON array of arrays").WithDescription(err.Error())
	}
	if len(roles) > 0 {
		body["roleTypes"] = roles
	}
	if in.TodoType != "" {
		body["todoType"] = in.TodoType
	}
	return body, nil
}

func roleTypes(raw any) ([][]string, error) {
	var roles [][]string
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case string:
		if strings.TrimSpace(v) == "" {
			return nil, nil
		}
		if err := json.Unmarshal([]byte(v), &roles); err != nil {
			return nil, err
		}
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, &roles); err != nil {
			return nil, err
		}
	}
	return roles, nil
}
