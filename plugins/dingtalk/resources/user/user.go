// Package user implements the contact lookups.
package user

import (
	"net/http"

	"github.com/sflowg/dingtalk/plugins/dingtalk/operation"
	"github.com/sflowg/dingtalk/plugins/dingtalk/transport"
	"github.com/sflowg/dingtalk/runtime"
)

const (
	opGet         = "user.get"
	opGetByMobile = "user.getByMobile"
	opSearch      = "user.search"
)

func Bundle() operation.Bundle {
	return operation.MustBundle("user", "用户管理", get, getByMobile, search)
}

var get = operation.Def{
	Value:       opGet,
	Name:        "用户管理 查询用户详情",
	Description: "调用本接口获取指定用户的详细信息。",
	Properties: []runtime.NodeProperty{
		{
			DisplayName:    "User ID",
			Name:           "userId",
			Type:           runtime.PropertyString,
			Default:        "",
			Required:       true,
			DisplayOptions: runtime.ShowOnly("operation", opGet),
		},
	},
	Run: runGet,
}

type getInput struct {
	UserID string `json:"userId" validate:"required"`
}

func runGet(c *operation.Context, itemIndex int) (runtime.Item, error) {
	var in getInput
	if err := c.DecodeParameters(itemIndex, &in); err != nil {
		return runtime.Item{}, err
	}

	resp, err := c.RequestObject(transport.Options{
		Method: http.MethodPost,
		URL:    c.Client.OAPI("/topapi/v2/user/get"),
		Body:   map[string]any{"userid": in.UserID},
	})
	if err != nil {
		return runtime.Item{}, err
	}
	if err := CheckTopAPI(c, itemIndex, resp); err != nil {
		return runtime.Item{}, err
	}

	if result, ok := resp["result"].(map[string]any); ok {
		return runtime.NewItem(result, itemIndex), nil
	}
	return runtime.NewItem(resp, itemIndex), nil
}

// CheckTopAPI turns a non-zero errcode of a legacy API response into an error.
func CheckTopAPI(c *operation.Context, itemIndex int, resp map[string]any) error {
	code, ok := runtime.ToInt(resp["errcode"])
	if !ok || code == 0 {
		return nil
	}
	return c.Errorf(itemIndex, "TopAPI error %d: %s", code, runtime.ToString(resp["errmsg"]))
}

var getByMobile = operation.Def{
	Value:       opGetByMobile,
	Name:        "根据手机号查询用户",
	Description: "根据手机号获取用户的userId",
	Properties: []runtime.NodeProperty{
		{
			DisplayName:    "用户的手机号",
			Name:           "mobile",
			Type:           runtime.PropertyString,
			Default:        "",
			Required:       true,
			Placeholder:    "13000000000",
			DisplayOptions: runtime.ShowOnly("operation", opGetByMobile),
		},
	},
	Run: runGetByMobile,
}

func runGetByMobile(c *operation.Context, itemIndex int) (runtime.Item, error) {
	mobile, err := c.StringParameter("mobile", itemIndex)
	if err != nil {
		return runtime.Item{}, err
	}

	resp, err := c.RequestObject(transport.Options{
		Method: http.MethodPost,
		URL:    c.Client.OAPI("/topapi/v2/user/getbymobile"),
		Body:   map[string]any{"mobile": mobile},
	})
	if err != nil {
		return runtime.Item{}, err
	}
	return runtime.NewItem(resp, itemIndex), nil
}

var showSearch = runtime.ShowOnly("operation", opSearch)

var search = operation.Def{
	Value:       opSearch,
	Name:        "搜索用户userId",
	Description: "按名称搜索用户",
	Properties: []runtime.NodeProperty{
		{DisplayName: "用户名称、名称拼音或英文名称", Name: "queryWord", Type: runtime.PropertyString, Default: "", Required: true, DisplayOptions: showSearch},
		{DisplayName: "分页页码", Name: "offset", Type: runtime.PropertyNumber, Default: 0, Required: true, DisplayOptions: showSearch},
		{DisplayName: "分页大小", Name: "size", Type: runtime.PropertyNumber, Default: 10, Required: true, DisplayOptions: showSearch},
		{DisplayName: "是否精确匹配", Name: "fullMatchField", Type: runtime.PropertyBoolean, Default: false, DisplayOptions: showSearch},
	},
	Run: runSearch,
}

type searchInput struct {
	QueryWord      string `json:"queryWord"`
	Offset         int    `json:"offset"`
	Size           int    `json:"size" default:"10"`
	FullMatchField bool   `json:"fullMatchField"`
}

func runSearch(c *operation.Context, itemIndex int) (runtime.Item, error) {
	var in searchInput
	if err := c.DecodeParameters(itemIndex, &in); err != nil {
		return runtime.Item{}, err
	}

	body := map[string]any{
		"offset":    in.Offset,
		"size":      in.Size,
		"queryWord": in.QueryWord,
	}
	if in.FullMatchField {
		body["fullMatchField"] = 1
	}

	resp, err := c.RequestObject(transport.Options{
		Method: http.MethodPost,
		URL:    "/contact/users/search",
		Body:   body,
	})
	if err != nil {
		return runtime.Item{}, err
	}
	return runtime.NewItem(resp, itemIndex), nil
}
