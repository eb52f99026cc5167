// Package auth exposes the application's current access token.
package auth

import (
	"strings"

	"github.com/sflowg/dingtalk/plugins/dingtalk/credentials"
	"github.com/sflowg/dingtalk/plugins/dingtalk/operation"
	"github.com/sflowg/dingtalk/runtime"
)

const opTokenGet = "auth.token.get"

func Bundle() operation.Bundle {
	return operation.MustBundle("auth", "应用授权", tokenGet)
}

var tokenGet = operation.Def{
	Value:       opTokenGet,
	Name:        "认证 获取当前应用的 Access Token",
	Description: "直接从凭据读取当前 access_token，不发起任何网络请求",
	Run:         runTokenGet,
}

func runTokenGet(c *operation.Context, itemIndex int) (runtime.Item, error) {
	creds, err := c.GetCredentials(c, credentials.APIName)
	if err != nil {
		return runtime.Item{}, err
	}

	token := strings.TrimSpace(creds.String("accessToken"))
	if token == "" {
		return runtime.Item{}, c.Errorf(itemIndex, "当前凭据没有 access_token")
	}

	return runtime.NewItem(map[string]any{
		"corpId":      creds.String("corpId"),
		"clientId":    creds.String("clientId"),
		"accessToken": token,
	}, itemIndex), nil
}
