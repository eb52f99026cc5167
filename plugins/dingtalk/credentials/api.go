// Package credentials implements the DingTalk credential types.
package credentials

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"slices"

	"github.com/sflowg/dingtalk/runtime"
)

const (
	APIName = "dingtalkApi"

	DefaultTokenURL   = "https://api.dingtalk.com/v1.0/oauth2/accessToken"
	DefaultLegacyHost = "oapi.dingtalk.com"

	// accessTokenHeader carries the token for the v1.0 API.
	accessTokenHeader = "x-acs-dingtalk-access-token"
)

// API is the application credential: corp ID, client ID and secret, and a
// derived access token that is refreshed on demand.
type API struct {
	TokenURL string
	// LegacyHosts only accept the token as an access_token query parameter.
	LegacyHosts []string
}

func NewAPI(tokenURL string, legacyHosts ...string) *API {
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}
	if len(legacyHosts) == 0 {
		legacyHosts = []string{DefaultLegacyHost}
	}
	return &API{TokenURL: tokenURL, LegacyHosts: legacyHosts}
}

func (a *API) Name() string        { return APIName }
func (a *API) DisplayName() string { return "Dingtalk API" }

func (a *API) Properties() []runtime.CredentialProperty {
	return []runtime.CredentialProperty{
		{DisplayName: "组织ID (Corp ID)", Name: "corpId", Type: runtime.PropertyString, Default: "", Required: true},
		{DisplayName: "应用ID (Client ID)", Name: "clientId", Type: runtime.PropertyString, Default: "", Required: true},
		{DisplayName: "应用密钥 (Client Secret)", Name: "clientSecret", Type: runtime.PropertyString, Default: "", Required: true, Password: true},
		{DisplayName: "AccessToken", Name: "accessToken", Type: runtime.PropertyString, Default: "", Password: true, Expirable: true},
		{
			DisplayName: "操作人ID（unionId）",
			Name:        "userUnionId",
			Type:        runtime.PropertyString,
			Default:     "",
			Description: "Default operator for document and workflow operations",
		},
	}
}

func (a *API) ExpirableFields() []string {
	return []string{"accessToken"}
}

// PreAuthenticate exchanges clientId/clientSecret for an access token.
func (a *API) PreAuthenticate(ctx context.Context, doer runtime.HTTPDoer, creds runtime.Credentials) (runtime.Credentials, error) {
	resp, err := doer.Do(ctx, a.TestRequest().WithBody(map[string]any{
		"appKey":    creds.String("clientId"),
		"appSecret": creds.String("clientSecret"),
	}))
	if err != nil {
		return nil, fmt.Errorf("authorization failed: %w", err)
	}

	body, _ := resp.Decode().(map[string]any)
	token := runtime.ToString(body["accessToken"])
	if token == "" {
		token = runtime.ToString(body["access_token"])
	}
	if runtime.ToString(body["code"]) != "" || token == "" {
		return nil, fmt.Errorf("authorization failed: %s", runtime.ToString(body["message"]))
	}

	return runtime.Credentials{"accessToken": token}, nil
}

// Authenticate puts the token where the target host expects it.
func (a *API) Authenticate(creds runtime.Credentials, req *runtime.HTTPRequest) error {
	token := creds.String("accessToken")
	if a.isLegacy(req.FullURL()) {
		req.SetQuery("access_token", token)
		return nil
	}
	req.SetHeader(accessTokenHeader, token)
	return nil
}

// TestRequest is the token exchange, which doubles as the credential check.
func (a *API) TestRequest() *runtime.HTTPRequest {
	return &runtime.HTTPRequest{
		Method: http.MethodPost,
		URL:    a.TokenURL,
		Headers: map[string]string{
			"Content-Type": "application/json",
			"Accept":       "application/json",
		},
	}
}

func (a *API) isLegacy(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return slices.Contains(a.LegacyHosts, u.Host)
}
