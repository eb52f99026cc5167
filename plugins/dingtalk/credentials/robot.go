package credentials

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"strconv"
	"time"

	"github.com/sflowg/dingtalk/runtime"
)

const (
	RobotName = "dingtalkRobotApi"

	DefaultRobotURL = "https://oapi.dingtalk.com/robot/send"
)

// Robot is a custom group robot webhook credential: its access token and an optional signing secret.
type Robot struct {
	URL string
	now func() time.Time
}

func NewRobot(robotURL string) *Robot {
	if robotURL == "" {
		robotURL = DefaultRobotURL
	}
	return &Robot{URL: robotURL, now: time.Now}
}

func (r *Robot) Name() string        { return RobotName }
func (r *Robot) DisplayName() string { return "DingTalk Robot API" }

func (r *Robot) Properties() []runtime.CredentialProperty {
	return []runtime.CredentialProperty{
		{
			DisplayName: "AccessToken",
			Name:        "accessToken",
			Type:        runtime.PropertyString,
			Default:     "",
			Required:    true,
			Password:    true,
			Description: "access_token of the robot webhook URL",
		},
		{
			DisplayName: "签名密钥(可选)",
			Name:        "secret",
			Type:        runtime.PropertyString,
			Default:     "",
			Password:    true,
			Description: "Signing secret (SEC...) when the robot has signature checks enabled",
		},
	}
}

// Authenticate adds access_token, and timestamp plus sign when a secret is set.
// The HTTP client URL-encodes sign exactly once.
func (r *Robot) Authenticate(creds runtime.Credentials, req *runtime.HTTPRequest) error {
	req.SetQuery("access_token", creds.String("accessToken"))

	if secret := creds.String("secret"); secret != "" {
		timestamp := r.now().UnixMilli()
		req.SetQuery("timestamp", strconv.FormatInt(timestamp, 10))
		req.SetQuery("sign", Sign(secret, timestamp))
	}
	return nil
}

func (r *Robot) TestRequest() *runtime.HTTPRequest {
	return &runtime.HTTPRequest{Method: http.MethodPost, URL: r.URL, Body: map[string]any{}}
}

// Sign computes base64(HMAC-SHA256(secret, "<timestamp>\n<secret>")).
func Sign(secret string, timestamp int64) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(timestamp, 10) + "\n" + secret))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
