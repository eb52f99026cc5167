package robot

import (
	"net/http"
	"slices"

	"github.com/sflowg/dingtalk/plugins/dingtalk/credentials"
	"github.com/sflowg/dingtalk/plugins/dingtalk/operation"
	"github.com/sflowg/dingtalk/plugins/dingtalk/transport"
	"github.com/sflowg/dingtalk/runtime"
)

const opSend = "robot.send"

var (
	showSend = runtime.ShowOnly("operation", opSend)

	// msgtypes that accept the at block
	atMsgTypes = []string{"text", "markdown", "actionCard"}
)

func showMsgType(types ...any) *runtime.DisplayOptions {
	return runtime.ShowOnly("msgtype", types...)
}

var sendFields = []runtime.NodeProperty{
	{
		DisplayName: "消息类型",
		Name:        "msgtype",
		Type:        runtime.PropertyOptions,
		Default:     "text",
		Options: []runtime.PropertyOption{
			{Name: "文本类型消息", Value: "text"},
			{Name: "链接类型消息", Value: "link"},
			{Name: "Markdown类型消息", Value: "markdown"},
			{Name: "ActionCard类型消息", Value: "actionCard"},
			{Name: "FeedCard类型消息", Value: "feedCard"},
		},
		DisplayOptions: showSend,
	},

	{DisplayName: "文本消息的内容", Name: "content", Type: runtime.PropertyString, Default: "", Required: true, DisplayOptions: showMsgType("text")},

	{DisplayName: "链接消息标题", Name: "title", Type: runtime.PropertyString, Default: "", Required: true, DisplayOptions: showMsgType("link")},
	{DisplayName: "链接消息的内容", Name: "text", Type: runtime.PropertyString, Default: "", Required: true, Description: "如果太长只会部分展示", DisplayOptions: showMsgType("link")},
	{DisplayName: "点击消息跳转的URL", Name: "messageUrl", Type: runtime.PropertyString, Default: "", Required: true, Placeholder: "https://www.dingtalk.com", DisplayOptions: showMsgType("link")},
	{DisplayName: "链接消息内的图片地址", Name: "picUrl", Type: runtime.PropertyString, Default: "", Placeholder: "@aubHxxxxx", DisplayOptions: showMsgType("link")},

	{DisplayName: "首屏会话透出的展示内容", Name: "title", Type: runtime.PropertyString, Default: "", Required: true, DisplayOptions: showMsgType("markdown")},
	{
		DisplayName:    "Markdown格式的消息",
		Name:           "text",
		Type:           runtime.PropertyString,
		Default:        "",
		Required:       true,
		TypeOptions:    map[string]any{"editor": "htmlEditor"},
		Description:    "如果需要实现 @ 功能，在 text 内容中添加 @ 用户的 userId。例如：@manager7675",
		DisplayOptions: showMsgType("markdown"),
	},

	{DisplayName: "首屏会话透出的展示内容", Name: "title", Type: runtime.PropertyString, Default: "", Required: true, DisplayOptions: showMsgType("actionCard")},
	{
		DisplayName:    "Markdown格式的消息",
		Name:           "text",
		Type:           runtime.PropertyString,
		Default:        "",
		Required:       true,
		TypeOptions:    map[string]any{"editor": "htmlEditor"},
		DisplayOptions: showMsgType("actionCard"),
	},
	{
		DisplayName: "卡片跳转方式",
		Name:        "btns",
		Type:        runtime.PropertyOptions,
		Default:     "single",
		Required:    true,
		Options: []runtime.PropertyOption{
			{Name: "整体跳转", Value: "single"},
			{Name: "独立跳转", Value: "btns"},
		},
		DisplayOptions: showMsgType("actionCard"),
	},
	{DisplayName: "单个按钮的标题", Name: "singleTitle", Type: runtime.PropertyString, Default: "", Required: true, DisplayOptions: showMsgType("actionCard").With("btns", "single")},
	{DisplayName: "点击消息跳转的URL", Name: "singleURL", Type: runtime.PropertyString, Default: "", Required: true, DisplayOptions: showMsgType("actionCard").With("btns", "single")},
	{
		DisplayName: "按钮排列方式",
		Name:        "btnOrientation",
		Type:        runtime.PropertyOptions,
		Default:     1,
		Options: []runtime.PropertyOption{
			{Name: "按钮竖直排列", Value: 0},
			{Name: "按钮横向排列", Value: 1},
		},
		DisplayOptions: showMsgType("actionCard").With("btns", "btns"),
	},
	{
		DisplayName: "按钮列表",
		Name:        "buttons",
		Type:        runtime.PropertyFixedCollection,
		Default:     map[string]any{},
		TypeOptions: map[string]any{"multipleValues": true, "multipleValueButtonText": "添加按钮", "sortable": true},
		Options: []runtime.PropertyOption{{
			Name:  "按钮",
			Value: "button",
			Values: []runtime.NodeProperty{
				{DisplayName: "按钮标题", Name: "title", Type: runtime.PropertyString, Default: "", Required: true},
				{DisplayName: "跳转链接", Name: "actionURL", Type: runtime.PropertyString, Default: "", Required: true, Placeholder: "https://www.dingtalk.com/"},
			},
		}},
		DisplayOptions: showMsgType("actionCard").With("btns", "btns"),
	},

	{
		DisplayName: "消息链接",
		Name:        "links",
		Type:        runtime.PropertyFixedCollection,
		Default:     map[string]any{},
		TypeOptions: map[string]any{"multipleValues": true, "multipleValueButtonText": "添加链接", "sortable": true},
		Options: []runtime.PropertyOption{{
			Name:  "链接",
			Value: "link",
			Values: []runtime.NodeProperty{
				{DisplayName: "文本", Name: "title", Type: runtime.PropertyString, Default: "", Required: true},
				{DisplayName: "跳转链接", Name: "messageURL", Type: runtime.PropertyString, Default: "", Required: true},
				{DisplayName: "图片的URL", Name: "picURL", Type: runtime.PropertyString, Default: "", Required: true},
			},
		}},
		DisplayOptions: showMsgType("feedCard"),
	},

	{DisplayName: "是否@所有人", Name: "isAtAll", Type: runtime.PropertyBoolean, Default: false, DisplayOptions: showMsgType("text", "markdown", "actionCard")},
	operation.CommaSeparatedProperty(runtime.NodeProperty{
		DisplayName:    "被@的群成员手机号",
		Name:           "atMobiles",
		Placeholder:    "15xxx,18xxx",
		Description:    "在消息内容里添加@的人的手机号",
		DisplayOptions: showMsgType("text", "markdown", "actionCard").With("isAtAll", false),
	}),
	operation.CommaSeparatedProperty(runtime.NodeProperty{
		DisplayName:    "被@的群成员userId",
		Name:           "atUserIds",
		Placeholder:    "user001,user002",
		Description:    "在消息内容里添加@的人的userId",
		DisplayOptions: showMsgType("text", "markdown", "actionCard").With("isAtAll", false),
	}),
}

var sendBody = operation.BodyOptions{
	DefaultJSONBody: operation.JSONExample(map[string]any{
		"at":      map[string]any{"atMobiles": []string{"180xxxxxx"}, "atUserIds": []string{"user123"}, "isAtAll": false},
		"text":    map[string]any{"content": "我就是我, @user123 是不一样的烟火"},
		"msgtype": "text",
	}),
	JSONDescription: "https://open.dingtalk.com/document/development/custom-robots-send-group-messages",
	FieldProperties: sendFields,
	Fields:          buildSendPayload,
}

var send = operation.Def{
	Value:       opSend,
	Name:        "自定义机器人发送群消息",
	Description: "使用自定义机器人发送群消息",
	Properties:  operation.BodyProps(showSend, sendBody),
	Run:         runSend,
}

func runSend(c *operation.Context, itemIndex int) (runtime.Item, error) {
	body, err := operation.BodyData(c, itemIndex, sendBody)
	if err != nil {
		return runtime.Item{}, err
	}

	resp, err := c.RequestObject(transport.Options{
		Method:              http.MethodPost,
		URL:                 c.Client.OAPI("/robot/send"),
		Body:                body,
		CredentialType:      credentials.RobotName,
		DisableTokenRefresh: true,
	})
	if err != nil {
		return runtime.Item{}, err
	}
	return runtime.NewItem(resp, itemIndex), nil
}

type sendInput struct {
	MsgType        string         `json:"msgtype" default:"text" validate:"oneof=text link markdown actionCard feedCard"`
	Content        string         `json:"content"`
	Title          string         `json:"title"`
	Text           string         `json:"text"`
	MessageURL     string         `json:"messageUrl"`
	PicURL         string         `json:"picUrl"`
	Btns           string         `json:"btns" default:"single"`
	SingleTitle    string         `json:"singleTitle"`
	SingleURL      string         `json:"singleURL"`
	BtnOrientation int            `json:"btnOrientation" default:"1"`
	Buttons        map[string]any `json:"buttons"`
	Links          map[string]any `json:"links"`
	IsAtAll        bool           `json:"isAtAll"`
}

// buildSendPayload assembles the webhook payload for the selected msgtype.
// With isAtAll set, atMobiles and atUserIds are left out.
func buildSendPayload(c *operation.Context, itemIndex int) (map[string]any, error) {
	var in sendInput
	if err := c.DecodeParameters(itemIndex, &in); err != nil {
		return nil, err
	}

	payload := map[string]any{"msgtype": in.MsgType}

	if slices.Contains(atMsgTypes, in.MsgType) {
		at := map[string]any{"isAtAll": in.IsAtAll}
		if !in.IsAtAll {
			mobiles, err := operation.CommaSeparatedValues(c, itemIndex, "atMobiles")
			if err != nil {
				return nil, err
			}
			userIDs, err := operation.CommaSeparatedValues(c, itemIndex, "atUserIds")
			if err != nil {
				return nil, err
			}
			at["atMobiles"] = mobiles
			at["atUserIds"] = userIDs
		}
		payload["at"] = at
	}

	switch in.MsgType {
	case "text":
		payload["text"] = map[string]any{"content": in.Content}
	case "link":
		link := map[string]any{
			"messageUrl": in.MessageURL,
			"title":      in.Title,
			"text":       in.Text,
		}
		if in.PicURL != "" {
			link["picUrl"] = in.PicURL
		}
		payload["link"] = link
	case "markdown":
		payload["markdown"] = map[string]any{"title": in.Title, "text": in.Text}
	case "actionCard":
		card := map[string]any{"title": in.Title, "text": in.Text}
		if in.Btns == "single" {
			card["singleTitle"] = in.SingleTitle
			card["singleURL"] = in.SingleURL
		} else {
			card["btnOrientation"] = in.BtnOrientation
			card["btns"] = in.Buttons["button"]
		}
		payload["actionCard"] = card
	case "feedCard":
		payload["feedCard"] = map[string]any{"links": in.Links["link"]}
	}

	c.Logger().DebugContext(c, "robot payload", "msgtype", in.MsgType)
	return payload, nil
}
