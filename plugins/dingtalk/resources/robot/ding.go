package robot

import (
	"net/http"

	"github.com/sflowg/dingtalk/plugins/dingtalk/operation"
	"github.com/sflowg/dingtalk/plugins/dingtalk/transport"
	"github.com/sflowg/dingtalk/runtime"
)

const (
	opDingSend   = "robot.ding.send"
	opDingRecall = "robot.ding.recall"

	remindTypeCall = 3
)

var showDingSend = runtime.ShowOnly("operation", opDingSend)

var dingSendBody = operation.BodyOptions{
	DefaultJSONBody: operation.JSONExample(map[string]any{
		"robotCode":          "ding1234567890",
		"remindType":         1,
		"receiverUserIdList": []string{"1234567890"},
		"content":            "Hello, world!",
	}),
	JSONDescription: "https://open.dingtalk.com/document/orgapp/robot-sends-ding-message",
	FieldProperties: []runtime.NodeProperty{
		{DisplayName: "发DING消息的机器人ID", Name: "robotCode", Type: runtime.PropertyString, Default: "", Required: true, DisplayOptions: showDingSend},
		{
			DisplayName: "DING消息类型",
			Name:        "remindType",
			Type:        runtime.PropertyOptions,
			Default:     1,
			Options: []runtime.PropertyOption{
				{Name: "应用内DING", Value: 1},
				{Name: "短信DING", Value: 2},
				{Name: "电话DING", Value: remindTypeCall},
			},
			Description:    "短信 DING 和电话 DING 需要单独购买权益包",
			DisplayOptions: showDingSend,
		},
		operation.CommaSeparatedProperty(runtime.NodeProperty{
			DisplayName:    "接收人userId列表",
			Name:           "receiverUserIdList",
			Required:       true,
			DisplayOptions: showDingSend,
		}),
		{DisplayName: "消息内容", Name: "content", Type: runtime.PropertyString, Default: "", Required: true, DisplayOptions: showDingSend},
		{
			DisplayName: "电话音色",
			Name:        "callVoice",
			Type:        runtime.PropertyOptions,
			Default:     "Standard_Female_Voice",
			Options: []runtime.PropertyOption{
				{Name: "标准女性音色", Value: "Standard_Female_Voice"},
				{Name: "粤语女性音色", Value: "Cantonese_Female_Voice"},
				{Name: "温柔女性音色", Value: "Gentine_Female_Voice"},
				{Name: "强势女性音色", Value: "Overbearing_Female_Voice"},
				{Name: "可爱女孩音色", Value: "Lovely_Girl_Voice"},
				{Name: "标准男性音色", Value: "Standard_Male_Voice"},
			},
			DisplayOptions: runtime.ShowOnly("remindType", remindTypeCall),
		},
	},
	Fields: buildDingSend,
}

var dingSend = operation.Def{
	Value:       opDingSend,
	Name:        "💎发送DING消息",
	Description: "[钉钉专业版]使用企业内机器人发送DING消息",
	Properties:  operation.BodyProps(showDingSend, dingSendBody),
	Run: func(c *operation.Context, itemIndex int) (runtime.Item, error) {
		return post(c, itemIndex, "/robot/ding/send", dingSendBody)
	},
}

type dingSendInput struct {
	RobotCode  string `json:"robotCode"`
	RemindType int    `json:"remindType" default:"1"`
	Content    string `json:"content"`
	CallVoice  string `json:"callVoice"`
}

func buildDingSend(c *operation.Context, itemIndex int) (map[string]any, error) {
	var in dingSendInput
	if err := c.DecodeParameters(itemIndex, &in); err != nil {
		return nil, err
	}
	receivers, err := operation.CommaSeparatedValues(c, itemIndex, "receiverUserIdList")
	if err != nil {
		return nil, err
	}

	body := map[string]any{
		"robotCode":          in.RobotCode,
		"remindType":         in.RemindType,
		"receiverUserIdList": receivers,
		"content":            in.Content,
	}
	if in.RemindType == remindTypeCall {
		body["callVoice"] = in.CallVoice
	}
	return body, nil
}

var showDingRecall = runtime.ShowOnly("operation", opDingRecall)

var dingRecallBody = operation.BodyOptions{
	DefaultJSONBody: operation.JSONExample(map[string]any{
		"robotCode":  "ding1234567890",
		"openDingId": "ding1234567890",
	}),
	JSONDescription: "https://open.dingtalk.com/document/orgapp/robot-withdraws-pin-message",
	FieldProperties: []runtime.NodeProperty{
		{DisplayName: "发DING消息的机器人ID", Name: "robotCode", Type: runtime.PropertyString, Default: "", Required: true, DisplayOptions: showDingRecall},
		{DisplayName: "需要被撤回的DING消息ID", Name: "openDingId", Type: runtime.PropertyString, Default: "", Required: true, DisplayOptions: showDingRecall},
	},
	Fields: func(c *operation.Context, itemIndex int) (map[string]any, error) {
		robotCode, err := c.StringParameter("robotCode", itemIndex)
		if err != nil {
			return nil, err
		}
		openDingID, err := c.StringParameter("openDingId", itemIndex)
		if err != nil {
			return nil, err
		}
		return map[string]any{"robotCode": robotCode, "openDingId": openDingID}, nil
	},
}

var dingRecall = operation.Def{
	Value:       opDingRecall,
	Name:        "💎撤回已经发送的DING消息",
	Description: "[钉钉专业版]撤回使用企业机器人发送的DING消息",
	Properties:  operation.BodyProps(showDingRecall, dingRecallBody),
	Run: func(c *operation.Context, itemIndex int) (runtime.Item, error) {
		return post(c, itemIndex, "/robot/ding/recall", dingRecallBody)
	},
}

func post(c *operation.Context, itemIndex int, url string, body operation.BodyOptions) (runtime.Item, error) {
	data, err := operation.BodyData(c, itemIndex, body)
	if err != nil {
		return runtime.Item{}, err
	}
	resp, err := c.RequestObject(transport.Options{Method: http.MethodPost, URL: url, Body: data})
	if err != nil {
		return runtime.Item{}, err
	}
	return runtime.NewItem(resp, itemIndex), nil
}
