// Package notable implements the AI table (notable) operations: sheets,
// fields and records addressed by base and sheet locators.
package notable

import (
	"fmt"
	"net/url"

	"github.com/sflowg/dingtalk/plugins/dingtalk/operation"
	"github.com/sflowg/dingtalk/runtime"
)

const (
	alidocsURLPattern = `^https://[^/]*alidocs\.dingtalk\.com/.+`
	alidocsURLMessage = "请输入合法的AI表格URL"
)

func Bundle() operation.Bundle {
	return operation.MustBundle("notable", "AI表格",
		fieldCreate, fieldDelete, fieldGetAll, fieldUpdate,
		parseURL,
		recordAdd, recordDelete, recordGet, recordInsert, recordList, recordUpdate,
		sheetCreate, sheetDelete, sheetGet, sheetGetAll, sheetUpdate,
	)
}

// BaseProperty is the baseId locator, accepting an ID or an alidocs URL.
func BaseProperty(show *runtime.DisplayOptions) runtime.NodeProperty {
	return runtime.NodeProperty{
		DisplayName: "AI表格",
		Name:        "baseId",
		Type:        runtime.PropertyResourceLocator,
		Default:     map[string]any{"mode": "id", "value": ""},
		Required:    true,
		Modes: []runtime.LocatorMode{
			{DisplayName: "By ID", Name: "id", Type: "string", Placeholder: "baseId,可通过[解析URL]获取"},
			{
				DisplayName:       "From URL",
				Name:              "url",
				Type:              "string",
				Placeholder:       "https://alidocs.dingtalk.com/i/nodes/...?",
				ValidateRegex:     alidocsURLPattern,
				ValidationMessage: alidocsURLMessage,
				ExtractRegex:      `/i/nodes/([^/?#]+)`,
			},
		},
		DisplayOptions: show,
	}
}

// SheetProperty is the sheetIdOrName locator. The list mode is backed by
// the sheetSearch task.
func SheetProperty(show *runtime.DisplayOptions) runtime.NodeProperty {
	return runtime.NodeProperty{
		DisplayName: "数据表",
		Name:        "sheetIdOrName",
		Type:        runtime.PropertyResourceLocator,
		Default:     map[string]any{"mode": "id", "value": ""},
		Required:    true,
		TypeOptions: map[string]any{"loadOptionsDependsOn": []string{"baseId.value"}},
		Modes: []runtime.LocatorMode{
			{DisplayName: "From List", Name: "list", Type: "list", SearchListMethod: "sheetSearch"},
			{DisplayName: "By ID", Name: "id", Type: "string", Placeholder: "sheetId,可通过[解析URL]获取"},
			{
				DisplayName:       "From URL",
				Name:              "url",
				Type:              "string",
				Placeholder:       "https://alidocs.dingtalk.com/i/nodes/...?",
				ValidateRegex:     alidocsURLPattern,
				ValidationMessage: alidocsURLMessage,
				ExtractRegex:      `iframeQuery=[^#]*?sheetId%3D([A-Za-z0-9_-]+)`,
			},
		},
		DisplayOptions: show,
	}
}

// targetProps are the operator and base properties every operation starts
// with, followed by the sheet locator unless withSheet is false.
func targetProps(show *runtime.DisplayOptions, withSheet bool, extra ...runtime.NodeProperty) []runtime.NodeProperty {
	props := append(operation.OperatorProps(show), BaseProperty(show))
	if withSheet {
		props = append(props, SheetProperty(show))
	}
	return append(props, extra...)
}

type target struct {
	Base     string `json:"baseId" validate:"required"`
	Sheet    string `json:"sheetIdOrName"`
	Operator string `json:"-"`
}

func (t target) basePath() string {
	return "/notable/bases/" + url.PathEscape(t.Base)
}

func (t target) sheetPath(parts ...string) string {
	p := fmt.Sprintf("%s/sheets/%s", t.basePath(), url.PathEscape(t.Sheet))
	for _, part := range parts {
		p += "/" + part
	}
	return p
}

func (t target) query() map[string]any {
	return map[string]any{"operatorId": t.Operator}
}

// resolveTarget reads the operator, base and, when needSheet is set, the sheet.
func resolveTarget(c *operation.Context, itemIndex int, needSheet bool) (target, error) {
	var t target
	if err := c.DecodeParameters(itemIndex, &t); err != nil {
		return t, err
	}
	if needSheet && t.Sheet == "" {
		return t, c.Errorf(itemIndex, "sheetIdOrName is required")
	}
	operator, err := operation.OperatorID(c, itemIndex)
	if err != nil {
		return t, err
	}
	t.Operator = operator
	return t, nil
}
