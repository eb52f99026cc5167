package notable

import (
	"net/url"
	"slices"
	"strings"

	"github.com/sflowg/dingtalk/plugins/dingtalk/operation"
	"github.com/sflowg/dingtalk/runtime"
)

const opParseURL = "notable.parseUrl"

var parseURL = operation.Def{
	Value:       opParseURL,
	Name:        "AI表格 解析URL",
	Description: "从钉钉 AI 表格 URL 中解析 baseId、sheetId、viewId（例如: alidocs 链接）",
	Properties: []runtime.NodeProperty{{
		DisplayName:    "AI表格 URL",
		Name:           "url",
		Type:           runtime.PropertyString,
		Default:        "",
		Required:       true,
		Description:    "来自钉钉 AI 表格的分享或地址，例如 https://alidocs.dingtalk.com/i/nodes/...?",
		DisplayOptions: runtime.ShowOnly("operation", opParseURL),
	}},
	Run: func(c *operation.Context, itemIndex int) (runtime.Item, error) {
		raw, err := c.StringParameter("url", itemIndex)
		if err != nil {
			return runtime.Item{}, err
		}
		ids, ok := ParseURL(raw)
		if !ok {
			return runtime.Item{}, c.Errorf(itemIndex, "请输入合法的 URL")
		}
		if ids.BaseID == "" {
			return runtime.Item{}, c.Errorf(itemIndex, "URL 中未找到 baseId（/i/nodes/{baseId}）")
		}
		return runtime.NewItem(map[string]any{
			"baseId":    ids.BaseID,
			"sheetId":   ids.SheetID,
			"viewId":    ids.ViewID,
			"sourceUrl": raw,
		}, itemIndex), nil
	},
}

// TableIDs are the identifiers embedded in an AI table URL.
type TableIDs struct {
	BaseID  string
	SheetID string
	ViewID  string
}

// ParseURL extracts the base from /i/nodes/{baseId} and the sheet and view
// from the query, falling back to the encoded iframeQuery. ok is false when
// raw is not an absolute URL.
func ParseURL(raw string) (TableIDs, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return TableIDs{}, false
	}

	var ids TableIDs
	segments := slices.DeleteFunc(strings.Split(u.Path, "/"), func(s string) bool { return s == "" })
	if i := slices.Index(segments, "nodes"); i >= 0 && i+1 < len(segments) {
		ids.BaseID = segments[i+1]
	}

	query := u.Query()
	ids.SheetID = query.Get("sheetId")
	ids.ViewID = query.Get("viewId")

	if iframe := query.Get("iframeQuery"); iframe != "" {
		if decoded, err := url.QueryUnescape(iframe); err == nil {
			iframe = decoded
		}
		if inner, err := url.ParseQuery(iframe); err == nil {
			if ids.SheetID == "" {
				ids.SheetID = inner.Get("sheetId")
			}
			if ids.ViewID == "" {
				ids.ViewID = inner.Get("viewId")
			}
		}
	}
	return ids, true
}
