package operation

import (
	"regexp"
	"strings"

	"github.com/sflowg/dingtalk/plugins/dingtalk/credentials"
	"github.com/sflowg/dingtalk/runtime"
)

var commaSeparator = regexp.MustCompile(`[\n,，]`)

// CommaSeparatedProperty returns a string property accepting a list of values
// separated by commas (ASCII or full-width) or newlines.
func CommaSeparatedProperty(p runtime.NodeProperty) runtime.NodeProperty {
	if p.DisplayName == "" {
		p.DisplayName = "值列表"
	}
	if p.Name == "" {
		p.Name = "values"
	}
	if p.Type == "" {
		p.Type = runtime.PropertyString
	}
	if p.Placeholder == "" {
		p.Placeholder = "例如：value1, value2"
	}
	if p.Description == "" {
		p.Description = `多个参数请用","分隔`
	}
	if p.Hint == "" {
		p.Hint = `多个参数请用","分隔`
	}
	if p.Default == nil {
		p.Default = ""
	}
	return p
}

// SplitCommaSeparated splits s on newlines and commas, trimming and dropping empty entries.
func SplitCommaSeparated(s string) []string {
	parts := commaSeparator.Split(strings.TrimSpace(s), -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// CommaSeparatedValues reads a comma separated parameter.
func CommaSeparatedValues(c *Context, itemIndex int, name string) ([]string, error) {
	raw, err := c.GetParameter(name, itemIndex)
	if err != nil {
		return nil, err
	}
	if list, ok := raw.([]any); ok {
		out := make([]string, 0, len(list))
		for _, v := range list {
			if s := strings.TrimSpace(runtime.ToString(v)); s != "" {
				out = append(out, s)
			}
		}
		return out, nil
	}
	return SplitCommaSeparated(runtime.ToString(raw)), nil
}

// OperatorProps returns the overrideOperator switch and the operatorId field.
func OperatorProps(show *runtime.DisplayOptions) []runtime.NodeProperty {
	return []runtime.NodeProperty{
		{
			DisplayName:    "不使用凭证中的操作人",
			Name:           "overrideOperator",
			Type:           runtime.PropertyBoolean,
			Default:        false,
			Description:    "不使用凭证中的操作人，手动设置操作人unionId",
			DisplayOptions: show,
		},
		{
			DisplayName:    "操作人的unionId",
			Name:           "operatorId",
			Type:           runtime.PropertyString,
			Default:        "",
			Required:       true,
			Placeholder:    "可通过[用户管理 查询用户详情]获取指定用户的unionId",
			DisplayOptions: show.With("overrideOperator", true),
		},
	}
}

// OperatorID returns the operatorId parameter when overrideOperator is set,
// otherwise the credential's userUnionId.
func OperatorID(c *Context, itemIndex int) (string, error) {
	override, err := c.GetParameter("overrideOperator", itemIndex)
	if err != nil {
		return "", err
	}
	if b, _ := runtime.ToBool(override); b {
		return c.StringParameter("operatorId", itemIndex)
	}

	creds, err := c.GetCredentials(c, credentials.APIName)
	if err != nil {
		return "", err
	}
	return creds.String("userUnionId"), nil
}

const (
	MappingDefineBelow = "defineBelow"
	MappingAutoMap     = "autoMapInputData"
)

// MappedValues reads a resource mapper parameter. In defineBelow mode the
// explicit value map is returned; in autoMapInputData mode the matching
// columns are copied from the input item, or the whole item when none are set.
func MappedValues(c *Context, itemIndex int, name string) (map[string]any, error) {
	raw, err := c.GetParameter(name, itemIndex)
	if err != nil {
		return nil, err
	}
	mapper, _ := raw.(map[string]any)
	if mapper == nil {
		return map[string]any{}, nil
	}

	mode := runtime.ToString(mapper["mappingMode"])
	if mode == MappingAutoMap {
		item := map[string]any{}
		if itemIndex < len(c.Items) && c.Items[itemIndex].JSON != nil {
			item = c.Items[itemIndex].JSON
		}
		matching, _ := mapper["matchingColumns"].([]any)
		out := map[string]any{}
		if len(matching) == 0 {
			for k, v := range item {
				out[k] = v
			}
			return out, nil
		}
		for _, col := range matching {
			key := runtime.ToString(col)
			if v, ok := item[key]; ok {
				out[key] = v
			}
		}
		return out, nil
	}

	values, _ := mapper["value"].(map[string]any)
	if values == nil {
		values = map[string]any{}
	}
	return values, nil
}
