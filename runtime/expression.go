package runtime

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"

	"github.com/expr-lang/expr"
)

// expressionPattern matches {{ ... }} segments inside a parameter value.
var expressionPattern = regexp.MustCompile(`\{\{(.+?)\}\}`)

// Custom expression functions available in parameter expressions
var exprFunctions = []expr.Option{
	expr.Function("base64_encode", func(params ...any) (any, error) {
		s, _ := params[0].(string)
		return base64.StdEncoding.EncodeToString([]byte(s)), nil
	}),
	expr.Function("base64_decode", func(params ...any) (any, error) {
		s, _ := params[0].(string)
		decoded, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return "", err
		}
		return string(decoded), nil
	}),
}

// ExpressionEvaluator evaluates parameter expressions with expr-lang.
// A parameter is an expression when it starts with "=", e.g. "={{ json.userId }}".
type ExpressionEvaluator struct{}

func NewExpressionEvaluator() *ExpressionEvaluator {
	return &ExpressionEvaluator{}
}

func (e *ExpressionEvaluator) Eval(expression string, env map[string]any) (any, error) {
	env["null"] = nil

	// NOTE: expr.Env MUST come before AllowUndefinedVariables for it to work
	opts := []expr.Option{
		expr.Env(env),
		expr.AllowUndefinedVariables(),
	}
	opts = append(opts, exprFunctions...)

	program, err := expr.Compile(strings.TrimSpace(expression), opts...)
	if err != nil {
		return nil, err
	}
	return expr.Run(program, env)
}

// Resolve evaluates value if it is an expression string and returns it unchanged otherwise.
// A value that is exactly one {{ }} block keeps the result's type; mixed text is rendered as a string.
func (e *ExpressionEvaluator) Resolve(value string, env map[string]any) (any, error) {
	if !strings.HasPrefix(value, "=") {
		return value, nil
	}
	body := value[1:]

	matches := expressionPattern.FindAllStringSubmatchIndex(body, -1)
	if len(matches) == 0 {
		return body, nil
	}

	trimmed := strings.TrimSpace(body)
	if len(matches) == 1 && strings.HasPrefix(trimmed, "{{") && strings.HasSuffix(trimmed, "}}") &&
		strings.Count(trimmed, "{{") == 1 {
		return e.Eval(trimmed[2:len(trimmed)-2], env)
	}

	var sb strings.Builder
	last := 0
	for _, m := range matches {
		sb.WriteString(body[last:m[0]])
		result, err := e.Eval(body[m[2]:m[3]], env)
		if err != nil {
			return nil, err
		}
		if result != nil {
			sb.WriteString(ToString(result))
		}
		last = m[1]
	}
	sb.WriteString(body[last:])
	return sb.String(), nil
}

func (e *ExpressionEvaluator) resolveValue(value any, env map[string]any) (any, error) {
	switch v := value.(type) {
	case string:
		out, err := e.Resolve(v, env)
		if err != nil {
			return nil, fmt.Errorf("expression %q: %w", v, err)
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			resolved, err := e.resolveValue(item, env)
			if err != nil {
				return nil, err
			}
			out[k] = resolved
		}
		return out, nil
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			resolved, err := e.resolveValue(item, env)
			if err != nil {
				return nil, err
			}
			out[i] = resolved
		}
		return out, nil
	default:
		return value, nil
	}
}
