package operation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sflowg/dingtalk/plugins/dingtalk/credentials"
	"github.com/sflowg/dingtalk/plugins/dingtalk/transport"
	"github.com/sflowg/dingtalk/runtime"
	"github.com/sflowg/dingtalk/runtime/credstore"
)

func def(value, name string, props ...runtime.NodeProperty) Def {
	return Def{Value: value, Name: name, Properties: props}
}

func TestNewBundle_SortsAndGates(t *testing.T) {
	get := def("user.get", "Get user", runtime.NodeProperty{
		Name:           "userid",
		DisplayOptions: runtime.ShowOnly("operation", "user.get"),
	})
	search := def("user.search", "Search users", runtime.NodeProperty{Name: "queryWord"})
	byMobile := def("user.getByMobile", "Get user by mobile", runtime.NodeProperty{Name: "mobile"})

	b, err := NewBundle("user", "用户管理", search, get, byMobile)
	require.NoError(t, err)

	var values []string
	for _, op := range b.Operations {
		values = append(values, op.Value)
	}
	assert.Equal(t, []string{"user.get", "user.getByMobile", "user.search"}, values)

	assert.Equal(t, "operation", b.OperationProperty.Name)
	assert.Equal(t, []any{"user"}, b.OperationProperty.DisplayOptions.Show["resource"])
	require.Len(t, b.OperationProperty.Options, 3)
	assert.Equal(t, "Get user", b.OperationProperty.Options[0].Action)

	require.Len(t, b.Properties, 3)
	for _, p := range b.Properties {
		assert.Equal(t, []any{"user"}, p.DisplayOptions.Show["resource"], p.Name)
	}
	assert.Equal(t, []any{"user.get"}, b.Properties[0].DisplayOptions.Show["operation"])

	// the op's own property must not be mutated
	assert.Nil(t, get.Properties[0].DisplayOptions.Show["resource"])
}

func TestNewBundle_Duplicates(t *testing.T) {
	_, err := NewBundle("user", "用户", def("user.get", "a"), def("user.get", "b"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "user.get x2")
}

func TestAttachResourceShow_KeepsExistingResources(t *testing.T) {
	props := attachResourceShow([]runtime.NodeProperty{{
		Name:           "x",
		DisplayOptions: runtime.ShowOnly("resource", "doc").With("operation", "a"),
	}}, "workbooks")

	assert.Equal(t, []any{"doc", "workbooks"}, props[0].DisplayOptions.Show["resource"])
	assert.Equal(t, []any{"a"}, props[0].DisplayOptions.Show["operation"])
}

func TestRegistry(t *testing.T) {
	user := MustBundle("user", "用户", def("user.get", "查询"))
	auth := MustBundle("auth", "授权", def("auth.token.get", "获取"))

	r, err := NewRegistry(user, auth)
	require.NoError(t, err)

	assert.Equal(t, "auth", r.Bundles()[0].Value)
	op, ok := r.Lookup("user.get")
	assert.True(t, ok)
	assert.Equal(t, "user.get", op.Value)
	_, ok = r.Lookup("nope")
	assert.False(t, ok)

	props := r.Properties()
	require.GreaterOrEqual(t, len(props), 3)
	assert.Equal(t, "resource", props[0].Name)
	assert.Len(t, props[0].Options, 2)
	assert.Equal(t, "operation", props[1].Name)
	assert.Equal(t, "operation", props[2].Name)

	_, err = NewRegistry(user, MustBundle("user", "again"))
	assert.ErrorContains(t, err, "duplicate resource detected: user")
}

func TestSplitCommaSeparated(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"a,b", []string{"a", "b"}},
		{" a ，b\nc ,, ", []string{"a", "b", "c"}},
		{"", []string{}},
		{"single", []string{"single"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SplitCommaSeparated(tt.in), tt.in)
	}
}

func TestParseJSONBody(t *testing.T) {
	obj, err := ParseJSONBody("dingtalkNode", `{"records":[{"fields":{"a":1}}]}`, 0)
	require.NoError(t, err)
	assert.Contains(t, obj, "records")

	obj, err = ParseJSONBody("dingtalkNode", map[string]any{"a": 1}, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, obj["a"])

	for _, raw := range []any{`{"a":`, `[1,2]`, `"str"`, 42, nil} {
		_, err := ParseJSONBody("dingtalkNode", raw, 2)
		var opErr *runtime.OperationError
		require.True(t, errors.As(err, &opErr), "%v", raw)
		assert.Equal(t, 2, opErr.ItemIndex)
	}
}

func newTestContext(t *testing.T, params map[string]any, items []runtime.Item, node *runtime.NodeDescription) *Context {
	t.Helper()
	store := credstore.NewMemory()
	require.NoError(t, store.Set(context.Background(), credentials.APIName, runtime.Credentials{
		"accessToken": "tok",
		"userUnionId": "union-from-creds",
	}))
	container := runtime.NewContainer(nil, store, nil)
	exec := runtime.NewExecution(context.Background(), container, node, params, items)
	return NewContext(exec, transport.New("", ""))
}

func TestBodyData(t *testing.T) {
	show := runtime.ShowOnly("operation", "x")
	opts := BodyOptions{
		FieldProperties: []runtime.NodeProperty{{Name: "name", Type: runtime.PropertyString, Default: ""}},
		Fields: func(c *Context, i int) (map[string]any, error) {
			name, err := c.StringParameter("name", i)
			return map[string]any{"name": name}, err
		},
	}
	node := &runtime.NodeDescription{Properties: BodyProps(show, opts)}

	c := newTestContext(t, map[string]any{"operation": "x", "name": "Sheet1"}, nil, node)
	body, err := BodyData(c, 0, opts)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "Sheet1"}, body)

	c = newTestContext(t, map[string]any{"operation": "x", "sendBody": "json", "jsonBody": `{"name":"J"}`}, nil, node)
	body, err = BodyData(c, 0, opts)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "J"}, body)

	c = newTestContext(t, map[string]any{"operation": "x", "sendBody": "json", "jsonBody": `not json`}, nil, node)
	_, err = BodyData(c, 0, opts)
	assert.ErrorContains(t, err, "request body is not valid JSON")
}

func TestBodyProps_Gating(t *testing.T) {
	props := BodyProps(runtime.ShowOnly("operation", "x"), BodyOptions{
		FieldProperties: []runtime.NodeProperty{{Name: "name"}},
	})
	require.Len(t, props, 3)
	assert.Equal(t, "sendBody", props[0].Name)
	assert.Equal(t, []any{"json"}, props[1].DisplayOptions.Show["sendBody"])
	assert.Equal(t, []any{"fields"}, props[2].DisplayOptions.Show["sendBody"])
	assert.Equal(t, []any{"x"}, props[2].DisplayOptions.Show["operation"])

	hidden := BodyProps(runtime.ShowOnly("operation", "y"), BodyOptions{HideModeSelector: true})
	require.Len(t, hidden, 1)
	assert.Equal(t, "jsonBody", hidden[0].Name)
	assert.Nil(t, hidden[0].DisplayOptions.Show["sendBody"])
}

func TestOperatorID(t *testing.T) {
	node := &runtime.NodeDescription{Properties: OperatorProps(runtime.ShowOnly("operation", "x"))}

	c := newTestContext(t, map[string]any{"operation": "x"}, nil, node)
	id, err := OperatorID(c, 0)
	require.NoError(t, err)
	assert.Equal(t, "union-from-creds", id)

	c = newTestContext(t, map[string]any{"operation": "x", "overrideOperator": true, "operatorId": "manual"}, nil, node)
	id, err = OperatorID(c, 0)
	require.NoError(t, err)
	assert.Equal(t, "manual", id)
}

func TestMappedValues(t *testing.T) {
	items := []runtime.Item{{JSON: map[string]any{"name": "n", "age": 3, "extra": true}}}

	c := newTestContext(t, map[string]any{"columns": map[string]any{
		"mappingMode": "defineBelow",
		"value":       map[string]any{"name": "={{ json.name }}-x"},
	}}, items, nil)
	got, err := MappedValues(c, 0, "columns")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "n-x"}, got)

	c = newTestContext(t, map[string]any{"columns": map[string]any{
		"mappingMode":     "autoMapInputData",
		"matchingColumns": []any{"name", "age", "missing"},
	}}, items, nil)
	got, err = MappedValues(c, 0, "columns")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "n", "age": 3}, got)

	c = newTestContext(t, map[string]any{"columns": map[string]any{"mappingMode": "autoMapInputData"}}, items, nil)
	got, err = MappedValues(c, 0, "columns")
	require.NoError(t, err)
	assert.Len(t, got, 3)
}
