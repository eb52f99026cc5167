package todo

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sflowg/dingtalk/plugins/dingtalk/operation/operationtest"
)

func TestTasksQuery(t *testing.T) {
	tests := []struct {
		name     string
		params   map[string]any
		wantPath string
		wantBody map[string]any
	}{
		{
			name:     "defaults send an empty filter",
			params:   map[string]any{},
			wantPath: "/v1.0/todo/users/" + operationtest.UnionID + "/org/tasks/query",
			wantBody: map[string]any{},
		},
		{
			name: "all filters",
			params: map[string]any{
				"nextToken": "n1", "isDone": false, "todoType": "READ",
				"roleTypes": `[["executor","creator"],["participant"]]`,
			},
			wantPath: "/v1.0/todo/users/" + operationtest.UnionID + "/org/tasks/query",
			wantBody: map[string]any{
				"nextToken": "n1", "isDone": false, "todoType": "READ",
				"roleTypes": []any{[]any{"executor", "creator"}, []any{"participant"}},
			},
		},
		{
			name:     "override operator",
			params:   map[string]any{"overrideOperator": true, "operatorId": "other", "isDone": true},
			wantPath: "/v1.0/todo/users/other/org/tasks/query",
			wantBody: map[string]any{"isDone": true},
		},
		{
			name:     "json body",
			params:   map[string]any{"sendBody": "json", "jsonBody": `{"todoType":"TODO"}`},
			wantPath: "/v1.0/todo/users/" + operationtest.UnionID + "/org/tasks/query",
			wantBody: map[string]any{"todoType": "TODO"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rec operationtest.Recorder
			env := operationtest.New(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				rec.Record(r)
				operationtest.JSON(w, http.StatusOK, map[string]any{"todoCards": []any{}, "nextToken": nil})
			}), Bundle())

			params := map[string]any{"resource": "todo", "operation": opTasksQuery}
			for k, v := range tt.params {
				params[k] = v
			}
			item, err := env.Run(t, tasksQuery, params)
			require.NoError(t, err)

			assert.Equal(t, http.MethodPost, rec.Method)
			assert.Equal(t, tt.wantPath, rec.Path)
			assert.Equal(t, tt.wantBody, rec.Body)
			assert.Contains(t, item.JSON, "todoCards")
		})
	}
}

func TestTasksQuery_InvalidRoleTypes(t *testing.T) {
	env := operationtest.New(t, http.NotFoundHandler(), Bundle())

	_, err := env.Run(t, tasksQuery, map[string]any{
		"resource": "todo", "operation": opTasksQuery, "roleTypes": `["executor"]`,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "roleTypes")
}
