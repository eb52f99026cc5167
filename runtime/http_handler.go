package runtime

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ExecuteRequest is the body of POST /nodes/:name/execute.
type ExecuteRequest struct {
	Parameters     map[string]any   `json:"parameters"`
	Items          []map[string]any `json:"items"`
	ContinueOnFail bool             `json:"continueOnFail"`
}

// TaskRequest is the body of POST /tasks/:name. Node selects the description
// the task resolves parameters against.
type TaskRequest struct {
	Node       string         `json:"node"`
	Parameters map[string]any `json:"parameters"`
	Args       map[string]any `json:"args"`
}

// NewHTTPHandler exposes the container's nodes, credential types and tasks on g.
func NewHTTPHandler(container *Container, g gin.IRoutes) {
	g.GET("/nodes", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"nodes": container.Descriptions()})
	})
	g.GET("/credentials", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"credentials": credentialTypeViews(container)})
	})
	g.POST("/nodes/:name/execute", handleExecute(container))
	g.POST("/tasks/:name", handleTask(container))
}

var wrongBodyFormatRes = gin.H{"message": "Wrong request body format"}

func handleExecute(container *Container) gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.Param("name")
		node, ok := container.Node(name)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"message": "Unknown node: " + name})
			return
		}

		var req ExecuteRequest
		if !extractJSONBody(c, &req) {
			return
		}

		desc := node.Description()
		exec := NewExecution(c.Request.Context(), container, &desc, req.Parameters, JSONItems(req.Items...),
			WithContinueOnFail(req.ContinueOnFail))

		items, err := node.Execute(exec)
		if err != nil {
			slog.Error("Node execution failed",
				"node", name,
				"execution_id", exec.ID,
				"path", c.Request.URL.Path,
				"error", err.Error())
			toErrorResponse(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"items": items})
	}
}

func handleTask(container *Container) gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.Param("name")
		task := container.GetTask(name)
		if task == nil {
			c.JSON(http.StatusNotFound, gin.H{"message": "Unknown task: " + name})
			return
		}

		var req TaskRequest
		if !extractJSONBody(c, &req) {
			return
		}

		var desc *NodeDescription
		if node, ok := container.Node(req.Node); ok {
			d := node.Description()
			desc = &d
		}
		exec := NewExecution(c.Request.Context(), container, desc, req.Parameters, nil)

		result, err := task.Execute(exec, req.Args)
		if err != nil {
			slog.Error("Task execution failed",
				"task", name,
				"execution_id", exec.ID,
				"error", err.Error())
			toErrorResponse(c, err)
			return
		}

		c.JSON(http.StatusOK, result)
	}
}

// extractJSONBody decodes the request body into v. An empty body leaves v
// untouched. It writes the 400 response itself and reports false on failure.
func extractJSONBody(c *gin.Context, v any) bool {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, wrongBodyFormatRes)
		return false
	}
	if len(body) == 0 {
		return true
	}
	if err := json.Unmarshal(body, v); err != nil {
		c.JSON(http.StatusBadRequest, wrongBodyFormatRes)
		return false
	}
	return true
}

func toErrorResponse(c *gin.Context, err error) {
	var opErr *OperationError
	if errors.As(err, &opErr) {
		res := gin.H{"message": opErr.Message}
		if opErr.Description != "" {
			res["description"] = opErr.Description
		}
		if opErr.ItemIndex >= 0 {
			res["itemIndex"] = opErr.ItemIndex
		}
		var httpErr *HTTPError
		if errors.As(err, &httpErr) {
			res["httpCode"] = httpErr.StatusCode
		}
		c.JSON(http.StatusUnprocessableEntity, res)
		return
	}

	c.JSON(http.StatusInternalServerError, gin.H{
		"message": "Error in node execution: " + err.Error(),
	})
}

type credentialTypeView struct {
	Name        string               `json:"name"`
	DisplayName string               `json:"displayName"`
	Properties  []CredentialProperty `json:"properties"`
}

func credentialTypeViews(container *Container) []credentialTypeView {
	types := container.CredentialTypes()
	out := make([]credentialTypeView, 0, len(types))
	for _, ct := range types {
		out = append(out, credentialTypeView{
			Name:        ct.Name(),
			DisplayName: ct.DisplayName(),
			Properties:  ct.Properties(),
		})
	}
	return out
}
