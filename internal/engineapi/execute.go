package engineapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/specialistvlad/apiflow/internal/workflow"
)

type (
	// StartRequest launches a run of Workflow with Input as the request.
	StartRequest struct {
		Workflow *workflow.Workflow `json:"workflow"`
		Input    map[string]any     `json:"input"`
	}

	// StartResponse carries the correlation id of a launched run. Body is
	// the decoded response document.
	StartResponse struct {
		ExecutionID string
		Body        any
	}
)

// RunPath is the engine route that executes doc.
func RunPath(doc *workflow.Workflow) (string, error) {
	path := strings.Trim(doc.Path, "/")
	if doc.Project == "" || doc.Tenant == "" || path == "" {
		return "", ErrIncompleteRoute
	}
	return fmt.Sprintf("/api/realtime/%s/%s/%s/execute",
		segment(doc.Project), segment(doc.Tenant), path), nil
}

// StartExecution posts the workflow and test input to the engine.
func (c *Client) StartExecution(
	ctx context.Context, req StartRequest,
) (StartResponse, error) {
	if req.Workflow == nil {
		return StartResponse{}, fmt.Errorf("%w: no workflow", ErrStartExecution)
	}
	path, err := RunPath(req.Workflow)
	if err != nil {
		return StartResponse{}, fmt.Errorf("%w: %w", ErrStartExecution, err)
	}
	if req.Input == nil {
		req.Input = map[string]any{}
	}

	data, err := c.do(ctx, ErrStartExecution, http.MethodPost, path, req)
	if err != nil {
		return StartResponse{}, err
	}

	res := StartResponse{ExecutionID: gjson.GetBytes(data, "executionId").String()}
	if gjson.ValidBytes(data) {
		res.Body = gjson.ParseBytes(data).Value()
	} else if len(data) > 0 {
		res.Body = string(data)
	}
	return res, nil
}
