package engineapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/specialistvlad/apiflow/internal/workflow"
)

type (
	// CreateWorkflowRequest is the body of a workflow creation.
	CreateWorkflowRequest struct {
		Name        string          `json:"name"`
		Description string          `json:"description"`
		Method      string          `json:"method"`
		Path        string          `json:"path"`
		Nodes       []workflow.Node `json:"nodes"`
		Edges       []workflow.Edge `json:"edges"`
	}

	// UpdateWorkflowRequest is a partial update; nil fields are left alone.
	UpdateWorkflowRequest struct {
		Name        *string          `json:"name,omitempty"`
		Description *string          `json:"description,omitempty"`
		Method      *string          `json:"method,omitempty"`
		Path        *string          `json:"path,omitempty"`
		Nodes       *[]workflow.Node `json:"nodes,omitempty"`
		Edges       *[]workflow.Edge `json:"edges,omitempty"`
	}
)

const (
	routeProjectWorkflows = "/api/projects/%s/workflows"
	routeProjectWorkflow  = "/api/projects/%s/workflows/%s"
	routeWorkflow         = "/api/workflows/%s"
	routeToggle           = "/api/workflows/%s/toggle-deployment"
)

// ListWorkflows returns every workflow of a project.
func (c *Client) ListWorkflows(
	ctx context.Context, projectID string,
) ([]workflow.Workflow, error) {
	data, err := c.do(ctx, ErrListWorkflows, http.MethodGet,
		fmt.Sprintf(routeProjectWorkflows, segment(projectID)), nil)
	if err != nil {
		return nil, err
	}
	var out []workflow.Workflow
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrListWorkflows, err)
	}
	return out, nil
}

// GetWorkflow finds one workflow of a project. The engine has no single
// workflow route, so the project listing is searched.
func (c *Client) GetWorkflow(
	ctx context.Context, projectID, workflowID string,
) (*workflow.Workflow, error) {
	all, err := c.ListWorkflows(ctx, projectID)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].ID == workflowID {
			return &all[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrWorkflowNotFound, workflowID)
}

// CreateWorkflow stores a new workflow in a project.
func (c *Client) CreateWorkflow(
	ctx context.Context, projectID string, req CreateWorkflowRequest,
) (*workflow.Workflow, error) {
	data, err := c.do(ctx, ErrCreateWorkflow, http.MethodPost,
		fmt.Sprintf(routeProjectWorkflows, segment(projectID)), req)
	if err != nil {
		return nil, err
	}
	return decodeWorkflow(ErrCreateWorkflow, data)
}

// UpdateWorkflow applies a partial update.
func (c *Client) UpdateWorkflow(
	ctx context.Context, workflowID string, req UpdateWorkflowRequest,
) (*workflow.Workflow, error) {
	data, err := c.do(ctx, ErrUpdateWorkflow, http.MethodPut,
		fmt.Sprintf(routeWorkflow, segment(workflowID)), req)
	if err != nil {
		return nil, err
	}
	return decodeWorkflow(ErrUpdateWorkflow, data)
}

// DeleteWorkflow removes a workflow from a project.
func (c *Client) DeleteWorkflow(
	ctx context.Context, projectID, workflowID string,
) error {
	_, err := c.do(ctx, ErrDeleteWorkflow, http.MethodDelete,
		fmt.Sprintf(routeProjectWorkflow, segment(projectID), segment(workflowID)), nil)
	return err
}

// ToggleDeployment flips the deployed flag and returns the new document.
func (c *Client) ToggleDeployment(
	ctx context.Context, workflowID string,
) (*workflow.Workflow, error) {
	data, err := c.do(ctx, ErrToggleDeployment, http.MethodPost,
		fmt.Sprintf(routeToggle, segment(workflowID)), nil)
	if err != nil {
		return nil, err
	}
	return decodeWorkflow(ErrToggleDeployment, data)
}

// SaveWorkflow creates doc when it has no id yet and updates it otherwise.
func (c *Client) SaveWorkflow(
	ctx context.Context, doc *workflow.Workflow,
) (*workflow.Workflow, error) {
	if doc.ID == "" {
		return c.CreateWorkflow(ctx, doc.Project, CreateWorkflowRequest{
			Name:        doc.Name,
			Description: doc.Description,
			Method:      doc.Method,
			Path:        doc.Path,
			Nodes:       doc.Nodes,
			Edges:       doc.Edges,
		})
	}
	nodes, edges := doc.Nodes, doc.Edges
	if nodes == nil {
		nodes = []workflow.Node{}
	}
	if edges == nil {
		edges = []workflow.Edge{}
	}
	return c.UpdateWorkflow(ctx, doc.ID, UpdateWorkflowRequest{
		Name:        &doc.Name,
		Description: &doc.Description,
		Method:      &doc.Method,
		Path:        &doc.Path,
		Nodes:       &nodes,
		Edges:       &edges,
	})
}

func decodeWorkflow(kind error, data []byte) (*workflow.Workflow, error) {
	var out workflow.Workflow
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("%w: %w", kind, err)
	}
	return &out, nil
}
