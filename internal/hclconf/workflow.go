package hclconf

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/specialistvlad/apiflow/internal/ctxlog"
	"github.com/specialistvlad/apiflow/internal/workflow"
)

var (
	ErrNoWorkflow        = errors.New("file declares no workflow block")
	ErrMultipleWorkflows = errors.New("file declares more than one workflow block")
)

// workflowRoot is the top level of a workflow file.
type workflowRoot struct {
	Workflows []*workflowBlock `hcl:"workflow,block"`
}

type workflowBlock struct {
	ID          string       `hcl:"id,label"`
	Name        string       `hcl:"name"`
	Method      *string      `hcl:"method,optional"`
	Path        *string      `hcl:"path,optional"`
	Project     *string      `hcl:"project,optional"`
	Tenant      *string      `hcl:"tenant,optional"`
	Description *string      `hcl:"description,optional"`
	Deployed    *bool        `hcl:"deployed,optional"`
	Nodes       []*nodeBlock `hcl:"node,block"`
	Edges       []*edgeBlock `hcl:"edge,block"`
}

type nodeBlock struct {
	Type     string    `hcl:"type,label"`
	ID       string    `hcl:"id,label"`
	Position []float64 `hcl:"position,optional"`
	Data     cty.Value `hcl:"data,optional"`
}

type edgeBlock struct {
	ID           *string `hcl:"id,optional"`
	Source       string  `hcl:"source"`
	Target       string  `hcl:"target"`
	SourceHandle *string `hcl:"source_handle,optional"`
	TargetHandle *string `hcl:"target_handle,optional"`
}

// LoadWorkflow reads a workflow document. Files ending in .json are decoded
// as the engine's persisted JSON; anything else is parsed as HCL.
func LoadWorkflow(ctx context.Context, path string) (*workflow.Workflow, error) {
	logger := ctxlog.FromContext(ctx).With("path", path)
	if strings.EqualFold(filepath.Ext(path), ".json") {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read workflow %s: %w", path, err)
		}
		var doc workflow.Workflow
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("failed to decode workflow %s: %w", path, err)
		}
		logger.Debug("Workflow loaded.", "format", "json", "nodes", len(doc.Nodes))
		return &doc, nil
	}

	file, err := parseFile(hclparse.NewParser(), path)
	if err != nil {
		return nil, err
	}
	doc, err := decodeWorkflow(file, defaultEvalContext())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	logger.Debug("Workflow loaded.", "format", "hcl", "nodes", len(doc.Nodes))
	return doc, nil
}

// ParseWorkflow decodes an HCL workflow from in-memory source.
func ParseWorkflow(src []byte, name string, environ []string) (*workflow.Workflow, error) {
	file, err := parseSource(hclparse.NewParser(), src, name)
	if err != nil {
		return nil, err
	}
	return decodeWorkflow(file, evalContext(environ))
}

func decodeWorkflow(file *hcl.File, evalCtx *hcl.EvalContext) (*workflow.Workflow, error) {
	var root workflowRoot
	if diags := gohcl.DecodeBody(file.Body, evalCtx, &root); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode workflow: %w", diags)
	}
	switch len(root.Workflows) {
	case 0:
		return nil, ErrNoWorkflow
	case 1:
	default:
		return nil, ErrMultipleWorkflows
	}
	return translateWorkflow(root.Workflows[0])
}

func translateWorkflow(b *workflowBlock) (*workflow.Workflow, error) {
	doc := &workflow.Workflow{
		ID:     b.ID,
		Name:   b.Name,
		Method: "POST",
		Nodes:  make([]workflow.Node, 0, len(b.Nodes)),
		Edges:  make([]workflow.Edge, 0, len(b.Edges)),
	}
	setString(&doc.Method, b.Method)
	setString(&doc.Path, b.Path)
	setString(&doc.Project, b.Project)
	setString(&doc.Tenant, b.Tenant)
	setString(&doc.Description, b.Description)
	if b.Deployed != nil {
		doc.IsDeployed = *b.Deployed
	}

	for _, nb := range b.Nodes {
		node, err := translateNode(nb)
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", nb.ID, err)
		}
		doc.Nodes = append(doc.Nodes, node)
	}
	for _, eb := range b.Edges {
		edge := workflow.Edge{Source: eb.Source, Target: eb.Target}
		setString(&edge.SourceHandle, eb.SourceHandle)
		setString(&edge.TargetHandle, eb.TargetHandle)
		setString(&edge.ID, eb.ID)
		if edge.ID == "" {
			edge.ID = workflow.EdgeID(edge.Source, edge.SourceHandle, edge.Target)
		}
		doc.Edges = append(doc.Edges, edge)
	}
	return doc, nil
}

func translateNode(b *nodeBlock) (workflow.Node, error) {
	t := workflow.NodeType(b.Type)
	if !t.Known() {
		return workflow.Node{}, fmt.Errorf("unknown node type %q", b.Type)
	}

	var pos workflow.Position
	switch len(b.Position) {
	case 0:
	case 2:
		pos = workflow.Position{X: b.Position[0], Y: b.Position[1]}
	default:
		return workflow.Node{}, fmt.Errorf("position must have two elements, got %d", len(b.Position))
	}

	// Authored data is laid over the palette defaults.
	data, err := workflow.DefaultData(t)
	if err != nil {
		return workflow.Node{}, err
	}
	if b.Data != cty.NilVal && !b.Data.IsNull() {
		if !b.Data.Type().IsObjectType() && !b.Data.Type().IsMapType() {
			return workflow.Node{}, fmt.Errorf("data must be an object, got %s", b.Data.Type().FriendlyName())
		}
		raw, err := ctyValueToInterface(b.Data)
		if err != nil {
			return workflow.Node{}, fmt.Errorf("data: %w", err)
		}
		data = data.Merge(raw.(map[string]any))
	}

	node := workflow.Node{ID: b.ID, Type: t, Position: pos, Data: data}
	if err := workflow.ValidateNode(node); err != nil {
		return workflow.Node{}, err
	}
	return node, nil
}
