package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/specialistvlad/apiflow/internal/editor"
	"github.com/specialistvlad/apiflow/internal/execution"
	"github.com/specialistvlad/apiflow/internal/fsutil"
	"github.com/specialistvlad/apiflow/internal/inspect"
	"github.com/specialistvlad/apiflow/internal/realtime"
)

var ErrInvalidWorkflow = errors.New("workflow has unresolved references")

func (a *App) runWorkflow(ctx context.Context) error {
	input, err := a.loadInput()
	if err != nil {
		return err
	}

	channel, err := a.deps.Dial(ctx, realtime.Options{
		URL:                a.settings.RealtimeURL(),
		Namespace:          a.settings.Realtime.Namespace,
		InsecureSkipVerify: a.settings.Realtime.InsecureSkipVerify,
		ConnectTimeout:     a.settings.Realtime.ConnectTimeout,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to realtime channel: %w", err)
	}
	defer func() {
		if err := channel.Close(); err != nil {
			a.logger.Warn("Failed to close realtime channel.", "error", err)
		}
	}()

	orch := execution.NewOrchestrator(a.deps.Engine, channel, execution.Options{
		Timeout: a.settings.Execution.Timeout,
	})
	defer orch.Close()
	stop := orch.Watch(func(s execution.Session) {
		a.logger.Debug("Session updated.", "phase", s.Phase, "execution_id", s.ExecutionID)
	})
	defer stop()

	ed, err := a.openEditor(ctx, a.config.WorkflowPath, orch)
	if err != nil {
		return err
	}
	if err := ed.ValidateReferences(); err != nil {
		a.logger.Warn("Workflow references unknown nodes.", "error", err)
	}

	if a.settings.Inspect.Port > 0 {
		srv := inspect.NewServer(ctx, orch, ed)
		if err := srv.Start(fmt.Sprintf(":%d", a.settings.Inspect.Port)); err != nil {
			return err
		}
		defer func() { _ = srv.Shutdown(context.WithoutCancel(ctx)) }()
	}

	a.logger.Info("🚀 Starting execution...")
	session, runErr := ed.Run(ctx, input)
	if err := a.writeJSON(inspect.NewSessionView(session)); err != nil {
		return err
	}
	if runErr != nil {
		return fmt.Errorf("execution failed: %w", runErr)
	}
	a.logger.Info("🏁 Execution finished.", "phase", session.Phase, "execution_id", session.ExecutionID)
	return nil
}

// validateWorkflow checks one document, or every document below a
// directory. All files are checked before the errors are reported.
func (a *App) validateWorkflow(ctx context.Context) error {
	files, err := fsutil.FindFiles(a.config.WorkflowPath, ".hcl", ".json")
	if err != nil {
		return err
	}
	var errs []error
	for _, path := range files {
		if err := a.validateFile(ctx, path); err != nil {
			a.logger.Error("Workflow is invalid.", "path", path, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
		}
	}
	return errors.Join(errs...)
}

func (a *App) validateFile(ctx context.Context, path string) error {
	ed, err := a.openEditor(ctx, path, nil)
	if err != nil {
		return err
	}
	if err := ed.ValidateReferences(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidWorkflow, err)
	}
	doc := ed.Document()
	_, err = fmt.Fprintf(a.outW, "workflow %q is valid: %d nodes, %d edges\n", doc.Name, len(doc.Nodes), len(doc.Edges))
	return err
}

func (a *App) saveWorkflow(ctx context.Context) error {
	ed, err := a.openEditor(ctx, a.config.WorkflowPath, nil)
	if err != nil {
		return err
	}
	if err := ed.Save(ctx); err != nil {
		return err
	}
	_, err = fmt.Fprintf(a.outW, "saved workflow %s\n", ed.Document().ID)
	return err
}

func (a *App) listWorkflows(ctx context.Context) error {
	all, err := a.deps.Engine.ListWorkflows(ctx, a.config.ProjectID)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(a.outW, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tMETHOD\tPATH\tDEPLOYED")
	for _, w := range all {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\n", w.ID, w.Name, w.Method, w.Path, w.IsDeployed)
	}
	return tw.Flush()
}

func (a *App) printShortcuts() error {
	tw := tabwriter.NewWriter(a.outW, 0, 4, 2, ' ', 0)
	for _, s := range editor.Shortcuts() {
		fmt.Fprintf(tw, "%s\t%s\n", s.Keys, s.Action)
	}
	return tw.Flush()
}

func (a *App) loadInput() (map[string]any, error) {
	if a.config.InputPath == "" {
		return map[string]any{}, nil
	}
	raw, err := os.ReadFile(a.config.InputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	var input map[string]any
	if err := json.Unmarshal(raw, &input); err != nil {
		return nil, fmt.Errorf("failed to decode input %s: %w", a.config.InputPath, err)
	}
	return input, nil
}

func (a *App) writeJSON(v any) error {
	enc := json.NewEncoder(a.outW)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
