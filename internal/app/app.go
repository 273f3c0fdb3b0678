package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/specialistvlad/apiflow/internal/config"
	"github.com/specialistvlad/apiflow/internal/ctxlog"
	"github.com/specialistvlad/apiflow/internal/editor"
	"github.com/specialistvlad/apiflow/internal/engineapi"
	"github.com/specialistvlad/apiflow/internal/execution"
	"github.com/specialistvlad/apiflow/internal/hclconf"
	"github.com/specialistvlad/apiflow/internal/realtime"
	"github.com/specialistvlad/apiflow/internal/workflow"
)

type (
	// Engine is the execution engine's HTTP surface. *engineapi.Client
	// satisfies it.
	Engine interface {
		execution.Starter
		editor.Persistence
		ListWorkflows(ctx context.Context, projectID string) ([]workflow.Workflow, error)
	}

	// Channel is a closable execution event channel.
	Channel interface {
		execution.Channel
		Close() error
	}

	// Dialer opens the event channel.
	Dialer func(ctx context.Context, opts realtime.Options) (Channel, error)

	// Deps override the collaborators App would otherwise build from
	// configuration.
	Deps struct {
		Engine Engine
		Dial   Dialer
	}

	// App encapsulates one invocation: its configuration, its collaborators
	// and the writers it reports to.
	App struct {
		outW     io.Writer
		logger   *slog.Logger
		config   *Config
		settings *config.Config
		deps     Deps
	}
)

var (
	_ Engine  = (*engineapi.Client)(nil)
	_ Channel = (*realtime.Client)(nil)
)

// NewApp loads the configuration file, applies the overrides and builds the
// collaborators. Results go to outW and logs to logW.
func NewApp(outW, logW io.Writer, appConfig *Config, deps Deps) (*App, error) {
	// Bootstrap logger for config loading, honoring the CLI level only.
	boot := newLogger(appConfig.Overrides.LogLevel, appConfig.Overrides.LogFormat, logW)
	settings, err := hclconf.LoadConfig(ctxlog.WithLogger(context.Background(), boot), appConfig.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	appConfig.Overrides.apply(settings)
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger := newLogger(settings.Log.Level, settings.Log.Format, logW)
	logger.Debug("Logger configured successfully.", "command", appConfig.Command)

	if deps.Engine == nil {
		deps.Engine = engineapi.NewClient(settings.API.URL, settings.API.Token, settings.API.Timeout)
	}
	if deps.Dial == nil {
		deps.Dial = func(ctx context.Context, opts realtime.Options) (Channel, error) {
			return realtime.Connect(ctx, opts)
		}
	}

	return &App{
		outW:     outW,
		logger:   logger,
		config:   appConfig,
		settings: settings,
		deps:     deps,
	}, nil
}

// Settings returns the effective configuration.
func (a *App) Settings() *config.Config {
	return a.settings
}

// Run executes the configured command.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.", "command", a.config.Command)
	defer a.logger.Debug("App.Run method finished.")

	switch a.config.Command {
	case CommandRun:
		return a.runWorkflow(ctx)
	case CommandValidate:
		return a.validateWorkflow(ctx)
	case CommandSave:
		return a.saveWorkflow(ctx)
	case CommandList:
		return a.listWorkflows(ctx)
	case CommandShortcuts:
		return a.printShortcuts()
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, a.config.Command)
	}
}

// openEditor loads the workflow file at path into a fresh editor.
func (a *App) openEditor(ctx context.Context, path string, runner editor.Runner) (*editor.Editor, error) {
	doc, err := hclconf.LoadWorkflow(ctx, path)
	if err != nil {
		return nil, err
	}
	ed := editor.New(editor.Options{
		HistoryLimit: a.settings.Editor.HistoryLimit,
		Persistence:  a.deps.Engine,
		Runner:       runner,
	})
	// Load logs each repair itself.
	if _, err := ed.Load(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to load workflow: %w", err)
	}
	return ed, nil
}
