package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/specialistvlad/apiflow/internal/config"
)

// Command selects what the App does.
type Command string

const (
	CommandRun       Command = "run"
	CommandValidate  Command = "validate"
	CommandSave      Command = "save"
	CommandList      Command = "list"
	CommandShortcuts Command = "shortcuts"
)

// Commands lists every command in help order.
var Commands = []Command{CommandRun, CommandValidate, CommandSave, CommandList, CommandShortcuts}

var (
	ErrUnknownCommand  = errors.New("unknown command")
	ErrMissingWorkflow = errors.New("a workflow file is required")
	ErrMissingProject  = errors.New("a project id is required")
)

// Config is one invocation of the App.
type Config struct {
	Command      Command
	ConfigPath   string // apiflow.hcl
	WorkflowPath string // .hcl or .json document
	InputPath    string // JSON request body for run
	ProjectID    string // list

	Overrides Overrides
}

// Overrides replace file configuration. Zero values leave it alone.
type Overrides struct {
	LogLevel    string
	LogFormat   string
	APIURL      string
	Token       string
	InspectPort *int
	Timeout     time.Duration
}

// NewConfig checks that cfg names everything its command needs.
func NewConfig(cfg Config) (*Config, error) {
	switch cfg.Command {
	case CommandRun, CommandValidate, CommandSave:
		if cfg.WorkflowPath == "" {
			return nil, fmt.Errorf("%s: %w", cfg.Command, ErrMissingWorkflow)
		}
	case CommandList:
		if cfg.ProjectID == "" {
			return nil, fmt.Errorf("%s: %w", cfg.Command, ErrMissingProject)
		}
	case CommandShortcuts:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, cfg.Command)
	}
	return &cfg, nil
}

// apply lays the overrides over the file configuration.
func (o Overrides) apply(c *config.Config) {
	if o.LogLevel != "" {
		c.Log.Level = o.LogLevel
	}
	if o.LogFormat != "" {
		c.Log.Format = o.LogFormat
	}
	if o.APIURL != "" {
		c.API.URL = o.APIURL
	}
	if o.Token != "" {
		c.API.Token = o.Token
	}
	if o.InspectPort != nil {
		c.Inspect.Port = *o.InspectPort
	}
	if o.Timeout != 0 {
		c.Execution.Timeout = o.Timeout
	}
}
