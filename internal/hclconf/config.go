package hclconf

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/specialistvlad/apiflow/internal/config"
	"github.com/specialistvlad/apiflow/internal/ctxlog"
)

// configRoot is the top level of an apiflow.hcl file. Every block is
// optional and missing values keep their defaults. Unknown blocks are errors.
type configRoot struct {
	API       *apiBlock       `hcl:"api,block"`
	Realtime  *realtimeBlock  `hcl:"realtime,block"`
	Editor    *editorBlock    `hcl:"editor,block"`
	Execution *executionBlock `hcl:"execution,block"`
	Log       *logBlock       `hcl:"log,block"`
	Inspect   *inspectBlock   `hcl:"inspect,block"`
}

type apiBlock struct {
	URL     *string `hcl:"url,optional"`
	Token   *string `hcl:"token,optional"`
	Timeout *string `hcl:"timeout,optional"`
}

type realtimeBlock struct {
	URL                *string `hcl:"url,optional"`
	Namespace          *string `hcl:"namespace,optional"`
	InsecureSkipVerify *bool   `hcl:"insecure_skip_verify,optional"`
	ConnectTimeout     *string `hcl:"connect_timeout,optional"`
}

type editorBlock struct {
	HistoryLimit *int `hcl:"history_limit,optional"`
}

type executionBlock struct {
	Timeout *string `hcl:"timeout,optional"`
}

type logBlock struct {
	Level  *string `hcl:"level,optional"`
	Format *string `hcl:"format,optional"`
}

type inspectBlock struct {
	Port *int `hcl:"port,optional"`
}

// LoadConfig reads the configuration file at path on top of the defaults.
// An empty path or a missing file yields the defaults. The result is not
// validated; callers apply overrides first.
func LoadConfig(ctx context.Context, path string) (*config.Config, error) {
	logger := ctxlog.FromContext(ctx)
	cfg := config.Default()
	if path == "" {
		logger.Debug("No config file given, using defaults.")
		return cfg, nil
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			logger.Debug("Config file not found, using defaults.", "path", path)
			return cfg, nil
		}
		return nil, fmt.Errorf("error accessing path %s: %w", path, err)
	}

	file, err := parseFile(hclparse.NewParser(), path)
	if err != nil {
		return nil, err
	}
	if err := applyConfig(cfg, file, defaultEvalContext()); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	logger.Debug("Config file loaded.", "path", path)
	return cfg, nil
}

// ParseConfig decodes configuration from in-memory HCL source.
func ParseConfig(src []byte, name string, environ []string) (*config.Config, error) {
	file, err := parseSource(hclparse.NewParser(), src, name)
	if err != nil {
		return nil, err
	}
	cfg := config.Default()
	if err := applyConfig(cfg, file, evalContext(environ)); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyConfig(cfg *config.Config, file *hcl.File, evalCtx *hcl.EvalContext) error {
	var root configRoot
	if diags := gohcl.DecodeBody(file.Body, evalCtx, &root); diags.HasErrors() {
		return fmt.Errorf("failed to decode config: %w", diags)
	}
	var err error
	if b := root.API; b != nil {
		setString(&cfg.API.URL, b.URL)
		setString(&cfg.API.Token, b.Token)
		if err = setDuration(&cfg.API.Timeout, b.Timeout, "api.timeout"); err != nil {
			return err
		}
	}
	if b := root.Realtime; b != nil {
		setString(&cfg.Realtime.URL, b.URL)
		setString(&cfg.Realtime.Namespace, b.Namespace)
		if b.InsecureSkipVerify != nil {
			cfg.Realtime.InsecureSkipVerify = *b.InsecureSkipVerify
		}
		if err = setDuration(&cfg.Realtime.ConnectTimeout, b.ConnectTimeout, "realtime.connect_timeout"); err != nil {
			return err
		}
	}
	if b := root.Editor; b != nil && b.HistoryLimit != nil {
		cfg.Editor.HistoryLimit = *b.HistoryLimit
	}
	if b := root.Execution; b != nil {
		if err = setDuration(&cfg.Execution.Timeout, b.Timeout, "execution.timeout"); err != nil {
			return err
		}
	}
	if b := root.Log; b != nil {
		setString(&cfg.Log.Level, b.Level)
		setString(&cfg.Log.Format, b.Format)
	}
	if b := root.Inspect; b != nil && b.Port != nil {
		cfg.Inspect.Port = *b.Port
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *string, name string) error {
	if v == nil {
		return nil
	}
	d, err := time.ParseDuration(*v)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", name, err)
	}
	*dst = d
	return nil
}
