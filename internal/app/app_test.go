package app_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/apiflow/internal/app"
	"github.com/specialistvlad/apiflow/internal/config"
	"github.com/specialistvlad/apiflow/internal/engineapi"
	"github.com/specialistvlad/apiflow/internal/execution"
	"github.com/specialistvlad/apiflow/internal/inspect"
	"github.com/specialistvlad/apiflow/internal/realtime"
	"github.com/specialistvlad/apiflow/internal/testutil"
	"github.com/specialistvlad/apiflow/internal/workflow"
)

const loginWorkflow = `
workflow "wf-1" {
  name    = "Login"
  path    = "login"
  project = "acme"
  tenant  = "main"

  node "apiStart" "1" {
    position = [0, 0]
  }

  node "response" "2" {
    position = [0, 150]
    data = {
      label = "Reply"
      body  = "{{1.result.user}}"
    }
  }

  edge {
    source = "1"
    target = "2"
  }
}
`

type harness struct {
	engine  *testutil.FakeEngine
	channel *testutil.FakeChannel
	out     *bytes.Buffer
	logs    *testutil.SafeBuffer
	dialed  realtime.Options
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func setupApp(t *testing.T, cfg app.Config) (*app.App, *harness) {
	t.Helper()
	h := &harness{
		engine:  testutil.NewFakeEngine(),
		channel: testutil.NewFakeChannel(),
		out:     &bytes.Buffer{},
		logs:    &testutil.SafeBuffer{},
	}
	cfg.Overrides.LogLevel = "debug"
	appConfig, err := app.NewConfig(cfg)
	require.NoError(t, err)
	a, err := app.NewApp(h.out, h.logs, appConfig, app.Deps{
		Engine: h.engine,
		Dial: func(_ context.Context, opts realtime.Options) (app.Channel, error) {
			h.dialed = opts
			return h.channel, nil
		},
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if os.Getenv("APIFLOW_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), h.logs.String())
		}
	})
	return a, h
}

func TestNewConfig(t *testing.T) {
	testCases := []struct {
		name    string
		cfg     app.Config
		wantErr error
	}{
		{name: "run needs workflow", cfg: app.Config{Command: app.CommandRun}, wantErr: app.ErrMissingWorkflow},
		{name: "list needs project", cfg: app.Config{Command: app.CommandList}, wantErr: app.ErrMissingProject},
		{name: "unknown", cfg: app.Config{Command: "fly"}, wantErr: app.ErrUnknownCommand},
		{name: "shortcuts", cfg: app.Config{Command: app.CommandShortcuts}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := app.NewConfig(tc.cfg)
			if tc.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestNewApp_ConfigFileAndOverrides(t *testing.T) {
	// --- Arrange ---
	cfgPath := writeFile(t, "apiflow.hcl", `
api {
  url = "https://engine.example.com"
}
execution {
  timeout = "1m"
}
`)
	port := 0

	// --- Act ---
	a, _ := setupApp(t, app.Config{
		Command:    app.CommandShortcuts,
		ConfigPath: cfgPath,
		Overrides:  app.Overrides{Timeout: 30 * time.Second, InspectPort: &port, Token: "t"},
	})

	// --- Assert ---
	settings := a.Settings()
	assert.Equal(t, "https://engine.example.com", settings.API.URL)
	assert.Equal(t, "t", settings.API.Token)
	assert.Equal(t, 30*time.Second, settings.Execution.Timeout)
	assert.Equal(t, "debug", settings.Log.Level)
	assert.Equal(t, config.DefaultHistoryLimit, settings.Editor.HistoryLimit)
}

func TestNewApp_InvalidConfig(t *testing.T) {
	appConfig, err := app.NewConfig(app.Config{
		Command:   app.CommandShortcuts,
		Overrides: app.Overrides{LogFormat: "xml"},
	})
	require.NoError(t, err)

	_, err = app.NewApp(&bytes.Buffer{}, &bytes.Buffer{}, appConfig, app.Deps{})

	assert.ErrorIs(t, err, config.ErrInvalidLogFormat)
}

func TestRun_ExecutesWorkflow(t *testing.T) {
	// --- Arrange ---
	wfPath := writeFile(t, "login.hcl", loginWorkflow)
	inputPath := writeFile(t, "input.json", `{"user":"ada"}`)
	a, h := setupApp(t, app.Config{Command: app.CommandRun, WorkflowPath: wfPath, InputPath: inputPath})
	h.engine.Response = engineapi.StartResponse{ExecutionID: "x1"}

	go func() {
		id := h.channel.WaitSubscribed(t)
		h.channel.Emit(
			execution.ExecutionStarted{ExecutionID: id},
			execution.NodeStarted{NodeInfo: execution.NodeInfo{ExecutionID: id, NodeID: "1"}},
			execution.NodeCompleted{NodeInfo: execution.NodeInfo{ExecutionID: id, NodeID: "1"}, Output: map[string]any{"user": "ada"}},
			execution.NodeStarted{NodeInfo: execution.NodeInfo{ExecutionID: id, NodeID: "2"}},
			execution.NodeCompleted{NodeInfo: execution.NodeInfo{ExecutionID: id, NodeID: "2"}},
			execution.ExecutionCompleted{ExecutionID: id, Output: map[string]any{"ok": true}},
		)
	}()

	// --- Act ---
	err := a.Run(context.Background())

	// --- Assert ---
	require.NoError(t, err)
	var view inspect.SessionView
	require.NoError(t, json.Unmarshal(h.out.Bytes(), &view))
	assert.Equal(t, "x1", view.ExecutionID)
	assert.Equal(t, execution.PhaseCompleted, view.Phase)
	assert.Equal(t, map[string]any{"ok": true}, view.FinalResponse)
	require.Len(t, view.Logs, 2)
	for _, l := range view.Logs {
		assert.Equal(t, execution.StatusCompleted, l.Status, l.NodeID)
	}

	req := h.engine.LastRequest(t)
	assert.Equal(t, map[string]any{"user": "ada"}, req.Input)
	assert.Equal(t, "Login", req.Workflow.Name)
	assert.Len(t, req.Workflow.Nodes, 2)
	assert.Equal(t, config.DefaultAPIURL, h.dialed.URL)
	assert.Equal(t, 1, h.channel.Closed())
}

func TestRun_ExecutionFailure(t *testing.T) {
	// --- Arrange ---
	wfPath := writeFile(t, "login.hcl", loginWorkflow)
	a, h := setupApp(t, app.Config{Command: app.CommandRun, WorkflowPath: wfPath})
	h.engine.Response = engineapi.StartResponse{ExecutionID: "x1"}
	go func() {
		id := h.channel.WaitSubscribed(t)
		h.channel.Emit(
			execution.NodeFailed{NodeInfo: execution.NodeInfo{ExecutionID: id, NodeID: "1"}, Error: "bad token"},
			execution.ExecutionFailed{ExecutionID: id, Error: "bad token"},
		)
	}()

	// --- Act ---
	err := a.Run(context.Background())

	// --- Assert ---
	require.Error(t, err)
	var failed *execution.ExecutionFailedError
	require.ErrorAs(t, err, &failed)
	var view inspect.SessionView
	require.NoError(t, json.Unmarshal(h.out.Bytes(), &view))
	assert.Equal(t, execution.PhaseFailed, view.Phase)
	assert.NotEmpty(t, view.Error)
}

func TestRun_DialFailure(t *testing.T) {
	wfPath := writeFile(t, "login.hcl", loginWorkflow)
	appConfig, err := app.NewConfig(app.Config{Command: app.CommandRun, WorkflowPath: wfPath})
	require.NoError(t, err)
	dialErr := errors.New("connection refused")
	a, err := app.NewApp(&bytes.Buffer{}, &bytes.Buffer{}, appConfig, app.Deps{
		Engine: testutil.NewFakeEngine(),
		Dial: func(context.Context, realtime.Options) (app.Channel, error) {
			return nil, dialErr
		},
	})
	require.NoError(t, err)

	err = a.Run(context.Background())

	assert.ErrorIs(t, err, dialErr)
}

func TestValidate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		a, h := setupApp(t, app.Config{Command: app.CommandValidate, WorkflowPath: writeFile(t, "login.hcl", loginWorkflow)})

		require.NoError(t, a.Run(context.Background()))

		assert.Equal(t, "workflow \"Login\" is valid: 2 nodes, 1 edges\n", h.out.String())
	})

	t.Run("unknown reference", func(t *testing.T) {
		src := `
workflow "w" {
  name = "Broken"
  node "logic" "1" {
    data = { label = "L", code = "return {{ghost.result.x}}" }
  }
}
`
		a, _ := setupApp(t, app.Config{Command: app.CommandValidate, WorkflowPath: writeFile(t, "broken.hcl", src)})

		err := a.Run(context.Background())

		assert.ErrorIs(t, err, app.ErrInvalidWorkflow)
	})
}

func TestSave(t *testing.T) {
	src := `
workflow "" {
  name = "Fresh"
  node "apiStart" "1" {}
}
`
	a, h := setupApp(t, app.Config{Command: app.CommandSave, WorkflowPath: writeFile(t, "fresh.hcl", src)})

	require.NoError(t, a.Run(context.Background()))

	require.Len(t, h.engine.Saved, 1)
	assert.Equal(t, "Fresh", h.engine.Saved[0].Name)
	assert.Equal(t, "saved workflow saved-1\n", h.out.String())
}

func TestList(t *testing.T) {
	a, h := setupApp(t, app.Config{Command: app.CommandList, ProjectID: "acme"})
	h.engine.Workflows = []workflow.Workflow{
		{ID: "w1", Name: "Login", Method: "POST", Path: "login", IsDeployed: true},
	}

	require.NoError(t, a.Run(context.Background()))

	assert.Contains(t, h.out.String(), "ID")
	assert.Contains(t, h.out.String(), "w1")
	assert.Contains(t, h.out.String(), "Login")
	assert.Contains(t, h.out.String(), "true")
}

func TestShortcuts(t *testing.T) {
	a, h := setupApp(t, app.Config{Command: app.CommandShortcuts})

	require.NoError(t, a.Run(context.Background()))

	assert.Contains(t, h.out.String(), "Ctrl/Cmd+Shift+Z")
	assert.Contains(t, h.out.String(), "redo")
}

func TestValidate_Directory(t *testing.T) {
	// --- Arrange ---
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.hcl"), []byte(loginWorkflow), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.hcl"), []byte(`workflow "b" {`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.txt"), []byte("skip me"), 0o600))
	a, h := setupApp(t, app.Config{Command: app.CommandValidate, WorkflowPath: dir})

	// --- Act ---
	err := a.Run(context.Background())

	// --- Assert ---
	require.Error(t, err)
	assert.Contains(t, err.Error(), "b.hcl")
	assert.Contains(t, h.out.String(), `workflow "Login" is valid`)
}
