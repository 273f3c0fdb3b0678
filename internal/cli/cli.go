package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/specialistvlad/apiflow/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

const usageText = `
apiflow - edit, validate and run API workflows against an execution engine.

Usage:
  apiflow <command> [options] [WORKFLOW]

Commands:
  run        Run WORKFLOW on the engine and print the execution session.
  validate   Check WORKFLOW for structural problems and unknown references.
  save       Create or update WORKFLOW on the engine.
  list       List the workflows of -project.
  shortcuts  Print the canvas keyboard shortcuts.

Arguments:
  WORKFLOW
    Path to a workflow document, either HCL or the engine's JSON export.

Options:
`

// Parse processes command-line arguments. It returns a populated app.Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("apiflow", flag.ContinueOnError)
	flagSet.SetOutput(output)
	flagSet.Usage = func() {
		fmt.Fprint(output, usageText)
		flagSet.PrintDefaults()
	}

	configFlag := flagSet.String("config", "", "Path to the apiflow.hcl configuration file.")
	workflowFlag := flagSet.String("workflow", "", "Path to the workflow document.")
	wFlag := flagSet.String("w", "", "Path to the workflow document (shorthand).")
	inputFlag := flagSet.String("input", "", "Path to a JSON file used as the request body of run.")
	projectFlag := flagSet.String("project", "", "Project id for list.")
	apiURLFlag := flagSet.String("api-url", "", "Engine base URL. Overrides the config file.")
	tokenFlag := flagSet.String("token", "", "Bearer token for the engine. Overrides the config file.")
	timeoutFlag := flagSet.Duration("timeout", 0, "Maximum wait for a run to finish, e.g. 90s. Overrides the config file.")
	inspectPortFlag := flagSet.Int("inspect-port", -1, "Port for the HTTP inspection server during run. 0 disables it.")
	logFormatFlag := flagSet.String("log-format", "", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if len(args) == 0 {
		flagSet.Usage()
		return nil, true, nil
	}
	command := ""
	if !strings.HasPrefix(args[0], "-") {
		command, args = args[0], args[1:]
	}

	// Flags may follow positional arguments.
	var positional []string
	for {
		if err := flagSet.Parse(args); err != nil {
			if errors.Is(err, flag.ErrHelp) {
				return nil, true, nil
			}
			return nil, false, &ExitError{Code: 2, Message: err.Error()}
		}
		if flagSet.NArg() == 0 {
			break
		}
		positional = append(positional, flagSet.Arg(0))
		args = flagSet.Args()[1:]
	}
	slog.Debug("Arguments parsed successfully.", "command", command)

	if command == "" {
		flagSet.Usage()
		return nil, true, nil
	}

	path := *workflowFlag
	if path == "" {
		path = *wFlag
	}
	if path == "" && len(positional) > 0 {
		path = positional[0]
	}
	if len(positional) > 1 {
		return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("unexpected arguments: %s", strings.Join(positional[1:], " "))}
	}

	logFormat := strings.ToLower(*logFormatFlag)
	switch logFormat {
	case "", "text", "json":
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	if *timeoutFlag < 0 {
		return nil, false, &ExitError{Code: 2, Message: "invalid timeout: must not be negative"}
	}

	overrides := app.Overrides{
		LogLevel:  logLevel,
		LogFormat: logFormat,
		APIURL:    *apiURLFlag,
		Token:     *tokenFlag,
		Timeout:   *timeoutFlag,
	}
	if *inspectPortFlag >= 0 {
		port := *inspectPortFlag
		overrides.InspectPort = &port
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		Command:      app.Command(strings.ToLower(command)),
		ConfigPath:   *configFlag,
		WorkflowPath: path,
		InputPath:    *inputFlag,
		ProjectID:    *projectFlag,
		Overrides:    overrides,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "command", config.Command)
	return config, false, nil
}
