package execution

import (
	"errors"
	"fmt"
)

var (
	// ErrNoWorkflow is returned by Run when there is nothing to execute.
	ErrNoWorkflow = errors.New("no workflow loaded")
	// ErrRunInProgress is returned by Run while another run is in flight.
	ErrRunInProgress = errors.New("a run is already in progress")
	// ErrExecutionTimedOut ends a run whose terminal event never arrived.
	ErrExecutionTimedOut = errors.New("timed out waiting for the execution to finish")
	// ErrDetached ends a run whose observer was torn down.
	ErrDetached = errors.New("execution detached")
)

// StartRequestError wraps a failure to launch a run.
type StartRequestError struct {
	Err error
}

func (e *StartRequestError) Error() string {
	return fmt.Sprintf("start execution: %v", e.Err)
}

func (e *StartRequestError) Unwrap() error { return e.Err }

// NodeExecutionError is the failure of a single node. It does not end the run.
type NodeExecutionError struct {
	NodeID  string
	Message string
}

func (e *NodeExecutionError) Error() string {
	return fmt.Sprintf("node %q failed: %s", e.NodeID, e.Message)
}

// ExecutionFailedError is the engine's verdict that the whole run failed.
type ExecutionFailedError struct {
	ExecutionID string
	Message     string
}

func (e *ExecutionFailedError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("execution %s failed", e.ExecutionID)
	}
	return fmt.Sprintf("execution %s failed: %s", e.ExecutionID, e.Message)
}
