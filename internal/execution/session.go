// Package execution tracks one remote workflow run on the client side.
//
// Engine events are folded into a Session by Apply, a pure function. The
// Orchestrator owns the I/O around it: the start request, the event channel
// subscription and the teardown paths.
package execution

import (
	"slices"
	"time"
)

// Status is the state of one node within a run.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

func (s Status) rank() int {
	switch s {
	case StatusRunning:
		return 1
	case StatusCompleted, StatusError:
		return 2
	default:
		return 0
	}
}

// Final reports whether the node has finished, successfully or not.
func (s Status) Final() bool { return s.rank() == 2 }

// Log is the per-node record of a run.
type Log struct {
	NodeID    string        `json:"nodeId"`
	NodeName  string        `json:"nodeName"`
	NodeType  string        `json:"nodeType"`
	Status    Status        `json:"status"`
	Timestamp time.Time     `json:"timestamp"`
	Duration  time.Duration `json:"duration,omitempty"`
	Output    any           `json:"output,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// Failure returns the node's error, or nil unless the status is error.
func (l Log) Failure() error {
	if l.Status != StatusError {
		return nil
	}
	return &NodeExecutionError{NodeID: l.NodeID, Message: l.Error}
}

// Phase is the lifecycle state of a run.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseStarting  Phase = "starting"
	PhaseRunning   Phase = "running"
	PhaseCompleted Phase = "completed"
	PhaseFailed    Phase = "failed"
	PhaseTimedOut  Phase = "timed_out"
	PhaseDetached  Phase = "detached"
)

// Terminal reports whether no further events are applied in this phase.
func (p Phase) Terminal() bool {
	switch p {
	case PhaseCompleted, PhaseFailed, PhaseTimedOut, PhaseDetached:
		return true
	}
	return false
}

// Session aggregates the state of one run.
type Session struct {
	ExecutionID   string
	Phase         Phase
	Logs          []Log
	IsRunning     bool
	StartResponse any
	FinalResponse any
	Err           error
}

// Log returns the entry for nodeID.
func (s Session) Log(nodeID string) (Log, bool) {
	i := s.logIndex(nodeID)
	if i < 0 {
		return Log{}, false
	}
	return s.Logs[i], true
}

func (s Session) logIndex(nodeID string) int {
	return slices.IndexFunc(s.Logs, func(l Log) bool { return l.NodeID == nodeID })
}

// Clone returns a copy whose log slice can be modified independently.
func (s Session) Clone() Session {
	s.Logs = slices.Clone(s.Logs)
	return s
}
