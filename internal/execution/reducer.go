package execution

import (
	"fmt"
	"time"
)

// Apply folds ev into s and returns the next session. It never mutates s.
//
// Events for another execution id and events arriving after the session
// reached a terminal phase are ignored. Per node, the status only moves
// forward through pending, running and then completed or error; repeated
// reports at the same status replace the earlier one.
func Apply(s Session, ev Event, now time.Time) Session {
	if s.Phase.Terminal() {
		return s
	}
	if id := ev.Execution(); id != "" && s.ExecutionID != "" && id != s.ExecutionID {
		return s
	}

	next := s.Clone()
	switch e := ev.(type) {
	case NodeStarted:
		next.upsert(e.NodeInfo, now, func(l *Log) { l.Status = StatusRunning })
	case NodeCompleted:
		next.upsert(e.NodeInfo, now, func(l *Log) {
			l.Status = StatusCompleted
			l.Output = e.Output
		})
	case NodeFailed:
		next.upsert(e.NodeInfo, now, func(l *Log) {
			l.Status = StatusError
			l.Error = e.Error
		})
	case ExecutionStarted:
		next.Phase = PhaseRunning
	case ExecutionCompleted:
		next.Phase = PhaseCompleted
		next.IsRunning = false
		next.FinalResponse = e.Output
		if e.Output == nil {
			next.FinalResponse = s.StartResponse
		}
	case ExecutionFailed:
		next.Phase = PhaseFailed
		next.IsRunning = false
		next.FinalResponse = nil
		next.Err = &ExecutionFailedError{ExecutionID: s.ExecutionID, Message: e.Error}
	default:
		return s
	}
	return next
}

func (s *Session) upsert(info NodeInfo, now time.Time, set func(*Log)) {
	i := s.logIndex(info.NodeID)
	if i < 0 {
		s.Logs = append(s.Logs, Log{NodeID: info.NodeID, Status: StatusPending})
		i = len(s.Logs) - 1
	}
	prev := s.Logs[i]
	l := prev
	set(&l)
	if l.Status.rank() < prev.Status.rank() {
		return
	}
	// A finished node may report again (loop iterations) but never flips
	// between completed and error.
	if prev.Status.Final() && l.Status != prev.Status {
		return
	}

	l.NodeName = info.NodeName
	if l.NodeName == "" {
		l.NodeName = prev.NodeName
	}
	if l.NodeName == "" {
		l.NodeName = fmt.Sprintf("Node %s", info.NodeID)
	}
	if info.NodeType != "" {
		l.NodeType = info.NodeType
	}
	if l.Status.Final() && prev.Status == StatusRunning {
		l.Duration = now.Sub(prev.Timestamp)
	}
	l.Timestamp = now
	s.Logs[i] = l
}
