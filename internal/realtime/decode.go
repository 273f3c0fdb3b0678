package realtime

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/specialistvlad/apiflow/internal/execution"
)

// Decode turns a raw socket.io payload into a typed execution event.
func Decode(kind execution.Kind, payload any) (execution.Event, error) {
	var doc gjson.Result
	switch p := payload.(type) {
	case nil:
	case []byte:
		doc = gjson.ParseBytes(p)
	case string:
		doc = gjson.Parse(p)
	default:
		data, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", kind, err)
		}
		doc = gjson.ParseBytes(data)
	}

	execID := doc.Get("executionId").String()
	info := execution.NodeInfo{
		ExecutionID: execID,
		NodeID:      doc.Get("nodeId").String(),
		NodeName:    doc.Get("nodeName").String(),
		NodeType:    doc.Get("nodeType").String(),
	}

	switch kind {
	case execution.KindNodeStarted:
		if info.NodeID == "" {
			return nil, fmt.Errorf("decode %s: missing nodeId", kind)
		}
		return execution.NodeStarted{NodeInfo: info}, nil
	case execution.KindNodeCompleted:
		if info.NodeID == "" {
			return nil, fmt.Errorf("decode %s: missing nodeId", kind)
		}
		return execution.NodeCompleted{NodeInfo: info, Output: doc.Get("output").Value()}, nil
	case execution.KindNodeFailed:
		if info.NodeID == "" {
			return nil, fmt.Errorf("decode %s: missing nodeId", kind)
		}
		return execution.NodeFailed{NodeInfo: info, Error: errorText(doc.Get("error"))}, nil
	case execution.KindExecutionStarted:
		return execution.ExecutionStarted{ExecutionID: execID}, nil
	case execution.KindExecutionCompleted:
		return execution.ExecutionCompleted{ExecutionID: execID, Output: doc.Get("output").Value()}, nil
	case execution.KindExecutionFailed:
		return execution.ExecutionFailed{ExecutionID: execID, Error: errorText(doc.Get("error"))}, nil
	default:
		return nil, fmt.Errorf("decode: unknown event kind %q", kind)
	}
}

// errorText accepts both a plain string and an {"message": ...} object.
func errorText(r gjson.Result) string {
	switch {
	case !r.Exists():
		return ""
	case r.Type == gjson.String:
		return r.Str
	case r.IsObject() && r.Get("message").Exists():
		return r.Get("message").String()
	default:
		return r.Raw
	}
}
