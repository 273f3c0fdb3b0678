package execution

// Kind names an engine event on the wire.
type Kind string

const (
	KindNodeStarted        Kind = "node_started"
	KindNodeCompleted      Kind = "node_completed"
	KindNodeFailed         Kind = "node_failed"
	KindExecutionStarted   Kind = "execution_started"
	KindExecutionCompleted Kind = "execution_completed"
	KindExecutionFailed    Kind = "execution_failed"
)

// Kinds lists every event kind the orchestrator consumes.
var Kinds = []Kind{
	KindNodeStarted,
	KindNodeCompleted,
	KindNodeFailed,
	KindExecutionStarted,
	KindExecutionCompleted,
	KindExecutionFailed,
}

// Event is one message from the execution engine. ExecutionID may be empty
// when the engine omits it; such events are treated as belonging to the
// session they are applied to.
type Event interface {
	Kind() Kind
	Execution() string
}

// NodeInfo identifies the node an event is about.
type NodeInfo struct {
	ExecutionID string
	NodeID      string
	NodeName    string
	NodeType    string
}

func (n NodeInfo) Execution() string { return n.ExecutionID }

type NodeStarted struct{ NodeInfo }

type NodeCompleted struct {
	NodeInfo
	Output any
}

type NodeFailed struct {
	NodeInfo
	Error string
}

type ExecutionStarted struct{ ExecutionID string }

type ExecutionCompleted struct {
	ExecutionID string
	Output      any
}

type ExecutionFailed struct {
	ExecutionID string
	Error       string
}

func (NodeStarted) Kind() Kind        { return KindNodeStarted }
func (NodeCompleted) Kind() Kind      { return KindNodeCompleted }
func (NodeFailed) Kind() Kind         { return KindNodeFailed }
func (ExecutionStarted) Kind() Kind   { return KindExecutionStarted }
func (ExecutionCompleted) Kind() Kind { return KindExecutionCompleted }
func (ExecutionFailed) Kind() Kind    { return KindExecutionFailed }

func (e ExecutionStarted) Execution() string   { return e.ExecutionID }
func (e ExecutionCompleted) Execution() string { return e.ExecutionID }
func (e ExecutionFailed) Execution() string    { return e.ExecutionID }
