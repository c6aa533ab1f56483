package coordinator

// State is the coordinator's position in the chat loop.
type State int32

const (
	AwaitingUserInput State = iota
	RequestSent
	ToolDispatch
	Completed
)

func (s State) String() string {
	switch s {
	case AwaitingUserInput:
		return "awaiting_user_input"
	case RequestSent:
		return "request_sent"
	case ToolDispatch:
		return "tool_dispatch"
	case Completed:
		return "completed"
	}
	return "unknown"
}
