package conn

// State is the lifecycle state of a response.
type State uint8

const (
	// Unset is the initial state: no response was staged.
	Unset State = iota
	// Set means a buffered response is staged via Resp.
	Set
	// SetFile is the staged state before-send callbacks of a file commit run in.
	SetFile
	// SetChunked is the staged state before-send callbacks of a chunked commit run in.
	SetChunked
	// File means the file response was handed to the adapter.
	File
	// Chunked means the chunked response was started. Chunks may be written further.
	Chunked
	// Sent means the buffered response was handed to the adapter.
	Sent
	// Upgraded means the connection was handed over to another protocol.
	Upgraded
)

// Unsent reports whether the response wasn't committed yet. Response fields may be
// mutated only while the state is unsent.
func (s State) Unsent() bool {
	return s <= SetChunked
}

func (s State) String() string {
	switch s {
	case Unset:
		return "unset"
	case Set:
		return "set"
	case SetFile:
		return "set_file"
	case SetChunked:
		return "set_chunked"
	case File:
		return "file"
	case Chunked:
		return "chunked"
	case Sent:
		return "sent"
	case Upgraded:
		return "upgraded"
	default:
		return "unknown"
	}
}
