package upstream

type EventKind int

const (
	EventChunk EventKind = iota
	EventDone
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventChunk:
		return "chunk"
	case EventDone:
		return "done"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is one element of a streamed answer: zero or more chunks followed by
// exactly one Done or Error. A stream closed without a terminal event was
// aborted by the caller.
type Event struct {
	Kind EventKind
	Text string    // EventChunk
	Code ErrorCode // EventError
}

func Chunk(text string) Event { return Event{Kind: EventChunk, Text: text} }

func Done() Event { return Event{Kind: EventDone} }

func Failed(code ErrorCode) Event { return Event{Kind: EventError, Code: code} }
