package relay

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/akio-byte/navaltutka/internal/upstream"
)

const ContentTypeNDJSON = "application/x-ndjson"

const (
	RecordChunk = "chunk"
	RecordDone  = "done"
	RecordError = "error"
)

// Record is one ndjson line.
type Record struct {
	Type      string `json:"type"`
	Text      string `json:"text,omitempty"`
	RequestID string `json:"requestId,omitempty"`
	Code      Code   `json:"code,omitempty"`
}

// StreamHeaders sets the headers of a streamed response.
func StreamHeaders(h http.Header) {
	h.Set("Content-Type", ContentTypeNDJSON)
	h.Set("Cache-Control", "no-cache")
	h.Set("X-Accel-Buffering", "no")
}

// StreamResult summarizes a relayed stream. Terminal is "done", "error" or
// "aborted".
type StreamResult struct {
	Chunks   int
	Terminal string
	Code     Code
	WriteErr error
}

// Relay writes events as ndjson, flushing after every record, until the
// channel closes. A write failure stops output but the channel is still
// drained so the producer can exit.
func Relay(w io.Writer, flush func(), requestID string, events <-chan upstream.Event) StreamResult {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	res := StreamResult{Terminal: "aborted"}
	write := func(rec Record) {
		if res.WriteErr != nil {
			return
		}
		if err := enc.Encode(rec); err != nil {
			res.WriteErr = err
			return
		}
		if flush != nil {
			flush()
		}
	}

	for ev := range events {
		switch ev.Kind {
		case upstream.EventChunk:
			res.Chunks++
			write(Record{Type: RecordChunk, Text: ev.Text})
		case upstream.EventDone:
			res.Terminal = RecordDone
			write(Record{Type: RecordDone, RequestID: requestID})
		case upstream.EventError:
			res.Terminal = RecordError
			res.Code = FromUpstream(ev.Code)
			write(Record{Type: RecordError, Code: res.Code})
		}
	}

	return res
}
