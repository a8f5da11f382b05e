// Package sse reads and writes Server-Sent Events.
//
// The Reader turns an upstream LLM response body into events while keeping
// each event's raw bytes, which is the chunk unit the answer pipeline parses.
// WriteEvent frames events for the streaming answer endpoint.
//
// Event stream format:
// https://html.spec.whatwg.org/multipage/server-sent-events.html
package sse

// Event represents a single parsed SSE event, delimited by a blank line.
type Event struct {
	// Type is the "event:" field. Empty means the default "message" type.
	Type string

	// Data is all "data:" lines of the event joined with "\n".
	Data string

	// ID is the "id:" field, if present.
	ID string

	// Raw holds the event's lines exactly as received, comments included,
	// each terminated by "\n". The delimiting blank line is not included.
	Raw []byte
}
