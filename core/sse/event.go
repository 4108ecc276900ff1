// Package sse pushes server-sent events over a hijacked request socket.
package sse

import (
	"strconv"
	"strings"
)

// Event represents a Server-Sent Event
type Event struct {
	ID    string
	Event string
	Data  string
	Retry int // milliseconds
}

// NewEvent creates an event of the given type.
func NewEvent(eventType string) *Event {
	return &Event{Event: eventType}
}

// WithID sets the event id.
func (e *Event) WithID(id uint64) *Event {
	e.ID = strconv.FormatUint(id, 10)
	return e
}

// WithData appends to the event data.
func (e *Event) WithData(data string) *Event {
	e.Data += data
	return e
}

// Format encodes the event as it goes on the wire. Every line of Data
// becomes its own data field; a blank line ends the record.
func (e *Event) Format() []byte {
	var sb strings.Builder

	if e.ID != "" {
		sb.WriteString("id: ")
		sb.WriteString(e.ID)
		sb.WriteByte('\n')
	}
	if e.Event != "" {
		sb.WriteString("event: ")
		sb.WriteString(e.Event)
		sb.WriteByte('\n')
	}
	if e.Retry > 0 {
		sb.WriteString("retry: ")
		sb.WriteString(strconv.Itoa(e.Retry))
		sb.WriteByte('\n')
	}
	for _, line := range strings.Split(e.Data, "\n") {
		sb.WriteString("data: ")
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	sb.WriteByte('\n')

	return []byte(sb.String())
}
