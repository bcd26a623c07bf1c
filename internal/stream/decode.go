// Frame decoding.
//
// The generation backend emits newline-delimited frames of the form
// "data: <json>", terminated by the sentinel line "data: [DONE]". Each JSON
// payload carries a type discriminator. Decoding is modeled as an explicit
// Ok-or-Skip result instead of swallowed errors: lines that are not frames,
// and frames that fail to decode, yield Skip and the consumption loop simply
// moves on.
package stream

import (
	"encoding/json"
	"strings"
)

// Frame discriminators.
const (
	TypeDelta = "delta"
	TypeDone  = "done"
	TypeError = "error"
)

const (
	framePrefix  = "data: "
	doneSentinel = "[DONE]"
)

// Event is one decoded stream frame.
type Event struct {
	Type  string   `json:"type"`
	Text  string   `json:"text,omitempty"`  // delta payload
	Reply string   `json:"reply,omitempty"` // authoritative full text on done
	Goals []string `json:"goals,omitempty"` // session goals on done
	Error string   `json:"error,omitempty"` // user-facing message on error
}

// Decoded is the sum type produced for every input line: exactly one of
// Skip, Sentinel, or a valid Event.
type Decoded struct {
	Event    Event
	Ok       bool // Event is valid
	Sentinel bool // line was the end-of-stream marker
}

// skip marks a line the loop should ignore.
var skip = Decoded{}

// DecodeLine classifies one raw line from the stream. Non-frame lines
// (comments, blank keep-alives) and frames whose JSON fails to decode or
// carries an unknown discriminator are Skip, never errors.
func DecodeLine(line string) Decoded {
	line = strings.TrimRight(line, "\r")
	if !strings.HasPrefix(line, framePrefix) {
		return skip
	}
	payload := strings.TrimPrefix(line, framePrefix)
	if payload == doneSentinel {
		return Decoded{Sentinel: true}
	}

	var ev Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return skip
	}
	switch ev.Type {
	case TypeDelta, TypeDone, TypeError:
		return Decoded{Event: ev, Ok: true}
	}
	return skip
}
