// Package stream consumes the event-framed byte stream produced by the
// generation backend and reassembles the final answer text. One Consume call
// is a single sequential read loop; there is no fan-out, and cancellation is
// handled by aborting the underlying read through the request context.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/rs/zerolog"
)

// ErrEmptyBody is returned by ParseFallback when the non-streaming body
// carries neither a reply nor a message field.
var ErrEmptyBody = errors.New("empty generation response body")

// Outcome is the result of consuming one stream to completion.
type Outcome struct {
	// Text is the final answer: ordered delta accumulation unless a done
	// frame carried an authoritative reply, or the error replacement text.
	Text string
	// Goals is the session goal list captured from the done frame, if any.
	Goals []string
	// Errored reports that the backend terminated the stream with an error
	// frame and Text holds the user-facing message.
	Errored bool
}

// Consumer reads generation streams. Safe for concurrent use; each Consume
// call keeps its own state.
type Consumer struct {
	log zerolog.Logger

	// ErrorText replaces the accumulated answer when the backend sends a
	// terminal error frame.
	ErrorText string
}

// NewConsumer returns a Consumer with the default user-facing error text.
func NewConsumer(log zerolog.Logger) *Consumer {
	return &Consumer{
		log:       log.With().Str("component", "stream_consumer").Logger(),
		ErrorText: "죄송해요, 답변을 생성하는 중 문제가 발생했어요. 잠시 후 다시 시도해 주세요.",
	}
}

// Consume reads r until the end sentinel, an error frame, or connection
// close, and returns the assembled outcome.
//
// Framing: raw bytes are split on newline; an unterminated trailing partial
// line is carried over into the next read so a frame split across reads is
// never dropped. Frames are processed in strict arrival order. Malformed
// frames are skipped, not fatal.
//
// A done frame with a reply field replaces the delta accumulator outright;
// the backend's final text is authoritative over incremental assembly.
func (c *Consumer) Consume(ctx context.Context, r io.Reader) (Outcome, error) {
	var (
		acc     strings.Builder
		out     Outcome
		carry   string
		buf     = make([]byte, 4096)
		skipped int
	)

	for {
		select {
		case <-ctx.Done():
			return out, ctx.Err()
		default:
		}

		n, readErr := r.Read(buf)
		if n > 0 {
			carry += string(buf[:n])
			lines := strings.Split(carry, "\n")
			carry = lines[len(lines)-1]
			for _, line := range lines[:len(lines)-1] {
				d := DecodeLine(line)
				switch {
				case d.Sentinel:
					out.Text = finalText(&acc, out.Text)
					c.logSkipped(skipped)
					return out, nil
				case !d.Ok:
					if strings.TrimSpace(line) != "" {
						skipped++
					}
				case d.Event.Type == TypeDelta:
					acc.WriteString(d.Event.Text)
				case d.Event.Type == TypeDone:
					if d.Event.Reply != "" {
						out.Text = d.Event.Reply
					}
					if len(d.Event.Goals) > 0 {
						out.Goals = d.Event.Goals
					}
				case d.Event.Type == TypeError:
					out.Text = c.ErrorText
					out.Errored = true
					c.log.Warn().Str("backend_error", d.Event.Error).Msg("generation stream errored")
					c.logSkipped(skipped)
					return out, nil
				}
			}
		}
		if readErr != nil {
			// Connection close without a sentinel still yields whatever was
			// assembled. The carry may hold one last unterminated frame.
			if d := DecodeLine(carry); d.Ok && d.Event.Type == TypeDelta {
				acc.WriteString(d.Event.Text)
			}
			out.Text = finalText(&acc, out.Text)
			c.logSkipped(skipped)
			if readErr == io.EOF {
				return out, nil
			}
			return out, readErr
		}
	}
}

// finalText prefers the authoritative done.reply override when present.
func finalText(acc *strings.Builder, override string) string {
	if override != "" {
		return override
	}
	return acc.String()
}

func (c *Consumer) logSkipped(n int) {
	if n > 0 {
		c.log.Debug().Int("frames", n).Msg("skipped malformed stream frames")
	}
}

// ParseFallback handles the non-streaming response shape: a single JSON body
// of {"reply": ...} or {"message": ...} treated as the whole final answer.
func ParseFallback(body []byte) (string, error) {
	var payload struct {
		Reply   string `json:"reply"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", err
	}
	if payload.Reply != "" {
		return payload.Reply, nil
	}
	if payload.Message != "" {
		return payload.Message, nil
	}
	return "", ErrEmptyBody
}
