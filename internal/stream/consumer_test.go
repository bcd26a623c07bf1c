package stream

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func newTestConsumer() *Consumer {
	return NewConsumer(zerolog.Nop())
}

// chunkReader yields its chunks one Read call at a time, regardless of the
// caller's buffer size, to exercise frame reassembly across reads.
type chunkReader struct {
	chunks []string
	i      int
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if r.i >= len(r.chunks) {
		return 0, io.EOF
	}
	n := copy(p, r.chunks[r.i])
	r.i++
	return n, nil
}

func TestConsume_DeltasAssembleInOrder(t *testing.T) {
	body := "data: {\"type\":\"delta\",\"text\":\"A\"}\n" +
		"data: {\"type\":\"delta\",\"text\":\"B\"}\n" +
		"data: {\"type\":\"delta\",\"text\":\"C\"}\n" +
		"data: [DONE]\n"

	out, err := newTestConsumer().Consume(context.Background(), strings.NewReader(body))
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}
	if out.Text != "ABC" {
		t.Fatalf("text = %q, want %q", out.Text, "ABC")
	}
	if out.Errored {
		t.Fatal("unexpected errored flag")
	}
}

func TestConsume_DoneReplyOverridesDeltas(t *testing.T) {
	body := "data: {\"type\":\"delta\",\"text\":\"A\"}\n" +
		"data: {\"type\":\"delta\",\"text\":\"B\"}\n" +
		"data: {\"type\":\"done\",\"reply\":\"XYZ\"}\n" +
		"data: [DONE]\n"

	out, err := newTestConsumer().Consume(context.Background(), strings.NewReader(body))
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}
	if out.Text != "XYZ" {
		t.Fatalf("done.reply must be authoritative, got %q", out.Text)
	}
}

func TestConsume_DoneWithoutReplyKeepsDeltas(t *testing.T) {
	body := "data: {\"type\":\"delta\",\"text\":\"가\"}\n" +
		"data: {\"type\":\"done\",\"goals\":[\"야경 위주\"]}\n" +
		"data: [DONE]\n"

	out, err := newTestConsumer().Consume(context.Background(), strings.NewReader(body))
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}
	if out.Text != "가" {
		t.Fatalf("text = %q", out.Text)
	}
	if len(out.Goals) != 1 || out.Goals[0] != "야경 위주" {
		t.Fatalf("goals = %v", out.Goals)
	}
}

func TestConsume_FrameSplitAcrossReads(t *testing.T) {
	r := &chunkReader{chunks: []string{
		"data: {\"type\":\"del",
		"ta\",\"text\":\"안녕",
		"하세요\"}\ndata: [DONE]\n",
	}}

	out, err := newTestConsumer().Consume(context.Background(), r)
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}
	if out.Text != "안녕하세요" {
		t.Fatalf("split frame mangled: %q", out.Text)
	}
}

func TestConsume_MalformedFramesSkipped(t *testing.T) {
	body := "data: {\"type\":\"delta\",\"text\":\"A\"}\n" +
		"data: {broken json\n" +
		": comment line\n" +
		"\n" +
		"data: {\"type\":\"usage\",\"tokens\":12}\n" +
		"data: {\"type\":\"delta\",\"text\":\"B\"}\n" +
		"data: [DONE]\n"

	out, err := newTestConsumer().Consume(context.Background(), strings.NewReader(body))
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}
	if out.Text != "AB" {
		t.Fatalf("text = %q, want %q", out.Text, "AB")
	}
}

func TestConsume_ErrorFrameReplacesText(t *testing.T) {
	body := "data: {\"type\":\"delta\",\"text\":\"부분 답\"}\n" +
		"data: {\"type\":\"error\",\"error\":\"model overloaded\"}\n"

	c := newTestConsumer()
	out, err := c.Consume(context.Background(), strings.NewReader(body))
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}
	if !out.Errored {
		t.Fatal("errored flag not set")
	}
	if out.Text != c.ErrorText {
		t.Fatalf("text = %q, want the user-facing error text", out.Text)
	}
}

func TestConsume_EOFWithoutSentinelKeepsAccumulated(t *testing.T) {
	body := "data: {\"type\":\"delta\",\"text\":\"절반\"}\n"

	out, err := newTestConsumer().Consume(context.Background(), strings.NewReader(body))
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}
	if out.Text != "절반" {
		t.Fatalf("text = %q", out.Text)
	}
}

func TestConsume_UnterminatedFinalFrame(t *testing.T) {
	// No trailing newline on the last frame; it must still be decoded.
	body := "data: {\"type\":\"delta\",\"text\":\"A\"}\n" +
		"data: {\"type\":\"delta\",\"text\":\"B\"}"

	out, err := newTestConsumer().Consume(context.Background(), strings.NewReader(body))
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}
	if out.Text != "AB" {
		t.Fatalf("text = %q, want %q", out.Text, "AB")
	}
}

func TestConsume_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestConsumer().Consume(ctx, strings.NewReader("data: [DONE]\n"))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestConsume_ReadErrorPropagates(t *testing.T) {
	boom := errors.New("connection reset")
	r := io.MultiReader(
		strings.NewReader("data: {\"type\":\"delta\",\"text\":\"일부\"}\n"),
		&failingReader{err: boom},
	)

	out, err := newTestConsumer().Consume(context.Background(), r)
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	// Partial text is still returned alongside the error.
	if out.Text != "일부" {
		t.Fatalf("text = %q", out.Text)
	}
}

type failingReader struct{ err error }

func (r *failingReader) Read([]byte) (int, error) { return 0, r.err }

func TestParseFallback(t *testing.T) {
	cases := []struct {
		name    string
		body    string
		want    string
		wantErr bool
	}{
		{"reply field", `{"reply":"답변"}`, "답변", false},
		{"message field", `{"message":"답변2"}`, "답변2", false},
		{"reply preferred over message", `{"reply":"r","message":"m"}`, "r", false},
		{"both empty", `{}`, "", true},
		{"invalid json", `not json`, "", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseFallback([]byte(tc.body))
			if (err != nil) != tc.wantErr {
				t.Fatalf("err = %v, wantErr = %v", err, tc.wantErr)
			}
			if got != tc.want {
				t.Fatalf("text = %q, want %q", got, tc.want)
			}
		})
	}
}
