// Package assistant orchestrates the response pipeline that turns a user
// message into a served answer: classification, cache lookup, knowledge
// enrichment, one generation call, streaming consumption, structured
// recovery, display splitting, and cache write-back.
//
// The pipeline is one-shot by design: one logical generation call per user
// turn, no internal fan-out, and no component retries a failed external call
// beyond the knowledge builder's single bounded collection attempt.
package assistant

import (
	"context"
	"io"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	// OpenTelemetry
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-travel-backend/internal/cache"
	"github.com/tbourn/go-travel-backend/internal/classify"
	"github.com/tbourn/go-travel-backend/internal/domain"
	"github.com/tbourn/go-travel-backend/internal/itinerary"
	"github.com/tbourn/go-travel-backend/internal/knowledge"
	"github.com/tbourn/go-travel-backend/internal/stream"
)

// System prompts by request category. Generation and modification demand the
// embedded JSON contract; chat stays plain.
const (
	promptChat = "당신은 친절한 여행 도우미입니다. 여행과 관련된 질문에 간결하고 정확하게 답하세요."

	promptGenerate = "당신은 여행 일정 전문가입니다. 사용자의 요청에 맞는 일정을 만들어 주세요. " +
		"답변에는 반드시 하나의 JSON 객체를 포함하세요. 객체는 type, title, destination, period, " +
		"totalBudget, summary, days 필드를 가지며 days는 day/date/theme/activities를 담은 배열입니다. " +
		"각 activity의 category는 transport, restaurant, attraction, shopping, activity, rest 중 하나입니다."

	promptModify = "당신은 여행 일정 전문가입니다. 전달된 기존 일정을 사용자의 요청대로 수정하세요. " +
		"변경 내용을 한두 문장으로 요약한 뒤, 수정된 전체 일정을 같은 JSON 형식으로 포함하세요."
)

// recoveries counts structured-recovery outcomes by result: full, partial,
// or none (text carried the markers but no candidate parsed).
var recoveries = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "itinerary_recoveries_total",
		Help: "Structured itinerary recovery outcomes.",
	},
	[]string{"outcome"},
)

func init() {
	prometheus.MustRegister(recoveries)
}

// Request is one inbound user turn.
type Request struct {
	Message     string
	Context     []Message
	Type        string   // optional explicit category override
	Goals       []string // client-held session goals, echoed to the backend
	Plan        string   // plan tier, part of the cache fingerprint
	SessionID   string   // correlates captured goals across turns
	Destination string   // optional; enables knowledge enrichment
	Country     string   // optional; enables on-demand fact collection
}

// Reply is the served answer.
type Reply struct {
	Text     string            `json:"reply"`
	Summary  string            `json:"summary,omitempty"`
	Record   *domain.Itinerary `json:"itinerary,omitempty"`
	Partial  bool              `json:"partial,omitempty"`
	Category string            `json:"category"`
	Cached   bool              `json:"cached"`
	Goals    []string          `json:"goals,omitempty"`
}

// Service owns the pipeline. All collaborators are injected; the service
// itself holds no ambient globals.
type Service struct {
	Cache     *cache.ResponseCache
	Knowledge *knowledge.Builder
	Backend   Generator
	Consumer  *stream.Consumer

	// MaxContextTurns bounds how much conversation history is forwarded.
	MaxContextTurns int

	goals *gocache.Cache
	log   zerolog.Logger
}

// NewService wires the pipeline together.
func NewService(rc *cache.ResponseCache, kb *knowledge.Builder, backend Generator, consumer *stream.Consumer, log zerolog.Logger) *Service {
	return &Service{
		Cache:           rc,
		Knowledge:       kb,
		Backend:         backend,
		Consumer:        consumer,
		MaxContextTurns: 20,
		goals:           gocache.New(30*time.Minute, time.Hour),
		log:             log.With().Str("component", "assistant").Logger(),
	}
}

// Respond runs the full pipeline for one user turn.
//
// A cache hit returns immediately with the stored text (still recovery-parsed
// so callers get the structured record). On a miss the generation result is
// written back under the query's detected category unless the backend
// errored or the turn was cancelled.
func (s *Service) Respond(ctx context.Context, req Request) (Reply, error) {
	tr := otel.Tracer("assistant/Service")
	ctx, span := tr.Start(ctx, "Respond",
		trace.WithAttributes(attribute.String("plan", req.Plan)),
	)
	defer span.End()

	cls := classify.Classify(req.Message, req.Type, len(req.Context))
	span.SetAttributes(attribute.String("category", cls.Category))

	if hit, ok := s.Cache.Get(ctx, req.Message, req.Plan); ok {
		return s.finish(hit.Response, cls.Category, true), nil
	}

	text, goals, errored, err := s.generate(ctx, req, cls)
	if err != nil {
		return Reply{}, err
	}
	if len(goals) > 0 && req.SessionID != "" {
		s.goals.SetDefault(req.SessionID, goals)
	}

	reply := s.finish(text, cls.Category, false)
	reply.Goals = goals

	// Errored turns and cancellations are never cached.
	if !errored && ctx.Err() == nil {
		s.Cache.Set(ctx, req.Message, text, cache.Metadata{
			City: req.Destination,
			Plan: req.Plan,
		})
	}
	return reply, nil
}

// SessionGoals returns the goals captured for a session, if any are still
// within their retention window.
func (s *Service) SessionGoals(sessionID string) []string {
	if v, ok := s.goals.Get(sessionID); ok {
		if goals, ok := v.([]string); ok {
			return goals
		}
	}
	return nil
}

// generate performs the single backend call and consumes its result.
func (s *Service) generate(ctx context.Context, req Request, cls classify.Result) (text string, goals []string, errored bool, err error) {
	system := systemPrompt(cls.Category)
	if block := s.Knowledge.Build(ctx, req.Destination, req.Country); block != "" {
		system += "\n\n" + block
	}

	msgs := make([]Message, 0, len(req.Context)+1)
	start := 0
	if n := len(req.Context); n > s.MaxContextTurns {
		start = n - s.MaxContextTurns
	}
	for _, m := range req.Context[start:] {
		if m.Role != "user" && m.Role != "assistant" {
			continue
		}
		msgs = append(msgs, m)
	}
	msgs = append(msgs, Message{Role: "user", Content: req.Message})

	body, streaming, err := s.Backend.Generate(ctx, GenerateRequest{
		System:    system,
		Messages:  msgs,
		Goals:     req.Goals,
		MaxTokens: cls.TokenBudget,
		Stream:    true,
	})
	if err != nil {
		s.log.Error().Err(err).Msg("generation call failed")
		return s.Consumer.ErrorText, nil, true, nil
	}
	defer body.Close()

	if !streaming {
		raw, rerr := io.ReadAll(body)
		if rerr != nil {
			return "", nil, false, rerr
		}
		text, perr := stream.ParseFallback(raw)
		if perr != nil {
			s.log.Error().Err(perr).Msg("non-streaming body unparsable")
			return s.Consumer.ErrorText, nil, true, nil
		}
		return text, nil, false, nil
	}

	out, cerr := s.Consumer.Consume(ctx, body)
	if cerr != nil {
		return "", nil, false, cerr
	}
	return out.Text, out.Goals, out.Errored, nil
}

// finish applies recovery parsing and display splitting to the final text.
func (s *Service) finish(text, category string, cached bool) Reply {
	reply := Reply{Text: text, Category: category, Cached: cached}

	rec := itinerary.Parse(text)
	if rec != nil {
		reply.Record = rec
		reply.Partial = rec.Partial
		if rec.Partial {
			recoveries.WithLabelValues("partial").Inc()
		} else {
			recoveries.WithLabelValues("full").Inc()
		}
		if category == classify.CategoryModify {
			reply.Summary = itinerary.Summary(text, true)
		}
	} else if category != classify.CategoryChat {
		recoveries.WithLabelValues("none").Inc()
		// No structured payload recovered; make sure stray JSON never
		// reaches the user.
		reply.Text = itinerary.Summary(text, false)
		if reply.Text == "" {
			reply.Text = text
		}
	}
	return reply
}

func systemPrompt(category string) string {
	switch category {
	case classify.CategoryChat:
		return promptChat
	case classify.CategoryModify:
		return promptModify
	default:
		return promptGenerate
	}
}
