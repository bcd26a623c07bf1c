// Package knowledge enriches outbound prompts with curated destination
// facts. The builder is a strictly best-effort collaborator: any failure or
// absence of data yields an empty block and generation proceeds unenriched.
// It never raises.
//
// When a destination's fresh-fact count is below the configured minimum and
// a source country is known, the builder triggers exactly one on-demand
// collection attempt before its lookup. There is no retry loop; this is the
// only place a request's latency may be extended synchronously, and it is
// bounded to a single round trip.
package knowledge

import (
	"context"
	"fmt"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/tbourn/go-travel-backend/internal/domain"
)

// Fact kinds the builder knows how to present.
const (
	KindRestaurant   = "restaurant"
	KindAttraction   = "attraction"
	KindHotel        = "hotel"
	KindExchangeRate = "exchange_rate"
	KindTip          = "tip"
)

// FactStore is the read side of the curated fact repository.
type FactStore interface {
	// ListFresh returns every unexpired fact for destination.
	ListFresh(ctx context.Context, destination string, now time.Time) ([]domain.KnowledgeFact, error)
	// CountFresh returns the number of unexpired facts for destination.
	CountFresh(ctx context.Context, destination string, now time.Time) (int64, error)
}

// Collector is the opaque on-demand collection service. Implementations are
// expected to write new facts into the store as a side effect.
type Collector interface {
	// Collect asks the collaborator to gather facts for the destination.
	Collect(ctx context.Context, destination, country string) error
}

// Builder assembles the bounded context block appended to the prompt.
type Builder struct {
	Store     FactStore
	Collector Collector

	// MinFacts is the threshold below which one collection attempt fires.
	MinFacts int
	// TopN caps how many facts of each kind enter the block.
	TopN int
	// CollectTimeout bounds the single collection round trip.
	CollectTimeout time.Duration

	log  zerolog.Logger
	memo *gocache.Cache
}

// New constructs a Builder with defaults: 3-fact minimum, top 3 per kind,
// 8s collection budget, and a short memo window so repeated questions about
// the same city within a couple of minutes skip the store entirely.
func New(store FactStore, collector Collector, log zerolog.Logger) *Builder {
	return &Builder{
		Store:          store,
		Collector:      collector,
		MinFacts:       3,
		TopN:           3,
		CollectTimeout: 8 * time.Second,
		log:            log.With().Str("component", "knowledge_builder").Logger(),
		memo:           gocache.New(2*time.Minute, 10*time.Minute),
	}
}

// Build returns the context block for destination, or "" when nothing useful
// is available. country may be empty; without it no collection attempt is
// made. Build never returns an error.
func (b *Builder) Build(ctx context.Context, destination, country string) string {
	dest := strings.ToLower(strings.TrimSpace(destination))
	if dest == "" || b.Store == nil {
		return ""
	}

	if block, ok := b.memo.Get(dest); ok {
		return block.(string)
	}

	now := time.Now()
	count, err := b.Store.CountFresh(ctx, dest, now)
	if err != nil {
		b.log.Warn().Err(err).Str("destination", dest).Msg("fact count failed")
		return ""
	}
	if count < int64(b.MinFacts) && country != "" && b.Collector != nil {
		b.collectOnce(ctx, dest, country)
	}

	facts, err := b.Store.ListFresh(ctx, dest, now)
	if err != nil {
		b.log.Warn().Err(err).Str("destination", dest).Msg("fact lookup failed")
		return ""
	}
	if len(facts) == 0 {
		return ""
	}

	block := b.render(dest, facts)
	if block != "" {
		b.memo.SetDefault(dest, block)
	}
	return block
}

// collectOnce fires the single best-effort collection attempt. Failure is
// logged and otherwise ignored; the lookup that follows serves whatever the
// store holds.
func (b *Builder) collectOnce(ctx context.Context, dest, country string) {
	cctx, cancel := context.WithTimeout(ctx, b.CollectTimeout)
	defer cancel()

	if err := b.Collector.Collect(cctx, dest, country); err != nil {
		b.log.Warn().Err(err).Str("destination", dest).Msg("on-demand fact collection failed")
	}
}

// render flattens the facts into the bounded text block: top-N restaurants,
// attractions and hotels, then exchange rates and tips.
func (b *Builder) render(dest string, facts []domain.KnowledgeFact) string {
	sections := []struct {
		kind  string
		label string
	}{
		{KindRestaurant, "추천 맛집"},
		{KindAttraction, "주요 명소"},
		{KindHotel, "추천 숙소"},
		{KindExchangeRate, "환율 정보"},
		{KindTip, "여행 팁"},
	}

	var sb strings.Builder
	for _, sec := range sections {
		matched := lo.Filter(facts, func(f domain.KnowledgeFact, _ int) bool {
			return f.Kind == sec.kind
		})
		if len(matched) == 0 {
			continue
		}
		top := lo.Slice(matched, 0, b.TopN)
		lines := lo.Map(top, func(f domain.KnowledgeFact, _ int) string {
			return "- " + strings.TrimSpace(f.Content)
		})
		fmt.Fprintf(&sb, "[%s]\n%s\n", sec.label, strings.Join(lines, "\n"))
	}

	if sb.Len() == 0 {
		return ""
	}
	return fmt.Sprintf("다음은 %s에 대한 검증된 최신 정보입니다. 답변에 활용하세요.\n%s", dest, sb.String())
}
