package repo

import (
	"context"
	"testing"
	"time"

	"github.com/tbourn/go-travel-backend/internal/domain"
)

func fact(dest, kind, content string, expires time.Time) domain.KnowledgeFact {
	return domain.KnowledgeFact{
		Destination: dest,
		Kind:        kind,
		Content:     content,
		ExpiresAt:   expires,
	}
}

func TestInsertAndListFreshFacts(t *testing.T) {
	db := newRepoDB(t, &domain.KnowledgeFact{})
	ctx := context.Background()
	now := time.Now()

	err := InsertFacts(ctx, db, []domain.KnowledgeFact{
		fact("제주도", "restaurant", "흑돼지 거리", now.Add(24*time.Hour)),
		fact("제주도", "tip", "렌터카 필수", now.Add(24*time.Hour)),
		fact("제주도", "exchange_rate", "해당 없음", now.Add(-time.Hour)), // expired
		fact("부산", "restaurant", "돼지국밥", now.Add(24*time.Hour)),
	})
	if err != nil {
		t.Fatalf("InsertFacts: %v", err)
	}

	got, err := ListFreshFacts(ctx, db, "제주도", now)
	if err != nil {
		t.Fatalf("ListFreshFacts: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("facts = %d, want 2 (expired and other-city excluded)", len(got))
	}
	for _, f := range got {
		if f.Destination != "제주도" {
			t.Fatalf("wrong destination: %+v", f)
		}
	}

	total, err := CountFreshFacts(ctx, db, "제주도", now)
	if err != nil {
		t.Fatalf("CountFreshFacts: %v", err)
	}
	if total != 2 {
		t.Fatalf("count = %d, want 2", total)
	}
}

func TestInsertFacts_EmptyBatchIsNoop(t *testing.T) {
	db := newRepoDB(t, &domain.KnowledgeFact{})
	if err := InsertFacts(context.Background(), db, nil); err != nil {
		t.Fatalf("empty batch errored: %v", err)
	}
}

func TestDeleteExpiredFacts(t *testing.T) {
	db := newRepoDB(t, &domain.KnowledgeFact{})
	ctx := context.Background()
	now := time.Now()

	err := InsertFacts(ctx, db, []domain.KnowledgeFact{
		fact("다낭", "tip", "우기 조심", now.Add(-time.Minute)),
		fact("다낭", "restaurant", "반쎄오 골목", now.Add(time.Hour)),
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	n, err := DeleteExpiredFacts(ctx, db, now)
	if err != nil {
		t.Fatalf("DeleteExpiredFacts: %v", err)
	}
	if n != 1 {
		t.Fatalf("deleted = %d, want 1", n)
	}

	left, err := ListFreshFacts(ctx, db, "다낭", now)
	if err != nil {
		t.Fatalf("ListFreshFacts: %v", err)
	}
	if len(left) != 1 || left[0].Kind != "restaurant" {
		t.Fatalf("remaining = %+v", left)
	}
}
