// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// CachedAnswer model, the persistent tier of the response cache.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a valid (unexpired) answer is not found, FindValidAnswer returns
//     gorm.ErrRecordNotFound (also exported here as ErrNotFound).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated. The cache layer above treats every
//     error as a miss; these functions never hide failures themselves.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-travel-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the cache layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// UpsertAnswer inserts a CachedAnswer row or, when the fingerprint already
// exists, replaces the response body, city, category and expiry and bumps the
// hit counter. Last writer wins on the body; the counter update is an
// approximate, non-linearizable increment.
func UpsertAnswer(ctx context.Context, db *gorm.DB, a *domain.CachedAnswer) error {
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "query_hash"}},
		DoUpdates: clause.Assignments(map[string]any{
			"response":   a.Response,
			"city":       a.City,
			"category":   a.Category,
			"expires_at": a.ExpiresAt,
			"hits":       gorm.Expr("hits + 1"),
			"updated_at": time.Now().UTC(),
		}),
	}).Create(a).Error
}

// FindValidAnswer fetches the row for queryHash whose expiry is still in the
// future. Expired rows are invisible here even before the sweeper removes
// them. Returns ErrNotFound when no live row exists.
func FindValidAnswer(ctx context.Context, db *gorm.DB, queryHash string, now time.Time) (*domain.CachedAnswer, error) {
	var a domain.CachedAnswer
	err := db.WithContext(ctx).
		Where("query_hash = ? AND expires_at > ?", queryHash, now).
		First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// IncrementHits bumps the hit counter for queryHash. The increment is
// fire-and-forget from the cache's point of view: a failure here must not
// fail the lookup that triggered it.
func IncrementHits(ctx context.Context, db *gorm.DB, queryHash string) error {
	return db.WithContext(ctx).
		Model(&domain.CachedAnswer{}).
		Where("query_hash = ?", queryHash).
		Update("hits", gorm.Expr("hits + 1")).Error
}

// DeleteExpiredAnswers removes every row whose expiry has passed and returns
// the number of rows deleted. Called by the background sweeper; foreground
// lookups never depend on it having run.
func DeleteExpiredAnswers(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	res := db.WithContext(ctx).
		Where("expires_at <= ?", now).
		Delete(&domain.CachedAnswer{})
	return res.RowsAffected, res.Error
}

// DeleteAnswersByCity removes every row tagged with the given city and
// returns the number of rows deleted. City matching is exact on the stored
// (lowercased) tag.
func DeleteAnswersByCity(ctx context.Context, db *gorm.DB, city string) (int64, error) {
	res := db.WithContext(ctx).
		Where("city = ?", city).
		Delete(&domain.CachedAnswer{})
	return res.RowsAffected, res.Error
}

// AnswerStats returns the total number of live rows and the sum of their hit
// counters. Used by the admin surface and metrics, never by request handling.
func AnswerStats(ctx context.Context, db *gorm.DB, now time.Time) (count int64, hits int64, err error) {
	q := db.WithContext(ctx).
		Model(&domain.CachedAnswer{}).
		Where("expires_at > ?", now)
	if err = q.Count(&count).Error; err != nil {
		return 0, 0, err
	}
	if count == 0 {
		return 0, 0, nil
	}
	var row struct {
		Total int64
	}
	if err = q.Select("COALESCE(SUM(hits), 0) AS total").Scan(&row).Error; err != nil {
		return 0, 0, err
	}
	return count, row.Total, nil
}
