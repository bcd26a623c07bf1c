// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// KnowledgeFact model, read by the knowledge context builder and written by
// the out-of-scope collection jobs.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-travel-backend/internal/domain"
)

// ListFreshFacts returns every unexpired fact for destination, newest first.
// Destination matching is exact on the stored (lowercased) name.
func ListFreshFacts(ctx context.Context, db *gorm.DB, destination string, now time.Time) ([]domain.KnowledgeFact, error) {
	var out []domain.KnowledgeFact
	err := db.WithContext(ctx).
		Where("destination = ? AND expires_at > ?", destination, now).
		Order("created_at desc").
		Find(&out).Error
	return out, err
}

// CountFreshFacts returns the number of unexpired facts for destination.
func CountFreshFacts(ctx context.Context, db *gorm.DB, destination string, now time.Time) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.KnowledgeFact{}).
		Where("destination = ? AND expires_at > ?", destination, now).
		Count(&total).Error
	return total, err
}

// InsertFacts stores a batch of facts in one statement. Used by tests and by
// the collection callback when the collaborator returns records directly.
func InsertFacts(ctx context.Context, db *gorm.DB, facts []domain.KnowledgeFact) error {
	if len(facts) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&facts).Error
}

// DeleteExpiredFacts removes facts whose freshness horizon has passed and
// returns the number of rows deleted. Shares the background sweeper with the
// answer table.
func DeleteExpiredFacts(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	res := db.WithContext(ctx).
		Where("expires_at <= ?", now).
		Delete(&domain.KnowledgeFact{})
	return res.RowsAffected, res.Error
}
