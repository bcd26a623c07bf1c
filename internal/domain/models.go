// Package domain defines the persistence models for cached answers and
// curated knowledge facts. These types are mapped with GORM and form the
// core data layer of the travel-assistant backend.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// CachedAnswer is one stored assistant response, keyed by the fingerprint of
// (plan tier + normalized query). Exactly one row exists per fingerprint;
// repeated writes replace the response body and extend the expiry.
//
// Fields:
//   - QueryHash: sha256 fingerprint, unique; the cache key.
//   - QueryNormalized: canonical form of the query (see cache.Normalize).
//   - Response: full answer text served on a hit.
//   - City: optional destination tag used by city-wide invalidation.
//   - Category: coarse subject classification selecting the TTL
//     (weather, currency, price, general, ...).
//   - Hits: approximate, monotonically non-decreasing hit counter.
//   - ExpiresAt: moment after which the row is ignored and eligible for sweep.
//
// Rows are hard-deleted: invalidation and the sweeper must free the
// fingerprint for re-insertion, so no soft-delete column here.
type CachedAnswer struct {
	ID              uint      `json:"id"               gorm:"primaryKey"`
	QueryHash       string    `json:"query_hash"       gorm:"type:char(64);not null;uniqueIndex:ux_answers_hash"`
	QueryNormalized string    `json:"query_normalized" gorm:"type:text;not null"`
	Response        string    `json:"response"         gorm:"type:text;not null"`
	City            string    `json:"city,omitempty"   gorm:"type:varchar(128);index:idx_answers_city"`
	Category        string    `json:"category"         gorm:"type:varchar(32);not null;default:'general'"`
	Hits            int64     `json:"hits"             gorm:"not null;default:0"`
	ExpiresAt       time.Time `json:"expires_at"       gorm:"not null;index:idx_answers_expiry"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// TableName returns the database table name for CachedAnswer.
func (CachedAnswer) TableName() string { return "cached_answers" }

// KnowledgeFact is a single curated statement about a destination, written by
// the out-of-scope collection jobs and read by the knowledge context builder.
// Facts carry their own expiry so stale information (exchange rates, prices)
// ages out independently of the rows around it.
//
// Fields:
//   - Destination: lowercase city name the fact describes (indexed).
//   - Country: optional source country used when requesting collection.
//   - Kind: restaurant | attraction | hotel | exchange_rate | tip.
//   - Content: the fact text appended to the outbound prompt.
//   - ExpiresAt: freshness horizon; expired facts are never served.
type KnowledgeFact struct {
	ID          uint           `json:"id"          gorm:"primaryKey"`
	Destination string         `json:"destination" gorm:"type:varchar(128);not null;index:idx_facts_dest"`
	Country     string         `json:"country,omitempty" gorm:"type:varchar(128)"`
	Kind        string         `json:"kind"        gorm:"type:varchar(32);not null;index:idx_facts_kind"`
	Content     string         `json:"content"     gorm:"type:text;not null"`
	ExpiresAt   time.Time      `json:"expires_at"  gorm:"not null;index:idx_facts_expiry"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-"           gorm:"index"`
}

// TableName returns the database table name for KnowledgeFact.
func (KnowledgeFact) TableName() string { return "knowledge_facts" }
