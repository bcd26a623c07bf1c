// Cache administration handlers.
//
//   - DELETE /cache/cities/{city}   (invalidate every answer tagged with a city)
//   - POST   /cache/cleanup         (sweep expired rows immediately)
//
// These exist for the pricing and freshness jobs that change the data cached
// answers were derived from; they are not part of the end-user surface.
package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// CacheAdmin defines the maintenance operations exposed over HTTP.
type CacheAdmin interface {
	// InvalidateCity removes answers tagged with city from both tiers and
	// returns the number of persistent rows deleted.
	InvalidateCity(ctx context.Context, city string) int64
	// Cleanup deletes expired persistent rows and returns the count.
	Cleanup(ctx context.Context) int64
}

// InvalidateCity handles DELETE /cache/cities/:city.
func (h *Handlers) InvalidateCity(c *gin.Context) {
	city := strings.TrimSpace(c.Param("city"))
	if city == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "city is required")
		return
	}
	deleted := h.cacheAdm.InvalidateCity(c.Request.Context(), city)
	ok(c, http.StatusOK, gin.H{"city": city, "deleted": deleted})
}

// CleanupCache handles POST /cache/cleanup.
func (h *Handlers) CleanupCache(c *gin.Context) {
	deleted := h.cacheAdm.Cleanup(c.Request.Context())
	ok(c, http.StatusOK, gin.H{"deleted": deleted})
}
