package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/RAJARYANSINGH0059/Convolve/internal/domain"
	"github.com/RAJARYANSINGH0059/Convolve/internal/metrics"
)

const (
	reportCachePrefix = "report_cache:"
	reportCacheTTL    = 1 * time.Hour
)

// ReportCache provides read-through report caching: Redis first, then
// PostgreSQL. A feedback rescan rewrites a report and must call
// Invalidate so readers never see the stale cached copy.
type ReportCache struct {
	rdb     goredis.Cmdable
	reports domain.ReportRepository
}

func NewReportCache(rdb goredis.Cmdable, reports domain.ReportRepository) *ReportCache {
	return &ReportCache{rdb: rdb, reports: reports}
}

// GetReport looks up a report by ID with read-through caching.
func (c *ReportCache) GetReport(ctx context.Context, id uuid.UUID) (*domain.ConsolidatedReport, error) {
	key := reportCachePrefix + id.String()

	data, err := c.rdb.Get(ctx, key).Bytes()
	if err == nil {
		var report domain.ConsolidatedReport
		if err := json.Unmarshal(data, &report); err != nil {
			slog.Warn("Failed to unmarshal cached report, falling through to PostgreSQL",
				"report_id", id, "error", err)
		} else {
			metrics.ReportCacheHits.Inc()
			return &report, nil
		}
	} else if !errors.Is(err, goredis.Nil) {
		// Redis error, log and fall through to PostgreSQL
		slog.Warn("Redis report cache GET failed, falling through to PostgreSQL",
			"report_id", id, "error", err)
	}

	report, err := c.reports.GetReport(ctx, id)
	if err != nil {
		return nil, err
	}

	metrics.ReportCacheMisses.Inc()

	// Populate cache best-effort
	if encoded, err := json.Marshal(report); err == nil {
		if err := c.rdb.Set(ctx, key, encoded, reportCacheTTL).Err(); err != nil {
			slog.Warn("Failed to populate report cache", "report_id", id, "error", err)
		}
	}

	return report, nil
}

// Invalidate removes a report from the cache.
func (c *ReportCache) Invalidate(ctx context.Context, id uuid.UUID) error {
	if err := c.rdb.Del(ctx, reportCachePrefix+id.String()).Err(); err != nil {
		return fmt.Errorf("failed to invalidate report cache: %w", err)
	}
	return nil
}
