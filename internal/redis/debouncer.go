package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/RAJARYANSINGH0059/Convolve/internal/metrics"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

const debounceInterval = 30 * time.Second

// Debouncer suppresses duplicate feedback submissions: one doctor gets
// one accepted submission per report within the debounce interval.
type Debouncer struct {
	rdb goredis.Cmdable
}

func NewDebouncer(rdb goredis.Cmdable) *Debouncer {
	return &Debouncer{rdb: rdb}
}

// CheckDebounce returns true if the submission is allowed, false if a
// recent submission from the same doctor on the same report exists.
func (d *Debouncer) CheckDebounce(ctx context.Context, reportID uuid.UUID, doctorID string) (bool, error) {
	dk := debounceKey(reportID, doctorID)
	set, err := d.rdb.SetNX(ctx, dk, "1", debounceInterval).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check debounce: %w", err)
	}
	if !set {
		metrics.FeedbackDebounced.Inc()
	}
	return set, nil
}

func debounceKey(reportID uuid.UUID, doctorID string) string {
	return "feedback_debounce:" + reportID.String() + ":" + doctorID
}
