package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/RAJARYANSINGH0059/Convolve/internal/domain"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

const (
	jobKeyPrefix = "analysis_job:"
	jobTTL       = 24 * time.Hour
)

// JobStore keeps pipeline job state in Redis so status survives the
// originating request and is visible to every instance.
type JobStore struct {
	rdb goredis.Cmdable
}

func NewJobStore(rdb goredis.Cmdable) *JobStore {
	return &JobStore{rdb: rdb}
}

var _ domain.JobStore = (*JobStore)(nil)

func (s *JobStore) Save(ctx context.Context, job *domain.AnalysisJob) error {
	encoded, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}
	if err := s.rdb.Set(ctx, jobKey(job.ID), encoded, jobTTL).Err(); err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}
	return nil
}

func (s *JobStore) Get(ctx context.Context, id uuid.UUID) (*domain.AnalysisJob, error) {
	data, err := s.rdb.Get(ctx, jobKey(id)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, domain.ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	var job domain.AnalysisJob
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}
	return &job, nil
}

func jobKey(id uuid.UUID) string {
	return jobKeyPrefix + id.String()
}
