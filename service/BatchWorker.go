package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"social-service/repo"
)

// BatchJob is a request to connect one user to many, processed off the
// request path.
type BatchJob struct {
	ID      string
	UserID  string
	UserIDs []string
}

// BatchAddConnections accepts the job and returns its id without waiting for
// it to run. Nothing about the outcome is guaranteed to the caller.
func (s *SocialService) BatchAddConnections(ctx context.Context, userID string, ids []string) (string, error) {
	if len(ids) == 0 {
		return "", fmt.Errorf("%w: ids must not be empty", ErrMalformedInput)
	}
	if _, err := s.GetUser(ctx, userID); err != nil {
		return "", err
	}

	job := BatchJob{ID: uuid.NewString(), UserID: userID, UserIDs: append([]string(nil), ids...)}
	select {
	case s.batches <- job:
		s.logger.Info("batch connection job accepted",
			zap.String("job_id", job.ID), zap.String("user_id", userID), zap.Int("size", len(ids)))
		return job.ID, nil
	default:
		return "", ErrBatchQueueFull
	}
}

// RunBatchWorker drains the batch queue until ctx is done. Failed items are
// logged and skipped; nothing is retried.
func (s *SocialService) RunBatchWorker(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case job := <-s.batches:
			s.processBatch(ctx, job)
		}
	}
}

func (s *SocialService) processBatch(ctx context.Context, job BatchJob) {
	var added, skipped int
	for _, other := range job.UserIDs {
		err := s.AddConnection(ctx, job.UserID, other)
		switch {
		case err == nil:
			added++
		case errors.Is(err, repo.ErrDuplicateConnection):
			skipped++
		default:
			skipped++
			s.logger.Warn("batch connection failed",
				zap.String("job_id", job.ID), zap.String("user_id", job.UserID),
				zap.String("other", other), zap.Error(err))
		}
	}
	s.logger.Info("batch connection job finished",
		zap.String("job_id", job.ID), zap.Int("added", added), zap.Int("skipped", skipped))
}
