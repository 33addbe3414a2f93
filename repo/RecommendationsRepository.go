package repo

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"social-service/model"
)

type MemoryRecommendationsRepository struct {
	mu              sync.RWMutex
	recommendations []model.Recommendation
	logger          *zap.Logger
}

func NewMemoryRecommendationsRepository(recommendations []model.Recommendation, logger *zap.Logger) *MemoryRecommendationsRepository {
	return &MemoryRecommendationsRepository{
		recommendations: append([]model.Recommendation(nil), recommendations...),
		logger:          logger,
	}
}

func (r *MemoryRecommendationsRepository) Get(_ context.Context, userID string, offset, limit int) ([]model.Recommendation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []model.Recommendation
	for _, rec := range r.recommendations {
		if rec.User == userID {
			matched = append(matched, rec)
		}
	}
	return paginate(matched, offset, limit), nil
}

func (r *MemoryRecommendationsRepository) Save(_ context.Context, userID, recommendedUserID string) (*model.Recommendation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec := model.Recommendation{ID: uuid.NewString(), User: userID, RecommendedUser: recommendedUserID}
	r.recommendations = append(r.recommendations, rec)
	return &rec, nil
}

func (r *MemoryRecommendationsRepository) Delete(_ context.Context, recommendationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, rec := range r.recommendations {
		if rec.ID == recommendationID {
			r.recommendations = append(r.recommendations[:i], r.recommendations[i+1:]...)
			return nil
		}
	}
	r.logger.Debug("recommendation not found", zap.String("recommendation_id", recommendationID))
	return fmt.Errorf("%w: %s", ErrRecommendationNotFound, recommendationID)
}

func (r *MemoryRecommendationsRepository) Total(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.recommendations), nil
}
