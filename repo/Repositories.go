package repo

import (
	"context"

	"social-service/model"
)

// UsersRepository owns the user collection.
type UsersRepository interface {
	Get(ctx context.Context, userID string) (*model.User, error)
	// Create assigns a new id. Email uniqueness is not enforced.
	Create(ctx context.Context, email string, profile model.Profile) (*model.User, error)
	// Update replaces the profile in place. For an unknown id nothing is
	// written and the lookup error is returned.
	Update(ctx context.Context, userID string, profile model.Profile) (*model.User, error)
	Delete(ctx context.Context, userID string) error
	Count(ctx context.Context) (int, error)
}

// ConnectionsRepository owns the undirected connection collection. At most
// one connection exists per unordered pair.
type ConnectionsRepository interface {
	GetByID(ctx context.Context, connectionID string) (*model.Connection, error)
	// Get returns nil, nil when the pair is not connected.
	Get(ctx context.Context, users model.Pair) (*model.Connection, error)
	// GetAll returns the connections of userID whose index in discovery order
	// falls in [offset, offset+limit). limit <= 0 means no upper bound.
	GetAll(ctx context.Context, userID string, offset, limit int) ([]model.Connection, error)
	Create(ctx context.Context, users model.Pair) (*model.Connection, error)
	Delete(ctx context.Context, users model.Pair) error
	Count(ctx context.Context) (int, error)
}

// RecommendationsRepository owns the recommendation collection.
type RecommendationsRepository interface {
	// Get pages the same way as ConnectionsRepository.GetAll.
	Get(ctx context.Context, userID string, offset, limit int) ([]model.Recommendation, error)
	// Save does not promise to check that either user exists: the memory
	// backend stores any ids, Neo4j fails with ErrUserNotFound. Callers
	// validate first.
	Save(ctx context.Context, userID, recommendedUserID string) (*model.Recommendation, error)
	Delete(ctx context.Context, recommendationID string) error
	Total(ctx context.Context) (int, error)
}

func paginate[T any](items []T, offset, limit int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}
