package repo

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"social-service/model"
)

// MemoryUsersRepository keeps users in a slice scanned linearly.
type MemoryUsersRepository struct {
	mu     sync.RWMutex
	users  []*model.User
	logger *zap.Logger
}

func NewMemoryUsersRepository(users []model.User, logger *zap.Logger) *MemoryUsersRepository {
	r := &MemoryUsersRepository{logger: logger}
	for i := range users {
		u := users[i]
		r.users = append(r.users, &u)
	}
	return r
}

func (r *MemoryUsersRepository) Get(_ context.Context, userID string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.get(userID)
}

func (r *MemoryUsersRepository) get(userID string) (*model.User, error) {
	for _, u := range r.users {
		if u.ID == userID {
			cp := *u
			return &cp, nil
		}
	}
	r.logger.Debug("user not found", zap.String("user_id", userID))
	return nil, fmt.Errorf("%w: %s", ErrUserNotFound, userID)
}

func (r *MemoryUsersRepository) Create(_ context.Context, email string, profile model.Profile) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := uuid.NewString()
	r.users = append(r.users, &model.User{ID: id, Email: email, Profile: profile})
	return r.get(id)
}

func (r *MemoryUsersRepository) Update(_ context.Context, userID string, profile model.Profile) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.ID == userID {
			u.Profile = profile
			break
		}
	}
	return r.get(userID)
}

func (r *MemoryUsersRepository) Delete(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, u := range r.users {
		if u.ID == userID {
			r.users = append(r.users[:i], r.users[i+1:]...)
			return nil
		}
	}
	r.logger.Debug("user not found", zap.String("user_id", userID))
	return fmt.Errorf("%w: %s", ErrUserNotFound, userID)
}

func (r *MemoryUsersRepository) Count(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users), nil
}
