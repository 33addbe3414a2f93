package repo

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"social-service/model"
)

// MemoryConnectionsRepository keeps connections in insertion order. Create
// checks for an existing pair and inserts under the same write lock.
type MemoryConnectionsRepository struct {
	mu          sync.RWMutex
	connections []model.Connection
	logger      *zap.Logger
}

func NewMemoryConnectionsRepository(connections []model.Connection, logger *zap.Logger) *MemoryConnectionsRepository {
	return &MemoryConnectionsRepository{
		connections: append([]model.Connection(nil), connections...),
		logger:      logger,
	}
}

func (r *MemoryConnectionsRepository) GetByID(_ context.Context, connectionID string) (*model.Connection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, c := range r.connections {
		if c.ID == connectionID {
			return &c, nil
		}
	}
	r.logger.Debug("connection not found", zap.String("connection_id", connectionID))
	return nil, fmt.Errorf("%w: %s", ErrConnectionNotFound, connectionID)
}

func (r *MemoryConnectionsRepository) Get(_ context.Context, users model.Pair) (*model.Connection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.find(users), nil
}

func (r *MemoryConnectionsRepository) find(users model.Pair) *model.Connection {
	for _, c := range r.connections {
		if c.Users.Equal(users) {
			return &c
		}
	}
	return nil
}

func (r *MemoryConnectionsRepository) GetAll(_ context.Context, userID string, offset, limit int) ([]model.Connection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []model.Connection
	for _, c := range r.connections {
		if c.Users.Contains(userID) {
			matched = append(matched, c)
		}
	}
	return paginate(matched, offset, limit), nil
}

func (r *MemoryConnectionsRepository) Create(_ context.Context, users model.Pair) (*model.Connection, error) {
	if !users.Valid() {
		return nil, fmt.Errorf("%w: connection must link two distinct users, got %v", ErrDataIntegrity, [2]string(users))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing := r.find(users); existing != nil {
		r.logger.Warn("connection already exists",
			zap.String("connection_id", existing.ID), zap.Strings("users", users[:]))
		return nil, fmt.Errorf("%w: %s-%s", ErrDuplicateConnection, users[0], users[1])
	}
	c := model.Connection{ID: uuid.NewString(), Users: users}
	r.connections = append(r.connections, c)
	return &c, nil
}

func (r *MemoryConnectionsRepository) Delete(_ context.Context, users model.Pair) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, c := range r.connections {
		if c.Users.Equal(users) {
			r.connections = append(r.connections[:i], r.connections[i+1:]...)
			return nil
		}
	}
	r.logger.Debug("connection not found", zap.Strings("users", users[:]))
	return fmt.Errorf("%w: %s-%s", ErrConnectionNotFound, users[0], users[1])
}

func (r *MemoryConnectionsRepository) Count(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.connections), nil
}
