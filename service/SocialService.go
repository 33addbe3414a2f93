package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"social-service/model"
	"social-service/repo"
)

var (
	ErrInvalidIDs     = errors.New("user ids must be non-empty and different")
	ErrMalformedInput = errors.New("malformed input")
	ErrBatchQueueFull = errors.New("batch queue is full")
)

// DeleteRecommendationsPageSize bounds DeleteRecommendations to a single page.
const DeleteRecommendationsPageSize = 50

type Config struct {
	ConnectionsMaxPageSize     int
	RecommendationsMaxPageSize int
	BatchQueueSize             int
}

func DefaultConfig() Config {
	return Config{
		ConnectionsMaxPageSize:     50,
		RecommendationsMaxPageSize: 50,
		BatchQueueSize:             64,
	}
}

// SocialService is the controller between the transports and the
// repositories. It turns repository records into user views and enforces the
// page-size ceilings the repositories do not.
type SocialService struct {
	Users           repo.UsersRepository
	Connections     repo.ConnectionsRepository
	Recommendations repo.RecommendationsRepository

	cfg     Config
	logger  *zap.Logger
	batches chan BatchJob
}

func NewSocialService(users repo.UsersRepository, connections repo.ConnectionsRepository,
	recommendations repo.RecommendationsRepository, cfg Config, logger *zap.Logger) *SocialService {
	if cfg.BatchQueueSize <= 0 {
		cfg.BatchQueueSize = DefaultConfig().BatchQueueSize
	}
	return &SocialService{
		Users:           users,
		Connections:     connections,
		Recommendations: recommendations,
		cfg:             cfg,
		logger:          logger,
		batches:         make(chan BatchJob, cfg.BatchQueueSize),
	}
}

func (s *SocialService) Config() Config {
	return s.cfg
}

func (s *SocialService) GetUser(ctx context.Context, userID string) (*model.User, error) {
	return s.Users.Get(ctx, userID)
}

// ProfileUpdate lists the profile fields a caller may change. Nil means keep.
type ProfileUpdate struct {
	Name    *string
	College *string
}

// ProfileUpdateFromMap reads name and college from an untrusted patch
// document. Unknown keys are ignored.
func ProfileUpdateFromMap(patch map[string]any) (ProfileUpdate, error) {
	var update ProfileUpdate
	for key, target := range map[string]**string{"name": &update.Name, "college": &update.College} {
		raw, ok := patch[key]
		if !ok {
			continue
		}
		value, ok := raw.(string)
		if !ok {
			return ProfileUpdate{}, fmt.Errorf("%w: %s must be a string", ErrMalformedInput, key)
		}
		*target = &value
	}
	return update, nil
}

func (s *SocialService) UpdateUserDetails(ctx context.Context, userID string, update ProfileUpdate) (*model.User, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	profile := user.Profile
	if update.Name != nil {
		s.logger.Debug("field will be updated", zap.String("field", "name"), zap.String("user_id", userID))
		profile.Name = *update.Name
	}
	if update.College != nil {
		s.logger.Debug("field will be updated", zap.String("field", "college"), zap.String("user_id", userID))
		profile.College = *update.College
	}
	return s.Users.Update(ctx, userID, profile)
}

func (s *SocialService) AddUser(ctx context.Context, email, name, college string) (*model.User, error) {
	email, name, college = strings.TrimSpace(email), strings.TrimSpace(name), strings.TrimSpace(college)
	if email == "" || name == "" || college == "" {
		return nil, fmt.Errorf("%w: email, name and college are required", ErrMalformedInput)
	}

	s.logger.Info("a new user signed up", zap.String("email", email))
	return s.Users.Create(ctx, email, model.Profile{Name: name, College: college})
}

// RemoveUser deletes the user together with their connections and the
// recommendations made for them. Recommendations pointing at the user from
// other users stay and are skipped when listed.
func (s *SocialService) RemoveUser(ctx context.Context, userID string) error {
	if _, err := s.GetUser(ctx, userID); err != nil {
		return err
	}
	s.logger.Info("deleting user", zap.String("user_id", userID))

	connections, err := s.Connections.GetAll(ctx, userID, 0, 0)
	if err != nil {
		return err
	}
	for _, c := range connections {
		if err := s.Connections.Delete(ctx, c.Users); err != nil && !errors.Is(err, repo.ErrConnectionNotFound) {
			return err
		}
	}

	recommendations, err := s.Recommendations.Get(ctx, userID, 0, 0)
	if err != nil {
		return err
	}
	for _, r := range recommendations {
		if err := s.Recommendations.Delete(ctx, r.ID); err != nil && !errors.Is(err, repo.ErrRecommendationNotFound) {
			return err
		}
	}
	s.logger.Debug("user edges removed", zap.String("user_id", userID),
		zap.Int("connections", len(connections)), zap.Int("recommendations", len(recommendations)))

	return s.Users.Delete(ctx, userID)
}

// Page is one page of resolved users. Next is the offset of the following
// page in repository rows, so rows skipped while resolving are not served twice.
type Page struct {
	Users []model.User
	Next  int
}

// GetConnections returns up to min(limit, ConnectionsMaxPageSize) connected
// users in discovery order, never userID itself.
func (s *SocialService) GetConnections(ctx context.Context, userID string, offset, limit int) ([]model.User, error) {
	page, err := s.GetConnectionsPage(ctx, userID, offset, limit)
	return page.Users, err
}

func (s *SocialService) GetConnectionsPage(ctx context.Context, userID string, offset, limit int) (Page, error) {
	limit = clamp(limit, s.cfg.ConnectionsMaxPageSize)
	offset = max(offset, 0)

	connections, err := s.Connections.GetAll(ctx, userID, offset, limit)
	if err != nil {
		return Page{}, err
	}

	ids := make([]string, 0, len(connections))
	for _, c := range connections {
		other, err := c.Users.Other(userID)
		if err != nil {
			return Page{}, fmt.Errorf("%w: connection %s: %v", repo.ErrDataIntegrity, c.ID, err)
		}
		s.logger.Debug("found connection",
			zap.String("connection_id", c.ID), zap.String("connected_user", other))
		ids = append(ids, other)
	}
	return s.resolveUsers(ctx, ids, offset, limit)
}

// resolveUsers looks up each id once, skipping users that no longer exist,
// and stops at limit even if the repository returned more.
func (s *SocialService) resolveUsers(ctx context.Context, ids []string, offset, limit int) (Page, error) {
	users := make([]model.User, 0, min(len(ids), limit))
	seen := make(map[string]struct{}, len(ids))
	consumed := 0
	for _, id := range ids {
		if len(users) >= limit {
			s.logger.Warn("the data repository returned more than the limit", zap.Int("limit", limit))
			break
		}
		consumed++
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		user, err := s.GetUser(ctx, id)
		if errors.Is(err, repo.ErrUserNotFound) {
			s.logger.Warn("skipping reference to a removed user", zap.String("user_id", id))
			continue
		}
		if err != nil {
			return Page{}, err
		}
		users = append(users, *user)
	}
	return Page{Users: users, Next: offset + consumed}, nil
}

func (s *SocialService) pair(u1, u2 string) (model.Pair, error) {
	p := model.NewPair(u1, u2)
	if !p.Valid() {
		return p, ErrInvalidIDs
	}
	return p, nil
}

// AddConnection links two existing users. A second call for the same pair, in
// either order, fails with repo.ErrDuplicateConnection.
func (s *SocialService) AddConnection(ctx context.Context, u1, u2 string) error {
	// biznis validacija u servis sloju
	p, err := s.pair(u1, u2)
	if err != nil {
		return err
	}
	for _, id := range p {
		if _, err := s.GetUser(ctx, id); err != nil {
			return err
		}
	}

	s.logger.Info("adding a new connection", zap.String("user1", p[0]), zap.String("user2", p[1]))
	_, err = s.Connections.Create(ctx, p)
	return err
}

func (s *SocialService) RemoveConnection(ctx context.Context, u1, u2 string) error {
	p, err := s.pair(u1, u2)
	if err != nil {
		return err
	}
	s.logger.Info("removing the connection", zap.String("user1", p[0]), zap.String("user2", p[1]))
	return s.Connections.Delete(ctx, p)
}

func (s *SocialService) CheckConnectionExists(ctx context.Context, u1, u2 string) (bool, error) {
	p, err := s.pair(u1, u2)
	if err != nil {
		return false, err
	}
	c, err := s.Connections.Get(ctx, p)
	if err != nil {
		return false, err
	}
	return c != nil, nil
}

// GetRecommendations mirrors GetConnections for recommended users.
func (s *SocialService) GetRecommendations(ctx context.Context, userID string, offset, limit int) ([]model.User, error) {
	page, err := s.GetRecommendationsPage(ctx, userID, offset, limit)
	return page.Users, err
}

func (s *SocialService) GetRecommendationsPage(ctx context.Context, userID string, offset, limit int) (Page, error) {
	limit = clamp(limit, s.cfg.RecommendationsMaxPageSize)
	offset = max(offset, 0)

	recommendations, err := s.Recommendations.Get(ctx, userID, offset, limit)
	if err != nil {
		return Page{}, err
	}

	ids := make([]string, 0, len(recommendations))
	for _, r := range recommendations {
		s.logger.Debug("found recommendation",
			zap.String("recommendation_id", r.ID), zap.String("recommended_user", r.RecommendedUser))
		ids = append(ids, r.RecommendedUser)
	}
	return s.resolveUsers(ctx, ids, offset, limit)
}

// AddRecommendations stores one recommendation per distinct id. It is the
// entry point for the external recommendation job. Every id must name an
// existing user; nothing is stored otherwise.
func (s *SocialService) AddRecommendations(ctx context.Context, userID string, recommendedIDs []string) error {
	ids, err := s.existingUsers(ctx, recommendedIDs)
	if err != nil {
		return err
	}
	return s.saveRecommendations(ctx, userID, ids)
}

// existingUsers dedupes ids and fails with repo.ErrUserNotFound on the first
// unknown one.
func (s *SocialService) existingUsers(ctx context.Context, ids []string) ([]string, error) {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if _, err := s.GetUser(ctx, id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

func (s *SocialService) saveRecommendations(ctx context.Context, userID string, ids []string) error {
	for _, id := range ids {
		s.logger.Info("adding a new recommendation", zap.String("user_id", userID), zap.String("recommended_user", id))
		if _, err := s.Recommendations.Save(ctx, userID, id); err != nil {
			return err
		}
	}
	return nil
}

// DeleteRecommendations purges stale recommendations. Only the first
// DeleteRecommendationsPageSize entries are inspected, so a user with more
// keeps the remainder.
func (s *SocialService) DeleteRecommendations(ctx context.Context, userID string) error {
	recommendations, err := s.Recommendations.Get(ctx, userID, 0, DeleteRecommendationsPageSize)
	if err != nil {
		return err
	}
	for _, r := range recommendations {
		s.logger.Info("removing the recommendation", zap.String("user_id", userID), zap.String("recommended_user", r.RecommendedUser))
		if err := s.Recommendations.Delete(ctx, r.ID); err != nil {
			return err
		}
	}
	return nil
}

// RefreshRecommendations replaces a user's recommendations with a fresh set.
// An unknown id fails the call before anything is deleted.
func (s *SocialService) RefreshRecommendations(ctx context.Context, userID string, recommendedIDs []string) error {
	ids, err := s.existingUsers(ctx, recommendedIDs)
	if err != nil {
		return err
	}
	if err := s.DeleteRecommendations(ctx, userID); err != nil {
		return err
	}
	return s.saveRecommendations(ctx, userID, ids)
}

func clamp(limit, ceiling int) int {
	if limit <= 0 || limit > ceiling {
		return ceiling
	}
	return limit
}
