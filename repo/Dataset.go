package repo

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"social-service/model"
)

// Dataset is the flat JSON document the in-memory repositories are loaded from.
type Dataset struct {
	Users           []UserRecord           `json:"users" validate:"dive"`
	Connections     []ConnectionRecord     `json:"connections" validate:"dive"`
	Recommendations []RecommendationRecord `json:"recommendations" validate:"dive"`
}

type UserRecord struct {
	ID      string `json:"id" validate:"required"`
	Email   string `json:"email" validate:"required"`
	Name    string `json:"name" validate:"required"`
	College string `json:"college" validate:"required"`
}

type ConnectionRecord struct {
	ID    string   `json:"id" validate:"required"`
	Users []string `json:"users" validate:"len=2,dive,required"`
}

type RecommendationRecord struct {
	ID                string `json:"id" validate:"required"`
	UserID            string `json:"user_id" validate:"required"`
	RecommendedUserID string `json:"recommended_user_id" validate:"required"`
}

var datasetValidate = validator.New(validator.WithRequiredStructEnabled())

// LoadDataset reads and validates a data file. Any malformed record fails the
// whole load with ErrDataIntegrity.
func LoadDataset(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open data file: %w", err)
	}
	defer f.Close()
	return DecodeDataset(f)
}

func DecodeDataset(r io.Reader) (*Dataset, error) {
	var ds Dataset
	if err := json.NewDecoder(r).Decode(&ds); err != nil {
		return nil, fmt.Errorf("%w: malformed data file: %v", ErrDataIntegrity, err)
	}
	if err := ds.Validate(); err != nil {
		return nil, err
	}
	return &ds, nil
}

// Validate checks required fields, connection shape and id uniqueness.
func (ds *Dataset) Validate() error {
	if err := datasetValidate.Struct(ds); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: malformed record: %s", ErrDataIntegrity, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: %v", ErrDataIntegrity, err)
	}

	seen := make(map[string]struct{}, len(ds.Users))
	for _, u := range ds.Users {
		if _, dup := seen[u.ID]; dup {
			return fmt.Errorf("%w: duplicate user id %s", ErrDataIntegrity, u.ID)
		}
		seen[u.ID] = struct{}{}
	}

	ids := make(map[string]struct{}, len(ds.Connections))
	pairs := make([]model.Pair, 0, len(ds.Connections))
	for _, c := range ds.Connections {
		if _, dup := ids[c.ID]; dup {
			return fmt.Errorf("%w: duplicate connection id %s", ErrDataIntegrity, c.ID)
		}
		ids[c.ID] = struct{}{}
		pair := model.NewPair(c.Users[0], c.Users[1])
		if !pair.Valid() {
			return fmt.Errorf("%w: connection %s must link two distinct users", ErrDataIntegrity, c.ID)
		}
		for _, p := range pairs {
			if p.Equal(pair) {
				return fmt.Errorf("%w: connection %s duplicates pair %v", ErrDataIntegrity, c.ID, c.Users)
			}
		}
		pairs = append(pairs, pair)
	}

	recs := make(map[string]struct{}, len(ds.Recommendations))
	for _, r := range ds.Recommendations {
		if _, dup := recs[r.ID]; dup {
			return fmt.Errorf("%w: duplicate recommendation id %s", ErrDataIntegrity, r.ID)
		}
		recs[r.ID] = struct{}{}
	}
	return nil
}

// Write encodes the dataset in the on-disk format.
func (ds *Dataset) Write(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(ds)
}

func (ds *Dataset) users() []*model.User {
	out := make([]*model.User, 0, len(ds.Users))
	for _, u := range ds.Users {
		out = append(out, &model.User{
			ID:      u.ID,
			Email:   u.Email,
			Profile: model.Profile{Name: u.Name, College: u.College},
		})
	}
	return out
}

func (ds *Dataset) connections() []model.Connection {
	out := make([]model.Connection, 0, len(ds.Connections))
	for _, c := range ds.Connections {
		out = append(out, model.Connection{ID: c.ID, Users: model.NewPair(c.Users[0], c.Users[1])})
	}
	return out
}

func (ds *Dataset) recommendations() []model.Recommendation {
	out := make([]model.Recommendation, 0, len(ds.Recommendations))
	for _, r := range ds.Recommendations {
		out = append(out, model.Recommendation{ID: r.ID, User: r.UserID, RecommendedUser: r.RecommendedUserID})
	}
	return out
}

// NewMemoryRepositories builds the three in-memory repositories from one dataset.
func NewMemoryRepositories(ds *Dataset, logger *zap.Logger) (*MemoryUsersRepository, *MemoryConnectionsRepository, *MemoryRecommendationsRepository) {
	if ds == nil {
		ds = &Dataset{}
	}
	return &MemoryUsersRepository{users: ds.users(), logger: logger},
		&MemoryConnectionsRepository{connections: ds.connections(), logger: logger},
		&MemoryRecommendationsRepository{recommendations: ds.recommendations(), logger: logger}
}
