package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"social-service/model"
)

type Neo4jUsersRepository struct {
	store *Neo4jStore
}

func (r *Neo4jUsersRepository) Get(ctx context.Context, userID string) (*model.User, error) {
	const cypher = `
		MATCH (u:User {id: $id})
		RETURN u.id AS id, u.email AS email, u.name AS name, u.college AS college
	`
	records, err := r.store.read(ctx, cypher, map[string]any{"id": userID})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, userID)
	}
	rec := records[0]
	return &model.User{
		ID:    stringFromRecord(rec, "id"),
		Email: stringFromRecord(rec, "email"),
		Profile: model.Profile{
			Name:    stringFromRecord(rec, "name"),
			College: stringFromRecord(rec, "college"),
		},
	}, nil
}

func (r *Neo4jUsersRepository) Create(ctx context.Context, email string, profile model.Profile) (*model.User, error) {
	const cypher = `CREATE (u:User {id: $id, email: $email, name: $name, college: $college})`
	id := uuid.NewString()
	params := map[string]any{"id": id, "email": email, "name": profile.Name, "college": profile.College}
	if _, err := r.store.write(ctx, cypher, params); err != nil {
		return nil, err
	}
	return r.Get(ctx, id)
}

func (r *Neo4jUsersRepository) Update(ctx context.Context, userID string, profile model.Profile) (*model.User, error) {
	const cypher = `
		MATCH (u:User {id: $id})
		SET u.name = $name, u.college = $college
	`
	params := map[string]any{"id": userID, "name": profile.Name, "college": profile.College}
	if _, err := r.store.write(ctx, cypher, params); err != nil {
		return nil, err
	}
	return r.Get(ctx, userID)
}

// Delete also drops the user's relationships; the graph cannot keep dangling edges.
func (r *Neo4jUsersRepository) Delete(ctx context.Context, userID string) error {
	const cypher = `
		MATCH (u:User {id: $id})
		DETACH DELETE u
		RETURN count(u) AS deleted
	`
	records, err := r.store.write(ctx, cypher, map[string]any{"id": userID})
	if err != nil {
		return err
	}
	if len(records) == 0 || intFromRecord(records[0], "deleted") == 0 {
		return fmt.Errorf("%w: %s", ErrUserNotFound, userID)
	}
	return nil
}

func (r *Neo4jUsersRepository) Count(ctx context.Context) (int, error) {
	records, err := r.store.read(ctx, `MATCH (u:User) RETURN count(u) AS total`, nil)
	if err != nil || len(records) == 0 {
		return 0, err
	}
	return intFromRecord(records[0], "total"), nil
}

type Neo4jConnectionsRepository struct {
	store *Neo4jStore
}

func (r *Neo4jConnectionsRepository) GetByID(ctx context.Context, connectionID string) (*model.Connection, error) {
	const cypher = `
		MATCH (a:User)-[c:CONNECTED {id: $id}]->(b:User)
		RETURN c.id AS id, a.id AS a, b.id AS b
	`
	records, err := r.store.read(ctx, cypher, map[string]any{"id": connectionID})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrConnectionNotFound, connectionID)
	}
	rec := records[0]
	return &model.Connection{
		ID:    stringFromRecord(rec, "id"),
		Users: model.NewPair(stringFromRecord(rec, "a"), stringFromRecord(rec, "b")),
	}, nil
}

func (r *Neo4jConnectionsRepository) Get(ctx context.Context, users model.Pair) (*model.Connection, error) {
	const cypher = `
		MATCH (:User {id: $a})-[c:CONNECTED]-(:User {id: $b})
		RETURN c.id AS id
		LIMIT 1
	`
	records, err := r.store.read(ctx, cypher, map[string]any{"a": users[0], "b": users[1]})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return &model.Connection{ID: stringFromRecord(records[0], "id"), Users: users}, nil
}

func (r *Neo4jConnectionsRepository) GetAll(ctx context.Context, userID string, offset, limit int) ([]model.Connection, error) {
	page, params := pageClause(offset, limit)
	params["id"] = userID
	cypher := `
		MATCH (:User {id: $id})-[c:CONNECTED]-(o:User)
		RETURN c.id AS id, o.id AS other
		ORDER BY c.since, c.id` + page

	records, err := r.store.read(ctx, cypher, params)
	if err != nil {
		return nil, err
	}
	out := make([]model.Connection, 0, len(records))
	for _, rec := range records {
		out = append(out, model.Connection{
			ID:    stringFromRecord(rec, "id"),
			Users: model.NewPair(userID, stringFromRecord(rec, "other")),
		})
	}
	return out, nil
}

func (r *Neo4jConnectionsRepository) Create(ctx context.Context, users model.Pair) (*model.Connection, error) {
	if !users.Valid() {
		return nil, fmt.Errorf("%w: connection must link two distinct users, got %v", ErrDataIntegrity, [2]string(users))
	}

	session := r.store.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	id := uuid.NewString()
	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		params := map[string]any{
			"a":   users[0],
			"b":   users[1],
			"id":  id,
			"now": time.Now().UTC().Format(time.RFC3339),
		}

		existing, err := tx.Run(ctx, `MATCH (:User {id: $a})-[c:CONNECTED]-(:User {id: $b}) RETURN c.id AS id LIMIT 1`, params)
		if err != nil {
			return nil, err
		}
		if existing.Next(ctx) {
			return nil, fmt.Errorf("%w: %s-%s", ErrDuplicateConnection, users[0], users[1])
		}

		res, err := tx.Run(ctx, `
			MATCH (a:User {id: $a})
			MATCH (b:User {id: $b})
			CREATE (a)-[c:CONNECTED {id: $id, since: datetime($now)}]->(b)
			RETURN c.id AS id
		`, params)
		if err != nil {
			return nil, err
		}
		// Ako jedan od MATCH-ova ne uspe, neće biti reda u rezultatu
		if !res.Next(ctx) {
			if res.Err() != nil {
				return nil, res.Err()
			}
			return nil, fmt.Errorf("%w: %s or %s", ErrUserNotFound, users[0], users[1])
		}
		return nil, nil
	})
	if err != nil {
		return nil, err
	}
	return &model.Connection{ID: id, Users: users}, nil
}

func (r *Neo4jConnectionsRepository) Delete(ctx context.Context, users model.Pair) error {
	const cypher = `
		MATCH (:User {id: $a})-[c:CONNECTED]-(:User {id: $b})
		DELETE c
		RETURN count(c) AS deleted
	`
	records, err := r.store.write(ctx, cypher, map[string]any{"a": users[0], "b": users[1]})
	if err != nil {
		return err
	}
	if len(records) == 0 || intFromRecord(records[0], "deleted") == 0 {
		return fmt.Errorf("%w: %s-%s", ErrConnectionNotFound, users[0], users[1])
	}
	return nil
}

func (r *Neo4jConnectionsRepository) Count(ctx context.Context) (int, error) {
	records, err := r.store.read(ctx, `MATCH ()-[c:CONNECTED]->() RETURN count(c) AS total`, nil)
	if err != nil || len(records) == 0 {
		return 0, err
	}
	return intFromRecord(records[0], "total"), nil
}

type Neo4jRecommendationsRepository struct {
	store *Neo4jStore
}

func (r *Neo4jRecommendationsRepository) Get(ctx context.Context, userID string, offset, limit int) ([]model.Recommendation, error) {
	page, params := pageClause(offset, limit)
	params["id"] = userID
	cypher := `
		MATCH (:User {id: $id})-[r:RECOMMENDED]->(v:User)
		RETURN r.id AS id, v.id AS recommended
		ORDER BY r.since, r.id` + page

	records, err := r.store.read(ctx, cypher, params)
	if err != nil {
		return nil, err
	}
	out := make([]model.Recommendation, 0, len(records))
	for _, rec := range records {
		out = append(out, model.Recommendation{
			ID:              stringFromRecord(rec, "id"),
			User:            userID,
			RecommendedUser: stringFromRecord(rec, "recommended"),
		})
	}
	return out, nil
}

func (r *Neo4jRecommendationsRepository) Save(ctx context.Context, userID, recommendedUserID string) (*model.Recommendation, error) {
	const cypher = `
		MATCH (u:User {id: $user})
		MATCH (v:User {id: $recommended})
		CREATE (u)-[r:RECOMMENDED {id: $id, since: datetime($now)}]->(v)
		RETURN r.id AS id
	`
	id := uuid.NewString()
	params := map[string]any{
		"user":        userID,
		"recommended": recommendedUserID,
		"id":          id,
		"now":         time.Now().UTC().Format(time.RFC3339),
	}
	records, err := r.store.write(ctx, cypher, params)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s or %s", ErrUserNotFound, userID, recommendedUserID)
	}
	return &model.Recommendation{ID: id, User: userID, RecommendedUser: recommendedUserID}, nil
}

func (r *Neo4jRecommendationsRepository) Delete(ctx context.Context, recommendationID string) error {
	const cypher = `
		MATCH ()-[r:RECOMMENDED {id: $id}]->()
		DELETE r
		RETURN count(r) AS deleted
	`
	records, err := r.store.write(ctx, cypher, map[string]any{"id": recommendationID})
	if err != nil {
		return err
	}
	if len(records) == 0 || intFromRecord(records[0], "deleted") == 0 {
		return fmt.Errorf("%w: %s", ErrRecommendationNotFound, recommendationID)
	}
	return nil
}

func (r *Neo4jRecommendationsRepository) Total(ctx context.Context) (int, error) {
	records, err := r.store.read(ctx, `MATCH ()-[r:RECOMMENDED]->() RETURN count(r) AS total`, nil)
	if err != nil || len(records) == 0 {
		return 0, err
	}
	return intFromRecord(records[0], "total"), nil
}

var (
	_ UsersRepository           = (*Neo4jUsersRepository)(nil)
	_ ConnectionsRepository     = (*Neo4jConnectionsRepository)(nil)
	_ RecommendationsRepository = (*Neo4jRecommendationsRepository)(nil)
	_ UsersRepository           = (*MemoryUsersRepository)(nil)
	_ ConnectionsRepository     = (*MemoryConnectionsRepository)(nil)
	_ RecommendationsRepository = (*MemoryRecommendationsRepository)(nil)
)
