package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
)

type Neo4jOptions struct {
	URI      string
	Username string
	Password string
}

// Neo4jStore holds the driver shared by the Neo4j-backed repositories.
// Users are (:User) nodes, connections are [:CONNECTED] relationships matched
// without direction, recommendations are [:RECOMMENDED] relationships.
type Neo4jStore struct {
	driver neo4j.DriverWithContext
	logger *zap.Logger
}

func NewNeo4jStore(opts Neo4jOptions, logger *zap.Logger) (*Neo4jStore, error) {
	auth := neo4j.BasicAuth(opts.Username, opts.Password, "")
	driver, err := neo4j.NewDriverWithContext(opts.URI, auth)
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}

	// Brza provera konekcije
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("verify neo4j connectivity: %w", err)
	}

	return &Neo4jStore{driver: driver, logger: logger}, nil
}

func (s *Neo4jStore) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

func (s *Neo4jStore) Health(ctx context.Context) error {
	return s.driver.VerifyConnectivity(ctx)
}

func (s *Neo4jStore) Users() *Neo4jUsersRepository {
	return &Neo4jUsersRepository{store: s}
}

func (s *Neo4jStore) Connections() *Neo4jConnectionsRepository {
	return &Neo4jConnectionsRepository{store: s}
}

func (s *Neo4jStore) Recommendations() *Neo4jRecommendationsRepository {
	return &Neo4jRecommendationsRepository{store: s}
}

// EnsureSchema creates the uniqueness constraint on user ids.
func (s *Neo4jStore) EnsureSchema(ctx context.Context) error {
	_, err := s.write(ctx, `CREATE CONSTRAINT user_id_unique IF NOT EXISTS FOR (u:User) REQUIRE u.id IS UNIQUE`, nil)
	return err
}

// Import writes a validated dataset into the graph. Existing nodes with the
// same ids are updated, relationships are merged by id.
func (s *Neo4jStore) Import(ctx context.Context, ds *Dataset) error {
	if err := ds.Validate(); err != nil {
		return err
	}

	users := make([]map[string]any, 0, len(ds.Users))
	for _, u := range ds.Users {
		users = append(users, map[string]any{"id": u.ID, "email": u.Email, "name": u.Name, "college": u.College})
	}
	connections := make([]map[string]any, 0, len(ds.Connections))
	for _, c := range ds.Connections {
		connections = append(connections, map[string]any{"id": c.ID, "a": c.Users[0], "b": c.Users[1]})
	}
	recommendations := make([]map[string]any, 0, len(ds.Recommendations))
	for _, r := range ds.Recommendations {
		recommendations = append(recommendations, map[string]any{"id": r.ID, "user": r.UserID, "recommended": r.RecommendedUserID})
	}

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		now := time.Now().UTC().Format(time.RFC3339)
		steps := []struct {
			cypher string
			params map[string]any
		}{
			{`UNWIND $rows AS row
			  MERGE (u:User {id: row.id})
			  SET u.email = row.email, u.name = row.name, u.college = row.college`,
				map[string]any{"rows": users}},
			{`UNWIND $rows AS row
			  MATCH (a:User {id: row.a}), (b:User {id: row.b})
			  MERGE (a)-[c:CONNECTED {id: row.id}]->(b)
			  ON CREATE SET c.since = datetime($now)`,
				map[string]any{"rows": connections, "now": now}},
			{`UNWIND $rows AS row
			  MATCH (u:User {id: row.user}), (v:User {id: row.recommended})
			  MERGE (u)-[r:RECOMMENDED {id: row.id}]->(v)
			  ON CREATE SET r.since = datetime($now)`,
				map[string]any{"rows": recommendations, "now": now}},
		}
		for _, step := range steps {
			if _, err := tx.Run(ctx, step.cypher, step.params); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("import dataset: %w", err)
	}
	s.logger.Info("dataset imported",
		zap.Int("users", len(users)),
		zap.Int("connections", len(connections)),
		zap.Int("recommendations", len(recommendations)))
	return nil
}

func (s *Neo4jStore) read(ctx context.Context, cypher string, params map[string]any) ([]*neo4j.Record, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	records, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, err
	}
	return records.([]*neo4j.Record), nil
}

func (s *Neo4jStore) write(ctx context.Context, cypher string, params map[string]any) ([]*neo4j.Record, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	records, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, err
	}
	return records.([]*neo4j.Record), nil
}

func stringFromRecord(record *neo4j.Record, key string) string {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return ""
	}
	if str, ok := val.(string); ok {
		return str
	}
	return ""
}

func intFromRecord(record *neo4j.Record, key string) int {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return 0
	}
	switch i := val.(type) {
	case int64:
		return int(i)
	case int:
		return i
	}
	return 0
}

func pageClause(offset, limit int) (string, map[string]any) {
	if offset < 0 {
		offset = 0
	}
	params := map[string]any{"offset": offset}
	if limit <= 0 {
		return " SKIP $offset", params
	}
	params["limit"] = limit
	return " SKIP $offset LIMIT $limit", params
}
