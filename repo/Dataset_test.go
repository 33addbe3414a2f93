package repo

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"social-service/model"
)

const sampleData = `{
  "users": [
    {"id": "alice", "email": "alice@example.com", "name": "Alice", "college": "college1"},
    {"id": "bob", "email": "bob@example.com", "name": "Bob", "college": "college2"},
    {"id": "carol", "email": "carol@example.com", "name": "Carol", "college": "college1"}
  ],
  "connections": [
    {"id": "c1", "users": ["alice", "bob"]}
  ],
  "recommendations": [
    {"id": "r1", "user_id": "alice", "recommended_user_id": "carol"}
  ]
}`

func TestLoadDatasetFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleData), 0o644))

	ds, err := LoadDataset(path)
	require.NoError(t, err)
	assert.Len(t, ds.Users, 3)
	assert.Len(t, ds.Connections, 1)
	assert.Len(t, ds.Recommendations, 1)

	users, connections, recommendations := NewMemoryRepositories(ds, zap.NewNop())
	ctx := context.Background()

	u, err := users.Get(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, model.Profile{Name: "Bob", College: "college2"}, u.Profile)

	c, err := connections.Get(ctx, model.NewPair("bob", "alice"))
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "c1", c.ID)

	recs, err := recommendations.Get(ctx, "alice", 0, 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "carol", recs[0].RecommendedUser)
}

func TestLoadDatasetMissingFile(t *testing.T) {
	_, err := LoadDataset(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestDecodeDatasetRejectsMalformedRecords(t *testing.T) {
	testCases := []struct {
		Description string
		Data        string
	}{
		{"not json", `{"users": [`},
		{"user without email", `{"users": [{"id": "alice", "name": "Alice", "college": "c"}]}`},
		{"connection with one user", `{"connections": [{"id": "c1", "users": ["alice"]}]}`},
		{"connection with three users", `{"connections": [{"id": "c1", "users": ["a", "b", "c"]}]}`},
		{"self connection", `{"connections": [{"id": "c1", "users": ["alice", "alice"]}]}`},
		{"duplicate pair", `{"connections": [{"id": "c1", "users": ["a", "b"]}, {"id": "c2", "users": ["b", "a"]}]}`},
		{"duplicate user id", `{"users": [
			{"id": "a", "email": "a@x", "name": "A", "college": "c"},
			{"id": "a", "email": "b@x", "name": "B", "college": "c"}]}`},
		{"recommendation without target", `{"recommendations": [{"id": "r1", "user_id": "alice"}]}`},
	}

	for _, tc := range testCases {
		t.Run(tc.Description, func(t *testing.T) {
			_, err := DecodeDataset(strings.NewReader(tc.Data))
			assert.ErrorIs(t, err, ErrDataIntegrity)
		})
	}
}

func TestDatasetWriteRoundTrip(t *testing.T) {
	ds, err := DecodeDataset(strings.NewReader(sampleData))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, ds.Write(&buf))

	again, err := DecodeDataset(&buf)
	require.NoError(t, err)
	assert.Equal(t, ds, again)
}
