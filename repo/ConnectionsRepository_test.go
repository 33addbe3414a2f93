package repo

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"social-service/model"
)

func TestConnectionsCreateAndGet(t *testing.T) {
	r := NewMemoryConnectionsRepository(nil, zap.NewNop())
	ctx := context.Background()

	created, err := r.Create(ctx, model.NewPair("alice", "bob"))
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	got, err := r.Get(ctx, model.NewPair("bob", "alice"))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, created.ID, got.ID)

	byID, err := r.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, byID.Users.Equal(model.NewPair("alice", "bob")))
}

func TestConnectionsGetMissingIsNotAnError(t *testing.T) {
	r := NewMemoryConnectionsRepository(nil, zap.NewNop())

	got, err := r.Get(context.Background(), model.NewPair("alice", "bob"))
	assert.NoError(t, err)
	assert.Nil(t, got)

	_, err = r.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrConnectionNotFound)
}

func TestConnectionsCreateRejectsDuplicates(t *testing.T) {
	r := NewMemoryConnectionsRepository(nil, zap.NewNop())
	ctx := context.Background()

	_, err := r.Create(ctx, model.NewPair("alice", "bob"))
	require.NoError(t, err)

	_, err = r.Create(ctx, model.NewPair("bob", "alice"))
	assert.ErrorIs(t, err, ErrDuplicateConnection)
	assert.ErrorIs(t, err, ErrDataIntegrity)

	n, err := r.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestConnectionsCreateRejectsSelfLoop(t *testing.T) {
	r := NewMemoryConnectionsRepository(nil, zap.NewNop())

	_, err := r.Create(context.Background(), model.NewPair("alice", "alice"))
	assert.ErrorIs(t, err, ErrDataIntegrity)
}

func TestConnectionsConcurrentCreateKeepsOneEdge(t *testing.T) {
	r := NewMemoryConnectionsRepository(nil, zap.NewNop())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				_, _ = r.Create(ctx, model.NewPair("alice", "bob"))
			} else {
				_, _ = r.Create(ctx, model.NewPair("bob", "alice"))
			}
		}(i)
	}
	wg.Wait()

	n, err := r.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestConnectionsGetAllPages(t *testing.T) {
	r := NewMemoryConnectionsRepository(nil, zap.NewNop())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := r.Create(ctx, model.NewPair("alice", fmt.Sprintf("user%d", i)))
		require.NoError(t, err)
	}
	_, err := r.Create(ctx, model.NewPair("bob", "carol"))
	require.NoError(t, err)

	testCases := []struct {
		Description string
		Offset      int
		Limit       int
		Expected    []string
	}{
		{"everything", 0, 0, []string{"user0", "user1", "user2", "user3", "user4"}},
		{"first page", 0, 2, []string{"user0", "user1"}},
		{"second page", 2, 2, []string{"user2", "user3"}},
		{"last partial page", 4, 2, []string{"user4"}},
		{"past the end", 10, 2, []string{}},
	}

	for _, tc := range testCases {
		t.Run(tc.Description, func(t *testing.T) {
			page, err := r.GetAll(ctx, "alice", tc.Offset, tc.Limit)
			require.NoError(t, err)
			others := []string{}
			for _, c := range page {
				other, err := c.Users.Other("alice")
				require.NoError(t, err)
				others = append(others, other)
			}
			assert.Equal(t, tc.Expected, others)
		})
	}
}

func TestConnectionsDelete(t *testing.T) {
	r := NewMemoryConnectionsRepository(nil, zap.NewNop())
	ctx := context.Background()

	_, err := r.Create(ctx, model.NewPair("alice", "bob"))
	require.NoError(t, err)

	require.NoError(t, r.Delete(ctx, model.NewPair("bob", "alice")))
	got, err := r.Get(ctx, model.NewPair("alice", "bob"))
	require.NoError(t, err)
	assert.Nil(t, got)

	assert.ErrorIs(t, r.Delete(ctx, model.NewPair("alice", "bob")), ErrConnectionNotFound)
}
