package service

import (
	"context"
	"errors"
	"testing"

	"HobbyChat/pkg/embedding"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestEmbeddingService_RefreshEmbedding(t *testing.T) {
	ctx := context.Background()

	t.Run("stores_vector_and_syncs_index", func(t *testing.T) {
		env := newTestEnv()
		env.store.addUser("u1", "U1")
		var upserted map[string]string
		index := &fakeIndex{upsertFn: func(_ context.Context, userID string, values []float32, meta map[string]string) error {
			assert.Equal(t, "u1", userID)
			assert.Equal(t, vecY, values)
			upserted = meta
			return nil
		}}
		provider := &fakeProvider{vectors: map[string][]float32{"Chess, Reading": vecY}}
		svc := NewEmbeddingService(env.store, provider, index, 0)

		ok := svc.RefreshEmbedding(ctx, "u1", []string{" Chess ", "Reading", "chess"})
		require.True(t, ok)
		assert.Equal(t, vecY, env.store.profile("u1").Embedding)
		assert.NotNil(t, env.store.profile("u1").EmbeddingUpdatedAt)
		assert.Equal(t, map[string]string{"hobbies": "Chess, Reading"}, upserted)
	})

	t.Run("index_failure_still_succeeds", func(t *testing.T) {
		env := newTestEnv()
		env.store.addUser("u1", "U1")
		index := &fakeIndex{upsertFn: func(context.Context, string, []float32, map[string]string) error {
			return errors.New("index unavailable")
		}}
		svc := NewEmbeddingService(env.store, &fakeProvider{}, index, 0)

		assert.True(t, svc.RefreshEmbedding(ctx, "u1", []string{"chess"}))
		assert.True(t, env.store.profile("u1").HasEmbedding())
	})

	t.Run("provider_failure_keeps_previous_vector", func(t *testing.T) {
		env := newTestEnv()
		withEmbedding(env.store.addUser("u1", "U1", "chess"), vecX)
		provider := &fakeProvider{errFor: map[string]error{"opera": errors.New("quota exceeded")}}
		svc := NewEmbeddingService(env.store, provider, nil, 0)

		assert.False(t, svc.RefreshEmbedding(ctx, "u1", []string{"opera"}))
		assert.Equal(t, vecX, env.store.profile("u1").Embedding)
	})

	t.Run("disabled_provider", func(t *testing.T) {
		env := newTestEnv()
		env.store.addUser("u1", "U1")
		svc := NewEmbeddingService(env.store, nil, nil, 0)

		assert.False(t, svc.RefreshEmbedding(ctx, "u1", []string{"chess"}))
		assert.False(t, env.store.profile("u1").HasEmbedding())
	})

	t.Run("empty_hobbies_skip_provider", func(t *testing.T) {
		env := newTestEnv()
		provider := &fakeProvider{}
		svc := NewEmbeddingService(env.store, provider, nil, 0)

		assert.False(t, svc.RefreshEmbedding(ctx, "u1", []string{" ", ""}))
		assert.Empty(t, provider.calls)
	})
}

func TestEmbeddingService_RefreshPerHobbyEmbeddings(t *testing.T) {
	env := newTestEnv()
	env.store.addUser("u1", "U1")
	provider := &fakeProvider{errFor: map[string]error{"reading": embedding.ErrDisabled}}
	svc := NewEmbeddingService(env.store, provider, nil, 0)

	n := svc.RefreshPerHobbyEmbeddings(context.Background(), "u1", []string{"chess", "reading", "hiking"})
	assert.Equal(t, 2, n)

	items := env.store.profile("u1").HobbyEmbeddings
	require.Len(t, items, 2)
	assert.Equal(t, "chess", items[0].Hobby)
	assert.Equal(t, "hiking", items[1].Hobby)
}

func TestEmbeddingService_Regenerate(t *testing.T) {
	ctx := context.Background()

	t.Run("no_hobbies", func(t *testing.T) {
		env := newTestEnv()
		env.store.addUser("u1", "U1")
		svc := NewEmbeddingService(env.store, &fakeProvider{}, nil, 0)

		_, err := svc.Regenerate(ctx, "u1")
		assert.Equal(t, codes.FailedPrecondition, status.Code(err))
	})

	t.Run("unknown_user", func(t *testing.T) {
		env := newTestEnv()
		svc := NewEmbeddingService(env.store, &fakeProvider{}, nil, 0)

		_, err := svc.Regenerate(ctx, "ghost")
		assert.Equal(t, codes.NotFound, status.Code(err))
	})

	t.Run("regenerates_both_kinds", func(t *testing.T) {
		env := newTestEnv()
		env.store.addUser("u1", "U1", "chess", "hiking")
		svc := NewEmbeddingService(env.store, &fakeProvider{}, nil, 0)

		resp, err := svc.Regenerate(ctx, "u1")
		require.NoError(t, err)
		assert.True(t, resp.Embedded)
		assert.Equal(t, 2, resp.HobbyEmbeddings)
		assert.Equal(t, "Hobbies saved", resp.Message)
	})
}

func TestEmbeddingService_Backfill(t *testing.T) {
	env := newTestEnv()
	env.store.addUser("a", "A", "chess")
	env.store.addUser("b", "B", "opera")
	env.store.addUser("c", "C", "hiking")
	env.store.addUser("d", "D")
	withEmbedding(env.store.addUser("e", "E", "boxing"), vecX)

	provider := &fakeProvider{errFor: map[string]error{"opera": errors.New("bad input")}}
	svc := NewEmbeddingService(env.store, provider, nil, 0)

	resp, err := svc.Backfill(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, 3, resp.Processed)
	assert.Equal(t, 1, resp.Failed)
	assert.True(t, env.store.profile("a").HasEmbedding())
	assert.False(t, env.store.profile("b").HasEmbedding())
	assert.True(t, env.store.profile("c").HasEmbedding())
	assert.False(t, env.store.profile("d").HasEmbedding())
}
