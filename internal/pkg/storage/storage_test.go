package storage

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStorage(t *testing.T) (*Storage, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	cleanup := func() {
		client.Close()
		mr.Close()
	}

	return NewStorage(client), cleanup
}

func TestStorage_Get_Default(t *testing.T) {
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	ctx := context.Background()

	value, err := s.Get(ctx, "missing", "fallback")
	require.NoError(t, err)
	assert.Equal(t, "fallback", value)
}

func TestStorage_SetGet(t *testing.T) {
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	ctx := context.Background()

	err := s.Set(ctx, AccessModeKey, "blocked", 0)
	require.NoError(t, err)

	value, err := s.Get(ctx, AccessModeKey, "all")
	require.NoError(t, err)
	assert.Equal(t, "blocked", value)
}

func TestStorage_Collection(t *testing.T) {
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	ctx := context.Background()

	t.Run("add is idempotent", func(t *testing.T) {
		added, err := s.CollectionAdd(ctx, AccessWaitlistKey, "123")
		require.NoError(t, err)
		assert.True(t, added)

		added, err = s.CollectionAdd(ctx, AccessWaitlistKey, "123")
		require.NoError(t, err)
		assert.False(t, added)

		members, err := s.CollectionMembers(ctx, AccessWaitlistKey)
		require.NoError(t, err)
		assert.Len(t, members, 1)
	})

	t.Run("is member", func(t *testing.T) {
		ok, err := s.CollectionIsMember(ctx, AccessWaitlistKey, "123")
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = s.CollectionIsMember(ctx, AccessWaitlistKey, "456")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("remove reports change", func(t *testing.T) {
		removed, err := s.CollectionRemove(ctx, AccessWaitlistKey, "123")
		require.NoError(t, err)
		assert.True(t, removed)

		removed, err = s.CollectionRemove(ctx, AccessWaitlistKey, "123")
		require.NoError(t, err)
		assert.False(t, removed)
	})

	t.Run("delete clears collection", func(t *testing.T) {
		_, err := s.CollectionAdd(ctx, AccessWaitlistKey, "789")
		require.NoError(t, err)

		err = s.Delete(ctx, AccessWaitlistKey)
		require.NoError(t, err)

		members, err := s.CollectionMembers(ctx, AccessWaitlistKey)
		require.NoError(t, err)
		assert.Empty(t, members)
	})
}

func TestStorage_Get_Unavailable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := NewStorage(client)

	// 关掉 redis 后读取必须报错，而不是回退到默认值
	mr.Close()

	_, err = s.Get(context.Background(), AccessModeKey, "all")
	assert.Error(t, err)
}
