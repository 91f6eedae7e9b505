package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilStoreIsNoop(t *testing.T) {
	var s *Store
	ctx := context.Background()

	var out string
	assert.False(t, s.Get(ctx, "k", &out))
	assert.NoError(t, s.Set(ctx, "k", "v", time.Minute))
	assert.NoError(t, s.Del(ctx, "k"))
}

func TestRemember_LoadsWhenDisabled(t *testing.T) {
	s := New(nil, "test:")
	calls := 0

	var out []int
	err := s.Remember(context.Background(), "nums", time.Minute, &out, func() error {
		calls++
		out = []int{1, 2}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, out)
	assert.Equal(t, 1, calls)
}

func TestRemember_PropagatesLoadError(t *testing.T) {
	s := New(nil, "")
	boom := errors.New("boom")

	var out int
	err := s.Remember(context.Background(), "n", time.Minute, &out, func() error { return boom })
	assert.ErrorIs(t, err, boom)
}
