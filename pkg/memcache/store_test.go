package mem

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStore_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	s := NewLocalStore(time.Hour, time.Minute)

	_, found, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.Set(ctx, "destination:paris", []byte(`{"a":1}`), time.Hour))
	got, found, err := s.Get(ctx, "destination:paris")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, `{"a":1}`, string(got))

	require.NoError(t, s.Delete(ctx, "destination:paris"))
	_, found, _ = s.Get(ctx, "destination:paris")
	assert.False(t, found)
}

func TestLocalStore_Expiry(t *testing.T) {
	ctx := context.Background()
	s := NewLocalStore(time.Hour, time.Minute)

	require.NoError(t, s.Set(ctx, "k", []byte("v"), 10*time.Millisecond))
	time.Sleep(30 * time.Millisecond)

	_, found, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestLocalStore_ReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := NewLocalStore(time.Hour, time.Minute)
	require.NoError(t, s.Set(ctx, "k", []byte("abc"), time.Hour))

	got, _, _ := s.Get(ctx, "k")
	got[0] = 'z'

	again, _, _ := s.Get(ctx, "k")
	assert.Equal(t, "abc", string(again))
}
