package feature_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsehr/engine/feature"
)

// setupRedisStore creates a miniredis instance and returns a connected
// RedisStore.
func setupRedisStore(t *testing.T) *feature.RedisStore {
	t.Helper()

	mr := miniredis.RunT(t)
	store, err := feature.NewRedisStore(feature.RedisOptions{
		URL:            fmt.Sprintf("redis://%s", mr.Addr()),
		Namespace:      "test",
		ConnectTimeout: 5 * time.Second,
		ReadTimeout:    5 * time.Second,
		WriteTimeout:   5 * time.Second,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

func TestRedisStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := setupRedisStore(t)

	vec := feature.Vector{
		"engagement": feature.Text("low"),
		"score":      feature.Number(2),
		"tenure":     feature.Number(3.5),
	}
	require.NoError(t, store.SetVector(ctx, "emp-1", vec))

	got, err := store.Vector(ctx, "emp-1")
	require.NoError(t, err)
	require.Len(t, got, 3)

	v, err := got.Get("engagement")
	require.NoError(t, err)
	assert.Equal(t, feature.KindText, v.Kind())

	v, err = got.Get("score")
	require.NoError(t, err)
	f, ok := v.Float()
	require.True(t, ok, "numeric kind must survive the round trip")
	assert.Equal(t, 2.0, f)
}

func TestRedisStoreUnknownSubject(t *testing.T) {
	store := setupRedisStore(t)

	_, err := store.Vector(context.Background(), "ghost")
	assert.ErrorIs(t, err, feature.ErrSubjectNotFound)
}

func TestRedisStoreSubjects(t *testing.T) {
	ctx := context.Background()
	store := setupRedisStore(t)

	require.NoError(t, store.SetVector(ctx, "emp-2", feature.Vector{"score": feature.Number(1)}))
	require.NoError(t, store.SetVector(ctx, "emp-1", feature.Vector{"score": feature.Number(5)}))

	ids, err := store.Subjects(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"emp-1", "emp-2"}, ids)
}

func TestRedisStoreReplacesVector(t *testing.T) {
	ctx := context.Background()
	store := setupRedisStore(t)

	require.NoError(t, store.SetVector(ctx, "emp-1", feature.Vector{
		"engagement": feature.Text("low"),
		"stale":      feature.Number(1),
	}))
	require.NoError(t, store.SetVector(ctx, "emp-1", feature.Vector{
		"engagement": feature.Text("high"),
	}))

	got, err := store.Vector(ctx, "emp-1")
	require.NoError(t, err)
	assert.False(t, got.Has("stale"), "old fields must not survive a rewrite")
	v, err := got.Get("engagement")
	require.NoError(t, err)
	s, _ := v.Text()
	assert.Equal(t, "high", s)
}
