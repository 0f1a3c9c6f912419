package feature_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsehr/engine/feature"
)

func TestValueRoundTrip(t *testing.T) {
	t.Run("number", func(t *testing.T) {
		v := feature.Number(3.5)
		f, ok := v.Float()
		require.True(t, ok)
		assert.Equal(t, 3.5, f)
		_, ok = v.Text()
		assert.False(t, ok)
		assert.Equal(t, "3.5", v.String())
		assert.True(t, feature.Parse(v.String()).Equal(v))
	})

	t.Run("text", func(t *testing.T) {
		v := feature.Text("low")
		s, ok := v.Text()
		require.True(t, ok)
		assert.Equal(t, "low", s)
		_, ok = v.Float()
		assert.False(t, ok)
		assert.True(t, feature.Parse("low").Equal(v))
	})
}

func TestFromAny(t *testing.T) {
	v, err := feature.FromAny(42)
	require.NoError(t, err)
	f, _ := v.Float()
	assert.Equal(t, 42.0, f)

	v, err = feature.FromAny("medium")
	require.NoError(t, err)
	assert.Equal(t, feature.KindText, v.Kind())

	_, err = feature.FromAny([]int{1})
	assert.Error(t, err)
}

func TestVectorGet(t *testing.T) {
	vec := feature.Vector{"engagement": feature.Text("low")}

	v, err := vec.Get("engagement")
	require.NoError(t, err)
	assert.True(t, v.Equal(feature.Text("low")))

	_, err = vec.Get("age")
	assert.ErrorIs(t, err, feature.ErrMissingFeature)
	assert.False(t, vec.Has("age"))
}

func TestMapStore(t *testing.T) {
	ctx := context.Background()
	store := feature.NewMapStore()

	store.Set("emp-2", feature.Vector{"score": feature.Number(2)})
	store.Set("emp-1", feature.Vector{"score": feature.Number(4)})

	t.Run("vector lookup", func(t *testing.T) {
		vec, err := store.Vector(ctx, "emp-1")
		require.NoError(t, err)
		v, err := vec.Get("score")
		require.NoError(t, err)
		f, _ := v.Float()
		assert.Equal(t, 4.0, f)
	})

	t.Run("unknown subject", func(t *testing.T) {
		_, err := store.Vector(ctx, "ghost")
		assert.ErrorIs(t, err, feature.ErrSubjectNotFound)
	})

	t.Run("subjects sorted", func(t *testing.T) {
		ids, err := store.Subjects(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"emp-1", "emp-2"}, ids)
	})

	t.Run("set copies the vector", func(t *testing.T) {
		vec := feature.Vector{"score": feature.Number(1)}
		store.Set("emp-3", vec)
		vec["score"] = feature.Number(99)
		got, err := store.Vector(ctx, "emp-3")
		require.NoError(t, err)
		v, _ := got.Get("score")
		f, _ := v.Float()
		assert.Equal(t, 1.0, f)
	})
}

func TestBandEngagement(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{1, feature.EngagementLow},
		{2, feature.EngagementLow},
		{3, feature.EngagementMedium},
		{4, feature.EngagementHigh},
		{5, feature.EngagementHigh},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, feature.BandEngagement(tt.score), "score %v", tt.score)
	}
}
