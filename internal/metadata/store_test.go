package metadata

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trestlehq/trestle/internal/schema"
)

func sampleSnapshot(t *testing.T) *Snapshot {
	t.Helper()
	fields := schema.NewFieldSet()
	for _, spec := range []struct {
		name string
		kind schema.Kind
	}{
		{"id", schema.KindID},
		{"title", schema.KindText},
		{"synopsis", schema.KindBigText},
	} {
		desc, err := schema.NewFieldDescriptor(spec.name, spec.kind)
		require.NoError(t, err)
		require.NoError(t, fields.Set(desc))
	}

	rel := schema.NewRelationship("MovieQuotes", schema.OneToMany)
	rel.ModelOne = "Movies"
	rel.ModelMany = "MovieQuotes"
	rel.Table = "rel_1_movies_M_moviequotes"
	rel.Resolved = true

	return &Snapshot{
		Entities: map[string]*schema.Entity{
			"Movies": {Name: "Movies", Table: "movies", Class: "Model", Fields: fields},
		},
		Relationships: map[string]*schema.Relationship{
			"MovieQuotes": rel,
		},
		Generation: "01JTESTGENERATION0000000000",
		BuiltAt:    time.Now().UTC().Truncate(time.Second),
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "cache", "metadata.cache"))
	ctx := context.Background()

	_, ok, err := store.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	snap := sampleSnapshot(t)
	require.NoError(t, store.Save(ctx, snap))

	loaded, ok, err := store.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, snap.Generation, loaded.Generation)
	movies := loaded.Entities["Movies"]
	require.NotNil(t, movies)
	assert.Equal(t, "movies", movies.Table)
	// Field order survives the blob format.
	assert.Equal(t, []string{"id", "title", "synopsis"}, movies.Fields.Names())

	rel := loaded.Relationships["MovieQuotes"]
	require.NotNil(t, rel)
	assert.True(t, rel.Resolved)
	assert.Equal(t, schema.OneToMany, rel.Type)
}

func TestFileStoreClear(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "metadata.cache"))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, sampleSnapshot(t)))
	require.NoError(t, store.Clear(ctx))

	_, ok, err := store.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	// Clearing an already-empty store is not an error.
	require.NoError(t, store.Clear(ctx))
}

func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisStoreRoundTrip(t *testing.T) {
	store := NewRedisStore(setupTestRedis(t), WithRedisKey("test:metadata"))
	ctx := context.Background()

	_, ok, err := store.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	snap := sampleSnapshot(t)
	require.NoError(t, store.Save(ctx, snap))

	loaded, ok, err := store.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, snap.Generation, loaded.Generation)
	assert.Equal(t, []string{"id", "title", "synopsis"}, loaded.Entities["Movies"].Fields.Names())

	require.NoError(t, store.Clear(ctx))
	_, ok, err = store.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStoreDefaultKey(t *testing.T) {
	client := setupTestRedis(t)
	store := NewRedisStore(client)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, sampleSnapshot(t)))
	n, err := client.Exists(ctx, DefaultRedisKey).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
