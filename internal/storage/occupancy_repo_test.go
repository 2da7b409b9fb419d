package storage

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testOccupancyRepo общий набор проверок для всех реализаций OccupancyRepo
func testOccupancyRepo(t *testing.T, repo OccupancyRepo) {
	ctx := context.Background()
	objectID := uuid.New()
	avatar := uuid.New()

	t.Run("Load Missing", func(t *testing.T) {
		_, found, err := repo.Load(ctx, objectID)
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("Save and Load", func(t *testing.T) {
		applied, err := repo.Save(ctx, Occupancy{
			ObjectID:  objectID,
			LocalID:   7,
			Scene:     "test",
			Occupants: []uuid.UUID{avatar},
			SitTarget: avatar,
			Version:   2,
		})
		require.NoError(t, err)
		assert.True(t, applied)

		occ, found, err := repo.Load(ctx, objectID)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, []uuid.UUID{avatar}, occ.Occupants)
		assert.Equal(t, avatar, occ.SitTarget)
		assert.Equal(t, uint64(2), occ.Version)
		assert.Equal(t, uint32(7), occ.LocalID)
	})

	t.Run("Stale Version Ignored", func(t *testing.T) {
		applied, err := repo.Save(ctx, Occupancy{ObjectID: objectID, Scene: "test", Version: 1, Occupants: []uuid.UUID{uuid.New()}})
		require.NoError(t, err)
		assert.False(t, applied)

		applied, err = repo.Save(ctx, Occupancy{ObjectID: objectID, Scene: "test", Version: 2, Occupants: []uuid.UUID{uuid.New()}})
		require.NoError(t, err)
		assert.False(t, applied)

		occ, _, err := repo.Load(ctx, objectID)
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{avatar}, occ.Occupants)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, objectID))
		require.NoError(t, repo.Delete(ctx, objectID))

		_, found, err := repo.Load(ctx, objectID)
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("Tombstone", func(t *testing.T) {
		id := uuid.New()
		applied, err := repo.Save(ctx, Occupancy{ObjectID: id, Scene: "test", Version: 3, Occupants: []uuid.UUID{avatar}})
		require.NoError(t, err)
		require.True(t, applied)

		applied, err = repo.Save(ctx, Occupancy{ObjectID: id, Scene: "test", Version: 4})
		require.NoError(t, err)
		assert.True(t, applied)

		_, found, err := repo.Load(ctx, id)
		require.NoError(t, err)
		assert.False(t, found)

		applied, err = repo.Save(ctx, Occupancy{ObjectID: id, Scene: "test", Version: 3, Occupants: []uuid.UUID{avatar}})
		require.NoError(t, err)
		assert.False(t, applied)

		_, found, err = repo.Load(ctx, id)
		require.NoError(t, err)
		assert.False(t, found)

		require.NoError(t, repo.Delete(ctx, id))
	})

	t.Run("Invalid Object", func(t *testing.T) {
		_, err := repo.Save(ctx, Occupancy{Version: 1})
		assert.Error(t, err)
	})
}

func TestMemoryOccupancyRepo(t *testing.T) {
	repo := NewMemoryOccupancyRepo()
	testOccupancyRepo(t, repo)
	assert.Equal(t, 0, repo.Count())
}

func TestMemoryOccupancyRepo_CancelledContext(t *testing.T) {
	repo := NewMemoryOccupancyRepo()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repo.Save(ctx, Occupancy{ObjectID: uuid.New(), Version: 1})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBadgerOccupancyRepo(t *testing.T) {
	repo, err := NewBadgerOccupancyRepo("")
	require.NoError(t, err)
	defer repo.Close()

	testOccupancyRepo(t, repo)
}

func TestBadgerOccupancyRepo_Closed(t *testing.T) {
	repo, err := NewBadgerOccupancyRepo("")
	require.NoError(t, err)
	require.NoError(t, repo.Close())
	require.NoError(t, repo.Close())

	_, err = repo.Save(context.Background(), Occupancy{ObjectID: uuid.New(), Version: 1})
	assert.Error(t, err)
}

// Интеграционные тесты требуют запущенного Redis / MariaDB
func TestRedisOccupancyRepo(t *testing.T) {
	addr := os.Getenv("SEATING_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("SEATING_TEST_REDIS_ADDR не задан")
	}

	repo, err := NewRedisOccupancyRepo(context.Background(), &RedisConfig{Addr: addr, KeyPrefix: "seating:test:" + uuid.NewString() + ":"})
	require.NoError(t, err)
	defer repo.Close()

	testOccupancyRepo(t, repo)
}

func TestMariaOccupancyRepo(t *testing.T) {
	dsn := os.Getenv("SEATING_TEST_MYSQL_DSN")
	if dsn == "" {
		t.Skip("SEATING_TEST_MYSQL_DSN не задан")
	}

	repo, err := NewMariaOccupancyRepo(context.Background(), dsn)
	require.NoError(t, err)
	defer repo.Close()

	testOccupancyRepo(t, repo)
}

func TestMongoOccupancyRepo(t *testing.T) {
	uri := os.Getenv("SEATING_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("SEATING_TEST_MONGO_URI не задан")
	}

	repo, err := NewMongoOccupancyRepo(context.Background(), MongoConfig{URI: uri, Database: "seating_test", Collection: "occupancy_" + uuid.NewString()})
	require.NoError(t, err)
	defer repo.Close()

	testOccupancyRepo(t, repo)
}

func TestOccupancyDoc(t *testing.T) {
	occ := Occupancy{
		ObjectID:  uuid.New(),
		LocalID:   3,
		Scene:     "main",
		Occupants: []uuid.UUID{uuid.New(), uuid.New()},
		SitTarget: uuid.Nil,
		Version:   9,
	}

	back, err := toOccupancyDoc(occ).toOccupancy()
	require.NoError(t, err)
	assert.Equal(t, occ.ObjectID, back.ObjectID)
	assert.Equal(t, occ.Occupants, back.Occupants)
	assert.Equal(t, uuid.Nil, back.SitTarget)
	assert.Equal(t, uint64(9), back.Version)
	assert.False(t, back.UpdatedAt.IsZero())

	_, err = occupancyDoc{ID: "broken"}.toOccupancy()
	assert.Error(t, err)
}
