package scene

import (
	"sync"
	"testing"

	"github.com/annel0/mmo-seating/internal/vec"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSittingRegistry_Lifecycle(t *testing.T) {
	var r SittingRegistry
	a, b := uuid.New(), uuid.New()

	assert.Nil(t, r.Occupants())
	assert.Equal(t, 0, r.Count())

	require.NoError(t, r.AddOccupant(a, true))
	require.NoError(t, r.AddOccupant(b, false))
	assert.Equal(t, 2, r.Count())
	assert.Equal(t, a, r.TargetOccupant())

	// Второй претендент на sit target отклоняется без изменений
	c := uuid.New()
	assert.ErrorIs(t, r.AddOccupant(c, true), ErrSitTargetOccupied)
	assert.Equal(t, 2, r.Count())
	assert.NotContains(t, r.Occupants(), c)

	assert.True(t, r.RemoveOccupant(a))
	assert.Equal(t, uuid.Nil, r.TargetOccupant())
	assert.False(t, r.RemoveOccupant(a))

	assert.True(t, r.RemoveOccupant(b))
	assert.Nil(t, r.Occupants())
	assert.Equal(t, 0, r.Count())
}

func TestSittingRegistry_Close(t *testing.T) {
	var r SittingRegistry
	a := uuid.New()
	require.NoError(t, r.AddOccupant(a, true))

	assert.Equal(t, []uuid.UUID{a}, r.close())
	assert.ErrorIs(t, r.AddOccupant(uuid.New(), false), ErrObjectDeleted)

	// Сидящие встают и после закрытия
	assert.True(t, r.RemoveOccupant(a))
	assert.Equal(t, uuid.Nil, r.TargetOccupant())
	assert.Nil(t, r.Occupants())
}

func TestSittingRegistry_OccupantsIsCopy(t *testing.T) {
	var r SittingRegistry
	a := uuid.New()
	require.NoError(t, r.AddOccupant(a, false))

	view := r.Occupants()
	delete(view, a)

	assert.Equal(t, 1, r.Count())
}

func TestSittingRegistry_Snapshot(t *testing.T) {
	var r SittingRegistry
	a := uuid.MustParse("00000000-0000-0000-0000-00000000000b")
	b := uuid.MustParse("00000000-0000-0000-0000-00000000000a")

	require.NoError(t, r.AddOccupant(a, true))
	require.NoError(t, r.AddOccupant(b, false))

	snap := r.Snapshot()
	assert.Equal(t, []uuid.UUID{b, a}, snap.Occupants)
	assert.Equal(t, a, snap.Target)
	assert.Equal(t, uint64(2), snap.Version)

	r.RemoveOccupant(uuid.New())
	assert.Equal(t, uint64(2), r.Snapshot().Version)
}

func TestSittingRegistry_ConcurrentWriters(t *testing.T) {
	var r SittingRegistry
	const writers = 64

	ids := make([]uuid.UUID, writers)
	for i := range ids {
		ids[i] = uuid.New()
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id uuid.UUID) {
			defer wg.Done()
			assert.NoError(t, r.AddOccupant(id, false))
		}(id)
	}
	wg.Wait()
	assert.Equal(t, writers, r.Count())

	for _, id := range ids {
		wg.Add(1)
		go func(id uuid.UUID) {
			defer wg.Done()
			r.RemoveOccupant(id)
		}(id)
	}
	wg.Wait()
	assert.Nil(t, r.Occupants())
}

func TestResolveSit(t *testing.T) {
	params := DefaultSitParams()
	avatar := uuid.New()

	t.Run("boundary distance is accepted", func(t *testing.T) {
		part := newSceneObjectPart(uuid.New(), 1, "box", vec.Zero)
		outcome := ResolveSit(avatar, vec.Vec3Float{X: 10}, part, vec.Zero, params)
		assert.True(t, outcome.Accepted())
		assert.Equal(t, vec.Vec3Float{Z: params.AvatarHeight / 2}, outcome.Offset)
	})

	t.Run("3D distance is used", func(t *testing.T) {
		part := newSceneObjectPart(uuid.New(), 1, "box", vec.Zero)
		outcome := ResolveSit(avatar, vec.Vec3Float{X: 8, Y: 0, Z: 8}, part, vec.Zero, params)
		assert.Equal(t, SitRejectedOutOfRange, outcome.Status)
		assert.Equal(t, Placement{}, outcome.Placement)
	})

	t.Run("sit target ignores requested offset and distance", func(t *testing.T) {
		part := newSceneObjectPart(uuid.New(), 1, "chair", vec.Zero)
		part.SetSitTarget(vec.Vec3Float{Y: 1}, vec.QuatIdentity)

		outcome := ResolveSit(avatar, vec.Vec3Float{X: 1000}, part, vec.Vec3Float{X: 5}, params)
		require.True(t, outcome.Accepted())
		assert.True(t, outcome.UsesSitTarget)
		assert.Equal(t, vec.Vec3Float{Y: 1}.Add(params.SitTargetAdjustment), outcome.Offset)
	})

	t.Run("own sit target is not a conflict", func(t *testing.T) {
		part := newSceneObjectPart(uuid.New(), 1, "chair", vec.Zero)
		part.SetSitTarget(vec.Vec3Float{Z: 1}, vec.QuatIdentity)
		require.NoError(t, part.Sitting().AddOccupant(avatar, true))

		assert.True(t, ResolveSit(avatar, vec.Zero, part, vec.Zero, params).Accepted())
		assert.Equal(t, SitRejectedSlotConflict, ResolveSit(uuid.New(), vec.Zero, part, vec.Zero, params).Status)
	})

	t.Run("no side effects", func(t *testing.T) {
		part := newSceneObjectPart(uuid.New(), 1, "box", vec.Zero)
		ResolveSit(avatar, vec.Zero, part, vec.Zero, params)
		assert.Nil(t, part.GetSittingAvatars())
		assert.Equal(t, uuid.Nil, part.SitTargetAvatar())
	})
}
