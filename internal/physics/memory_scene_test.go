package physics

import (
	"errors"
	"testing"

	"github.com/annel0/mmo-seating/internal/vec"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryScene_AddRemove(t *testing.T) {
	scene := NewMemoryScene(0)
	id := uuid.New()

	actor, err := scene.AddAvatar(id, vec.Vec3Float{X: 1}, DefaultAvatarSize)
	require.NoError(t, err)
	assert.Equal(t, id, actor.AvatarID)
	assert.Equal(t, 1, scene.Count())

	found, ok := scene.ActorFor(id)
	require.True(t, ok)
	assert.Same(t, actor, found)

	// Второе тело для того же аватара запрещено
	_, err = scene.AddAvatar(id, vec.Zero, DefaultAvatarSize)
	assert.ErrorIs(t, err, ErrDuplicateActor)

	require.NoError(t, scene.RemoveAvatar(actor))
	assert.Equal(t, 0, scene.Count())

	// Повторное удаление: ошибка
	assert.ErrorIs(t, scene.RemoveAvatar(actor), ErrUnknownActor)
	assert.ErrorIs(t, scene.RemoveAvatar(nil), ErrUnknownActor)
}

func TestMemoryScene_Capacity(t *testing.T) {
	scene := NewMemoryScene(1)

	_, err := scene.AddAvatar(uuid.New(), vec.Zero, DefaultAvatarSize)
	require.NoError(t, err)

	_, err = scene.AddAvatar(uuid.New(), vec.Zero, DefaultAvatarSize)
	assert.ErrorIs(t, err, ErrCapacity)
}

func TestMemoryScene_FaultInjection(t *testing.T) {
	scene := NewMemoryScene(0)
	boom := errors.New("boom")

	scene.FailAdd(boom)
	_, err := scene.AddAvatar(uuid.New(), vec.Zero, DefaultAvatarSize)
	assert.ErrorIs(t, err, boom)

	scene.FailAdd(nil)
	actor, err := scene.AddAvatar(uuid.New(), vec.Zero, DefaultAvatarSize)
	require.NoError(t, err)

	scene.FailRemove(boom)
	assert.ErrorIs(t, scene.RemoveAvatar(actor), boom)
	assert.Equal(t, 1, scene.Count())
}
