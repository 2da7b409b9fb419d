package scene

import (
	"testing"

	"github.com/annel0/mmo-seating/internal/physics"
	"github.com/annel0/mmo-seating/internal/vec"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// testScene сцена с одним стоящим аватаром, как в большинстве тестов посадки
type testScene struct {
	scene   *Scene
	physics *physics.MemoryScene
	sp      *ScenePresence
	client  *BufferedClient
}

func setupScene(t *testing.T) *testScene {
	t.Helper()

	phys := physics.NewMemoryScene(0)
	s := NewScene("test", Options{Physics: phys})

	id := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	client := NewBufferedClient(id)
	sp, err := s.AddScenePresence(id, client, vec.Zero)
	require.NoError(t, err)

	return &testScene{scene: s, physics: phys, sp: sp, client: client}
}

func (ts *testScene) requestSit(t *testing.T, part *SceneObjectPart) SitOutcome {
	t.Helper()
	outcome, err := ts.sp.HandleAgentRequestSit(ts.sp.ControllingClient(), ts.sp.UUID(), part.UUID, vec.Zero)
	require.NoError(t, err)
	return outcome
}
