package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/annel0/mmo-seating/internal/vec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
seating:
  max_sit_distance: 12.5
  sit_target_adjustment: {x: 0, y: 0, z: 0.5}
  physics_capacity: 64
server:
  rest_port: 9000
eventbus:
  url: nats://127.0.0.1:4222
  stream: SEATING
objects:
  - name: chair
    position: {x: 1, y: 2, z: 0}
    sit_target: {x: 0, y: 0, z: 1}
  - name: bench
    position: {x: 5, y: 5, z: 0}
webhooks:
  - name: audit
    url: http://127.0.0.1:9999/hook
    events: [AvatarSat]
`

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, 12.5, cfg.Seating.GetMaxSitDistance())
	assert.Equal(t, vec.Vec3Float{Z: 0.5}, cfg.Seating.GetSitTargetAdjustment())
	assert.Equal(t, 64, cfg.Seating.PhysicsCapacity)
	assert.Equal(t, 9000, cfg.Server.GetRESTPort())
	assert.Equal(t, "nats://127.0.0.1:4222", cfg.EventBus.GetURL())

	require.Len(t, cfg.Webhooks, 1)
	assert.Equal(t, []string{"AvatarSat"}, cfg.Webhooks[0].Events)

	require.Len(t, cfg.Objects, 2)
	assert.Equal(t, "chair", cfg.Objects[0].Name)
	require.NotNil(t, cfg.Objects[0].SitTarget)
	assert.Equal(t, vec.Vec3Float{Z: 1}, *cfg.Objects[0].SitTarget)
	assert.Nil(t, cfg.Objects[1].SitTarget)
}

func TestDefaults(t *testing.T) {
	t.Setenv("SEATING_REST_PORT", "")
	t.Setenv("SEATING_MAX_SIT_DISTANCE", "")
	t.Setenv("SEATING_AVATAR_HEIGHT", "")

	cfg, err := Parse([]byte(""))
	require.NoError(t, err)

	assert.Equal(t, DefaultMaxSitDistance, cfg.Seating.GetMaxSitDistance())
	assert.Equal(t, DefaultAvatarHeight, cfg.Seating.GetAvatarHeight())
	assert.Equal(t, DefaultSitTargetAdjustment, cfg.Seating.GetSitTargetAdjustment())
	assert.Equal(t, 8088, cfg.Server.GetRESTPort())
	assert.Equal(t, 2112, cfg.Server.GetMetricsPort())
	assert.Equal(t, 1024, cfg.EventBus.GetBuffer())
}

func TestEnvFallback(t *testing.T) {
	t.Setenv("SEATING_REST_PORT", "7001")
	t.Setenv("SEATING_MAX_SIT_DISTANCE", "3.5")

	cfg := &Config{}
	assert.Equal(t, 7001, cfg.Server.GetRESTPort())
	assert.Equal(t, 3.5, cfg.Seating.GetMaxSitDistance())
}

func TestParse_RejectsNegative(t *testing.T) {
	_, err := Parse([]byte("seating:\n  max_sit_distance: -1\n"))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seating.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Server.GetRESTPort())

	t.Setenv("SEATING_CONFIG", "")
	cfg, err = Load("")
	require.NoError(t, err)
	assert.NotNil(t, cfg)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestStorageBackend(t *testing.T) {
	t.Setenv("SEATING_STORAGE", "")
	t.Setenv("SEATING_REDIS_ADDR", "")

	cfg := &Config{}
	assert.Equal(t, StorageMemory, cfg.GetStorageBackend())

	cfg.Redis.Addr = "localhost:6379"
	assert.Equal(t, StorageRedis, cfg.GetStorageBackend())

	cfg.Storage.Backend = StorageBadger
	assert.Equal(t, StorageBadger, cfg.GetStorageBackend())
	assert.Equal(t, "data/occupancy", cfg.Storage.GetBadgerPath())

	_, err := Parse([]byte("storage:\n  backend: etcd\n"))
	assert.Error(t, err)
	_, err = Parse([]byte("storage:\n  backend: mysql\n"))
	assert.Error(t, err)

	parsed, err := Parse([]byte("storage:\n  backend: mongo\n  mongo_uri: mongodb://db:27017\n"))
	require.NoError(t, err)
	assert.Equal(t, StorageMongo, parsed.GetStorageBackend())
	assert.Equal(t, "mongodb://db:27017", parsed.Storage.MongoURI)
}

func TestParse_WebhookWithoutURL(t *testing.T) {
	_, err := Parse([]byte("webhooks:\n  - name: broken\n"))
	assert.Error(t, err)
}
