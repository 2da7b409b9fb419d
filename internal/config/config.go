package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/annel0/mmo-seating/internal/vec"
	"gopkg.in/yaml.v3"
)

// Значения по умолчанию для параметров посадки
const (
	DefaultMaxSitDistance = 10.0
	DefaultAvatarHeight   = 1.690998674
)

// DefaultSitTargetAdjustment смещение, добавляемое к sit target объекта
var DefaultSitTargetAdjustment = vec.Vec3Float{X: 0, Y: 0, Z: 0.4}

// Config корневая структура конфигурации приложения.
type Config struct {
	Seating   SeatingConfig   `yaml:"seating"`
	Server    ServerConfig    `yaml:"server"`
	EventBus  EventBusConfig  `yaml:"eventbus"`
	Redis     RedisConfig     `yaml:"redis"`
	Storage   StorageConfig   `yaml:"storage"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
	Objects   []ObjectConfig  `yaml:"objects"`
	Webhooks  []WebhookConfig `yaml:"webhooks"`
}

// SeatingConfig параметры посадки аватаров
type SeatingConfig struct {
	MaxSitDistance      float64        `yaml:"max_sit_distance"`
	SitTargetAdjustment *vec.Vec3Float `yaml:"sit_target_adjustment"`
	AvatarHeight        float64        `yaml:"avatar_height"`
	PhysicsCapacity     int            `yaml:"physics_capacity"`
}

type ServerConfig struct {
	RESTPort    int `yaml:"rest_port"`
	MetricsPort int `yaml:"metrics_port"`
}

type EventBusConfig struct {
	URL       string `yaml:"url"`
	Stream    string `yaml:"stream"`
	Retention int    `yaml:"retention_hours"`
	Buffer    int    `yaml:"buffer"`
}

type RedisConfig struct {
	Addr       string `yaml:"addr"`
	Password   string `yaml:"password"`
	DB         int    `yaml:"db"`
	KeyPrefix  string `yaml:"key_prefix"`
	TTLSeconds int    `yaml:"ttl_seconds"`
}

// StorageConfig выбирает хранилище проекции занятости объектов
type StorageConfig struct {
	Backend       string `yaml:"backend"` // memory | redis | badger | mysql | mongo
	BadgerPath    string `yaml:"badger_path"`
	MySQLDSN      string `yaml:"mysql_dsn"`
	MongoURI      string `yaml:"mongo_uri"`
	MongoDatabase string `yaml:"mongo_database"`
}

type TelemetryConfig struct {
	Enabled     bool    `yaml:"enabled"`
	ServiceName string  `yaml:"service_name"`
	Endpoint    string  `yaml:"endpoint"` // host:port OTLP/HTTP коллектора
	Insecure    bool    `yaml:"insecure"`
	SampleRatio float64 `yaml:"sample_ratio"` // 0: все трассы
}

// GetServiceName возвращает имя сервиса для трасс
func (t *TelemetryConfig) GetServiceName() string {
	if t.ServiceName != "" {
		return t.ServiceName
	}
	return "mmo-seating"
}

// GetSampleRatio возвращает долю сэмплируемых трасс
func (t *TelemetryConfig) GetSampleRatio() float64 {
	if t.SampleRatio <= 0 || t.SampleRatio > 1 {
		return 1
	}
	return t.SampleRatio
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"` // base64, не короче 32 байт
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// ObjectConfig описывает объект, создаваемый в сцене при старте
type ObjectConfig struct {
	Name      string         `yaml:"name"`
	Position  vec.Vec3Float  `yaml:"position"`
	SitTarget *vec.Vec3Float `yaml:"sit_target"`
}

// WebhookConfig исходящий webhook для событий посадки
type WebhookConfig struct {
	Name       string   `yaml:"name"`
	URL        string   `yaml:"url"`
	Secret     string   `yaml:"secret"`
	Events     []string `yaml:"events"`
	Timeout    int      `yaml:"timeout_seconds"`
	RetryCount int      `yaml:"retry_count"`
}

// GetMaxSitDistance возвращает дальность посадки без sit target
func (s *SeatingConfig) GetMaxSitDistance() float64 {
	return getFloatWithEnvFallback(s.MaxSitDistance, "SEATING_MAX_SIT_DISTANCE", DefaultMaxSitDistance)
}

// GetAvatarHeight возвращает рост аватара
func (s *SeatingConfig) GetAvatarHeight() float64 {
	return getFloatWithEnvFallback(s.AvatarHeight, "SEATING_AVATAR_HEIGHT", DefaultAvatarHeight)
}

// GetSitTargetAdjustment возвращает поправку к sit target
func (s *SeatingConfig) GetSitTargetAdjustment() vec.Vec3Float {
	if s.SitTargetAdjustment != nil {
		return *s.SitTargetAdjustment
	}
	return DefaultSitTargetAdjustment
}

// GetRESTPort возвращает REST API порт с поддержкой fallback значений
func (s *ServerConfig) GetRESTPort() int {
	return getPortWithEnvFallback(s.RESTPort, "SEATING_REST_PORT", 8088)
}

// GetMetricsPort возвращает Prometheus метрики порт с поддержкой fallback значений
func (s *ServerConfig) GetMetricsPort() int {
	return getPortWithEnvFallback(s.MetricsPort, "SEATING_METRICS_PORT", 2112)
}

// GetURL возвращает адрес NATS (пустой: in-memory шина)
func (e *EventBusConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	return os.Getenv("SEATING_NATS_URL")
}

// GetBuffer возвращает размер буфера in-memory шины
func (e *EventBusConfig) GetBuffer() int {
	if e.Buffer > 0 {
		return e.Buffer
	}
	return 1024
}

// GetAddr возвращает адрес Redis (пустой: хранилище в памяти)
func (r *RedisConfig) GetAddr() string {
	if r.Addr != "" {
		return r.Addr
	}
	return os.Getenv("SEATING_REDIS_ADDR")
}

// Хранилища проекции занятости
const (
	StorageMemory = "memory"
	StorageRedis  = "redis"
	StorageBadger = "badger"
	StorageMySQL  = "mysql"
	StorageMongo  = "mongo"
)

// GetStorageBackend возвращает хранилище: явно заданное, иначе redis при наличии адреса, иначе memory.
func (c *Config) GetStorageBackend() string {
	if c.Storage.Backend != "" {
		return c.Storage.Backend
	}
	if env := os.Getenv("SEATING_STORAGE"); env != "" {
		return env
	}
	if c.Redis.GetAddr() != "" {
		return StorageRedis
	}
	return StorageMemory
}

// GetBadgerPath возвращает каталог BadgerDB
func (s *StorageConfig) GetBadgerPath() string {
	if s.BadgerPath != "" {
		return s.BadgerPath
	}
	return "data/occupancy"
}

// getPortWithEnvFallback возвращает порт с приоритетом: config -> env -> default
func getPortWithEnvFallback(configPort int, envVar string, defaultPort int) int {
	if configPort > 0 {
		return configPort
	}

	if envVal := os.Getenv(envVar); envVal != "" {
		if port, err := strconv.Atoi(envVal); err == nil && port > 0 {
			return port
		}
	}

	return defaultPort
}

// getFloatWithEnvFallback то же самое для положительных вещественных параметров
func getFloatWithEnvFallback(configValue float64, envVar string, defaultValue float64) float64 {
	if configValue > 0 {
		return configValue
	}

	if envVal := os.Getenv(envVar); envVal != "" {
		if v, err := strconv.ParseFloat(envVal, 64); err == nil && v > 0 {
			return v
		}
	}

	return defaultValue
}

// Load читает YAML файл конфигурации.
// Если path == "", пытается прочитать из ENV SEATING_CONFIG, иначе возвращает пустой конфиг (все значения по умолчанию).
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("SEATING_CONFIG")
		if path == "" {
			return &Config{}, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("чтение конфигурации %s: %w", path, err)
	}

	return Parse(data)
}

// Parse разбирает YAML конфигурацию из памяти
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("разбор конфигурации: %w", err)
	}

	if cfg.Seating.MaxSitDistance < 0 {
		return nil, fmt.Errorf("seating.max_sit_distance не может быть отрицательным: %v", cfg.Seating.MaxSitDistance)
	}
	if cfg.Seating.PhysicsCapacity < 0 {
		return nil, fmt.Errorf("seating.physics_capacity не может быть отрицательным: %d", cfg.Seating.PhysicsCapacity)
	}

	for i, wh := range cfg.Webhooks {
		if wh.URL == "" {
			return nil, fmt.Errorf("webhooks[%d]: url обязателен", i)
		}
	}

	switch cfg.Storage.Backend {
	case "", StorageMemory, StorageRedis, StorageBadger, StorageMySQL, StorageMongo:
	default:
		return nil, fmt.Errorf("storage.backend: неизвестное хранилище %q", cfg.Storage.Backend)
	}
	if cfg.Storage.Backend == StorageMySQL && cfg.Storage.MySQLDSN == "" {
		return nil, fmt.Errorf("storage.mysql_dsn обязателен для backend mysql")
	}

	return &cfg, nil
}
