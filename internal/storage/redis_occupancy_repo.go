package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/annel0/mmo-seating/internal/logging"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// RedisOccupancyRepo хранит проекцию занятости в Redis для быстрого доступа
// других сервисов. Запись версии проверяется оптимистичной транзакцией (WATCH).
type RedisOccupancyRepo struct {
	client     redis.UniversalClient
	keyPrefix  string
	ttl        time.Duration
	maxRetries int
}

// RedisConfig содержит настройки подключения к Redis
type RedisConfig struct {
	Addr      string        // Адрес Redis сервера
	Password  string        // Пароль (пустой если не требуется)
	DB        int           // Номер базы данных
	KeyPrefix string        // Префикс для ключей
	TTL       time.Duration // Время жизни записей (0: без ограничения)
}

// DefaultRedisConfig возвращает конфигурацию по умолчанию
func DefaultRedisConfig() *RedisConfig {
	return &RedisConfig{
		Addr:      "localhost:6379",
		KeyPrefix: "seating:occ:",
	}
}

// NewRedisOccupancyRepo подключается к Redis и проверяет соединение
func NewRedisOccupancyRepo(ctx context.Context, config *RedisConfig) (*RedisOccupancyRepo, error) {
	if config == nil {
		config = DefaultRedisConfig()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logging.Info("🔴 Connected to Redis at %s", config.Addr)
	return NewRedisOccupancyRepoWithClient(client, config.KeyPrefix, config.TTL), nil
}

// NewRedisOccupancyRepoWithClient оборачивает готовый клиент
func NewRedisOccupancyRepoWithClient(client redis.UniversalClient, keyPrefix string, ttl time.Duration) *RedisOccupancyRepo {
	if keyPrefix == "" {
		keyPrefix = DefaultRedisConfig().KeyPrefix
	}
	return &RedisOccupancyRepo{
		client:     client,
		keyPrefix:  keyPrefix,
		ttl:        ttl,
		maxRetries: 5,
	}
}

func (r *RedisOccupancyRepo) key(objectID uuid.UUID) string {
	return r.keyPrefix + objectID.String()
}

// Save записывает срез, если его версия новее сохранённой
func (r *RedisOccupancyRepo) Save(ctx context.Context, occ Occupancy) (bool, error) {
	if occ.ObjectID == uuid.Nil {
		return false, fmt.Errorf("invalid object id: %s", occ.ObjectID)
	}

	data, err := json.Marshal(occ)
	if err != nil {
		return false, fmt.Errorf("failed to marshal occupancy: %w", err)
	}

	key := r.key(occ.ObjectID)
	applied := false

	txf := func(tx *redis.Tx) error {
		stored, found, err := getOccupancy(ctx, tx, key)
		if err != nil {
			return err
		}
		if !newer(stored, found, occ) {
			applied = false
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, r.ttl)
			return nil
		})
		applied = err == nil
		return err
	}

	for i := 0; i < r.maxRetries; i++ {
		err = r.client.Watch(ctx, txf, key)
		if err == nil {
			return applied, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			// Ключ изменился между WATCH и EXEC: повторяем
			continue
		}
		return false, fmt.Errorf("failed to save occupancy: %w", err)
	}

	return false, fmt.Errorf("failed to save occupancy %s: too many conflicts", occ.ObjectID)
}

// Load получает срез объекта
func (r *RedisOccupancyRepo) Load(ctx context.Context, objectID uuid.UUID) (Occupancy, bool, error) {
	occ, found, err := getOccupancy(ctx, r.client, r.key(objectID))
	if err != nil || !found || occ.Vacant() {
		return Occupancy{}, false, err
	}
	return occ, true, nil
}

// Delete удаляет срез объекта
func (r *RedisOccupancyRepo) Delete(ctx context.Context, objectID uuid.UUID) error {
	if err := r.client.Del(ctx, r.key(objectID)).Err(); err != nil {
		return fmt.Errorf("failed to delete occupancy: %w", err)
	}
	return nil
}

// Close закрывает соединение с Redis
func (r *RedisOccupancyRepo) Close() error {
	return r.client.Close()
}

// stringGetter общий для *redis.Client и *redis.Tx
type stringGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func getOccupancy(ctx context.Context, c stringGetter, key string) (Occupancy, bool, error) {
	data, err := c.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return Occupancy{}, false, nil
	} else if err != nil {
		return Occupancy{}, false, fmt.Errorf("failed to get occupancy: %w", err)
	}

	var occ Occupancy
	if err := json.Unmarshal(data, &occ); err != nil {
		return Occupancy{}, false, fmt.Errorf("failed to unmarshal occupancy: %w", err)
	}
	return occ, true, nil
}
