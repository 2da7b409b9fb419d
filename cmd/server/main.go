package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/annel0/mmo-seating/internal/api"
	"github.com/annel0/mmo-seating/internal/auth"
	"github.com/annel0/mmo-seating/internal/config"
	"github.com/annel0/mmo-seating/internal/eventbus"
	"github.com/annel0/mmo-seating/internal/logging"
	"github.com/annel0/mmo-seating/internal/observability"
	"github.com/annel0/mmo-seating/internal/physics"
	"github.com/annel0/mmo-seating/internal/scene"
	"github.com/annel0/mmo-seating/internal/storage"
	"github.com/annel0/mmo-seating/internal/vec"
)

func main() {
	configPath := flag.String("config", "", "путь к YAML конфигурации (по умолчанию $SEATING_CONFIG)")
	flag.Parse()

	// Инициализируем систему логирования
	if err := logging.InitDefaultLogger("server"); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}
	if cfg.Logging.Level != "" {
		level, err := logging.ParseLevel(cfg.Logging.Level)
		if err != nil {
			log.Fatalf("❌ %v", err)
		}
		logging.Default().SetConsoleLevel(level)
		logging.GetLoggerManager().SetConsoleLevel(level)
	}
	defer logging.GetLoggerManager().CloseAll()

	logging.Info("🪑 Запуск MMO Seating Server...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logging.Error("❌ %v", err)
		logging.CloseDefaultLogger()
		os.Exit(1)
	}
	logging.Info("👋 Сервер успешно остановлен")
}

func run(ctx context.Context, cfg *config.Config) error {
	// === ТЕЛЕМЕТРИЯ ===
	shutdownTelemetry, err := observability.InitTelemetry(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("инициализация телеметрии: %w", err)
	}
	defer shutdownTelemetry(context.Background())

	// === ШИНА СОБЫТИЙ ===
	// Сцена публикует только в память; JetStream получает события через forwarder
	bus := eventbus.NewMemoryBus(cfg.EventBus.GetBuffer())
	defer bus.Close()

	// Подписчики переживают сигнальный ctx и дочитывают события остановки
	pipeCtx, stopPipes := context.WithCancel(context.Background())
	defer stopPipes()

	if err := eventbus.StartLoggingListener(bus); err != nil {
		return fmt.Errorf("подписка логгера событий: %w", err)
	}

	exporter := eventbus.NewMetricsExporter(bus, nil)
	exporter.StartHTTP(fmt.Sprintf(":%d", cfg.Server.GetMetricsPort()))
	defer exporter.Stop()

	if url := cfg.EventBus.GetURL(); url != "" {
		retention := time.Duration(cfg.EventBus.Retention) * time.Hour
		js, err := eventbus.NewJetStreamBus(url, cfg.EventBus.Stream, retention)
		if err != nil {
			return fmt.Errorf("подключение к JetStream: %w", err)
		}
		defer js.Close()

		if _, err := eventbus.StartForwarder(pipeCtx, bus, js, eventbus.Filter{Sources: []string{scene.EventSource}}); err != nil {
			return fmt.Errorf("запуск пересылки в JetStream: %w", err)
		}
		logging.Info("📨 События посадки пересылаются в JetStream %s", url)
	}

	// === ПРОЕКЦИЯ ЗАНЯТОСТИ ===
	repo, closeRepo, err := openOccupancyRepo(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeRepo()

	if _, err := storage.StartOccupancyRecorder(pipeCtx, bus, repo); err != nil {
		return fmt.Errorf("запуск проекции занятости: %w", err)
	}

	// === WEBHOOK'И ===
	webhooks := api.NewOutboundWebhookManager(cfg.Telemetry.GetServiceName(), logging.GetAPILogger())
	defer webhooks.Close()
	for _, wh := range cfg.Webhooks {
		webhooks.AddWebhook(api.OutboundWebhook{
			Name:       wh.Name,
			URL:        wh.URL,
			Secret:     wh.Secret,
			Events:     wh.Events,
			Timeout:    wh.Timeout,
			RetryCount: wh.RetryCount,
		})
	}
	if len(cfg.Webhooks) > 0 {
		if _, err := webhooks.Attach(pipeCtx, bus); err != nil {
			return fmt.Errorf("подписка webhook'ов: %w", err)
		}
	}

	// === СЦЕНА ===
	params := scene.SitParamsFromConfig(&cfg.Seating)
	sc := scene.NewScene("main", scene.Options{
		Physics: physics.NewMemoryScene(cfg.Seating.PhysicsCapacity),
		Bus:     bus,
		Metrics: scene.NewMetrics(nil),
		Logger:  logging.GetSeatingLogger(),
		Params:  &params,
	})
	for _, obj := range cfg.Objects {
		part := sc.AddSceneObject(obj.Name, obj.Position)
		if obj.SitTarget != nil {
			part.SetSitTarget(*obj.SitTarget, vec.QuatIdentity)
		}
		logging.Info("🪑 Объект %q (%s) на %+v", obj.Name, part.UUID, obj.Position)
	}

	// === REST API ===
	tokens, err := auth.NewTokenManager(cfg.Auth.JWTSecret, 0)
	if err != nil {
		return fmt.Errorf("JWT: %w", err)
	}
	if cfg.Auth.JWTSecret == "" {
		logging.Warn("⚠️  auth.jwt_secret не задан: используется случайный ключ, токены не переживут перезапуск")
	}

	restAddr := fmt.Sprintf(":%d", cfg.Server.GetRESTPort())
	server := api.NewRestServer(api.Config{
		Addr:        restAddr,
		Scene:       sc,
		Tokens:      tokens,
		ServiceName: "seating_api",
		Logger:      logging.GetAPILogger(),
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	logging.Info("✅ Сервер готов: REST http://localhost%s, metrics :%d", restAddr, cfg.Server.GetMetricsPort())

	select {
	case <-ctx.Done():
		logging.Info("📡 Получен сигнал завершения, останавливаемся...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("REST API: %w", err)
		}
	}

	// === GRACEFUL SHUTDOWN ===
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Stop(shutdownCtx); err != nil {
		logging.Error("❌ Ошибка остановки REST API: %v", err)
	}

	// Аватары встают, чтобы проекция не хранила сидящих после остановки
	for _, sp := range sc.Presences() {
		if err := sc.RemoveScenePresence(sp.UUID()); err != nil {
			logging.Warn("Удаление аватара %s: %v", sp.UUID(), err)
		}
	}

	// Проекция, JetStream и webhook'и дочитывают события о вставании до закрытия хранилища
	bus.Close()
	return nil
}

// openOccupancyRepo выбирает хранилище проекции по конфигурации
func openOccupancyRepo(ctx context.Context, cfg *config.Config) (storage.OccupancyRepo, func(), error) {
	switch backend := cfg.GetStorageBackend(); backend {
	case config.StorageRedis:
		repo, err := storage.NewRedisOccupancyRepo(ctx, &storage.RedisConfig{
			Addr:      cfg.Redis.GetAddr(),
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			KeyPrefix: cfg.Redis.KeyPrefix,
			TTL:       time.Duration(cfg.Redis.TTLSeconds) * time.Second,
		})
		if err != nil {
			return nil, nil, err
		}
		return repo, func() { repo.Close() }, nil

	case config.StorageBadger:
		repo, err := storage.NewBadgerOccupancyRepo(cfg.Storage.GetBadgerPath())
		if err != nil {
			return nil, nil, err
		}
		logging.Info("💾 Проекция занятости в BadgerDB %s", cfg.Storage.GetBadgerPath())
		return repo, func() { repo.Close() }, nil

	case config.StorageMySQL:
		repo, err := storage.NewMariaOccupancyRepo(ctx, cfg.Storage.MySQLDSN)
		if err != nil {
			return nil, nil, err
		}
		logging.Info("💾 Проекция занятости в MariaDB")
		return repo, func() { repo.Close() }, nil

	case config.StorageMongo:
		repo, err := storage.NewMongoOccupancyRepo(ctx, storage.MongoConfig{
			URI:      cfg.Storage.MongoURI,
			Database: cfg.Storage.MongoDatabase,
		})
		if err != nil {
			return nil, nil, err
		}
		logging.Info("💾 Проекция занятости в MongoDB")
		return repo, func() { repo.Close() }, nil

	case config.StorageMemory:
		logging.Info("💾 Проекция занятости в памяти")
		return storage.NewMemoryOccupancyRepo(), func() {}, nil

	default:
		return nil, nil, fmt.Errorf("неизвестное хранилище проекции: %s", backend)
	}
}
