// Точка входа MovieMap API.
// Загружает конфигурацию, применяет миграции, подключается к PostgreSQL,
// создаёт репозитории и сервисный слой, инициализирует Firebase auth
// middleware и topologymetrics, запускает HTTP-сервер с graceful shutdown.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/stdlib"

	"github.com/natethegreat418/movemaps/internal/api/handlers"
	"github.com/natethegreat418/movemaps/internal/api/middleware"
	"github.com/natethegreat418/movemaps/internal/config"
	"github.com/natethegreat418/movemaps/internal/database"
	"github.com/natethegreat418/movemaps/internal/repository"
	"github.com/natethegreat418/movemaps/internal/server"
	"github.com/natethegreat418/movemaps/internal/service"
)

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("MovieMap API запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
	)

	if os.Getenv("MM_DEPHEALTH_GROUP") == "" {
		logger.Warn("MM_DEPHEALTH_GROUP не задана, используется значение по умолчанию",
			slog.String("default", cfg.DephealthGroup),
		)
	}

	// 3. Применение миграций БД
	logger.Info("Применение миграций БД...")
	if err := database.Migrate(cfg, logger); err != nil {
		logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Подключение к PostgreSQL (pgxpool)
	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	// 4.1 Адаптер pgxpool → *sql.DB для topologymetrics (connection pool mode).
	// Проверка здоровья PostgreSQL идёт через существующий пул соединений,
	// что позволяет обнаружить его исчерпание.
	pgDB := stdlib.OpenDBFromPool(pool)
	defer pgDB.Close()

	// 5. Repositories
	locRepo := repository.NewLocationRepository(pool)
	subRepo := repository.NewSubmissionRepository(pool)
	modRepo := repository.NewModeratorRepository(pool)
	txRunner := repository.NewTxRunner(pool)

	// 6. Services
	locationsSvc := service.NewLocationService(
		locRepo,
		cfg.CacheSize, cfg.CacheTTL,
		cfg.DBQueryTimeout,
		logger,
	)
	submissionsSvc := service.NewSubmissionService(
		subRepo,
		cfg.DBQueryTimeout,
		logger,
	)
	moderationSvc := service.NewModerationService(
		subRepo, locRepo, txRunner, locationsSvc,
		cfg.DBQueryTimeout,
		logger,
	)

	// 7. Firebase auth middleware
	firebaseAuth, err := middleware.NewFirebaseAuth(
		cfg.AuthJWKSURL,
		cfg.AuthIssuer,
		cfg.FirebaseProjectID,
		cfg.JWKSClientTimeout,
		cfg.JWKSRefreshInterval,
		cfg.JWTLeeway,
		logger,
	)
	if err != nil {
		logger.Error("Ошибка создания Firebase auth middleware", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer firebaseAuth.Close()
	logger.Info("Firebase auth middleware инициализирован",
		slog.String("jwks_url", cfg.AuthJWKSURL),
		slog.String("issuer", cfg.AuthIssuer),
	)

	// 8. Readiness checkers (PostgreSQL + Google JWKS)
	pgChecker := database.NewReadinessChecker(pool)
	idChecker := middleware.NewIdentityReadinessChecker(cfg.AuthJWKSURL, cfg.JWKSClientTimeout)
	healthHandler := handlers.NewHealthHandler(pgChecker, idChecker)

	// 9. API handler
	apiHandler := handlers.NewAPIHandler(
		locationsSvc,
		submissionsSvc,
		moderationSvc,
		healthHandler,
		logger,
	)

	// 10. topologymetrics — мониторинг зависимостей (PostgreSQL + Google JWKS)
	var dephealthSvc *service.DephealthService
	dephealthSvc, dephealthErr := service.NewDephealthService(
		"moviemap-api",
		cfg.DephealthGroup,
		pgDB,
		cfg.DatabaseDSN(),
		cfg.AuthJWKSURL,
		cfg.DephealthCheckInterval,
		logger,
	)
	if dephealthErr != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", dephealthErr.Error()),
		)
	} else {
		if startErr := dephealthSvc.Start(ctx); startErr != nil {
			logger.Warn("Ошибка запуска topologymetrics",
				slog.String("error", startErr.Error()),
			)
		} else {
			logger.Info("topologymetrics запущен",
				slog.String("group", cfg.DephealthGroup),
				slog.String("check_interval", cfg.DephealthCheckInterval.String()),
			)
		}
	}

	// 11. Создание и запуск HTTP-сервера
	srv := server.New(cfg, logger, apiHandler, firebaseAuth, modRepo)
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 12. Graceful shutdown фоновых задач
	if dephealthSvc != nil {
		dephealthSvc.Stop()
	}

	logger.Info("MovieMap API остановлен")
}
