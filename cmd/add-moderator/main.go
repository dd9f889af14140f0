// add-moderator — провижининг whitelist модераторов.
// Добавление и просмотр — только через этот инструмент, API таблицу
// moderators не изменяет.
//
//	add-moderator -uid <firebase-uid> [-email <email>]  — добавить
//	add-moderator -list                                 — показать всех
//
// Подключение к PostgreSQL — через те же переменные окружения MM_*.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/natethegreat418/movemaps/internal/config"
	"github.com/natethegreat418/movemaps/internal/database"
	"github.com/natethegreat418/movemaps/internal/domain/model"
	"github.com/natethegreat418/movemaps/internal/repository"
)

func main() {
	uid := flag.String("uid", "", "Firebase UID модератора")
	email := flag.String("email", "", "email модератора (опционально, для справки)")
	list := flag.Bool("list", false, "показать всех модераторов")
	flag.Parse()

	if !*list && *uid == "" {
		fmt.Fprintln(os.Stderr, "использование: add-moderator -uid <firebase-uid> [-email <email>] | -list")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger := config.SetupLogger(cfg)

	ctx := context.Background()

	if err := database.Migrate(cfg, logger); err != nil {
		logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
		os.Exit(1)
	}
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	repo := repository.NewModeratorRepository(pool)

	if *list {
		listModerators(ctx, repo, logger)
		return
	}
	addModerator(ctx, repo, *uid, *email, logger)
}

func addModerator(ctx context.Context, repo repository.ModeratorRepository, uid, email string, logger *slog.Logger) {
	m := &model.Moderator{UID: uid}
	if email != "" {
		m.Email = &email
	}

	if err := repo.Add(ctx, m); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			logger.Warn("Модератор уже в whitelist", slog.String("uid", uid))
			return
		}
		logger.Error("Ошибка добавления модератора", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("Модератор добавлен",
		slog.String("uid", m.UID),
		slog.Time("created_at", m.CreatedAt),
	)
}

func listModerators(ctx context.Context, repo repository.ModeratorRepository, logger *slog.Logger) {
	moderators, err := repo.List(ctx)
	if err != nil {
		logger.Error("Ошибка получения списка модераторов", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if len(moderators) == 0 {
		fmt.Println("Whitelist модераторов пуст")
		return
	}

	for _, m := range moderators {
		email := "-"
		if m.Email != nil {
			email = *m.Email
		}
		fmt.Printf("%s\t%s\t%s\n", m.UID, email, m.CreatedAt.UTC().Format("2006-01-02 15:04:05"))
	}
}
