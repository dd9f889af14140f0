package repository

import (
	"context"
	"fmt"

	"github.com/natethegreat418/movemaps/internal/domain/model"
)

// ModeratorRepository — интерфейс доступа к таблице moderators.
// Whitelist модераторов по Firebase uid; запись в таблицу — только
// через cmd/add-moderator, API её не изменяет.
type ModeratorRepository interface {
	// Exists проверяет, есть ли uid в списке модераторов.
	Exists(ctx context.Context, uid string) (bool, error)
	// Add добавляет модератора. Повторное добавление — ErrConflict.
	Add(ctx context.Context, m *model.Moderator) error
	// List возвращает всех модераторов.
	List(ctx context.Context) ([]*model.Moderator, error)
}

type moderatorRepo struct {
	db DBTX
}

// NewModeratorRepository создаёт репозиторий модераторов.
func NewModeratorRepository(db DBTX) ModeratorRepository {
	return &moderatorRepo{db: db}
}

func (r *moderatorRepo) Exists(ctx context.Context, uid string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM moderators WHERE uid = $1)`, uid,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("ошибка проверки модератора: %w", wrapUnavailable(err))
	}
	return exists, nil
}

func (r *moderatorRepo) Add(ctx context.Context, m *model.Moderator) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO moderators (uid, email) VALUES ($1, $2) RETURNING created_at`,
		m.UID, m.Email,
	).Scan(&m.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: модератор %s уже добавлен", ErrConflict, m.UID)
		}
		return fmt.Errorf("ошибка добавления модератора: %w", wrapUnavailable(err))
	}
	return nil
}

func (r *moderatorRepo) List(ctx context.Context) ([]*model.Moderator, error) {
	rows, err := r.db.Query(ctx,
		`SELECT uid, email, created_at FROM moderators ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка модераторов: %w", wrapUnavailable(err))
	}
	defer rows.Close()

	var result []*model.Moderator
	for rows.Next() {
		m := &model.Moderator{}
		if err := rows.Scan(&m.UID, &m.Email, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования модератора: %w", err)
		}
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка итерации модераторов: %w", wrapUnavailable(err))
	}
	return result, nil
}
