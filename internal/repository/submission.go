package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/natethegreat418/movemaps/internal/domain/model"
)

// submissionColumns — список столбцов таблицы submissions для SELECT-запросов.
const submissionColumns = `id, title, media_type, year, lat, lng,
	location_name, trailer_url, imdb_link, status, submitted_at, updated_at`

// SubmissionRepository — интерфейс доступа к таблице submissions.
// Store не проверяет допустимость переходов статуса (SetStatus —
// безусловная перезапись); за state machine отвечает Moderation Engine.
type SubmissionRepository interface {
	// Create сохраняет новую заявку. Статус принудительно pending,
	// каким бы он ни пришёл на входе (защита от клиентского status).
	Create(ctx context.Context, s *model.Submission) error
	// ListByStatus возвращает заявки с точным совпадением статуса.
	ListByStatus(ctx context.Context, status model.SubmissionStatus) ([]*model.Submission, error)
	// GetByID возвращает заявку по UUID.
	GetByID(ctx context.Context, id string) (*model.Submission, error)
	// SetStatus — безусловная перезапись статуса.
	SetStatus(ctx context.Context, id string, status model.SubmissionStatus) error
	// SetStatusFromPending — условная запись: статус меняется только если
	// текущий статус pending. Optimistic guard от конкурентных resolve
	// одной заявки; чужие заявки никогда не сериализуются между собой.
	// Возвращает ErrNotFound (id не существует) или ErrConflict (уже разрешена).
	SetStatusFromPending(ctx context.Context, id string, to model.SubmissionStatus) error
}

// submissionRepo — реализация SubmissionRepository через pgx.
type submissionRepo struct {
	db DBTX
}

// NewSubmissionRepository создаёт репозиторий заявок.
func NewSubmissionRepository(db DBTX) SubmissionRepository {
	return &submissionRepo{db: db}
}

func (r *submissionRepo) Create(ctx context.Context, s *model.Submission) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	// Клиентский статус игнорируется: заявка всегда входит в pending
	s.Status = model.StatusPending

	query := `
		INSERT INTO submissions (id, title, media_type, year, lat, lng,
			location_name, trailer_url, imdb_link, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 'pending')
		RETURNING submitted_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		s.ID, s.Title, s.MediaType, s.Year, s.Lat, s.Lng,
		s.LocationName, s.TrailerURL, s.IMDBLink,
	).Scan(&s.SubmittedAt, &s.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: заявка с таким ID уже существует", ErrConflict)
		}
		return fmt.Errorf("ошибка создания заявки: %w", wrapUnavailable(err))
	}
	return nil
}

func (r *submissionRepo) ListByStatus(ctx context.Context, status model.SubmissionStatus) ([]*model.Submission, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM submissions WHERE status = $1 ORDER BY submitted_at DESC`,
		submissionColumns,
	)

	rows, err := r.db.Query(ctx, query, status)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка заявок: %w", wrapUnavailable(err))
	}
	defer rows.Close()

	var result []*model.Submission
	for rows.Next() {
		s := &model.Submission{}
		if err := rows.Scan(
			&s.ID, &s.Title, &s.MediaType, &s.Year, &s.Lat, &s.Lng,
			&s.LocationName, &s.TrailerURL, &s.IMDBLink,
			&s.Status, &s.SubmittedAt, &s.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("ошибка сканирования заявки: %w", err)
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка итерации заявок: %w", wrapUnavailable(err))
	}
	return result, nil
}

func (r *submissionRepo) GetByID(ctx context.Context, id string) (*model.Submission, error) {
	query := fmt.Sprintf(`SELECT %s FROM submissions WHERE id = $1`, submissionColumns)

	s := &model.Submission{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&s.ID, &s.Title, &s.MediaType, &s.Year, &s.Lat, &s.Lng,
		&s.LocationName, &s.TrailerURL, &s.IMDBLink,
		&s.Status, &s.SubmittedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения заявки: %w", wrapUnavailable(err))
	}
	return s, nil
}

func (r *submissionRepo) SetStatus(ctx context.Context, id string, status model.SubmissionStatus) error {
	query := `
		UPDATE submissions
		SET status = $2, updated_at = now()
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("ошибка обновления статуса заявки: %w", wrapUnavailable(err))
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *submissionRepo) SetStatusFromPending(ctx context.Context, id string, to model.SubmissionStatus) error {
	query := `
		UPDATE submissions
		SET status = $2, updated_at = now()
		WHERE id = $1 AND status = 'pending'`

	tag, err := r.db.Exec(ctx, query, id, to)
	if err != nil {
		return fmt.Errorf("ошибка условного обновления статуса: %w", wrapUnavailable(err))
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	// 0 строк: различаем «нет такой заявки» и «уже разрешена»
	var status model.SubmissionStatus
	err = r.db.QueryRow(ctx, `SELECT status FROM submissions WHERE id = $1`, id).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("ошибка проверки статуса заявки: %w", wrapUnavailable(err))
	}
	return fmt.Errorf("%w: заявка уже в статусе %s", ErrConflict, status)
}
