package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/natethegreat418/movemaps/internal/domain/model"
)

// locationColumns — список столбцов таблицы locations для SELECT-запросов.
// DRY: одно место для всех SELECT'ов.
const locationColumns = `id, title, media_type, year, lat, lng,
	location_name, trailer_url, imdb_link, created_at`

// LocationRepository — интерфейс доступа к таблице locations.
// Записи создаёт только Moderation Engine (approve) и импорт (cmd/import-locations);
// публичный API читает весь список целиком.
type LocationRepository interface {
	// List возвращает все одобренные локации.
	// Либо полный набор, либо ошибка — частичных результатов не бывает.
	List(ctx context.Context) ([]*model.Location, error)
	// GetByID возвращает локацию по UUID.
	GetByID(ctx context.Context, id string) (*model.Location, error)
	// Create сохраняет новую локацию, назначает UUID и заполняет CreatedAt.
	// Бизнес-валидация — ответственность вызывающего; store проверяет
	// только структурную корректность (NOT NULL, CHECK).
	Create(ctx context.Context, l *model.Location) error
}

// locationRepo — реализация LocationRepository через pgx.
type locationRepo struct {
	db DBTX
}

// NewLocationRepository создаёт репозиторий локаций.
func NewLocationRepository(db DBTX) LocationRepository {
	return &locationRepo{db: db}
}

func (r *locationRepo) List(ctx context.Context) ([]*model.Location, error) {
	query := fmt.Sprintf(`SELECT %s FROM locations ORDER BY created_at`, locationColumns)

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка локаций: %w", wrapUnavailable(err))
	}
	defer rows.Close()

	var result []*model.Location
	for rows.Next() {
		l := &model.Location{}
		if err := rows.Scan(
			&l.ID, &l.Title, &l.MediaType, &l.Year, &l.Lat, &l.Lng,
			&l.LocationName, &l.TrailerURL, &l.IMDBLink, &l.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("ошибка сканирования локации: %w", err)
		}
		result = append(result, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка итерации локаций: %w", wrapUnavailable(err))
	}
	return result, nil
}

func (r *locationRepo) GetByID(ctx context.Context, id string) (*model.Location, error) {
	query := fmt.Sprintf(`SELECT %s FROM locations WHERE id = $1`, locationColumns)

	l := &model.Location{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&l.ID, &l.Title, &l.MediaType, &l.Year, &l.Lat, &l.Lng,
		&l.LocationName, &l.TrailerURL, &l.IMDBLink, &l.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения локации: %w", wrapUnavailable(err))
	}
	return l, nil
}

func (r *locationRepo) Create(ctx context.Context, l *model.Location) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}

	query := `
		INSERT INTO locations (id, title, media_type, year, lat, lng,
			location_name, trailer_url, imdb_link)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at`

	err := r.db.QueryRow(ctx, query,
		l.ID, l.Title, l.MediaType, l.Year, l.Lat, l.Lng,
		l.LocationName, l.TrailerURL, l.IMDBLink,
	).Scan(&l.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: локация с таким ID уже существует", ErrConflict)
		}
		return fmt.Errorf("ошибка создания локации: %w", wrapUnavailable(err))
	}
	return nil
}
