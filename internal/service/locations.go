// locations.go — сервис публичного каталога локаций.
// Чтение списка идёт через LRU-кэш с TTL: карта запрашивает весь
// каталог целиком, и он меняется только при approve заявки.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/natethegreat418/movemaps/internal/domain/model"
	"github.com/natethegreat418/movemaps/internal/repository"
)

// Метрики кэша каталога.
var (
	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mm_location_cache_hits_total",
		Help: "Количество попаданий в кэш списка локаций",
	})
	cacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mm_location_cache_misses_total",
		Help: "Количество промахов кэша списка локаций",
	})
)

// Единственный ключ кэша: каталог отдаётся только целиком.
const locationsCacheKey = "all"

// LocationService — сервис каталога одобренных локаций.
type LocationService struct {
	repo         repository.LocationRepository
	cache        *expirable.LRU[string, []*model.Location]
	queryTimeout time.Duration
	logger       *slog.Logger
}

// NewLocationService создаёт сервис локаций с LRU-кэшем.
func NewLocationService(
	repo repository.LocationRepository,
	cacheSize int,
	cacheTTL time.Duration,
	queryTimeout time.Duration,
	logger *slog.Logger,
) *LocationService {
	return &LocationService{
		repo:         repo,
		cache:        expirable.NewLRU[string, []*model.Location](cacheSize, nil, cacheTTL),
		queryTimeout: queryTimeout,
		logger:       logger.With(slog.String("component", "location_service")),
	}
}

// List возвращает все одобренные локации.
// Результат кэшируется на CacheTTL; кэш сбрасывается при approve.
func (s *LocationService) List(ctx context.Context) ([]*model.Location, error) {
	if cached, ok := s.cache.Get(locationsCacheKey); ok {
		cacheHits.Inc()
		return cached, nil
	}
	cacheMisses.Inc()

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	locations, err := s.repo.List(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrUnavailable) {
			return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err) //nolint:errorlint // намеренный двойной wrap
		}
		return nil, fmt.Errorf("получение списка локаций: %w", err)
	}

	s.cache.Add(locationsCacheKey, locations)
	return locations, nil
}

// Get возвращает локацию по ID.
func (s *LocationService) Get(ctx context.Context, id string) (*model.Location, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	loc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		if errors.Is(err, repository.ErrUnavailable) {
			return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err) //nolint:errorlint // намеренный двойной wrap
		}
		return nil, fmt.Errorf("получение локации: %w", err)
	}
	return loc, nil
}

// Import сохраняет локации пачкой, минуя модерацию.
// Используется cmd/import-locations для начального наполнения каталога.
// Возвращает количество созданных записей; дубликаты ID пропускаются.
func (s *LocationService) Import(ctx context.Context, locations []*model.Location) (int, error) {
	created := 0
	for _, loc := range locations {
		if err := validateLocationFields(loc.Title, loc.MediaType, loc.Year, loc.Lat, loc.Lng); err != nil {
			return created, fmt.Errorf("локация %q: %w", loc.Title, err)
		}
		if err := s.repo.Create(ctx, loc); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				s.logger.Warn("Локация уже существует, пропуск",
					slog.String("id", loc.ID),
					slog.String("title", loc.Title),
				)
				continue
			}
			return created, fmt.Errorf("импорт локации %q: %w", loc.Title, err)
		}
		created++
	}
	s.InvalidateCache()
	return created, nil
}

// InvalidateCache сбрасывает кэш каталога. Вызывается после approve.
func (s *LocationService) InvalidateCache() {
	s.cache.Remove(locationsCacheKey)
}

// ValidateLocation проверяет доменные инварианты локации без записи в store.
// Используется cmd/import-locations в режиме dry-run.
func ValidateLocation(l *model.Location) error {
	return validateLocationFields(l.Title, l.MediaType, l.Year, l.Lat, l.Lng)
}

// validateLocationFields проверяет доменные инварианты описательных полей.
// Общая для заявок и локаций: одинаковый набор полей и ограничений.
func validateLocationFields(title string, mediaType model.MediaType, year *int, lat, lng float64) error {
	if title == "" {
		return fmt.Errorf("%w: title обязателен", ErrValidation)
	}
	if !model.ValidMediaType(mediaType) {
		return fmt.Errorf("%w: media_type должен быть movie или tv, получен %q", ErrValidation, mediaType)
	}
	if lat < -90 || lat > 90 {
		return fmt.Errorf("%w: lat вне диапазона [-90, 90]: %g", ErrValidation, lat)
	}
	if lng < -180 || lng > 180 {
		return fmt.Errorf("%w: lng вне диапазона [-180, 180]: %g", ErrValidation, lng)
	}
	if year != nil && (*year < 1888 || *year > 2100) {
		return fmt.Errorf("%w: year вне диапазона [1888, 2100]: %d", ErrValidation, *year)
	}
	return nil
}
