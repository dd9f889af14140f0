// submissions.go — сервис заявок на добавление локаций.
// Приём публичных заявок и выборка очереди модерации.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/natethegreat418/movemaps/internal/domain/model"
	"github.com/natethegreat418/movemaps/internal/repository"
)

var submissionsReceived = promauto.NewCounter(prometheus.CounterOpts{
	Name: "mm_submissions_received_total",
	Help: "Количество принятых публичных заявок",
})

// SubmissionService — сервис заявок.
type SubmissionService struct {
	repo         repository.SubmissionRepository
	queryTimeout time.Duration
	logger       *slog.Logger
}

// NewSubmissionService создаёт сервис заявок.
func NewSubmissionService(
	repo repository.SubmissionRepository,
	queryTimeout time.Duration,
	logger *slog.Logger,
) *SubmissionService {
	return &SubmissionService{
		repo:         repo,
		queryTimeout: queryTimeout,
		logger:       logger.With(slog.String("component", "submission_service")),
	}
}

// Submit принимает публичную заявку: валидирует описательные поля
// и сохраняет со статусом pending. Статус из входа игнорируется —
// клиент не может создать заявку сразу approved.
func (s *SubmissionService) Submit(ctx context.Context, sub *model.Submission) error {
	if err := validateLocationFields(sub.Title, sub.MediaType, sub.Year, sub.Lat, sub.Lng); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	if err := s.repo.Create(ctx, sub); err != nil {
		if errors.Is(err, repository.ErrUnavailable) {
			return fmt.Errorf("%w: %w", ErrStoreUnavailable, err) //nolint:errorlint // намеренный двойной wrap
		}
		return fmt.Errorf("сохранение заявки: %w", err)
	}

	submissionsReceived.Inc()
	s.logger.Info("Принята заявка",
		slog.String("submission_id", sub.ID),
		slog.String("title", sub.Title),
		slog.String("media_type", string(sub.MediaType)),
	)
	return nil
}

// ListByStatus возвращает заявки в указанном статусе.
// Недопустимый статус — ошибка валидации.
func (s *SubmissionService) ListByStatus(ctx context.Context, status model.SubmissionStatus) ([]*model.Submission, error) {
	if !model.ValidSubmissionStatus(status) {
		return nil, fmt.Errorf("%w: status должен быть pending, approved или rejected, получен %q", ErrValidation, status)
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	subs, err := s.repo.ListByStatus(ctx, status)
	if err != nil {
		if errors.Is(err, repository.ErrUnavailable) {
			return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err) //nolint:errorlint // намеренный двойной wrap
		}
		return nil, fmt.Errorf("получение очереди заявок: %w", err)
	}
	return subs, nil
}

// Get возвращает заявку по ID.
func (s *SubmissionService) Get(ctx context.Context, id string) (*model.Submission, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	sub, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		if errors.Is(err, repository.ErrUnavailable) {
			return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err) //nolint:errorlint // намеренный двойной wrap
		}
		return nil, fmt.Errorf("получение заявки: %w", err)
	}
	return sub, nil
}
