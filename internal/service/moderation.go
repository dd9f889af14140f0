// moderation.go — движок модерации заявок.
//
// Заявка живёт по state machine: pending → approved | rejected,
// других переходов нет. Approve атомарно публикует локацию в каталог
// и переводит заявку; reject только переводит заявку. Повторная
// модерация уже разрешённой заявки — всегда конфликт, независимо от
// того, совпадает ли решение с прежним.
//
// Защита от гонок — условная запись статуса (SetStatusFromPending)
// внутри транзакции. Заявки между собой не сериализуются: конкурентная
// модерация разных заявок проходит параллельно.
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

var moderationDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "mm_moderation_decisions_total",
	Help: "Количество решений модерации по типу и исходу",
}, []string{"decision", "outcome"})

// Decision — решение модератора.
type Decision string

const (
	// DecisionApprove — одобрить заявку и опубликовать локацию.
	DecisionApprove Decision = "approve"
	// DecisionReject — отклонить заявку.
	DecisionReject Decision = "reject"
)

// ValidDecision проверяет допустимость решения.
func ValidDecision(d Decision) bool {
	return d == DecisionApprove || d == DecisionReject
}

// OverrideFields — правки модератора, применяемые к заявке при approve.
// nil-поле означает «оставить как в заявке».
type OverrideFields struct {
	Title        *string
	MediaType    *model.MediaType
	Year         *int
	Lat          *float64
	Lng          *float64
	LocationName *string
	TrailerURL   *string
	IMDBLink     *string
}

// ResolutionResult — итог модерации.
type ResolutionResult struct {
	// Заявка в финальном статусе.
	Submission *model.Submission
	// Опубликованная локация; nil при reject.
	Location *model.Location
}

// ModerationService — движок модерации.
type ModerationService struct {
	subRepo  repository.SubmissionRepository
	locRepo  repository.LocationRepository
	txRunner repository.TxRunner
	locSvc   *LocationService

	queryTimeout time.Duration
	logger       *slog.Logger
}

// NewModerationService создаёт движок модерации.
// txRunner == nil допустим для store без транзакций: approve тогда
// выполняется пошагово и может завершиться ErrPartiallyApplied.
func NewModerationService(
	subRepo repository.SubmissionRepository,
	locRepo repository.LocationRepository,
	txRunner repository.TxRunner,
	locSvc *LocationService,
	queryTimeout time.Duration,
	logger *slog.Logger,
) *ModerationService {
	return &ModerationService{
		subRepo:      subRepo,
		locRepo:      locRepo,
		txRunner:     txRunner,
		locSvc:       locSvc,
		queryTimeout: queryTimeout,
		logger:       logger.With(slog.String("component", "moderation")),
	}
}

// Resolve разрешает pending-заявку: approve публикует локацию и
// переводит заявку в approved, reject — только в rejected.
//
// Ошибки: ErrValidation (недопустимое решение), ErrNotFound (нет такой
// заявки), ErrConflict (заявка уже разрешена), ErrStoreUnavailable
// (transient-сбой store, безопасно повторить), ErrPartiallyApplied
// (локация опубликована, статус не обновлён; только без транзакций).
func (s *ModerationService) Resolve(
	ctx context.Context,
	id string,
	decision Decision,
	overrides *OverrideFields,
) (*ResolutionResult, error) {
	if !ValidDecision(decision) {
		return nil, fmt.Errorf("%w: action должен быть approve или reject, получен %q", ErrValidation, decision)
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	sub, err := s.subRepo.GetByID(ctx, id)
	if err != nil {
		return nil, mapStoreErr(err, "получение заявки")
	}
	// Ранний выход до записи; гонку двух resolve добивает условная запись
	if sub.Status != model.StatusPending {
		moderationDecisions.WithLabelValues(string(decision), "conflict").Inc()
		return nil, fmt.Errorf("%w: заявка уже в статусе %s", ErrConflict, sub.Status)
	}

	result, err := s.apply(ctx, sub, decision, overrides)
	if err != nil {
		moderationDecisions.WithLabelValues(string(decision), outcomeLabel(err)).Inc()
		return nil, err
	}

	moderationDecisions.WithLabelValues(string(decision), "ok").Inc()
	if decision == DecisionApprove && s.locSvc != nil {
		s.locSvc.InvalidateCache()
	}

	logAttrs := []any{
		slog.String("submission_id", sub.ID),
		slog.String("decision", string(decision)),
	}
	if result.Location != nil {
		logAttrs = append(logAttrs, slog.String("location_id", result.Location.ID))
	}
	s.logger.Info("Заявка разрешена", logAttrs...)

	return result, nil
}

// apply выполняет запись решения в store.
func (s *ModerationService) apply(
	ctx context.Context,
	sub *model.Submission,
	decision Decision,
	overrides *OverrideFields,
) (*ResolutionResult, error) {
	if decision == DecisionReject {
		// Одиночная условная запись, транзакция не нужна
		if err := s.subRepo.SetStatusFromPending(ctx, sub.ID, model.StatusRejected); err != nil {
			return nil, mapStoreErr(err, "отклонение заявки")
		}
		sub.Status = model.StatusRejected
		return &ResolutionResult{Submission: sub}, nil
	}

	loc := buildLocation(sub, overrides)
	// Правки модератора проходят ту же валидацию, что и заявка
	if err := validateLocationFields(loc.Title, loc.MediaType, loc.Year, loc.Lat, loc.Lng); err != nil {
		return nil, err
	}

	if s.txRunner != nil {
		err := s.txRunner.RunInTx(ctx, func(st repository.Stores) error {
			if err := st.Locations.Create(ctx, loc); err != nil {
				return err
			}
			return st.Submissions.SetStatusFromPending(ctx, sub.ID, model.StatusApproved)
		})
		if err != nil {
			return nil, mapStoreErr(err, "публикация локации")
		}
	} else {
		if err := s.applyWithoutTx(ctx, sub.ID, loc); err != nil {
			return nil, err
		}
	}

	sub.Status = model.StatusApproved
	return &ResolutionResult{Submission: sub, Location: loc}, nil
}

// applyWithoutTx — approve на store без транзакций: создание локации,
// затем условный перевод статуса с одним retry на transient-сбое.
// Если перевод так и не прошёл, локация уже опубликована — возвращаем
// ErrPartiallyApplied, чтобы оператор разобрался вручную.
func (s *ModerationService) applyWithoutTx(ctx context.Context, subID string, loc *model.Location) error {
	if err := s.locRepo.Create(ctx, loc); err != nil {
		return mapStoreErr(err, "публикация локации")
	}

	err := s.subRepo.SetStatusFromPending(ctx, subID, model.StatusApproved)
	if errors.Is(err, repository.ErrUnavailable) {
		err = s.subRepo.SetStatusFromPending(ctx, subID, model.StatusApproved)
	}
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrConflict) {
			// Гонка: заявку успели разрешить между GetByID и записью.
			// Локация уже в каталоге — это тоже частичное применение.
			return fmt.Errorf("%w: локация %s опубликована, заявка %s: %v",
				ErrPartiallyApplied, loc.ID, subID, err)
		}
		return fmt.Errorf("%w: локация %s опубликована, статус заявки %s не обновлён: %v",
			ErrPartiallyApplied, loc.ID, subID, err)
	}
	return nil
}

// buildLocation собирает локацию из заявки с правками модератора.
func buildLocation(sub *model.Submission, o *OverrideFields) *model.Location {
	loc := &model.Location{
		Title:        sub.Title,
		MediaType:    sub.MediaType,
		Year:         sub.Year,
		Lat:          sub.Lat,
		Lng:          sub.Lng,
		LocationName: sub.LocationName,
		TrailerURL:   sub.TrailerURL,
		IMDBLink:     sub.IMDBLink,
	}
	if o == nil {
		return loc
	}
	if o.Title != nil {
		loc.Title = *o.Title
	}
	if o.MediaType != nil {
		loc.MediaType = *o.MediaType
	}
	if o.Year != nil {
		loc.Year = o.Year
	}
	if o.Lat != nil {
		loc.Lat = *o.Lat
	}
	if o.Lng != nil {
		loc.Lng = *o.Lng
	}
	if o.LocationName != nil {
		loc.LocationName = o.LocationName
	}
	if o.TrailerURL != nil {
		loc.TrailerURL = o.TrailerURL
	}
	if o.IMDBLink != nil {
		loc.IMDBLink = o.IMDBLink
	}
	return loc
}

// mapStoreErr переводит ошибки repository в ошибки сервисного слоя.
func mapStoreErr(err error, op string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, repository.ErrConflict):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	case errors.Is(err, repository.ErrUnavailable):
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	case errors.Is(err, repository.ErrPartialApply):
		return fmt.Errorf("%w: %v", ErrPartiallyApplied, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

// outcomeLabel — значение лейбла outcome для метрики решений.
func outcomeLabel(err error) string {
	switch {
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrStoreUnavailable):
		return "unavailable"
	case errors.Is(err, ErrPartiallyApplied):
		return "partial"
	default:
		return "error"
	}
}
