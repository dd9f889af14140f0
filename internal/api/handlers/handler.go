// handler.go — основной обработчик MovieMap API.
// Объединяет публичный каталог, приём заявок, модерацию и health.
// Маппинг domain-моделей во внешнее snake_case представление живёт здесь:
// сервисный слой про wire-формат не знает.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/natethegreat418/movemaps/internal/domain/model"
	"github.com/natethegreat418/movemaps/internal/service"
)

// APIHandler — основной обработчик API.
type APIHandler struct {
	locations   *service.LocationService
	submissions *service.SubmissionService
	moderation  *service.ModerationService
	health      *HealthHandler
	logger      *slog.Logger
}

// NewAPIHandler создаёт основной обработчик API.
func NewAPIHandler(
	locations *service.LocationService,
	submissions *service.SubmissionService,
	moderation *service.ModerationService,
	health *HealthHandler,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		locations:   locations,
		submissions: submissions,
		moderation:  moderation,
		health:      health,
		logger:      logger.With(slog.String("component", "api_handler")),
	}
}

// --- Health endpoints (делегируются в HealthHandler) ---

// HealthLive — liveness probe.
func (h *APIHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	h.health.HealthLive(w, r)
}

// HealthReady — readiness probe.
func (h *APIHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	h.health.HealthReady(w, r)
}

// GetMetrics — Prometheus метрики.
func (h *APIHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.health.GetMetrics(w, r)
}

// --- Внешнее представление (snake_case wire-формат) ---

// locationDTO — локация во внешнем формате.
// Поле type вместо media_type — исторический wire-формат клиентов.
type locationDTO struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	Type         string  `json:"type"`
	Year         *int    `json:"year,omitempty"`
	Lat          float64 `json:"lat"`
	Lng          float64 `json:"lng"`
	LocationName *string `json:"location_name,omitempty"`
	TrailerURL   *string `json:"trailer_url,omitempty"`
	IMDBLink     *string `json:"imdb_link,omitempty"`
	CreatedAt    string  `json:"created_at"`
}

// submissionDTO — заявка во внешнем формате.
type submissionDTO struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	Type         string  `json:"type"`
	Year         *int    `json:"year,omitempty"`
	Lat          float64 `json:"lat"`
	Lng          float64 `json:"lng"`
	LocationName *string `json:"location_name,omitempty"`
	TrailerURL   *string `json:"trailer_url,omitempty"`
	IMDBLink     *string `json:"imdb_link,omitempty"`
	Status       string  `json:"status"`
	SubmittedAt  string  `json:"submitted_at"`
	UpdatedAt    string  `json:"updated_at"`
}

func toLocationDTO(l *model.Location) locationDTO {
	return locationDTO{
		ID:           l.ID,
		Title:        l.Title,
		Type:         string(l.MediaType),
		Year:         l.Year,
		Lat:          l.Lat,
		Lng:          l.Lng,
		LocationName: l.LocationName,
		TrailerURL:   l.TrailerURL,
		IMDBLink:     l.IMDBLink,
		CreatedAt:    l.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func toSubmissionDTO(s *model.Submission) submissionDTO {
	return submissionDTO{
		ID:           s.ID,
		Title:        s.Title,
		Type:         string(s.MediaType),
		Year:         s.Year,
		Lat:          s.Lat,
		Lng:          s.Lng,
		LocationName: s.LocationName,
		TrailerURL:   s.TrailerURL,
		IMDBLink:     s.IMDBLink,
		Status:       string(s.Status),
		SubmittedAt:  s.SubmittedAt.UTC().Format(time.RFC3339),
		UpdatedAt:    s.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// --- Вспомогательные функции ---

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
