// locations.go — публичные обработчики каталога локаций.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/natethegreat418/movemaps/internal/api/errors"
	"github.com/natethegreat418/movemaps/internal/config"
	"github.com/natethegreat418/movemaps/internal/service"
)

// apiInfoResponse — сводка API для GET /api.
type apiInfoResponse struct {
	Name      string   `json:"name"`
	Version   string   `json:"version"`
	Endpoints []string `json:"endpoints"`
}

// GetAPIInfo — GET /api. Сводка доступных endpoints.
func (h *APIHandler) GetAPIInfo(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, apiInfoResponse{
		Name:    "MovieMap API",
		Version: config.Version,
		Endpoints: []string{
			"GET /api/locations",
			"GET /api/locations/{id}",
			"POST /api/submit-location",
			"GET /api/admin/submissions",
			"PUT /api/admin/moderate/{id}",
			"GET /api/admin/profile",
		},
	})
}

// locationsResponse — ответ списка локаций.
type locationsResponse struct {
	Locations []locationDTO `json:"locations"`
	Count     int           `json:"count"`
}

// ListLocations — GET /api/locations. Все одобренные локации.
func (h *APIHandler) ListLocations(w http.ResponseWriter, r *http.Request) {
	locations, err := h.locations.List(r.Context())
	if err != nil {
		h.writeServiceError(w, err, "получение каталога локаций")
		return
	}

	dtos := make([]locationDTO, 0, len(locations))
	for _, l := range locations {
		dtos = append(dtos, toLocationDTO(l))
	}
	writeJSON(w, http.StatusOK, locationsResponse{Locations: dtos, Count: len(dtos)})
}

// GetLocation — GET /api/locations/{id}.
func (h *APIHandler) GetLocation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	loc, err := h.locations.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			apierrors.NotFound(w, "Локация не найдена")
			return
		}
		h.writeServiceError(w, err, "получение локации")
		return
	}
	writeJSON(w, http.StatusOK, toLocationDTO(loc))
}

// writeServiceError переводит ошибки сервисного слоя в HTTP-ответы.
// Transient-ошибки store — 503 (retryable), остальное — 500.
func (h *APIHandler) writeServiceError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, service.ErrStoreUnavailable):
		h.logger.Warn("Хранилище недоступно",
			slog.String("op", op),
			slog.String("error", err.Error()),
		)
		apierrors.StoreUnavailable(w, "Хранилище временно недоступно, повторите запрос")
	case errors.Is(err, service.ErrPartiallyApplied):
		h.logger.Error("Частичное применение операции",
			slog.String("op", op),
			slog.String("error", err.Error()),
		)
		apierrors.PartiallyApplied(w, "Операция применена частично, требуется вмешательство оператора")
	default:
		h.logger.Error("Внутренняя ошибка",
			slog.String("op", op),
			slog.String("error", err.Error()),
		)
		apierrors.InternalError(w, "Внутренняя ошибка сервера")
	}
}
