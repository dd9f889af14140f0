// submissions.go — публичный приём заявок на добавление локаций.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	apierrors "github.com/natethegreat418/movemaps/internal/api/errors"
	"github.com/natethegreat418/movemaps/internal/domain/model"
	"github.com/natethegreat418/movemaps/internal/service"
)

// submitLocationRequest — тело POST /api/submit-location.
// Lat/Lng — указатели, чтобы отличать отсутствующую координату от
// валидного нуля (экватор, нулевой меридиан). Поле status намеренно
// отсутствует: заявка всегда входит в pending, что бы клиент ни прислал.
type submitLocationRequest struct {
	Title        string   `json:"title"`
	Type         string   `json:"type"`
	Year         *int     `json:"year,omitempty"`
	Lat          *float64 `json:"lat"`
	Lng          *float64 `json:"lng"`
	LocationName *string  `json:"location_name,omitempty"`
	TrailerURL   *string  `json:"trailer_url,omitempty"`
	IMDBLink     *string  `json:"imdb_link,omitempty"`
}

// submitLocationResponse — ответ 201 на принятую заявку.
type submitLocationResponse struct {
	Submission submissionDTO `json:"submission"`
}

// SubmitLocation — POST /api/submit-location. Публичный, без auth.
func (h *APIHandler) SubmitLocation(w http.ResponseWriter, r *http.Request) {
	var req submitLocationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON в теле запроса")
		return
	}

	// Присутствие координат проверяется до доменной валидации:
	// отсутствующий lat декодировался бы в 0 — валидную координату
	if req.Lat == nil {
		apierrors.ValidationError(w, "lat обязателен")
		return
	}
	if req.Lng == nil {
		apierrors.ValidationError(w, "lng обязателен")
		return
	}

	sub := &model.Submission{
		Title:        req.Title,
		MediaType:    model.MediaType(req.Type),
		Year:         req.Year,
		Lat:          *req.Lat,
		Lng:          *req.Lng,
		LocationName: req.LocationName,
		TrailerURL:   req.TrailerURL,
		IMDBLink:     req.IMDBLink,
	}

	if err := h.submissions.Submit(r.Context(), sub); err != nil {
		if errors.Is(err, service.ErrValidation) {
			apierrors.ValidationError(w, err.Error())
			return
		}
		h.writeServiceError(w, err, "приём заявки")
		return
	}

	writeJSON(w, http.StatusCreated, submitLocationResponse{Submission: toSubmissionDTO(sub)})
}
