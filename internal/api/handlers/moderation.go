// moderation.go — admin-обработчики очереди модерации.
// Все маршруты защищены FirebaseAuth + RequireModerator на уровне роутера.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/natethegreat418/movemaps/internal/api/errors"
	"github.com/natethegreat418/movemaps/internal/api/middleware"
	"github.com/natethegreat418/movemaps/internal/domain/model"
	"github.com/natethegreat418/movemaps/internal/service"
)

// submissionsResponse — ответ списка заявок.
type submissionsResponse struct {
	Submissions []submissionDTO `json:"submissions"`
	Count       int             `json:"count"`
}

// ListSubmissions — GET /api/admin/submissions?status=.
// Без параметра status отдаёт очередь pending.
func (h *APIHandler) ListSubmissions(w http.ResponseWriter, r *http.Request) {
	status := model.SubmissionStatus(r.URL.Query().Get("status"))
	if status == "" {
		status = model.StatusPending
	}

	subs, err := h.submissions.ListByStatus(r.Context(), status)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			apierrors.ValidationError(w, err.Error())
			return
		}
		h.writeServiceError(w, err, "получение очереди заявок")
		return
	}

	dtos := make([]submissionDTO, 0, len(subs))
	for _, s := range subs {
		dtos = append(dtos, toSubmissionDTO(s))
	}
	writeJSON(w, http.StatusOK, submissionsResponse{Submissions: dtos, Count: len(dtos)})
}

// overridesRequest — правки модератора в теле moderate-запроса.
type overridesRequest struct {
	Title        *string  `json:"title,omitempty"`
	Type         *string  `json:"type,omitempty"`
	Year         *int     `json:"year,omitempty"`
	Lat          *float64 `json:"lat,omitempty"`
	Lng          *float64 `json:"lng,omitempty"`
	LocationName *string  `json:"location_name,omitempty"`
	TrailerURL   *string  `json:"trailer_url,omitempty"`
	IMDBLink     *string  `json:"imdb_link,omitempty"`
}

// moderateRequest — тело PUT /api/admin/moderate/{id}.
// Wire-имена action/updates — исторический формат admin-клиентов.
type moderateRequest struct {
	Decision  string            `json:"action"`
	Overrides *overridesRequest `json:"updates,omitempty"`
}

// moderateResponse — ответ на разрешённую заявку.
type moderateResponse struct {
	Status   string       `json:"status"`
	Location *locationDTO `json:"location,omitempty"`
}

// ModerateSubmission — PUT /api/admin/moderate/{id}.
func (h *APIHandler) ModerateSubmission(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req moderateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON в теле запроса")
		return
	}

	var overrides *service.OverrideFields
	if req.Overrides != nil {
		overrides = &service.OverrideFields{
			Title:        req.Overrides.Title,
			Year:         req.Overrides.Year,
			Lat:          req.Overrides.Lat,
			Lng:          req.Overrides.Lng,
			LocationName: req.Overrides.LocationName,
			TrailerURL:   req.Overrides.TrailerURL,
			IMDBLink:     req.Overrides.IMDBLink,
		}
		if req.Overrides.Type != nil {
			mt := model.MediaType(*req.Overrides.Type)
			overrides.MediaType = &mt
		}
	}

	result, err := h.moderation.Resolve(r.Context(), id, service.Decision(req.Decision), overrides)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			apierrors.ValidationError(w, err.Error())
		case errors.Is(err, service.ErrNotFound):
			apierrors.NotFound(w, "Заявка не найдена")
		case errors.Is(err, service.ErrConflict):
			apierrors.Conflict(w, "Заявка уже разрешена")
		default:
			h.writeServiceError(w, err, "разрешение заявки")
		}
		return
	}

	resp := moderateResponse{Status: string(result.Submission.Status)}
	if result.Location != nil {
		dto := toLocationDTO(result.Location)
		resp.Location = &dto
	}
	writeJSON(w, http.StatusOK, resp)
}

// profileResponse — ответ GET /api/admin/profile.
type profileResponse struct {
	UID   string `json:"uid"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role"`
}

// GetProfile — GET /api/admin/profile. Профиль текущего модератора.
// До сюда доходят только запросы, прошедшие обе ступени auth.
func (h *APIHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		apierrors.Unauthorized(w, "Отсутствуют claims в контексте")
		return
	}

	writeJSON(w, http.StatusOK, profileResponse{
		UID:   claims.UID,
		Email: claims.Email,
		Role:  "moderator",
	})
}
