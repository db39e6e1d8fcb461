package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"radrush-quiz-service/internal/app"
	"radrush-quiz-service/internal/domain"
	"radrush-quiz-service/internal/generator"
	"radrush-quiz-service/internal/logging"
)

// API serves the REST endpoints.
type API struct {
	service *app.QuizService
	logger  zerolog.Logger
}

type apiResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *apiError `json:"error,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type generateRequest struct {
	Text        string `json:"text"`
	ReplacePool bool   `json:"replacePool"`
}

type generateResponse struct {
	Count     int               `json:"count"`
	Replaced  bool              `json:"replaced"`
	Questions []domain.Question `json:"questions"`
}

type eligibilityResponse struct {
	Name    string `json:"name"`
	CanPlay bool   `json:"canPlay"`
}

const maxDocumentBytes = 2 << 20

func (a *API) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, a.service.Leaderboard(r.Context(), r.URL.Query().Get("name")))
}

func (a *API) handleEligibility(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	ok, err := a.service.CanPlayRanked(r.Context(), name)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, eligibilityResponse{Name: name, CanPlay: ok})
}

func (a *API) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxDocumentBytes)).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_body", "request body must be JSON {text, replacePool}")
		return
	}
	questions, err := a.service.GenerateQuestions(r.Context(), req.Text, req.ReplacePool)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, generateResponse{
		Count:     len(questions),
		Replaced:  req.ReplacePool,
		Questions: questions,
	})
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(apiResponse{Success: status >= 200 && status < 300, Data: data})
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(apiResponse{Error: &apiError{Code: code, Message: message}})
}

func respondDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var validation *generator.ValidationError
	var unavailable *generator.UnavailableError
	switch {
	case errors.Is(err, domain.ErrEmptyDocument), errors.Is(err, domain.ErrEmptyPlayerName):
		respondError(w, http.StatusBadRequest, "invalid_input", err.Error())
	case errors.Is(err, domain.ErrGenerationInProgress):
		respondError(w, http.StatusConflict, "busy", err.Error())
	case errors.Is(err, domain.ErrGeneratorDisabled):
		respondError(w, http.StatusServiceUnavailable, "disabled", err.Error())
	case errors.As(err, &validation), errors.Is(err, domain.ErrEmptyPool):
		respondError(w, http.StatusUnprocessableEntity, "invalid_generation", err.Error())
	case errors.As(err, &unavailable):
		respondError(w, http.StatusBadGateway, "upstream_unavailable", err.Error())
	default:
		logger := logging.FromContext(r.Context())
		logger.Error().Err(err).Msg("request failed")
		respondError(w, http.StatusInternalServerError, "internal", "internal error")
	}
}
