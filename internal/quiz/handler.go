// internal/quiz/handler.go
package quiz

import (
	"encoding/json"
	"errors"
	"net/http"

	"bible-quiz/internal/auth"
	"bible-quiz/pkg/logger"
	"bible-quiz/pkg/response"

	"github.com/gorilla/mux"
)

type Handler struct {
	service *Service
	log     *logger.Logger
}

func NewHandler(service *Service, log *logger.Logger) *Handler {
	return &Handler{service: service, log: log.With("handler", "QuizHandler")}
}

type SubmitAnswerRequest struct {
	QuizID string `json:"quizId"`
	Answer string `json:"answer"`
}

// RegisterRoutes mounts the game routes on an authenticated subrouter.
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/quiz/new", h.StartQuiz).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/quiz/current", h.GetCurrentQuiz).Methods(http.MethodGet)
	r.HandleFunc("/quiz/answer", h.SubmitAnswer).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/quiz/history", h.GetHistory).Methods(http.MethodGet)
}

func (h *Handler) StartQuiz(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		response.Fail(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	result, err := h.service.StartQuiz(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	response.Success(w, http.StatusCreated, result)
}

func (h *Handler) GetCurrentQuiz(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		response.Fail(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	state, err := h.service.CurrentState(r.Context(), userID, r.URL.Query().Get("quizId"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	response.Success(w, http.StatusOK, state)
}

func (h *Handler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		response.Fail(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	var req SubmitAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Fail(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	result, err := h.service.SubmitAnswer(r.Context(), userID, req.QuizID, req.Answer)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	response.Success(w, http.StatusOK, result)
}

func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		response.Fail(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	summary, err := h.service.History(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	response.Success(w, http.StatusOK, summary)
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrValidation):
		response.Fail(w, http.StatusBadRequest, "Quiz ID and answer are required")
	case errors.Is(err, ErrNoActiveQuiz):
		response.Fail(w, http.StatusNotFound, "No active quiz found. Please start a new quiz.")
	case errors.Is(err, ErrQuizNotFound):
		response.Fail(w, http.StatusNotFound, "Quiz not found")
	case errors.Is(err, ErrQuizAlreadyCompleted):
		response.Fail(w, http.StatusBadRequest, "Quiz already completed")
	case errors.Is(err, ErrConcurrentUpdate):
		response.Fail(w, http.StatusConflict, "Answer was already recorded, reload the quiz")
	case errors.Is(err, ErrGenerationFailure):
		response.Error(w, http.StatusBadGateway, "Failed to generate Bible quiz questions")
	default:
		h.log.Error("Quiz request failed", "error", err)
		response.Error(w, http.StatusInternalServerError, "Request failed")
	}
}
