// internal/auth/handler.go
package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"bible-quiz/pkg/response"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Fail(w, http.StatusBadRequest, "Invalid request")
		return
	}
	if req.Username == "" || req.Password == "" {
		response.Fail(w, http.StatusBadRequest, "Username and password are required")
		return
	}

	token, err := h.service.Login(r.Context(), req.Username, req.Password)
	if errors.Is(err, ErrInvalidCredentials) {
		response.Fail(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "Login failed")
		return
	}

	response.Success(w, http.StatusOK, map[string]string{"token": token})
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Fail(w, http.StatusBadRequest, "Invalid request")
		return
	}

	user, err := h.service.Register(r.Context(), req.Username, req.Email, req.Password)
	switch {
	case errors.Is(err, ErrInvalidInput):
		response.Fail(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, ErrUserExists):
		response.Fail(w, http.StatusConflict, "Username or email already registered")
		return
	case err != nil:
		response.Error(w, http.StatusInternalServerError, "Registration failed")
		return
	}

	response.Success(w, http.StatusCreated, map[string]interface{}{"user": user})
}

func (h *Handler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		response.Fail(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	err := h.service.DeleteAccount(r.Context(), userID)
	if errors.Is(err, ErrUserNotFound) {
		response.Fail(w, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "Failed to delete account")
		return
	}

	response.Success(w, http.StatusOK, map[string]string{"message": "Account deleted"})
}
