package handler

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	apimw "github.com/taskhub/task-management/internal/api/middleware"
	"github.com/taskhub/task-management/internal/domain"
	"github.com/taskhub/task-management/internal/service"
)

// AuthHandler handles registration, login, and the user directory.
type AuthHandler struct {
	svc    *service.AuthService
	logger *zap.Logger
}

func NewAuthHandler(svc *service.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, logger: logger}
}

// Register handles POST /api/v1/auth/register
//
// @Summary  Create an account
// @Tags     auth
// @Accept   json
// @Produce  json
// @Param    body  body      domain.RegisterRequest  true  "Account payload"
// @Success  201   {object}  domain.User
// @Failure  409   {object}  map[string]string
// @Failure  422   {object}  map[string]string
// @Router   /api/v1/auth/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	u, err := h.svc.Register(r.Context(), req)
	if err != nil {
		h.logger.Warn("register failed",
			zap.String("correlation_id", apimw.GetCorrelationID(r.Context())),
			zap.Error(err),
		)
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, u)
}

// Login handles POST /api/v1/auth/login
//
// @Summary  Exchange credentials for a bearer token
// @Tags     auth
// @Accept   json
// @Produce  json
// @Param    body  body      domain.LoginRequest  true  "Credentials"
// @Success  200   {object}  map[string]any
// @Failure  401   {object}  map[string]string
// @Router   /api/v1/auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	token, u, err := h.svc.Login(r.Context(), req)
	if err != nil {
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"token": token,
		"user":  u,
	})
}

// ListUsers handles GET /api/v1/users
//
// @Summary  List all accounts, for assignment pickers
// @Tags     auth
// @Produce  json
// @Success  200  {array}  domain.User
// @Router   /api/v1/users [get]
func (h *AuthHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.Users(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list users")
		return
	}
	respondJSON(w, http.StatusOK, users)
}
