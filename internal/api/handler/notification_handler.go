package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	apimw "github.com/taskhub/task-management/internal/api/middleware"
	"github.com/taskhub/task-management/internal/service"
)

// NotificationHandler serves the per-user notification inbox. Every endpoint
// is scoped to the authenticated user; there is no cross-user access.
type NotificationHandler struct {
	svc    *service.NotificationService
	logger *zap.Logger
}

func NewNotificationHandler(svc *service.NotificationService, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{svc: svc, logger: logger}
}

// List handles GET /api/v1/notifications
//
// @Summary  List the authenticated user's notifications, newest first
// @Tags     notifications
// @Produce  json
// @Success  200  {array}  domain.Notification
// @Router   /api/v1/notifications [get]
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	notifications, err := h.svc.ListForUser(r.Context(), apimw.GetUserID(r.Context()))
	if err != nil {
		h.logger.Warn("list notifications failed",
			zap.String("correlation_id", apimw.GetCorrelationID(r.Context())),
			zap.Error(err),
		)
		respondError(w, http.StatusInternalServerError, "failed to list notifications")
		return
	}
	respondJSON(w, http.StatusOK, notifications)
}

// MarkRead handles PUT /api/v1/notifications/{id}/read
//
// @Summary  Mark one notification as read
// @Tags     notifications
// @Param    id  path  string  true  "Notification UUID"
// @Success  204
// @Router   /api/v1/notifications/{id}/read [put]
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid notification id")
		return
	}
	if err := h.svc.MarkRead(r.Context(), id, apimw.GetUserID(r.Context())); err != nil {
		mapError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MarkAllRead handles PUT /api/v1/notifications/mark-all-read
//
// @Summary  Mark every notification of the authenticated user as read
// @Tags     notifications
// @Success  204
// @Router   /api/v1/notifications/mark-all-read [put]
func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.MarkAllRead(r.Context(), apimw.GetUserID(r.Context())); err != nil {
		mapError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
