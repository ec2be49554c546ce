package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	apimw "github.com/taskhub/task-management/internal/api/middleware"
	"github.com/taskhub/task-management/internal/domain"
	"github.com/taskhub/task-management/internal/service"
)

// TaskHandler handles the task CRUD and board endpoints.
type TaskHandler struct {
	svc    *service.TaskService
	logger *zap.Logger
}

func NewTaskHandler(svc *service.TaskService, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{svc: svc, logger: logger}
}

// Create handles POST /api/v1/tasks
//
// @Summary  Create a task
// @Tags     tasks
// @Accept   json
// @Produce  json
// @Param    body  body      domain.CreateTaskRequest  true  "Task payload"
// @Success  201   {object}  domain.Task
// @Failure  422   {object}  map[string]string
// @Router   /api/v1/tasks [post]
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	t, err := h.svc.Create(r.Context(), req, apimw.GetUserID(r.Context()))
	if err != nil {
		h.logger.Warn("create task failed",
			zap.String("correlation_id", apimw.GetCorrelationID(r.Context())),
			zap.Error(err),
		)
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, t)
}

// List handles GET /api/v1/tasks
//
// @Summary  List tasks, optionally filtered by assignee
// @Tags     tasks
// @Produce  json
// @Param    assigned_to  query    string  false  "Assignee UUID"
// @Success  200          {array}  domain.Task
// @Router   /api/v1/tasks [get]
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	var assignedTo *uuid.UUID
	if s := r.URL.Query().Get("assigned_to"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid assigned_to")
			return
		}
		assignedTo = &id
	}

	tasks, err := h.svc.List(r.Context(), assignedTo)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list tasks")
		return
	}
	respondJSON(w, http.StatusOK, tasks)
}

// GetByID handles GET /api/v1/tasks/{id}
//
// @Summary  Get a task by ID
// @Tags     tasks
// @Produce  json
// @Param    id   path      string  true  "Task UUID"
// @Success  200  {object}  domain.Task
// @Failure  404  {object}  map[string]string
// @Router   /api/v1/tasks/{id} [get]
func (h *TaskHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid task id")
		return
	}
	t, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, t)
}

// Update handles PUT /api/v1/tasks/{id}
//
// @Summary  Update a task (full replacement)
// @Tags     tasks
// @Accept   json
// @Produce  json
// @Param    id    path      string                    true  "Task UUID"
// @Param    body  body      domain.UpdateTaskRequest  true  "Task payload"
// @Success  200   {object}  domain.Task
// @Failure  404   {object}  map[string]string
// @Failure  422   {object}  map[string]string
// @Router   /api/v1/tasks/{id} [put]
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid task id")
		return
	}

	var req domain.UpdateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	t, err := h.svc.Update(r.Context(), id, req, apimw.GetUserID(r.Context()))
	if err != nil {
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, t)
}

// Delete handles DELETE /api/v1/tasks/{id}
//
// @Summary  Delete a task
// @Tags     tasks
// @Param    id   path  string  true  "Task UUID"
// @Success  204
// @Failure  404  {object}  map[string]string
// @Router   /api/v1/tasks/{id} [delete]
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid task id")
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		mapError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Reorder handles PUT /api/v1/tasks/reorder
//
// @Summary  Rewrite the ordering of one status column
// @Tags     tasks
// @Accept   json
// @Param    body  body  domain.ReorderRequest  true  "Complete desired ordering"
// @Success  204
// @Failure  422  {object}  map[string]string
// @Router   /api/v1/tasks/reorder [put]
func (h *TaskHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	var req domain.ReorderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := h.svc.Reorder(r.Context(), req); err != nil {
		mapError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
