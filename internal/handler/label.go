package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/peachytask/peachytask-go/internal/model"
	"github.com/peachytask/peachytask-go/internal/service"
)

// LabelHandler handles HTTP requests for labels of the authenticated user.
type LabelHandler struct {
	service *service.LabelService
}

// NewLabelHandler creates a new LabelHandler.
func NewLabelHandler(svc *service.LabelService) *LabelHandler {
	return &LabelHandler{service: svc}
}

// HandleCreate handles POST /labels requests.
func (h *LabelHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req model.CreateLabelRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	label, err := h.service.Create(r.Context(), userID, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, label)
}

// HandleList handles GET /labels requests.
func (h *LabelHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var limit *int
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse("limit: must be an integer"))
			return
		}
		limit = &n
	}

	labels, err := h.service.List(r.Context(), userID, limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, labels)
}

// HandleGet handles GET /labels/{id} requests.
func (h *LabelHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	label, err := h.service.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, label)
}

// HandleUpdate handles PATCH /labels/{id} requests.
func (h *LabelHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req model.UpdateLabelRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	label, err := h.service.Update(r.Context(), userID, chi.URLParam(r, "id"), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, label)
}

// HandleDelete handles DELETE /labels/{id} requests.
func (h *LabelHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
