package handlers

import (
	"errors"
	"net/http"

	"github.com/diagnosis/testride-bookings/pkg/auth"
	"github.com/diagnosis/testride-bookings/pkg/logger"
	"github.com/diagnosis/testride-bookings/pkg/response"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type loginReq struct {
	Password string `json:"password"`
}

func (h *Handlers) AdminLogin(w http.ResponseWriter, r *http.Request) {
	var in loginReq
	if err := decodeJSON(r, &in); err != nil || in.Password == "" {
		response.BadRequest(w, "password is required")
		return
	}
	token, err := h.admin.Login(r.Context(), in.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			response.Unauthorized(w, "Invalid credentials")
			return
		}
		writeServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]string{"token": token})
}

// ListActiveTestDrives returns bikes currently out, newest first, filtered by
// the optional q parameter.
func (h *Handlers) ListActiveTestDrives(w http.ResponseWriter, r *http.Request) {
	drives, err := h.admin.ListActive(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to list active test drives", "error", err)
		response.InternalError(w, "Failed to retrieve test drives")
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]any{"test_drives": drives})
}

// CompleteTestDrive marks a bike returned and responds with the reloaded
// active list.
func (h *Handlers) CompleteTestDrive(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid test drive ID")
		return
	}
	if err := h.admin.Complete(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	logger.InfoContext(r.Context(), "Test drive completed", "test_drive_id", id)

	drives, err := h.admin.ListActive(r.Context(), "")
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to reload active test drives", "error", err)
		response.InternalError(w, "Failed to retrieve test drives")
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]any{
		"id":          id,
		"status":      "completed",
		"test_drives": drives,
	})
}

func (h *Handlers) ListOrphans(w http.ResponseWriter, r *http.Request) {
	customers, err := h.admin.ListOrphans(r.Context())
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to list orphan customers", "error", err)
		response.InternalError(w, "Failed to retrieve orphan customers")
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]any{"customers": customers})
}
