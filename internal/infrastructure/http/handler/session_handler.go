package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/mrops-br/inventory-scanner/internal/app/dto"
	"github.com/mrops-br/inventory-scanner/internal/app/service"
	"github.com/mrops-br/inventory-scanner/internal/app/workflow"
	"github.com/mrops-br/inventory-scanner/internal/domain"
	"github.com/mrops-br/inventory-scanner/internal/infrastructure/http/response"
)

// SessionHandler handles HTTP requests driving scanner sessions. Scan
// failures are part of the returned session state; only misuse maps to an
// error status.
type SessionHandler struct {
	sessions *service.SessionService
	logger   *slog.Logger
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessions *service.SessionService, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		logger:   logger,
	}
}

// Open handles POST /sessions
func (h *SessionHandler) Open(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessions.Open(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.JSON(w, http.StatusCreated, session)
}

// Get handles GET /sessions/{id}
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessions.Get(r.Context(), chi.URLParam(r, "id"))
	h.reply(w, r, session, err)
}

// Close handles DELETE /sessions/{id}
func (h *SessionHandler) Close(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Close(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}

	response.NoContent(w)
}

// Start handles POST /sessions/{id}/start
func (h *SessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessions.Start(r.Context(), chi.URLParam(r, "id"))
	h.reply(w, r, session, err)
}

// Capture handles POST /sessions/{id}/capture
func (h *SessionHandler) Capture(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessions.Capture(r.Context(), chi.URLParam(r, "id"))
	h.reply(w, r, session, err)
}

// Upload handles POST /sessions/{id}/upload
func (h *SessionHandler) Upload(w http.ResponseWriter, r *http.Request) {
	upload, err := readUpload(w, r)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Failed to read uploaded image",
			slog.String("error", err.Error()),
		)
		response.Error(w, http.StatusBadRequest, err)
		return
	}

	session, err := h.sessions.Upload(r.Context(), chi.URLParam(r, "id"), upload)
	h.reply(w, r, session, err)
}

// Symbol handles POST /sessions/{id}/symbol
func (h *SessionHandler) Symbol(w http.ResponseWriter, r *http.Request) {
	var req dto.SymbolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.ErrorContext(r.Context(), "Failed to decode request body",
			slog.String("error", err.Error()),
		)
		response.Error(w, http.StatusBadRequest, err)
		return
	}

	session, err := h.sessions.Symbol(r.Context(), chi.URLParam(r, "id"), req.Barcode)
	h.reply(w, r, session, err)
}

// EditRecord handles PATCH /sessions/{id}/record
func (h *SessionHandler) EditRecord(w http.ResponseWriter, r *http.Request) {
	var req dto.EditRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.ErrorContext(r.Context(), "Failed to decode request body",
			slog.String("error", err.Error()),
		)
		response.Error(w, http.StatusBadRequest, err)
		return
	}

	session, err := h.sessions.Edit(r.Context(), chi.URLParam(r, "id"), &req)
	h.reply(w, r, session, err)
}

// Commit handles POST /sessions/{id}/commit
func (h *SessionHandler) Commit(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessions.Commit(r.Context(), chi.URLParam(r, "id"))
	h.reply(w, r, session, err)
}

// Restart handles POST /sessions/{id}/restart
func (h *SessionHandler) Restart(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessions.Restart(r.Context(), chi.URLParam(r, "id"))
	h.reply(w, r, session, err)
}

func (h *SessionHandler) reply(w http.ResponseWriter, r *http.Request, session *dto.SessionResponse, err error) {
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, session)
}

func (h *SessionHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		response.Error(w, http.StatusNotFound, err)
	case errors.Is(err, domain.ErrInvalidSymbol):
		response.Error(w, http.StatusBadRequest, err)
	case workflow.IsContractViolation(err):
		response.Error(w, http.StatusConflict, err)
	default:
		h.logger.ErrorContext(r.Context(), "Scan session request failed",
			slog.String("error", err.Error()),
		)
		response.Error(w, http.StatusInternalServerError, err)
	}
}
