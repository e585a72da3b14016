package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"sahaya/internal/session"
	"sahaya/pkg/domain"
	dErrors "sahaya/pkg/domain-errors"
	"sahaya/pkg/platform/httputil"
	"sahaya/pkg/requestcontext"
)

// Handler wires session endpoints to the session service. It stays thin:
// decode, delegate, translate errors.
type Handler struct {
	service *session.Service
	logger  *slog.Logger
}

func New(service *session.Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts session endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/sessions", h.handleCreate)
	r.Put("/sessions/{sessionID}/attributes", h.handleSetAttribute)
	r.Get("/sessions/{sessionID}/context", h.handleGetContext)
	r.Delete("/sessions/{sessionID}", h.handleEnd)
}

type createRequest struct {
	PreferredLanguage string `json:"preferred_language"`
}

type createResponse struct {
	SessionID string `json:"session_id"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req createRequest
	if r.ContentLength > 0 {
		var ok bool
		if req, ok = httputil.DecodeJSON[createRequest](w, r, h.logger); !ok {
			return
		}
	}

	id, err := h.service.Create(ctx, req.PreferredLanguage)
	if err != nil {
		h.logger.ErrorContext(ctx, "create session failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, createResponse{SessionID: id.String()})
}

type setAttributeRequest struct {
	Name      string `json:"name"`
	Value     any    `json:"value"`
	Confirmed bool   `json:"confirmed"`
}

func (h *Handler) handleSetAttribute(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeJSON[setAttributeRequest](w, r, h.logger)
	if !ok {
		return
	}

	if err := h.service.SetAttribute(ctx, id, req.Name, req.Value, req.Confirmed); err != nil {
		// requires_confirmation is an expected second step, not a failure;
		// log it at debug so the error path stays quiet.
		if dErrors.Is(err, dErrors.CodeRequiresConfirmation) {
			h.logger.DebugContext(ctx, "sensitive attribute pending confirmation",
				"request_id", requestcontext.RequestID(ctx),
				"session_id", id,
				"attribute", req.Name,
			)
		}
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type contextResponse struct {
	SessionID string              `json:"session_id"`
	Context   session.UserContext `json:"context"`
}

func (h *Handler) handleGetContext(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	userCtx, err := h.service.GetContext(ctx, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, contextResponse{SessionID: id.String(), Context: userCtx})
}

func (h *Handler) handleEnd(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	if err := h.service.End(ctx, id); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) sessionID(w http.ResponseWriter, r *http.Request) (domain.SessionID, bool) {
	id, err := domain.ParseSessionID(chi.URLParam(r, "sessionID"))
	if err != nil {
		httputil.WriteError(w, err)
		return domain.SessionID{}, false
	}
	return id, true
}
