package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"sahaya/internal/eligibility"
	"sahaya/pkg/domain"
	"sahaya/pkg/platform/httputil"
	"sahaya/pkg/requestcontext"
)

// Handler wires eligibility endpoints to the engine service.
type Handler struct {
	service *eligibility.Service
	logger  *slog.Logger
}

func New(service *eligibility.Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts eligibility endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/sessions/{sessionID}/assess", h.handleAssess)
	r.Get("/sessions/{sessionID}/schemes/{schemeID}/explain", h.handleExplain)
	r.Post("/sessions/{sessionID}/alternatives", h.handleAlternatives)
}

type assessResponse struct {
	Results []eligibility.Result `json:"results"`
}

func (h *Handler) handleAssess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	results, err := h.service.Assess(ctx, sessionID)
	if err != nil {
		h.logger.ErrorContext(ctx, "assessment failed",
			"request_id", requestcontext.RequestID(ctx),
			"session_id", sessionID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, assessResponse{Results: results})
}

func (h *Handler) handleExplain(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	schemeID, err := domain.ParseSchemeID(chi.URLParam(r, "schemeID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	explanation, err := h.service.Explain(ctx, sessionID, schemeID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, explanation)
}

type alternativesRequest struct {
	Exclude []string `json:"exclude"`
}

func (h *Handler) handleAlternatives(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	var excluded []domain.SchemeID
	if r.ContentLength > 0 {
		req, ok := httputil.DecodeJSON[alternativesRequest](w, r, h.logger)
		if !ok {
			return
		}
		for _, raw := range req.Exclude {
			id, err := domain.ParseSchemeID(raw)
			if err != nil {
				httputil.WriteError(w, err)
				return
			}
			excluded = append(excluded, id)
		}
	}

	alternatives, err := h.service.FindAlternatives(ctx, sessionID, excluded)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, alternatives)
}

func (h *Handler) sessionID(w http.ResponseWriter, r *http.Request) (domain.SessionID, bool) {
	id, err := domain.ParseSessionID(chi.URLParam(r, "sessionID"))
	if err != nil {
		httputil.WriteError(w, err)
		return domain.SessionID{}, false
	}
	return id, true
}
