package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"sahaya/internal/catalogue"
	"sahaya/internal/platform/middleware"
	"sahaya/pkg/domain"
	dErrors "sahaya/pkg/domain-errors"
	"sahaya/pkg/platform/httputil"
	"sahaya/pkg/requestcontext"
)

// Handler exposes the catalogue: public reads plus the JWT-guarded
// administrative path (upsert, status changes, inconsistency flags).
type Handler struct {
	service     *catalogue.Service
	logger      *slog.Logger
	adminJWTKey string
}

func New(service *catalogue.Service, logger *slog.Logger, adminJWTKey string) *Handler {
	return &Handler{service: service, logger: logger, adminJWTKey: adminJWTKey}
}

// Register mounts catalogue endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/schemes", h.handleList)
	r.Get("/schemes/{schemeID}", h.handleGetCurrent)
	r.Get("/schemes/{schemeID}/versions/{version}", h.handleGetVersion)

	r.Route("/admin/schemes", func(admin chi.Router) {
		admin.Use(middleware.RequireAdmin(h.adminJWTKey, h.logger))
		admin.Put("/{schemeID}", h.handleUpsert)
		admin.Post("/{schemeID}/status", h.handleSetStatus)
		admin.Post("/{schemeID}/flags", h.handleFlag)
		admin.Get("/{schemeID}/flags", h.handleListFlags)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.ListActive(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"schemes": records})
}

func (h *Handler) handleGetCurrent(w http.ResponseWriter, r *http.Request) {
	id, ok := h.schemeID(w, r)
	if !ok {
		return
	}
	includeInactive := r.URL.Query().Get("include_inactive") == "true"
	record, err := h.service.GetCurrent(r.Context(), id, includeInactive)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, record)
}

func (h *Handler) handleGetVersion(w http.ResponseWriter, r *http.Request) {
	id, ok := h.schemeID(w, r)
	if !ok {
		return
	}
	version, err := strconv.ParseInt(chi.URLParam(r, "version"), 10, 64)
	if err != nil || version < 1 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "version must be a positive integer"))
		return
	}
	record, err := h.service.GetVersion(r.Context(), id, version)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, record)
}

type upsertRequest struct {
	Name            catalogue.LocalizedText        `json:"name,omitempty"`
	Description     catalogue.LocalizedText        `json:"description,omitempty"`
	Category        string                         `json:"category,omitempty"`
	Criteria        *catalogue.EligibilityCriteria `json:"criteria,omitempty"`
	Benefits        []catalogue.Benefit            `json:"benefits,omitempty"`
	Documents       []string                       `json:"documents,omitempty"`
	Deadlines       []catalogue.Deadline           `json:"deadlines,omitempty"`
	ExpectedVersion int64                          `json:"expected_version,omitempty"`
}

type upsertResponse struct {
	SchemeID string `json:"scheme_id"`
	Version  int64  `json:"version"`
}

func (h *Handler) handleUpsert(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.schemeID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeJSON[upsertRequest](w, r, h.logger)
	if !ok {
		return
	}

	version, err := h.service.Upsert(ctx, id, catalogue.UpsertInput{
		Name:            req.Name,
		Description:     req.Description,
		Category:        req.Category,
		Criteria:        req.Criteria,
		Benefits:        req.Benefits,
		Documents:       req.Documents,
		Deadlines:       req.Deadlines,
		ExpectedVersion: req.ExpectedVersion,
	})
	if err != nil {
		if !dErrors.Is(err, dErrors.CodeValidation) && !dErrors.Is(err, dErrors.CodeVersionConflict) {
			h.logger.ErrorContext(ctx, "scheme upsert failed",
				"request_id", requestcontext.RequestID(ctx),
				"scheme_id", id,
				"error", err,
			)
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, upsertResponse{SchemeID: id.String(), Version: version})
}

type setStatusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) handleSetStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.schemeID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeJSON[setStatusRequest](w, r, h.logger)
	if !ok {
		return
	}
	status, ok := catalogue.ParseStatus(req.Status)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "unknown status: "+req.Status))
		return
	}

	if err := h.service.SetStatus(r.Context(), id, status); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type flagRequest struct {
	Description string `json:"description"`
}

func (h *Handler) handleFlag(w http.ResponseWriter, r *http.Request) {
	id, ok := h.schemeID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeJSON[flagRequest](w, r, h.logger)
	if !ok {
		return
	}

	if err := h.service.FlagInconsistency(r.Context(), id, req.Description); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListFlags(w http.ResponseWriter, r *http.Request) {
	id, ok := h.schemeID(w, r)
	if !ok {
		return
	}
	flags, err := h.service.ListFlags(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"scheme_id": id, "flags": flags})
}

func (h *Handler) schemeID(w http.ResponseWriter, r *http.Request) (domain.SchemeID, bool) {
	id, err := domain.ParseSchemeID(chi.URLParam(r, "schemeID"))
	if err != nil {
		httputil.WriteError(w, err)
		return "", false
	}
	return id, true
}
