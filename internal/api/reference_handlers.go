package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/refcheck/refcheck/internal/credibility"
	"github.com/refcheck/refcheck/internal/middleware"
	"github.com/refcheck/refcheck/internal/reference"
	"github.com/refcheck/refcheck/internal/scraper"
	"github.com/refcheck/refcheck/internal/validate"
)

// Pagination bounds for reference listings.
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// analysisTimeout bounds the background scrape-and-score pipeline kicked off
// by a submission. The sweep job retries anything left in processing state.
const analysisTimeout = 2 * time.Minute

// CreateReferenceRequest represents the request body for submitting a reference.
type CreateReferenceRequest struct {
	URL string `json:"url"`
}

// ReferenceHandlers holds dependencies for reference HTTP handlers.
type ReferenceHandlers struct {
	refs     reference.Repository
	reports  credibility.ReportRepository
	analyzer *credibility.Analyzer
	scraper  *scraper.Scraper
	logger   *slog.Logger
}

// NewReferenceHandlers creates a new ReferenceHandlers instance.
// The scraper may be nil, in which case submitted references are analyzed
// without fetched page metadata.
func NewReferenceHandlers(
	refs reference.Repository,
	reports credibility.ReportRepository,
	analyzer *credibility.Analyzer,
	sc *scraper.Scraper,
	logger *slog.Logger,
) *ReferenceHandlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReferenceHandlers{
		refs:     refs,
		reports:  reports,
		analyzer: analyzer,
		scraper:  sc,
		logger:   logger,
	}
}

// Collection handles /api/references - POST creates, GET lists.
func (h *ReferenceHandlers) Collection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createReference(w, r)
	case http.MethodGet:
		h.listReferences(w, r)
	default:
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
	}
}

// Item handles /api/references/{id} and /api/references/{id}/reanalyze.
func (h *ReferenceHandlers) Item(w http.ResponseWriter, r *http.Request) {
	id, action, ok := splitItemPath(r.URL.Path, "/api/references/")
	if !ok {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid reference path")
		return
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		h.getReference(w, r, id)
	case action == "" && r.Method == http.MethodDelete:
		h.deleteReference(w, r, id)
	case action == "reanalyze" && r.Method == http.MethodPost:
		h.reanalyzeReference(w, r, id)
	case action == "report" && r.Method == http.MethodGet:
		h.getReportByReference(w, r, id)
	default:
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
	}
}

// Report handles GET /api/reports/{reference_id}.
func (h *ReferenceHandlers) Report(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	id, action, ok := splitItemPath(r.URL.Path, "/api/reports/")
	if !ok || action != "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid report path")
		return
	}

	h.getReportByReference(w, r, id)
}

// splitItemPath extracts the resource id and an optional trailing action
// segment from paths like /api/references/{id}/reanalyze.
func splitItemPath(path, prefix string) (id, action string, ok bool) {
	rest := strings.TrimPrefix(path, prefix)
	if rest == path || rest == "" {
		return "", "", false
	}
	parts := strings.Split(strings.TrimSuffix(rest, "/"), "/")
	switch len(parts) {
	case 1:
		return parts[0], "", parts[0] != ""
	case 2:
		return parts[0], parts[1], parts[0] != "" && parts[1] != ""
	default:
		return "", "", false
	}
}

func (h *ReferenceHandlers) createReference(w http.ResponseWriter, r *http.Request) {
	var req CreateReferenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	rawURL, err := validate.ReferenceURL(req.URL)
	if err != nil {
		if errors.Is(err, validate.ErrEmptyURL) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "url is required")
			return
		}
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInvalidURL)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeInvalidURL, err.Error())
		return
	}

	domain, err := reference.ExtractDomain(rawURL)
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInvalidURL)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeInvalidURL, "URL could not be parsed")
		return
	}

	ref := &reference.Reference{
		URL:    rawURL,
		Domain: domain,
		Status: reference.StatusProcessing,
	}
	if err := h.refs.Create(r.Context(), ref); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to store reference")
		return
	}

	h.logger.Info("reference submitted",
		slog.String("reference_id", ref.ID),
		slog.String("domain", ref.Domain))

	// Scoring runs off the request path so submission returns immediately
	// with a processing reference.
	if h.analyzer != nil {
		go h.analyzeInBackground(ref.ID)
	}

	writeJSON(w, http.StatusCreated, ref)
}

// analyzeInBackground scrapes page metadata and runs the full scoring
// pipeline for a freshly submitted reference.
func (h *ReferenceHandlers) analyzeInBackground(referenceID string) {
	ctx, cancel := context.WithTimeout(context.Background(), analysisTimeout)
	defer cancel()

	ref, err := h.refs.GetByID(ctx, referenceID)
	if err != nil {
		h.logger.Error("background analysis lookup failed",
			slog.String("reference_id", referenceID),
			slog.String("error", err.Error()))
		return
	}

	if h.scraper != nil {
		md := h.scraper.Scrape(ctx, ref.URL)
		ref.Title = md.Title
		ref.Author = md.Author
		ref.PublicationDate = md.PublicationDate
		if err := h.refs.Update(ctx, ref); err != nil {
			h.logger.Warn("failed to persist scraped metadata",
				slog.String("reference_id", referenceID),
				slog.String("error", err.Error()))
		}
	}

	if _, err := h.analyzer.Analyze(ctx, ref); err != nil {
		h.logger.Error("background analysis failed",
			slog.String("reference_id", referenceID),
			slog.String("error", err.Error()))
	}
}

func (h *ReferenceHandlers) listReferences(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	filter := reference.ListFilter{
		Status: reference.Status(query.Get("status")),
		Domain: query.Get("domain"),
		Limit:  DefaultListLimit,
	}

	if filter.Status != "" && !filter.Status.Valid() {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation,
			"status must be 'processing', 'completed', or 'failed'")
		return
	}

	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "limit must be a positive integer")
			return
		}
		if limit > MaxListLimit {
			limit = MaxListLimit
		}
		filter.Limit = limit
	}

	if raw := query.Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "offset must be a non-negative integer")
			return
		}
		filter.Offset = offset
	}

	refs, err := h.refs.List(r.Context(), filter)
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to list references")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"references": refs,
		"count":      len(refs),
		"limit":      filter.Limit,
		"offset":     filter.Offset,
	})
}

func (h *ReferenceHandlers) getReference(w http.ResponseWriter, r *http.Request, id string) {
	ref, err := h.refs.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, reference.ErrReferenceNotFound) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeReferenceNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeReferenceNotFound, "Reference not found")
			return
		}
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to load reference")
		return
	}

	writeJSON(w, http.StatusOK, ref)
}

func (h *ReferenceHandlers) deleteReference(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.refs.Delete(r.Context(), id); err != nil {
		if errors.Is(err, reference.ErrReferenceNotFound) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeReferenceNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeReferenceNotFound, "Reference not found")
			return
		}
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to delete reference")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *ReferenceHandlers) reanalyzeReference(w http.ResponseWriter, r *http.Request, id string) {
	if h.analyzer == nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Analysis pipeline not configured")
		return
	}

	report, err := h.analyzer.Reanalyze(r.Context(), id)
	if err != nil {
		if errors.Is(err, reference.ErrReferenceNotFound) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeReferenceNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeReferenceNotFound, "Reference not found")
			return
		}
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Reanalysis failed")
		return
	}

	writeJSON(w, http.StatusOK, report)
}

func (h *ReferenceHandlers) getReportByReference(w http.ResponseWriter, r *http.Request, referenceID string) {
	report, err := h.reports.GetByReferenceID(r.Context(), referenceID)
	if err != nil {
		if errors.Is(err, credibility.ErrReportNotFound) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeReportNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeReportNotFound, "No report exists for this reference")
			return
		}
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to load report")
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
