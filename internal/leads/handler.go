package leads

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/optimumsoft/optimumsoft-web/internal/gateway"
	"github.com/optimumsoft/optimumsoft-web/pkg/logging"
)

const maxContactBody = 64 << 10

// Handler handles HTTP requests for the contact form and the admin lead inbox.
type Handler struct {
	submitter gateway.Gateway
	repo      Repository
	validate  *validator.Validate
	logger    *logging.Logger
}

// NewHandler creates a new leads handler
func NewHandler(submitter gateway.Gateway, repo Repository, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		submitter: submitter,
		repo:      repo,
		validate:  newValidator(),
		logger:    logger,
	}
}

type errorResponse struct {
	Error  string       `json:"error"`
	Fields []FieldError `json:"fields,omitempty"`
}

// SubmitContact handles POST /api/contact. Accepts JSON or form-encoded bodies.
func (h *Handler) SubmitContact(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxContactBody)

	req, err := decodeContact(r)
	if err != nil {
		h.logger.Warn("failed to decode contact request", "error", err)
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	req.Normalize()

	if err := h.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "validation failed", Fields: fieldErrors(err)})
		return
	}

	if err := h.submitter.Submit(r.Context(), req.Submission()); err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, gateway.ErrNotConfigured) {
			status = http.StatusServiceUnavailable
		}
		h.logger.Error("contact submission failed", "error", err)
		writeJSON(w, status, errorResponse{Error: "failed to send message, please try again or contact us directly"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}

func decodeContact(r *http.Request) (ContactRequest, error) {
	var req ContactRequest
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		err := json.NewDecoder(r.Body).Decode(&req)
		return req, err
	}
	if err := r.ParseForm(); err != nil {
		return req, err
	}
	req.Name = r.PostForm.Get("name")
	req.Email = r.PostForm.Get("email")
	req.Phone = r.PostForm.Get("phone")
	req.Subject = r.PostForm.Get("subject")
	req.Message = r.PostForm.Get("message")
	return req, nil
}

// ListLeadsResponse is the response for listing leads
type ListLeadsResponse struct {
	Leads  []*Lead `json:"leads"`
	Count  int     `json:"count"`
	Offset int     `json:"offset"`
	Limit  int     `json:"limit"`
}

// ListLeads handles GET /admin/leads requests
func (h *Handler) ListLeads(w http.ResponseWriter, r *http.Request) {
	filter := ListLeadsFilter{
		Limit:  defaultListLimit,
		Offset: 0,
	}

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 && limit <= maxListLimit {
			filter.Limit = limit
		}
	}

	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil && offset >= 0 {
			filter.Offset = offset
		}
	}

	if source := r.URL.Query().Get("source"); source != "" {
		filter.Source = source
	}

	leads, err := h.repo.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list leads", "error", err)
		http.Error(w, "failed to list leads", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, ListLeadsResponse{
		Leads:  leads,
		Count:  len(leads),
		Offset: filter.Offset,
		Limit:  filter.Limit,
	})
}

// GetLead handles GET /admin/leads/{id}
func (h *Handler) GetLead(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	lead, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrLeadNotFound) {
			http.Error(w, "lead not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to get lead", "error", err, "id", id)
		http.Error(w, "failed to get lead", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
