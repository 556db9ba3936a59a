package waitlist

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/practicahq/platform/internal/availability"
	"github.com/practicahq/platform/internal/tenancy"
	"github.com/practicahq/platform/pkg/logging"
)

// Handler handles HTTP requests for waitlist entries.
type Handler struct {
	store   *Store
	matcher *Matcher
	logger  *logging.Logger
}

// NewHandler creates a waitlist handler.
func NewHandler(store *Store, matcher *Matcher, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{store: store, matcher: matcher, logger: logger}
}

// CreateEntryRequest is the JSON body for creating an entry.
type CreateEntryRequest struct {
	PatientID       uuid.UUID                  `json:"patient_id"`
	Resources       []availability.ResourceRef `json:"resources"`
	PreferredDays   []time.Weekday             `json:"preferred_days,omitempty"`
	TimeBand        availability.TimeBand      `json:"time_band,omitempty"`
	DurationMinutes int                        `json:"duration_minutes"`
	Priority        int                        `json:"priority,omitempty"`
}

// Create handles POST /api/waitlist requests.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	orgID, ok := tenancy.OrgIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing org context", http.StatusBadRequest)
		return
	}

	var req CreateEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	entry := &Entry{
		OrgID:           orgID,
		PatientID:       req.PatientID,
		Resources:       req.Resources,
		PreferredDays:   req.PreferredDays,
		TimeBand:        req.TimeBand,
		DurationMinutes: req.DurationMinutes,
		Priority:        req.Priority,
	}
	if err := h.store.Create(r.Context(), entry); err != nil {
		status := http.StatusBadRequest
		if !isValidationErr(err) {
			h.logger.Error("waitlist: create failed", "org_id", orgID, "error", err)
			status = http.StatusInternalServerError
		}
		http.Error(w, err.Error(), status)
		return
	}

	h.logger.Info("waitlist: entry created", "org_id", orgID, "entry_id", entry.ID)
	writeJSON(w, http.StatusCreated, entry)
}

// ListResponse lists active entries for the org.
type ListResponse struct {
	Entries []Entry `json:"entries"`
	Count   int     `json:"count"`
}

// List handles GET /api/waitlist requests.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	orgID, ok := tenancy.OrgIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing org context", http.StatusBadRequest)
		return
	}

	entries, err := h.store.ListActiveByOrg(r.Context(), orgID)
	if err != nil {
		h.logger.Error("waitlist: list failed", "org_id", orgID, "error", err)
		http.Error(w, "failed to list entries", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, ListResponse{Entries: entries, Count: len(entries)})
}

// Deactivate handles DELETE /api/waitlist/{entryID} requests.
func (h *Handler) Deactivate(w http.ResponseWriter, r *http.Request) {
	orgID, ok := tenancy.OrgIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing org context", http.StatusBadRequest)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "entryID"))
	if err != nil {
		http.Error(w, "invalid entry id", http.StatusBadRequest)
		return
	}

	if err := h.store.Deactivate(r.Context(), orgID, id); err != nil {
		if errors.Is(err, ErrEntryNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		h.logger.Error("waitlist: deactivate failed", "org_id", orgID, "entry_id", id, "error", err)
		http.Error(w, "failed to deactivate entry", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MatchRequest tunes a one-off match run for a single entry.
type MatchRequest struct {
	HorizonDays int `json:"horizon_days,omitempty"`
	MaxMatches  int `json:"max_matches,omitempty"`
}

// Matches handles POST /api/waitlist/{entryID}/matches requests.
func (h *Handler) Matches(w http.ResponseWriter, r *http.Request) {
	orgID, ok := tenancy.OrgIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing org context", http.StatusBadRequest)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "entryID"))
	if err != nil {
		http.Error(w, "invalid entry id", http.StatusBadRequest)
		return
	}

	var req MatchRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
	}

	entry, err := h.store.GetByID(r.Context(), orgID, id)
	if err != nil {
		if errors.Is(err, ErrEntryNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		h.logger.Error("waitlist: load entry failed", "org_id", orgID, "entry_id", id, "error", err)
		http.Error(w, "failed to load entry", http.StatusInternalServerError)
		return
	}

	horizon := time.Duration(req.HorizonDays) * 24 * time.Hour
	matches, err := h.matcher.MatchEntry(r.Context(), *entry, time.Now().UTC(), horizon, req.MaxMatches)
	if err != nil {
		h.logger.Error("waitlist: match failed", "org_id", orgID, "entry_id", id, "error", err)
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	writeJSON(w, http.StatusOK, Result{Entry: *entry, Matches: matches})
}

func isValidationErr(err error) bool {
	return errors.Is(err, ErrMissingPatient) ||
		errors.Is(err, ErrMissingResources) ||
		errors.Is(err, ErrInvalidDuration) ||
		errors.Is(err, ErrInvalidTimeBand)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
