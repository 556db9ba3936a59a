package availability

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/practicahq/platform/internal/tenancy"
	"github.com/practicahq/platform/pkg/logging"
)

// Handler handles HTTP requests for availability searches.
type Handler struct {
	engine          *Engine
	logger          *logging.Logger
	locationTimeout time.Duration
	granularity     time.Duration
	maxResults      int
}

// HandlerConfig carries the deployment-tuned defaults applied to search
// requests that omit the matching field.
type HandlerConfig struct {
	LocationTimeout time.Duration
	Granularity     time.Duration
	MaxResults      int
}

// NewHandler creates an availability handler.
func NewHandler(engine *Engine, logger *logging.Logger, cfg HandlerConfig) *Handler {
	if engine == nil {
		panic("availability: engine required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.LocationTimeout <= 0 {
		cfg.LocationTimeout = DefaultLocationTimeout
	}
	if cfg.Granularity <= 0 {
		cfg.Granularity = DefaultGranularity
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = DefaultMaxResults
	}
	return &Handler{
		engine:          engine,
		logger:          logger,
		locationTimeout: cfg.LocationTimeout,
		granularity:     cfg.Granularity,
		maxResults:      cfg.MaxResults,
	}
}

// SearchRequest is the JSON body for slot searches. Durations are minutes.
type SearchRequest struct {
	Resources       []ResourceRef `json:"resources"`
	DurationMinutes int           `json:"duration_minutes"`
	WindowStart     time.Time     `json:"window_start"`
	WindowEnd       time.Time     `json:"window_end"`
	GranularityMin  int           `json:"granularity_minutes,omitempty"`
	MaxResults      int           `json:"max_results,omitempty"`
	FutureOnly      bool          `json:"future_only,omitempty"`
	AnchorDate      *time.Time    `json:"anchor_date,omitempty"`
	TimeBand        TimeBand      `json:"time_band,omitempty"`
}

func (r *SearchRequest) toSlotRequest(now time.Time) SlotRequest {
	return SlotRequest{
		Resources:   r.Resources,
		Duration:    time.Duration(r.DurationMinutes) * time.Minute,
		Window:      TimeInterval{Start: r.WindowStart, End: r.WindowEnd},
		Granularity: time.Duration(r.GranularityMin) * time.Minute,
		Now:         now,
		FutureOnly:  r.FutureOnly,
		MaxResults:  r.MaxResults,
		Preferences: Preferences{AnchorDate: r.AnchorDate, TimeBand: r.TimeBand},
	}
}

// slotRequest converts the DTO, filling the handler's configured defaults
// where the body leaves fields unset.
func (h *Handler) slotRequest(r *SearchRequest, now time.Time) SlotRequest {
	req := r.toSlotRequest(now)
	if req.Granularity <= 0 {
		req.Granularity = h.granularity
	}
	if req.MaxResults <= 0 {
		req.MaxResults = h.maxResults
	}
	return req
}

// SearchResponse lists ranked slots for a single search.
type SearchResponse struct {
	Slots []CandidateSlot `json:"slots"`
	Count int             `json:"count"`
}

// Search handles POST /api/availability/search requests.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	orgID, ok := tenancy.OrgIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing org context", http.StatusBadRequest)
		return
	}

	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	slots, err := h.engine.FindAvailableSlots(r.Context(), orgID, h.slotRequest(&req, time.Now().UTC()))
	if err != nil {
		h.writeError(w, orgID, err)
		return
	}

	writeJSON(w, http.StatusOK, SearchResponse{Slots: slots, Count: len(slots)})
}

// MultiLocationRequest fans a search out across locations.
type MultiLocationRequest struct {
	SearchRequest
	LocationIDs []string `json:"location_ids"`
}

// MultiLocationResponse reports per-location slots and failures plus the
// merged cross-location ranking.
type MultiLocationResponse struct {
	ByLocation map[string][]CandidateSlot `json:"by_location"`
	Errors     map[string]string          `json:"errors,omitempty"`
	Merged     []CandidateSlot            `json:"merged"`
}

// SearchMultiLocation handles POST /api/availability/multi-location requests.
func (h *Handler) SearchMultiLocation(w http.ResponseWriter, r *http.Request) {
	orgID, ok := tenancy.OrgIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing org context", http.StatusBadRequest)
		return
	}

	var req MultiLocationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.LocationIDs) == 0 {
		http.Error(w, "at least one location required", http.StatusBadRequest)
		return
	}

	locations := make([]ResourceRef, len(req.LocationIDs))
	for i, id := range req.LocationIDs {
		locations[i] = ResourceRef{Kind: KindLocation, ID: id}
	}

	results, errs := h.engine.FindAvailableSlotsMultiLocation(
		r.Context(), orgID, locations, h.slotRequest(&req.SearchRequest, time.Now().UTC()), h.locationTimeout)

	resp := MultiLocationResponse{
		ByLocation: results,
		Merged:     MergeRanked(results),
	}
	if len(errs) > 0 {
		resp.Errors = make(map[string]string, len(errs))
		for id, err := range errs {
			resp.Errors[id] = err.Error()
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// ConflictCheckRequest re-validates a candidate before a booking commit.
type ConflictCheckRequest struct {
	Resources []ResourceRef `json:"resources"`
	Start     time.Time     `json:"start"`
	End       time.Time     `json:"end"`
}

// ConflictCheckResponse reports whether any resource is already committed.
type ConflictCheckResponse struct {
	Conflict bool `json:"conflict"`
}

// ConflictCheck handles POST /api/availability/conflict-check requests.
func (h *Handler) ConflictCheck(w http.ResponseWriter, r *http.Request) {
	orgID, ok := tenancy.OrgIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing org context", http.StatusBadRequest)
		return
	}

	var req ConflictCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	conflict, err := h.engine.HasConflict(r.Context(), orgID,
		TimeInterval{Start: req.Start, End: req.End}, req.Resources)
	if err != nil {
		h.writeError(w, orgID, err)
		return
	}

	writeJSON(w, http.StatusOK, ConflictCheckResponse{Conflict: conflict})
}

func (h *Handler) writeError(w http.ResponseWriter, orgID string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrInvalidRequest), errors.Is(err, ErrInvalidDuration):
		status = http.StatusBadRequest
	case errors.Is(err, ErrResourceNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ErrResourceUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, ErrLoaderTimeout):
		status = http.StatusGatewayTimeout
	case errors.Is(err, ErrLoaderUnavailable):
		status = http.StatusBadGateway
	}
	if status >= 500 {
		h.logger.Error("availability: search failed", "org_id", orgID, "error", err)
	}
	http.Error(w, err.Error(), status)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
