package handler

import (
	"net/http"
	"strconv"

	"github.com/freeeve/kingdom-capitals/internal/model"
	"github.com/freeeve/kingdom-capitals/internal/service"
	"github.com/freeeve/kingdom-capitals/pkg/capitals"
)

// CapitalHandler serves capital and capture queries.
type CapitalHandler struct {
	session *service.Session
}

// NewCapitalHandler creates a CapitalHandler.
func NewCapitalHandler(session *service.Session) *CapitalHandler {
	return &CapitalHandler{session: session}
}

// ListCapitals handles GET /api/v1/capitals
func (h *CapitalHandler) ListCapitals(w http.ResponseWriter, r *http.Request) {
	entries, err := h.session.Capitals()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// GetCapital handles GET /api/v1/capitals/{factionId}
func (h *CapitalHandler) GetCapital(w http.ResponseWriter, r *http.Request) {
	faction := capitals.FactionID(r.PathValue("factionId"))
	settlement, err := h.session.CapitalOf(faction)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, capitals.Entry{Faction: faction, Settlement: settlement})
}

// SettlementStatus handles GET /api/v1/settlements/{id}/capital
func (h *CapitalHandler) SettlementStatus(w http.ResponseWriter, r *http.Request) {
	id := capitals.SettlementID(r.PathValue("id"))
	writeJSON(w, http.StatusOK, h.session.Status(id))
}

// ListCaptures handles GET /api/v1/captures?limit=N&settlement=ID
func (h *CapitalHandler) ListCaptures(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var (
		recs []model.CaptureRecord
		err  error
	)
	if s := q.Get("settlement"); s != "" {
		recs, err = h.session.CapturesOf(r.Context(), capitals.SettlementID(s))
	} else {
		limit := 0
		if v := q.Get("limit"); v != "" {
			limit, err = strconv.Atoi(v)
			if err != nil || limit < 1 {
				writeError(w, http.StatusBadRequest, "limit must be a positive integer")
				return
			}
		}
		recs, err = h.session.RecentCaptures(r.Context(), limit)
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if recs == nil {
		recs = []model.CaptureRecord{}
	}
	writeJSON(w, http.StatusOK, recs)
}
