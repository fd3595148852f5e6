package handler

import (
	"net/http"

	"github.com/freeeve/kingdom-capitals/internal/auth"
	"github.com/freeeve/kingdom-capitals/internal/logger"
	"github.com/freeeve/kingdom-capitals/internal/service"
	"github.com/freeeve/kingdom-capitals/pkg/capitals"
)

// EventHandler ingests host simulation events.
type EventHandler struct {
	session *service.Session
	wsHub   *Hub
}

// NewEventHandler creates an EventHandler.
func NewEventHandler(session *service.Session, wsHub *Hub) *EventHandler {
	return &EventHandler{session: session, wsHub: wsHub}
}

// OwnershipChanged handles POST /api/v1/events/ownership-changed
func (h *EventHandler) OwnershipChanged(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Settlement  capitals.SettlementID `json:"settlement"`
		FormerOwner capitals.HeroID       `json:"former_owner"`
		Capturer    capitals.HeroID       `json:"capturer"`
		Cause       string                `json:"cause"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Settlement == "" || req.Capturer == "" {
		writeError(w, http.StatusBadRequest, "settlement and capturer are required")
		return
	}
	cause, err := capitals.ParseChangeCause(req.Cause)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	out, rec := h.session.OnOwnershipChanged(r.Context(), service.OwnershipChange{
		Settlement:  req.Settlement,
		FormerOwner: req.FormerOwner,
		Capturer:    req.Capturer,
		Cause:       cause,
	})
	l := logger.ForRequest(r.Context())
	l.Info().
		Str("hostId", auth.HostIDFromContext(r.Context())).
		Str("settlement", string(req.Settlement)).
		Str("outcome", string(out)).
		Msg("Ownership change processed")

	if rec != nil {
		h.wsHub.Broadcast(WSEvent{Type: EventCaptureRecorded, Day: rec.Day, Data: rec})
	}
	writeJSON(w, http.StatusOK, map[string]any{"outcome": out, "capture": rec})
}

// LeaderDied handles POST /api/v1/events/leader-died
func (h *EventHandler) LeaderDied(w http.ResponseWriter, r *http.Request) {
	var req service.LeaderDied
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Victim == "" || req.Faction == "" {
		writeError(w, http.StatusBadRequest, "victim and faction are required")
		return
	}
	scheduled := h.session.OnLeaderDied(r.Context(), req)
	writeJSON(w, http.StatusOK, map[string]bool{"scheduled": scheduled})
}

// ClanChangedFaction handles POST /api/v1/events/clan-changed-faction
func (h *EventHandler) ClanChangedFaction(w http.ResponseWriter, r *http.Request) {
	var req service.ClanChangedFaction
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Clan == "" {
		writeError(w, http.StatusBadRequest, "clan is required")
		return
	}
	rehomed := h.session.OnClanChangedFaction(r.Context(), req)
	writeJSON(w, http.StatusOK, map[string]bool{"rehomed": rehomed})
}

// ReviewDistribution handles POST /api/v1/distribution/review
func (h *EventHandler) ReviewDistribution(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Settlement capitals.SettlementID `json:"settlement"`
		Faction    capitals.FactionID    `json:"faction"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Settlement == "" {
		writeError(w, http.StatusBadRequest, "settlement is required")
		return
	}
	allow := h.session.ReviewDistribution(r.Context(), req.Settlement, req.Faction)
	writeJSON(w, http.StatusOK, map[string]bool{"allow": allow})
}
