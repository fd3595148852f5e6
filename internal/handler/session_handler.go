package handler

import (
	"net/http"

	"github.com/freeeve/kingdom-capitals/internal/logger"
	"github.com/freeeve/kingdom-capitals/internal/service"
)

// maxTicksPerRequest bounds POST /ticks.
const maxTicksPerRequest = 365

// SessionHandler handles session lifecycle endpoints.
type SessionHandler struct {
	session *service.Session
	wsHub   *Hub
}

// NewSessionHandler creates a SessionHandler.
func NewSessionHandler(session *service.Session, wsHub *Hub) *SessionHandler {
	return &SessionHandler{session: session, wsHub: wsHub}
}

// GetSession handles GET /api/v1/session
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"id":       h.session.ID(),
		"day":      h.session.Day(),
		"started":  h.session.Started(),
		"settings": h.session.Settings(),
	})
}

// Start handles POST /api/v1/session/start
func (h *SessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	n, err := h.session.Start(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	resp := map[string]any{"id": h.session.ID(), "capitals": n}
	h.wsHub.Broadcast(WSEvent{Type: EventSessionStarted, Day: h.session.Day(), Data: resp})
	writeJSON(w, http.StatusOK, resp)
}

// End handles POST /api/v1/session/end
func (h *SessionHandler) End(w http.ResponseWriter, r *http.Request) {
	h.session.End(r.Context())
	h.wsHub.Broadcast(WSEvent{Type: EventSessionEnded, Day: h.session.Day(), Data: map[string]string{"id": h.session.ID()}})
	writeJSON(w, http.StatusOK, map[string]string{"status": "ended"})
}

// Tick handles POST /api/v1/ticks. The optional body {"days": n} advances
// several days in one call.
func (h *SessionHandler) Tick(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Days int `json:"days"`
	}
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	if req.Days == 0 {
		req.Days = 1
	}
	if req.Days < 0 || req.Days > maxTicksPerRequest {
		writeError(w, http.StatusBadRequest, "days must be between 1 and 365")
		return
	}

	reports := make([]service.TickReport, 0, req.Days)
	for range req.Days {
		rep := h.session.Tick(r.Context())
		reports = append(reports, rep)
		h.wsHub.Broadcast(WSEvent{Type: EventDayProcessed, Day: rep.Day, Data: rep})
	}
	l := logger.ForRequest(r.Context())
	l.Debug().Int("days", req.Days).Uint64("day", h.session.Day()).Msg("Ticks processed")
	writeJSON(w, http.StatusOK, reports)
}
