package handler

import (
	"github.com/freeeve/kingdom-capitals/internal/model"
	"github.com/freeeve/kingdom-capitals/internal/service"
)

var _ service.Notifier = (*Hub)(nil)

// Notify implements service.Notifier. Messages addressed to a hero go to that
// hero's subscribers; everything else goes to every connection.
func (h *Hub) Notify(n model.Notification) {
	event := WSEvent{Type: n.Kind, Day: n.Day, Data: n}
	if n.Hero != "" {
		h.BroadcastToHero(string(n.Hero), event)
		return
	}
	h.Broadcast(event)
}
