package service

import (
	"fmt"

	"github.com/freeeve/kingdom-capitals/internal/model"
)

// Notifier delivers in-simulation notifications to connected observers.
// Implemented by the WebSocket hub.
type Notifier interface {
	Notify(n model.Notification)
}

// NoopNotifier is a no-op implementation for testing or when WS is disabled.
type NoopNotifier struct{}

func (NoopNotifier) Notify(model.Notification) {}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(model.Notification)

func (f NotifierFunc) Notify(n model.Notification) { f(n) }

func factionFallenText(capital, faction string) string {
	return fmt.Sprintf("%s has fallen! %s is no more!", capital, faction)
}

func playerConquestText(faction string) string {
	return fmt.Sprintf("You have conquered %s by capturing their capital!", faction)
}

func foundFactionText(capital, faction string) string {
	return fmt.Sprintf("You have captured %s, the capital of %s! Found your own faction to complete the conquest.", capital, faction)
}

func pendingClaimText(capital string) string {
	return fmt.Sprintf("You have captured %s! Found your faction to claim it as your capital.", capital)
}

func capitalRecognisedText(capital, faction string) string {
	return fmt.Sprintf("%s is now the capital of %s.", capital, faction)
}
