// Package notify raises desktop notifications.
package notify

import (
	"log"

	"github.com/gen2brain/beeep"
)

const appName = "Tutor DELE B2"

// Notifier sends desktop notifications. Failures are logged and otherwise
// ignored.
type Notifier struct {
	enabled bool
	send    func(title, message, icon string) error
}

// New creates a Notifier backed by beeep.
func New(enabled bool) *Notifier {
	return &Notifier{enabled: enabled, send: beeepNotify}
}

func beeepNotify(title, message, icon string) error {
	return beeep.Notify(title, message, icon)
}

// Alert implements ports.Notifier.
func (n *Notifier) Alert(title string, message string) {
	if !n.enabled || n.send == nil {
		return
	}
	if title != "" {
		title = appName + ": " + title
	} else {
		title = appName
	}
	if err := n.send(title, truncate(message, 200), ""); err != nil {
		log.Printf("[notify] notification failed: %v", err)
	}
}

func truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}
