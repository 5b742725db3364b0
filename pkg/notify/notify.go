// Package notify turns confirmed relay transitions into push notification
// payloads and hands them to the external delivery collaborator.
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"homesync/pkg/metrics"
)

// Tag groups notifications on the receiving client; the delivery channel
// replaces prior notifications carrying the same tag, which is also what
// deduplicates repeated sends for one transition.
const Tag = "homesync-notification"

// ActionOpen asks the client to open the app when tapped.
const ActionOpen = "open"

// Event describes a confirmed relay transition.
type Event struct {
	Relay   string
	From    string // "ON", "OFF" or "UNKNOWN"
	To      string
	At      time.Time
	Devices []string // display names of devices on the relay
}

// Payload is the wire form handed to the delivery collaborator.
type Payload struct {
	Title   string   `json:"title"`
	Body    string   `json:"body"`
	Tag     string   `json:"tag"`
	Actions []string `json:"actions,omitempty"`
}

// BuildPayload renders an event into a notification payload.
func BuildPayload(ev Event) Payload {
	names := strings.Join(ev.Devices, ", ")
	if names == "" {
		names = ev.Relay
	}
	return Payload{
		Title:   "HomeSync",
		Body:    fmt.Sprintf("%s turned %s", names, ev.To),
		Tag:     Tag,
		Actions: []string{ActionOpen},
	}
}

// Sender delivers a payload. Delivery is at-least-once; deduplication is
// the delivery side's concern (see Tag).
type Sender interface {
	Send(ctx context.Context, p Payload) error
}

// Notifier builds payloads and fires them at the sender. Failures are
// logged and counted, never retried synchronously, and never surfaced to
// the synchronization cycle.
type Notifier struct {
	sender  Sender
	metrics *metrics.Metrics
	timeout time.Duration
}

// New creates a Notifier. metrics may be shared with the syncer.
func New(sender Sender, m *metrics.Metrics, timeout time.Duration) *Notifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Notifier{sender: sender, metrics: m, timeout: timeout}
}

// Notify delivers a transition event, fire and forget.
func (n *Notifier) Notify(ctx context.Context, ev Event) {
	payload := BuildPayload(ev)

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	if err := n.sender.Send(ctx, payload); err != nil {
		if n.metrics != nil {
			n.metrics.NotifyFailures.Inc()
		}
		log.Warn().Err(err).
			Str("relay", ev.Relay).
			Str("to", ev.To).
			Msg("Notification delivery failed")
		return
	}
	log.Debug().Str("relay", ev.Relay).Str("to", ev.To).Msg("Notification delivered")
}

// NopSender discards payloads; used when no delivery endpoint is
// configured.
type NopSender struct{}

func (NopSender) Send(ctx context.Context, p Payload) error { return nil }
