// Package notify delivers supervisor alerts for sensitive ledger actions.
// Alerts are sent after the unit of work that produced them commits.
package notify

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Alert is one committed audit entry worth a supervisor's attention.
type Alert struct {
	Action      string
	EntityType  string
	EntityID    string
	ActorUserID *uint
	DeviceID    string
	At          time.Time
	Metadata    map[string]any
}

type Notifier interface {
	Notify(ctx context.Context, alert Alert) error
}

// Nop drops every alert.
type Nop struct{}

func (Nop) Notify(context.Context, Alert) error { return nil }

// Recorder keeps alerts in memory.
type Recorder struct {
	Alerts []Alert
}

func (r *Recorder) Notify(_ context.Context, alert Alert) error {
	r.Alerts = append(r.Alerts, alert)
	return nil
}

// FormatAlert renders an alert as plain text.
func FormatAlert(a Alert) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s %s", a.At.UTC().Format(time.RFC3339), a.Action, a.EntityType)
	if a.EntityID != "" {
		fmt.Fprintf(&b, " #%s", a.EntityID)
	}
	b.WriteString("\nby ")
	if a.ActorUserID != nil {
		fmt.Fprintf(&b, "user %d", *a.ActorUserID)
	} else {
		b.WriteString("system")
	}
	fmt.Fprintf(&b, " on %s", a.DeviceID)

	keys := make([]string, 0, len(a.Metadata))
	for k := range a.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "\n%s: %v", k, a.Metadata[k])
	}
	return b.String()
}
