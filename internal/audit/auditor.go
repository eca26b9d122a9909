// Package audit records authorization decisions (checks and rule
// resolutions) for later inspection.
package audit

import "time"

// Entry is one recorded decision.
type Entry struct {
	// Time is the timestamp of the event.
	Time time.Time `json:"time"`

	// Action describes what happened (e.g. "permit.check", "rules.resolve").
	Action string `json:"action"`

	// Subject identifies who the decision was made for.
	Subject string `json:"subject,omitempty"`

	// Scope the decision was about (empty for whole-resolution entries).
	Scope string `json:"scope,omitempty"`

	// Granted is the decision outcome.
	Granted bool `json:"granted"`

	// Rule names the rule responsible, when a rule was involved.
	Rule string `json:"rule,omitempty"`

	// Metadata contains extra details (resolved scope lists, ...).
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Auditor persists decision entries.
type Auditor interface {
	Log(entry Entry) error
	Close() error
}

var _ Auditor = (*NoopAuditor)(nil)

// NoopAuditor discards everything. Used when auditing is disabled.
type NoopAuditor struct{}

func NewNoopAuditor() *NoopAuditor {
	return &NoopAuditor{}
}

func (*NoopAuditor) Log(Entry) error {
	return nil
}

func (*NoopAuditor) Close() error {
	return nil
}
