// Package notify implements the notification interface used to surface
// persistence errors and other construction-time failures to an
// operator, per the error handling design's "emit a notification via
// the email interface" requirement. A Notifier is pluggable; this
// package provides a console implementation for local runs and an
// SMTP implementation that renders the message body from markdown to
// HTML with goldmark, mirroring the project's markdown rendering
// convention.
package notify

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
)

// Event is one notification, produced when an update pass fails (a
// persistence error, for example) or when a pass quarantined files.
type Event struct {
	DatasetID string
	Subject   string
	Body      string // markdown
}

// Notifier delivers Events. Implementations must not block the caller
// for long; internal/engine's Dataset.Update calls Notify synchronously
// after a failed pass and after a pass that quarantined files.
type Notifier interface {
	Notify(e Event) error
}

// Multi fans an Event out to every Notifier in order, collecting (not
// short-circuiting on) individual failures.
type Multi []Notifier

// Notify implements Notifier.
func (m Multi) Notify(e Event) error {
	var firstErr error
	for _, n := range m {
		if err := n.Notify(e); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// renderMarkdown converts body to HTML using goldmark, for notifiers
// that support rich rendering (currently SMTP).
func renderMarkdown(body string) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(body), &buf); err != nil {
		return "", fmt.Errorf("notify: render markdown: %w", err)
	}
	return buf.String(), nil
}
