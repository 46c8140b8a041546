package notify

import (
	"fmt"
	"net/smtp"
	"strings"
)

// SMTP sends notifications as HTML email, rendering each Event's
// markdown body with goldmark before sending.
type SMTP struct {
	Addr string // host:port
	Auth smtp.Auth
	From string
	To   []string
}

// NewSMTP returns an SMTP notifier. auth may be nil for relays that
// don't require authentication.
func NewSMTP(addr, from string, to []string, auth smtp.Auth) *SMTP {
	return &SMTP{Addr: addr, Auth: auth, From: from, To: to}
}

// Notify implements Notifier.
func (s *SMTP) Notify(e Event) error {
	html, err := renderMarkdown(e.Body)
	if err != nil {
		return err
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", s.From)
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(s.To, ", "))
	fmt.Fprintf(&msg, "Subject: [%s] %s\r\n", e.DatasetID, e.Subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n")
	msg.WriteString(html)

	if err := smtp.SendMail(s.Addr, s.Auth, s.From, s.To, []byte(msg.String())); err != nil {
		return fmt.Errorf("notify: send mail: %w", err)
	}
	return nil
}
