package notify

import (
	"fmt"
	"io"
)

// Console writes events as plain text to w. Used in local/dev runs
// where no SMTP relay is configured.
type Console struct {
	W io.Writer
}

// NewConsole returns a Console notifier writing to w.
func NewConsole(w io.Writer) *Console {
	return &Console{W: w}
}

// Notify implements Notifier.
func (c *Console) Notify(e Event) error {
	_, err := fmt.Fprintf(c.W, "[%s] %s\n%s\n", e.DatasetID, e.Subject, e.Body)
	return err
}
