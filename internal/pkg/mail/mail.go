package mail

import (
	"context"
	"errors"
	"io"
	"net"

	"github.com/emersion/go-smtp"
)

// Message is a single outgoing email. From falls back to the sender's default.
type Message struct {
	From     string
	To       []string
	Cc       []string
	Bcc      []string
	Subject  string
	TextBody string
	HTMLBody string
}

// Recipients returns every envelope recipient, Bcc included.
func (m Message) Recipients() []string {
	out := make([]string, 0, len(m.To)+len(m.Cc)+len(m.Bcc))
	out = append(out, m.To...)
	out = append(out, m.Cc...)
	return append(out, m.Bcc...)
}

type Mail interface {
	io.Closer
	Send(ctx context.Context, msg Message) error
}

// Temporary reports whether retrying err may succeed: 4xx SMTP replies and
// network timeouts or refused dials.
func Temporary(err error) bool {
	var se *smtp.SMTPError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	return false
}
