package mail

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/tls"
	"encoding/hex"
	"errors"
	"fmt"
	"mime"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
)

var (
	ErrSMTPHostPortRequired = errors.New("smtp host and port are required")
	ErrSMTPNoRecipients     = errors.New("no recipients provided")
	ErrSMTPNoSender         = errors.New("no sender provided")
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	// From is used when Message.From is empty.
	From     string
	StartTLS bool
	// InsecureSkipVerify only applies with StartTLS; meant for local relays.
	InsecureSkipVerify bool
}

// SMTP delivers messages through a relay using github.com/emersion/go-smtp.
// A connection is opened per message.
type SMTP struct {
	cfg  SMTPConfig
	addr string
	now  func() time.Time
	dial func(addr string, cfg SMTPConfig) (*smtp.Client, error)
}

func NewSMTP(cfg SMTPConfig) (*SMTP, error) {
	if cfg.Host == "" || cfg.Port <= 0 {
		return nil, ErrSMTPHostPortRequired
	}

	return &SMTP{
		cfg:  cfg,
		addr: net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		now:  time.Now,
		dial: dialSMTP,
	}, nil
}

func dialSMTP(addr string, cfg SMTPConfig) (*smtp.Client, error) {
	if cfg.StartTLS {
		return smtp.DialStartTLS(addr, &tls.Config{
			ServerName:         cfg.Host,
			InsecureSkipVerify: cfg.InsecureSkipVerify, //nolint:gosec // opt-in for local relays
			MinVersion:         tls.VersionTLS12,
		})
	}
	return smtp.Dial(addr)
}

func (s *SMTP) Send(ctx context.Context, msg Message) error {
	raw, from, err := s.compose(msg)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	c, err := s.dial(s.addr, s.cfg)
	if err != nil {
		return fmt.Errorf("smtp dial %s: %w", s.addr, err)
	}
	defer c.Close()

	if s.cfg.Username != "" {
		if err := c.Auth(sasl.NewPlainClient("", s.cfg.Username, s.cfg.Password)); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}

	if err := c.SendMail(from, msg.Recipients(), bytes.NewReader(raw)); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	return c.Quit()
}

func (s *SMTP) Close() error {
	return nil
}

// compose renders msg as an RFC 5322 message and resolves the envelope sender.
func (s *SMTP) compose(msg Message) ([]byte, string, error) {
	if len(msg.Recipients()) == 0 {
		return nil, "", ErrSMTPNoRecipients
	}

	from := msg.From
	if from == "" {
		from = s.cfg.From
	}
	if from == "" {
		return nil, "", ErrSMTPNoSender
	}

	body, contentType := buildBody(msg)

	var buf bytes.Buffer
	header := func(k, v string) { fmt.Fprintf(&buf, "%s: %s\r\n", k, v) }
	header("From", from)
	if len(msg.To) > 0 {
		header("To", strings.Join(msg.To, ", "))
	}
	if len(msg.Cc) > 0 {
		header("Cc", strings.Join(msg.Cc, ", "))
	}
	header("Subject", mime.QEncoding.Encode("utf-8", msg.Subject))
	header("Date", s.now().Format(time.RFC1123Z))
	header("Message-ID", fmt.Sprintf("<%s@%s>", randomToken(), s.cfg.Host))
	header("MIME-Version", "1.0")
	header("Content-Type", contentType)
	buf.WriteString("\r\n")
	buf.WriteString(body)

	return buf.Bytes(), from, nil
}

func buildBody(msg Message) (body, contentType string) {
	switch {
	case msg.HTMLBody != "" && msg.TextBody != "":
		boundary := "docmailer-" + randomToken()
		var sb strings.Builder
		for _, part := range [][2]string{{"text/plain", msg.TextBody}, {"text/html", msg.HTMLBody}} {
			fmt.Fprintf(&sb, "--%s\r\nContent-Type: %s; charset=UTF-8\r\n\r\n%s\r\n", boundary, part[0], part[1])
		}
		fmt.Fprintf(&sb, "--%s--\r\n", boundary)
		return sb.String(), "multipart/alternative; boundary=" + boundary
	case msg.HTMLBody != "":
		return msg.HTMLBody, "text/html; charset=UTF-8"
	default:
		return msg.TextBody, "text/plain; charset=UTF-8"
	}
}

func randomToken() string {
	var b [12]byte
	if _, err := rand.Read(b[:]); err != nil {
		return strconv.FormatInt(time.Now().UnixNano(), 36)
	}
	return hex.EncodeToString(b[:])
}
