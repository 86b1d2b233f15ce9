package email

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/shandysiswandi/docmailer/internal/pkg/instrument"
	"github.com/shandysiswandi/docmailer/internal/pkg/mail"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	defaultAttempts = 3
	firstBackoff    = 500 * time.Millisecond
)

// Mail sends completion notices. Temporary SMTP failures are retried with
// exponential backoff; permanent ones return at once.
type Mail struct {
	client   mail.Mail
	ins      instrument.Instrumentation
	attempts uint64
	base     time.Duration
}

func New(client mail.Mail, ins instrument.Instrumentation) *Mail {
	return &Mail{client: client, ins: ins, attempts: defaultAttempts, base: firstBackoff}
}

func (m *Mail) Send(ctx context.Context, msg mail.Message) error {
	ctx, span := m.ins.Tracer("mailing.outbound.email").Start(ctx, "Send")
	defer span.End()

	tries := 0
	backoff := retry.WithMaxRetries(m.attempts-1, retry.NewExponential(m.base))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		tries++
		if err := m.client.Send(ctx, msg); err != nil {
			if mail.Temporary(err) {
				return retry.RetryableError(err)
			}
			return err
		}
		return nil
	})

	span.SetAttributes(
		attribute.Int("mail.recipients", len(msg.Recipients())),
		attribute.Int("mail.attempts", tries),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("send mail after %d attempt(s): %w", tries, err)
	}
	return nil
}
