package mq

import (
	"context"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/sethvargo/go-retry"
	"github.com/shandysiswandi/docmailer/internal/mailing/usecase"
	"github.com/shandysiswandi/docmailer/internal/pkg/instrument"
	"github.com/shandysiswandi/docmailer/internal/pkg/messaging"
	"github.com/shandysiswandi/docmailer/internal/shared/event"
	"go.opentelemetry.io/otel/codes"
)

const keyOfCorrelationID string = "cID"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type Messaging struct {
	client messaging.Messaging
	ins    instrument.Instrumentation
}

func NewMessaging(client messaging.Messaging, ins instrument.Instrumentation) *Messaging {
	return &Messaging{client: client, ins: ins}
}

func (m *Messaging) PublishMailingSubmitted(ctx context.Context, msg usecase.MailingSubmittedEvent) error {
	ctx, span := m.ins.Tracer("mailing.outbound.mq").Start(ctx, "PublishMailingSubmitted")
	defer span.End()

	body, err := json.Marshal(event.MailingSubmittedMessage{
		MailingID:   msg.MailingID,
		ClientID:    msg.ClientID,
		MailingGUID: msg.MailingGUID,
		OrderRef:    msg.OrderRef,
		NotifyEmail: msg.NotifyEmail,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	out := messaging.OutgoingMessage{
		Body:    body,
		Key:     []byte(msg.MailingGUID),
		Headers: messaging.Headers{keyOfCorrelationID: instrument.GetCorrelationID(ctx)},
	}

	// The mailing is already at Docmail, so a lost event leaves it untracked.
	b := retry.WithMaxRetries(3, retry.NewFibonacci(100*time.Millisecond))
	if err := retry.Do(ctx, b, func(ctx context.Context) error {
		if _, err := m.client.Publish(ctx, event.MailingSubmittedDestination, out); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}
