package inbound

import (
	"context"
	"log/slog"

	jsoniter "github.com/json-iterator/go"
	"github.com/shandysiswandi/docmailer/internal/mailing/usecase"
	"github.com/shandysiswandi/docmailer/internal/pkg/instrument"
	"github.com/shandysiswandi/docmailer/internal/pkg/messaging"
	"github.com/shandysiswandi/docmailer/internal/pkg/uid"
	"github.com/shandysiswandi/docmailer/internal/shared/event"
)

const keyOfCorrelationID string = "cID"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type MQHandler struct {
	uc   ucConsumer
	uuid uid.StringID
	ins  instrument.Instrumentation
}

func (h *MQHandler) ensureCorrelationID(ctx context.Context, headers messaging.Headers) context.Context {
	if cid := headers.Get(keyOfCorrelationID); cid != "" {
		return instrument.SetCorrelationID(ctx, cid)
	}
	return instrument.SetCorrelationID(ctx, h.uuid.Generate())
}

func (h *MQHandler) MailingSubmittedTracker(ctx context.Context, msg messaging.Message) error {
	ctx = h.ensureCorrelationID(ctx, msg.Headers())

	ctx, span := h.ins.Tracer("mailing.inbound.mq").Start(ctx, "MailingSubmittedTracker")
	defer span.End()

	body := msg.Body()

	var payload event.MailingSubmittedMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		// decode errors quote the body, which holds the notify email
		slog.ErrorContext(ctx, "failed to parse message body of mailing submitted",
			"msg_id", msg.ID(),
			"msg_size", len(body),
		)
		return nil
	}

	slog.InfoContext(ctx, "consume: mailing submitted",
		"msg_id", msg.ID(),
		"attempt", msg.Attempt(),
		"mailing_id", payload.MailingID,
		"client_id", payload.ClientID,
	)

	if err := h.uc.ConsumeMailingSubmitted(ctx, usecase.ConsumeMailingSubmittedInput{
		MailingID:   payload.MailingID,
		ClientID:    payload.ClientID,
		MailingGUID: payload.MailingGUID,
		OrderRef:    payload.OrderRef,
		NotifyEmail: payload.NotifyEmail,
	}); err != nil {
		slog.ErrorContext(ctx, "failed to consume mailing submitted", "mailing_id", payload.MailingID, "error", err)
		return err
	}

	return nil
}
