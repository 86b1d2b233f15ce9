package inbound

import (
	"context"
	"log/slog"
	"slices"

	"github.com/shandysiswandi/docmailer/internal/pkg/config"
	"github.com/shandysiswandi/docmailer/internal/pkg/goroutine"
	"github.com/shandysiswandi/docmailer/internal/pkg/instrument"
	"github.com/shandysiswandi/docmailer/internal/pkg/messaging"
	"github.com/shandysiswandi/docmailer/internal/pkg/uid"
	"github.com/shandysiswandi/docmailer/internal/shared/event"
)

func RegisterMQConsumer(
	ctx context.Context,
	cfg config.Config,
	routine *goroutine.Manager,
	messenger messaging.Messaging,
	uuid uid.StringID,
	uc ucConsumer,
	ins instrument.Instrumentation,
) {
	handler := &MQHandler{uc: uc, uuid: uuid, ins: ins}

	enabled := cfg.GetArray("modules.mailing.consumer_names")
	concurrency := cfg.GetInt("modules.mailing.consumer_concurrency")
	if concurrency <= 0 {
		concurrency = 10
	}

	consumers := []struct {
		name    string
		topic   string
		handler messaging.Handler
	}{
		{
			name:    event.MailingSubmittedConsumerTracker,
			topic:   event.MailingSubmittedDestination,
			handler: handler.MailingSubmittedTracker,
		},
	}

	for _, consumer := range consumers {
		if !slices.Contains(enabled, consumer.name) {
			continue
		}

		routine.Go(ctx, "consumer "+consumer.name, func(pCtx context.Context) error {
			slog.InfoContext(ctx, "Running job for handling consumer", "consumer", consumer.name)
			// Tracking polls Docmail for minutes, so in-flight messages are capped by concurrency.
			return messenger.Consume(pCtx,
				consumer.topic,
				consumer.handler,
				messaging.WithName(consumer.name),
				messaging.WithConcurrency(concurrency),
				messaging.WithMaxInFlight(concurrency),
			)
		})
	}
}
