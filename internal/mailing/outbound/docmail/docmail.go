package docmail

import (
	"context"
	"errors"
	"fmt"

	"github.com/shandysiswandi/docmailer/internal/mailing/entity"
	"github.com/shandysiswandi/docmailer/internal/pkg/docmail"
	"github.com/shandysiswandi/docmailer/internal/pkg/instrument"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Docmail adapts the docmail client to the mailing use cases. Each call
// builds its own client so submissions never share session state.
type Docmail struct {
	cfg       docmail.Config
	transport docmail.Transport
	ins       instrument.Instrumentation
}

func New(cfg docmail.Config, transport docmail.Transport, ins instrument.Instrumentation) *Docmail {
	return &Docmail{cfg: cfg, transport: transport, ins: ins}
}

func (d *Docmail) client() *docmail.Client {
	return docmail.New(d.cfg, d.transport,
		docmail.WithTracer(d.ins.Tracer("docmail")),
		docmail.WithMeter(d.ins.Meter("docmail")),
	)
}

func (d *Docmail) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return d.ins.Tracer("mailing.outbound.docmail").Start(ctx, name)
}

func (d *Docmail) endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (d *Docmail) Send(ctx context.Context, in entity.Submission) (_ entity.SendResult, err error) {
	ctx, span := d.startSpan(ctx, "Send")
	defer func() { d.endSpan(span, err) }()

	c := d.client()

	m := c.Mailing()
	if in.MailingName != "" {
		m.MailingName = in.MailingName
	}
	for field, value := range in.Options {
		if err := m.Set(field, value); err != nil {
			return entity.SendResult{}, fmt.Errorf("%w: mailing: %w", docmail.ErrValidation, err)
		}
	}

	for i, a := range in.Addresses {
		addr := docmail.BasicAddress(a.FullName, a.Address1, a.Address2, a.Address3, a.Address4)
		addr.Address5 = a.Address5
		for field, value := range a.Extra {
			if err := addr.Set(field, value); err != nil {
				return entity.SendResult{}, fmt.Errorf("%w: address %d: %w", docmail.ErrValidation, i, err)
			}
		}
		c.AddAddress(addr)
	}

	tpl := docmail.NewTemplateFile(in.Template.FileName, in.Template.Data)
	for field, value := range in.Template.Extra {
		if err := tpl.Set(field, value); err != nil {
			return entity.SendResult{}, fmt.Errorf("%w: template: %w", docmail.ErrValidation, err)
		}
	}
	c.SetTemplate(tpl)

	ok, err := c.Send(ctx)

	return entity.SendResult{
		Accepted:    ok,
		State:       c.State().String(),
		FailedStep:  c.FailedStep(),
		MailingGUID: c.MailingGUID(),
		OrderRef:    c.OrderRef(),
	}, err
}

func (d *Docmail) WaitForStatus(ctx context.Context, guid, orderRef, expected string) (_ entity.PollResult, err error) {
	ctx, span := d.startSpan(ctx, "WaitForStatus")
	defer func() {
		var timeout *docmail.PollTimeoutError
		if errors.As(err, &timeout) {
			span.End()
			return
		}
		d.endSpan(span, err)
	}()

	c := d.client()
	c.Attach(guid, orderRef)

	res, err := c.WaitForStatus(ctx, expected, true)
	return entity.PollResult{
		Status:     res.Status,
		Diagnostic: res.Diagnostic,
		Attempts:   res.Attempts,
	}, err
}

func (d *Docmail) ProofFile(ctx context.Context, guid, orderRef string) (_ []byte, err error) {
	ctx, span := d.startSpan(ctx, "ProofFile")
	defer func() { d.endSpan(span, err) }()

	c := d.client()
	c.Attach(guid, orderRef)

	return c.ProofFile(ctx)
}

func (d *Docmail) DeleteMailing(ctx context.Context, guid string) (err error) {
	ctx, span := d.startSpan(ctx, "DeleteMailing")
	defer func() { d.endSpan(span, err) }()

	return d.client().DeleteMailing(ctx, guid)
}

func (d *Docmail) Balance(ctx context.Context) (_ float64, err error) {
	ctx, span := d.startSpan(ctx, "Balance")
	defer func() { d.endSpan(span, err) }()

	return d.client().Balance(ctx)
}
