package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shandysiswandi/docmailer/internal/mailing/entity"
	"github.com/shandysiswandi/docmailer/internal/pkg/goerror"
	"github.com/shandysiswandi/docmailer/internal/pkg/idempotency"
	"github.com/shandysiswandi/docmailer/internal/pkg/valueobject"
)

type (
	AddressInput struct {
		FullName string `validate:"required,max=100,printable"`
		Address1 string `validate:"required,max=100,printable"`
		Address2 string `validate:"required,max=100,printable"`
		Address3 string `validate:"max=100,printable"`
		Address4 string `validate:"max=100,printable"`
		Address5 string `validate:"max=100,printable"`
		Extra    map[string]any
	}

	TemplateInput struct {
		FileName string `validate:"required,filename,max=255"`
		// Data is the document; TemplateKey names one stored by UploadTemplate instead.
		Data        []byte `validate:"required_without=TemplateKey"`
		TemplateKey string `validate:"required_without=Data,max=512"`
		Extra       map[string]any
	}

	SubmitMailingInput struct {
		IdempotencyKey string `validate:"omitempty,max=128"`
		Name           string `validate:"required,max=100"`
		NotifyEmail    string `validate:"omitempty,email"`
		Options        map[string]any
		Addresses      []AddressInput `validate:"required,min=1,max=500,dive"`
		Template       TemplateInput
	}

	SubmitMailingOutput struct {
		ID          int64
		Status      entity.Status
		MailingGUID string
		OrderRef    string
	}
)

func (s *Usecase) SubmitMailing(ctx context.Context, in SubmitMailingInput) (*SubmitMailingOutput, error) {
	ctx, span := s.startSpan(ctx, "SubmitMailing")
	defer span.End()

	clm, err := s.authenticatedAndAuthorized(ctx, objMailing, actCreate)
	if err != nil {
		return nil, err
	}

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	if in.IdempotencyKey == "" {
		return s.submit(ctx, clm.ClientID, in)
	}

	var out *SubmitMailingOutput
	err = s.idemp.Exec(ctx, "mailing:"+clm.ClientID+":"+in.IdempotencyKey, func(ctx context.Context) error {
		var errSubmit error
		out, errSubmit = s.submit(ctx, clm.ClientID, in)
		return errSubmit
	},
		idempotency.WithLockDuration(s.cfg.GetMinute("modules.mailing.idempotency_lock_minutes")),
		idempotency.WithStateTTL(s.cfg.GetHour("modules.mailing.idempotency_ttl_hours")),
	)
	switch {
	case err != nil && out != nil:
		// Docmail accepted the mailing; the caller must still get its reference.
		slog.ErrorContext(ctx, "failed to record idempotent submission",
			"client_id", clm.ClientID,
			"mailing_id", out.ID,
			"error", err,
		)
		return out, nil
	case errors.Is(err, idempotency.ErrAlreadyInProgress):
		return nil, goerror.NewBusiness("Mailing with this idempotency key is being submitted", goerror.CodeConflict)
	case errors.Is(err, idempotency.ErrAlreadyCompleted):
		return nil, goerror.NewBusiness("Mailing with this idempotency key was already submitted", goerror.CodeConflict)
	case errors.Is(err, idempotency.ErrAlreadyFailed):
		return nil, goerror.NewBusiness("Mailing with this idempotency key already failed, use a new key", goerror.CodeConflict)
	case err != nil:
		if _, ok := goerror.As(err); ok {
			return nil, err
		}
		slog.ErrorContext(ctx, "failed to run idempotent submission", "client_id", clm.ClientID, "error", err)
		return nil, goerror.NewServer(err)
	}

	return out, nil
}

func (s *Usecase) submit(ctx context.Context, clientID string, in SubmitMailingInput) (*SubmitMailingOutput, error) {
	id := s.uid.Generate()

	data, key, err := s.resolveTemplate(ctx, clientID, id, in.Template)
	if err != nil {
		return nil, err
	}

	if err := s.repoDB.CreateMailing(ctx, entity.NewMailing{
		ID:           id,
		ClientID:     clientID,
		Name:         in.Name,
		AddressCount: len(in.Addresses),
		TemplateKey:  key,
		Options:      valueobject.JSONMap(in.Options).Clone(),
	}); err != nil {
		slog.ErrorContext(ctx, "failed to repo create mailing", "client_id", clientID, "error", err)
		return nil, goerror.NewServer(err)
	}

	sub := entity.Submission{
		MailingName: in.Name,
		Options:     in.Options,
		Addresses:   make([]entity.Address, 0, len(in.Addresses)),
		Template:    entity.Template{FileName: in.Template.FileName, Data: data, Extra: in.Template.Extra},
	}
	for _, a := range in.Addresses {
		sub.Addresses = append(sub.Addresses, entity.Address{
			FullName: a.FullName,
			Address1: a.Address1,
			Address2: a.Address2,
			Address3: a.Address3,
			Address4: a.Address4,
			Address5: a.Address5,
			Extra:    a.Extra,
		})
	}

	s.inflight.Inc()
	res, errSend := s.repoDocmail.Send(ctx, sub)
	s.inflight.Dec()

	outcome := entity.SubmitOutcome{
		ID:          id,
		State:       res.State,
		FailedStep:  res.FailedStep,
		MailingGUID: res.MailingGUID,
		OrderRef:    res.OrderRef,
	}
	switch {
	case errSend != nil:
		outcome.Status = entity.StatusFailed
		outcome.Error = errSend.Error()
	case res.Accepted:
		outcome.Status = entity.StatusSubmitted
	default:
		outcome.Status = entity.StatusRejected
	}

	// Docmail already holds the result; the row update must not be lost to a cancelled request.
	if err := s.repoDB.UpdateSubmitOutcome(context.WithoutCancel(ctx), outcome); err != nil {
		slog.ErrorContext(ctx, "failed to repo update submit outcome", "mailing_id", id, "status", outcome.Status.String(), "error", err)
	}

	if errSend != nil {
		slog.ErrorContext(ctx, "failed to send mailing to docmail", "mailing_id", id, "state", res.State, "error", errSend)
		return nil, mapDocmailError(errSend)
	}

	if !res.Accepted {
		slog.WarnContext(ctx, "docmail did not accept mailing", "mailing_id", id, "failed_step", res.FailedStep)
		return nil, goerror.NewUpstream(nil, fmt.Sprintf("Docmail did not accept the mailing at step %s", res.FailedStep))
	}

	if err := s.repoMessaging.PublishMailingSubmitted(ctx, MailingSubmittedEvent{
		MailingID:   id,
		ClientID:    clientID,
		MailingGUID: res.MailingGUID,
		OrderRef:    res.OrderRef,
		NotifyEmail: in.NotifyEmail,
	}); err != nil {
		slog.ErrorContext(ctx, "failed to publish mailing submitted", "mailing_id", id, "error", err)
	}

	return &SubmitMailingOutput{
		ID:          id,
		Status:      outcome.Status,
		MailingGUID: res.MailingGUID,
		OrderRef:    res.OrderRef,
	}, nil
}

// resolveTemplate returns the template bytes and the object key they are archived under.
func (s *Usecase) resolveTemplate(ctx context.Context, clientID string, id int64, in TemplateInput) ([]byte, string, error) {
	if len(in.Data) == 0 {
		if !templateKeyOwnedBy(in.TemplateKey, clientID) {
			return nil, "", goerror.NewInvalidInput(nil, "template_key", "template key is unknown")
		}

		data, err := s.repoStorage.Get(ctx, in.TemplateKey)
		if errors.Is(err, goerror.ErrNotFound) {
			return nil, "", goerror.NewInvalidInput(nil, "template_key", "template key is unknown")
		}
		if err != nil {
			slog.ErrorContext(ctx, "failed to load uploaded template", "template_key", in.TemplateKey, "error", err)
			return nil, "", goerror.NewServer(err)
		}
		return data, in.TemplateKey, nil
	}

	key := templateKey(clientID, strconv.FormatInt(id, 10), in.FileName)
	err := s.repoStorage.Put(ctx, key, contentTypeOf(in.FileName), in.Data, map[string]string{
		"client_id":  clientID,
		"mailing_id": strconv.FormatInt(id, 10),
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to archive template", "mailing_id", id, "error", err)
		return nil, "", goerror.NewServer(err)
	}

	return in.Data, key, nil
}

func templateKey(clientID, ref, fileName string) string {
	return "templates/" + clientID + "/" + ref + "/" + filepath.Base(fileName)
}

func templateKeyOwnedBy(key, clientID string) bool {
	prefix := "templates/" + clientID + "/"
	return strings.HasPrefix(key, prefix) && len(key) > len(prefix)
}

func proofKey(clientID string, id int64) string {
	return "proofs/" + clientID + "/" + strconv.FormatInt(id, 10) + ".pdf"
}

func contentTypeOf(fileName string) string {
	if ct := mime.TypeByExtension(filepath.Ext(fileName)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
