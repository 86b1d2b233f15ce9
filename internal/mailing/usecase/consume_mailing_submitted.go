package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/shandysiswandi/docmailer/internal/mailing/entity"
	"github.com/shandysiswandi/docmailer/internal/pkg/docmail"
	"github.com/shandysiswandi/docmailer/internal/pkg/mail"
)

type ConsumeMailingSubmittedInput struct {
	MailingID   int64  `validate:"required,gt=0"`
	ClientID    string `validate:"required"`
	MailingGUID string `validate:"required"`
	OrderRef    string
	NotifyEmail string `validate:"omitempty,email"`
}

// ConsumeMailingSubmitted tracks a submitted mailing until Docmail reports the
// expected status, then archives its proof and notifies the submitter.
// Errors returned here make the broker redeliver the message.
func (s *Usecase) ConsumeMailingSubmitted(ctx context.Context, in ConsumeMailingSubmittedInput) error {
	ctx, span := s.startSpan(ctx, "ConsumeMailingSubmitted")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		slog.ErrorContext(ctx, "Validation failed", "error", err)
		return nil
	}

	expected := s.cfg.GetString("modules.mailing.expected_status")
	if expected == "" {
		expected = "Mailing submitted"
	}

	res, err := s.repoDocmail.WaitForStatus(ctx, in.MailingGUID, in.OrderRef, expected)

	outcome := entity.PollOutcome{
		ID:           in.MailingID,
		RemoteStatus: res.Status,
		Diagnostic:   res.Diagnostic,
	}

	var (
		timeout *docmail.PollTimeoutError
		remote  *docmail.RemoteServiceError
	)
	switch {
	case err == nil:
		outcome.Status = entity.StatusCompleted
	case errors.As(err, &timeout):
		outcome.RemoteStatus = timeout.Actual
		outcome.Status = entity.StatusTimedOut
		if timeout.Actual == docmail.StatusErrorInProcessing {
			outcome.Status = entity.StatusProcessingError
		}
	case errors.As(err, &remote):
		outcome.Status = entity.StatusProcessingError
		outcome.Diagnostic = remote.Error()
	default:
		slog.ErrorContext(ctx, "failed to poll docmail status", "mailing_id", in.MailingID, "error", err)
		return err
	}

	if outcome.Status == entity.StatusCompleted {
		outcome.ProofKey = s.archiveProof(ctx, in.ClientID, in.MailingID, in.MailingGUID, in.OrderRef)
	}

	if err := s.repoDB.UpdatePollOutcome(ctx, outcome); err != nil {
		slog.ErrorContext(ctx, "failed to repo update poll outcome", "mailing_id", in.MailingID, "error", err)
		return err
	}

	slog.InfoContext(ctx, "mailing tracking finished",
		"mailing_id", in.MailingID,
		"status", outcome.Status.String(),
		"remote_status", outcome.RemoteStatus,
		"attempts", res.Attempts,
	)

	if in.NotifyEmail != "" {
		s.notifySubmitter(ctx, in, outcome)
	}

	return nil
}

// archiveProof stores the proof PDF and returns its key, or "" when none was stored.
func (s *Usecase) archiveProof(ctx context.Context, clientID string, id int64, guid, orderRef string) string {
	proof, err := s.repoDocmail.ProofFile(ctx, guid, orderRef)
	if err != nil {
		slog.WarnContext(ctx, "failed to fetch proof file", "mailing_id", id, "error", err)
		return ""
	}
	if len(proof) == 0 {
		return ""
	}

	key := proofKey(clientID, id)
	if err := s.repoStorage.Put(ctx, key, "application/pdf", proof, map[string]string{
		"client_id":  clientID,
		"mailing_id": strconv.FormatInt(id, 10),
	}); err != nil {
		slog.ErrorContext(ctx, "failed to archive proof file", "mailing_id", id, "error", err)
		return ""
	}

	return key
}

func (s *Usecase) notifySubmitter(ctx context.Context, in ConsumeMailingSubmittedInput, outcome entity.PollOutcome) {
	var body strings.Builder
	fmt.Fprintf(&body, "Mailing %d (Docmail order %s) finished with status %s.\n", in.MailingID, in.OrderRef, outcome.Status.String())
	if outcome.RemoteStatus != "" {
		fmt.Fprintf(&body, "Docmail status: %s\n", outcome.RemoteStatus)
	}
	if outcome.Diagnostic != "" {
		fmt.Fprintf(&body, "Diagnostic: %s\n", outcome.Diagnostic)
	}
	if outcome.ProofKey != "" {
		body.WriteString("The proof is available from the mailing's proof endpoint.\n")
	}

	err := s.repoMail.Send(ctx, mail.Message{
		To:       []string{in.NotifyEmail},
		Subject:  fmt.Sprintf("Mailing %d: %s", in.MailingID, outcome.Status.String()),
		TextBody: body.String(),
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to send mailing notification email", "mailing_id", in.MailingID, "error", err)
	}
}
