package usecase

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/shandysiswandi/docmailer/internal/pkg/goerror"
)

type DeleteMailingInput struct {
	ID int64 `validate:"required,gt=0"`
}

// DeleteMailing removes the mailing at Docmail when it still exists there and
// marks the stored row deleted. Archived objects are removed best effort.
func (s *Usecase) DeleteMailing(ctx context.Context, in DeleteMailingInput) error {
	ctx, span := s.startSpan(ctx, "DeleteMailing")
	defer span.End()

	clm, err := s.authenticatedAndAuthorized(ctx, objMailing, actDelete)
	if err != nil {
		return err
	}

	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	m, err := s.ownedMailing(ctx, clm, in.ID)
	if err != nil {
		return err
	}

	if m.Status.Remote() && m.MailingGUID != "" {
		if err := s.repoDocmail.DeleteMailing(ctx, m.MailingGUID); err != nil {
			slog.ErrorContext(ctx, "failed to delete mailing at docmail", "mailing_id", m.ID, "error", err)
			return mapDocmailError(err)
		}
	}

	deleted, err := s.repoDB.MarkMailingDeleted(ctx, m.ID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo mark mailing deleted", "mailing_id", m.ID, "error", err)
		return goerror.NewServer(err)
	}
	if !deleted {
		return goerror.NewBusiness("Mailing not found", goerror.CodeNotFound)
	}

	keys := []string{m.ProofKey}
	// Uploaded templates can be shared by several mailings; only this mailing's own copy goes.
	if strings.HasPrefix(m.TemplateKey, "templates/"+m.ClientID+"/"+strconv.FormatInt(m.ID, 10)+"/") {
		keys = append(keys, m.TemplateKey)
	}
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := s.repoStorage.Delete(ctx, key); err != nil {
			slog.WarnContext(ctx, "failed to delete archived object", "mailing_id", m.ID, "key", key, "error", err)
		}
	}

	return nil
}
