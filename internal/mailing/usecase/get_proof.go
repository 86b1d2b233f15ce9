package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/shandysiswandi/docmailer/internal/mailing/entity"
	"github.com/shandysiswandi/docmailer/internal/pkg/goerror"
)

const defaultProofURLTTL = 15 * time.Minute

type (
	GetProofInput struct {
		ID int64 `validate:"required,gt=0"`
	}

	GetProofOutput struct {
		URL       string
		ExpiresAt time.Time
	}
)

// GetProof returns a short-lived download URL for the mailing's proof PDF,
// fetching and archiving the proof first when it was not stored yet.
func (s *Usecase) GetProof(ctx context.Context, in GetProofInput) (*GetProofOutput, error) {
	ctx, span := s.startSpan(ctx, "GetProof")
	defer span.End()

	clm, err := s.authenticatedAndAuthorized(ctx, objMailing, actRead)
	if err != nil {
		return nil, err
	}

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	m, err := s.ownedMailing(ctx, clm, in.ID)
	if err != nil {
		return nil, err
	}

	key := m.ProofKey
	if key == "" {
		if !m.Status.Remote() {
			return nil, goerror.NewBusiness("Mailing has no proof", goerror.CodeNotFound)
		}

		key = s.archiveProof(ctx, m.ClientID, m.ID, m.MailingGUID, m.OrderRef)
		if key == "" {
			return nil, goerror.NewBusiness("Proof is not ready yet", goerror.CodeNotFound)
		}

		if err := s.repoDB.UpdatePollOutcome(ctx, entity.PollOutcome{
			ID:           m.ID,
			Status:       m.Status,
			RemoteStatus: m.RemoteStatus,
			Diagnostic:   m.Diagnostic,
			ProofKey:     key,
		}); err != nil {
			slog.ErrorContext(ctx, "failed to repo store proof key", "mailing_id", m.ID, "error", err)
		}
	}

	ttl := s.cfg.GetMinute("modules.mailing.proof_url_ttl_minutes")
	if ttl <= 0 {
		ttl = defaultProofURLTTL
	}

	url, err := s.repoStorage.PresignGet(ctx, key, ttl)
	if err != nil {
		slog.ErrorContext(ctx, "failed to presign proof url", "mailing_id", m.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	return &GetProofOutput{URL: url, ExpiresAt: s.clock.Now().Add(ttl)}, nil
}
