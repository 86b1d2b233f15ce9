package db

import (
	"context"

	"github.com/shandysiswandi/docmailer/internal/mailing/entity"
	"github.com/shandysiswandi/docmailer/internal/pkg/goerror"
)

const queryUpdateSubmitOutcome = `
UPDATE mailings
SET status = $2, state = $3, failed_step = $4, mailing_guid = $5, order_ref = $6, error = $7, updated_at = now()
WHERE id = $1 AND deleted_at IS NULL`

const queryUpdatePollOutcome = `
UPDATE mailings
SET status = $2, remote_status = $3, diagnostic = $4,
    proof_key = CASE WHEN $5 = '' THEN proof_key ELSE $5 END, updated_at = now()
WHERE id = $1 AND deleted_at IS NULL`

const queryMarkMailingDeleted = `
UPDATE mailings
SET status = $2, deleted_at = now(), updated_at = now()
WHERE id = $1 AND deleted_at IS NULL`

func (s *DB) UpdateSubmitOutcome(ctx context.Context, in entity.SubmitOutcome) (err error) {
	ctx, span := s.startSpan(ctx, "UpdateSubmitOutcome")
	defer func() { s.endSpan(span, err) }()

	tag, err := s.conn.Exec(ctx, queryUpdateSubmitOutcome,
		in.ID,
		int16(in.Status),
		in.State,
		in.FailedStep,
		in.MailingGUID,
		in.OrderRef,
		in.Error,
	)
	if err != nil {
		return s.mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return goerror.ErrNotFound
	}

	return nil
}

func (s *DB) UpdatePollOutcome(ctx context.Context, in entity.PollOutcome) (err error) {
	ctx, span := s.startSpan(ctx, "UpdatePollOutcome")
	defer func() { s.endSpan(span, err) }()

	tag, err := s.conn.Exec(ctx, queryUpdatePollOutcome,
		in.ID,
		int16(in.Status),
		in.RemoteStatus,
		in.Diagnostic,
		in.ProofKey,
	)
	if err != nil {
		return s.mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return goerror.ErrNotFound
	}

	return nil
}

func (s *DB) MarkMailingDeleted(ctx context.Context, id int64) (_ bool, err error) {
	ctx, span := s.startSpan(ctx, "MarkMailingDeleted")
	defer func() { s.endSpan(span, err) }()

	tag, err := s.conn.Exec(ctx, queryMarkMailingDeleted, id, int16(entity.StatusDeleted))
	if err != nil {
		return false, s.mapError(err)
	}

	return tag.RowsAffected() > 0, nil
}
