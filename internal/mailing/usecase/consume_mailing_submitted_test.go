package usecase

import (
	"context"
	"fmt"
	"testing"

	"github.com/shandysiswandi/docmailer/internal/mailing/entity"
	"github.com/shandysiswandi/docmailer/internal/pkg/docmail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func submittedMailing() entity.Mailing {
	return entity.Mailing{
		ID:          1001,
		ClientID:    "acme",
		Name:        "March statements",
		Status:      entity.StatusSubmitted,
		MailingGUID: "guid-1",
		OrderRef:    "42",
	}
}

func consumeInput() ConsumeMailingSubmittedInput {
	return ConsumeMailingSubmittedInput{
		MailingID:   1001,
		ClientID:    "acme",
		MailingGUID: "guid-1",
		OrderRef:    "42",
		NotifyEmail: "ops@example.com",
	}
}

func TestConsumeMailingSubmitted_Completed(t *testing.T) {
	// Arrange
	uc, deps := newTestUsecase(t)
	deps.db.put(submittedMailing())
	deps.docmail.waitRes = entity.PollResult{Status: "Mailing submitted", Attempts: 3}
	deps.docmail.proof = []byte("%PDF-proof")

	// Act
	err := uc.ConsumeMailingSubmitted(context.Background(), consumeInput())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, []string{"guid-1|Mailing submitted"}, deps.docmail.waitedOn)

	require.Len(t, deps.db.polls, 1)
	assert.Equal(t, entity.PollOutcome{
		ID:           1001,
		Status:       entity.StatusCompleted,
		RemoteStatus: "Mailing submitted",
		ProofKey:     "proofs/acme/1001.pdf",
	}, deps.db.polls[0])

	obj, ok := deps.storage.objects["proofs/acme/1001.pdf"]
	require.True(t, ok)
	assert.Equal(t, "application/pdf", obj.contentType)
	assert.Equal(t, "1001", obj.meta["mailing_id"])

	require.Len(t, deps.mail.sent, 1)
	assert.Equal(t, []string{"ops@example.com"}, deps.mail.sent[0].To)
	assert.Equal(t, "Mailing 1001: completed", deps.mail.sent[0].Subject)
	assert.Contains(t, deps.mail.sent[0].TextBody, "proof is available")
}

func TestConsumeMailingSubmitted_ProofNotReady(t *testing.T) {
	uc, deps := newTestUsecase(t)
	deps.db.put(submittedMailing())
	deps.docmail.waitRes = entity.PollResult{Status: "Mailing submitted"}

	err := uc.ConsumeMailingSubmitted(context.Background(), consumeInput())

	require.NoError(t, err)
	require.Len(t, deps.db.polls, 1)
	assert.Empty(t, deps.db.polls[0].ProofKey)
	assert.Empty(t, deps.storage.objects)
}

func TestConsumeMailingSubmitted_NotReached(t *testing.T) {
	tests := []struct {
		name   string
		actual string
		want   entity.Status
	}{
		{name: "error in processing", actual: docmail.StatusErrorInProcessing, want: entity.StatusProcessingError},
		{name: "still processing", actual: "Mailing being processed", want: entity.StatusTimedOut},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			uc, deps := newTestUsecase(t)
			deps.db.put(submittedMailing())
			deps.docmail.waitRes = entity.PollResult{Status: tt.actual, Diagnostic: "template could not be read", Attempts: 10}
			deps.docmail.waitErr = &docmail.PollTimeoutError{Expected: "Mailing submitted", Actual: tt.actual}

			// Act
			err := uc.ConsumeMailingSubmitted(context.Background(), consumeInput())

			// Assert
			require.NoError(t, err)
			require.Len(t, deps.db.polls, 1)
			assert.Equal(t, tt.want, deps.db.polls[0].Status)
			assert.Equal(t, tt.actual, deps.db.polls[0].RemoteStatus)
			assert.Equal(t, "template could not be read", deps.db.polls[0].Diagnostic)
			assert.Empty(t, deps.storage.objects)
			require.Len(t, deps.mail.sent, 1)
			assert.Contains(t, deps.mail.sent[0].TextBody, "Diagnostic: template could not be read")
		})
	}
}

func TestConsumeMailingSubmitted_RemoteError(t *testing.T) {
	uc, deps := newTestUsecase(t)
	deps.db.put(submittedMailing())
	deps.docmail.waitErr = &docmail.RemoteServiceError{Code: "12", Name: "MailingNotFound", Message: "no such mailing"}

	err := uc.ConsumeMailingSubmitted(context.Background(), consumeInput())

	require.NoError(t, err)
	require.Len(t, deps.db.polls, 1)
	assert.Equal(t, entity.StatusProcessingError, deps.db.polls[0].Status)
	assert.Equal(t, "12 MailingNotFound - no such mailing", deps.db.polls[0].Diagnostic)
}

func TestConsumeMailingSubmitted_TransportErrorRedelivers(t *testing.T) {
	uc, deps := newTestUsecase(t)
	deps.docmail.waitErr = fmt.Errorf("%w: i/o timeout", docmail.ErrTransport)

	err := uc.ConsumeMailingSubmitted(context.Background(), consumeInput())

	require.ErrorIs(t, err, docmail.ErrTransport)
	assert.Empty(t, deps.db.polls)
	assert.Empty(t, deps.mail.sent)
}

func TestConsumeMailingSubmitted_UpdateFailureRedelivers(t *testing.T) {
	uc, deps := newTestUsecase(t)
	deps.docmail.waitRes = entity.PollResult{Status: "Mailing submitted"}
	deps.db.err = assert.AnError

	err := uc.ConsumeMailingSubmitted(context.Background(), consumeInput())

	require.ErrorIs(t, err, assert.AnError)
	assert.Empty(t, deps.mail.sent)
}

func TestConsumeMailingSubmitted_InvalidMessageDropped(t *testing.T) {
	uc, deps := newTestUsecase(t)
	in := consumeInput()
	in.MailingGUID = ""

	err := uc.ConsumeMailingSubmitted(context.Background(), in)

	require.NoError(t, err)
	assert.Empty(t, deps.docmail.waitedOn)
}

func TestConsumeMailingSubmitted_NoNotifyEmail(t *testing.T) {
	uc, deps := newTestUsecase(t)
	deps.db.put(submittedMailing())
	deps.docmail.waitRes = entity.PollResult{Status: "Mailing submitted"}
	in := consumeInput()
	in.NotifyEmail = ""

	err := uc.ConsumeMailingSubmitted(context.Background(), in)

	require.NoError(t, err)
	assert.Empty(t, deps.mail.sent)
}
