package usecase

import (
	"testing"
	"time"

	"github.com/shandysiswandi/docmailer/internal/mailing/entity"
	"github.com/shandysiswandi/docmailer/internal/pkg/goerror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetProof_Archived(t *testing.T) {
	// Arrange
	uc, deps := newTestUsecase(t)
	m := submittedMailing()
	m.Status = entity.StatusCompleted
	m.ProofKey = "proofs/acme/1001.pdf"
	deps.db.put(m)

	// Act
	out, err := uc.GetProof(asClient("acme", "client"), GetProofInput{ID: 1001})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "https://objects.test/proofs/acme/1001.pdf?expires=10m0s", out.URL)
	assert.Equal(t, deps.clock.now.Add(10*time.Minute), out.ExpiresAt)
}

func TestGetProof_FetchesOnDemand(t *testing.T) {
	uc, deps := newTestUsecase(t)
	deps.db.put(submittedMailing())
	deps.docmail.proof = []byte("%PDF-proof")

	out, err := uc.GetProof(asClient("acme", "client"), GetProofInput{ID: 1001})

	require.NoError(t, err)
	assert.Contains(t, out.URL, "proofs/acme/1001.pdf")
	assert.Contains(t, deps.storage.objects, "proofs/acme/1001.pdf")
	require.Len(t, deps.db.polls, 1)
	assert.Equal(t, entity.StatusSubmitted, deps.db.polls[0].Status)
	assert.Equal(t, "proofs/acme/1001.pdf", deps.db.polls[0].ProofKey)
}

func TestGetProof_NotAvailable(t *testing.T) {
	tests := []struct {
		name   string
		status entity.Status
	}{
		{name: "not ready at docmail", status: entity.StatusSubmitted},
		{name: "never reached docmail", status: entity.StatusFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc, deps := newTestUsecase(t)
			m := submittedMailing()
			m.Status = tt.status
			deps.db.put(m)

			_, err := uc.GetProof(asClient("acme", "client"), GetProofInput{ID: 1001})

			assertCode(t, err, goerror.CodeNotFound)
			assert.Empty(t, deps.storage.objects)
		})
	}
}
