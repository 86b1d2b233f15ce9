package usecase

import (
	"context"
	"testing"

	"github.com/shandysiswandi/docmailer/internal/pkg/docmail"
	"github.com/shandysiswandi/docmailer/internal/pkg/goerror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetBalance(t *testing.T) {
	tests := []struct {
		name    string
		ctx     context.Context
		balance float64
		err     error
		want    float64
		code    goerror.Code
		wantErr bool
	}{
		{name: "admin", ctx: asClient("ops", "admin"), balance: 123.45, want: 123.45},
		{name: "client forbidden", ctx: asClient("acme", "client"), code: goerror.CodeForbidden, wantErr: true},
		{name: "unauthenticated", ctx: context.Background(), code: goerror.CodeUnauthorized, wantErr: true},
		{
			name:    "remote error",
			ctx:     asClient("ops", "admin"),
			err:     &docmail.RemoteServiceError{Code: "1", Name: "Auth", Message: "bad login"},
			code:    goerror.CodeUpstream,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			uc, deps := newTestUsecase(t)
			deps.docmail.balance = tt.balance
			deps.docmail.balanceErr = tt.err

			// Act
			got, err := uc.GetBalance(tt.ctx)

			// Assert
			if tt.wantErr {
				assertCode(t, err, tt.code)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 0.001)
		})
	}
}
