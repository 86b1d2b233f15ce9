package email

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/emersion/go-smtp"
	"github.com/shandysiswandi/docmailer/internal/pkg/instrument"
	"github.com/shandysiswandi/docmailer/internal/pkg/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedMail struct {
	errs  []error
	calls int
}

func (s *scriptedMail) Send(context.Context, mail.Message) error {
	s.calls++
	if len(s.errs) == 0 {
		return nil
	}
	err := s.errs[0]
	s.errs = s.errs[1:]
	return err
}

func (s *scriptedMail) Close() error { return nil }

func newTestMail(client mail.Mail) *Mail {
	m := New(client, instrument.NewNoop())
	m.base = time.Millisecond
	return m
}

var (
	greylisted = &smtp.SMTPError{Code: 451, Message: "try again later"}
	rejected   = &smtp.SMTPError{Code: 550, Message: "mailbox unavailable"}
	msg        = mail.Message{To: []string{"ops@example.com"}, Subject: "Mailing completed"}
)

func TestMail_Send(t *testing.T) {
	tests := []struct {
		name      string
		errs      []error
		wantCalls int
		wantErr   error
	}{
		{name: "first try", wantCalls: 1},
		{name: "temporary then ok", errs: []error{greylisted}, wantCalls: 2},
		{name: "permanent is not retried", errs: []error{rejected}, wantCalls: 1, wantErr: rejected},
		{name: "gives up after three", errs: []error{greylisted, greylisted, greylisted, greylisted}, wantCalls: 3, wantErr: greylisted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			client := &scriptedMail{errs: tt.errs}

			// Act
			err := newTestMail(client).Send(context.Background(), msg)

			// Assert
			assert.Equal(t, tt.wantCalls, client.calls)
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr))
		})
	}
}

func TestMail_Send_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	client := &scriptedMail{errs: []error{greylisted, greylisted}}

	err := newTestMail(client).Send(ctx, msg)

	require.Error(t, err)
	assert.LessOrEqual(t, client.calls, 1)
}
