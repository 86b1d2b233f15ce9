package docmail

import (
	"context"
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(tr Transport) *Client {
	c := New(testConfig(), tr)
	c.AddBasicAddress("Ada Lovelace", "12 St James's Square", "London")
	c.SetTemplate(NewTemplateFile("letter.pdf", []byte("%PDF-1.4")))
	return c
}

func happyTransport() *fakeTransport {
	return newFakeTransport().
		on(procCreateMailing, createdResult("abc", 42)).
		on(procAddAddress, "Success: True").
		on(procAddTemplateFile, "TemplateGUID: tpl-1").
		on(procProcessMailing, "Success: True").
		on(procDeleteMailing, "Success: True")
}

func TestClient_Send_Success(t *testing.T) {
	// Arrange
	tr := happyTransport()
	c := newTestClient(tr)
	c.AddBasicAddress("Charles Babbage", "1 Dorset Street", "London", "Marylebone")

	// Act
	ok, err := c.Send(context.Background())

	// Assert
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, StateProcessed, c.State())
	assert.Empty(t, c.FailedStep())
	assert.Equal(t, "abc", c.MailingGUID())
	assert.Equal(t, "42", c.OrderRef())
	assert.Equal(t, []string{
		procCreateMailing, procAddAddress, procAddAddress, procAddTemplateFile, procProcessMailing,
	}, tr.procs())

	create := tr.callsTo(procCreateMailing)[0].params
	assert.Equal(t, DefaultApplicationName, create["CustomerApplication"])
	assert.NotContains(t, create, "MailingGUID")
	assert.Equal(t, true, create["IsDuplex"])
	assert.Equal(t, true, create["IsMono"])
	assert.Equal(t, "Standard", create["DeliveryType"])

	addrs := tr.callsTo(procAddAddress)
	assert.Equal(t, "Ada Lovelace", addrs[0].params["FullName"])
	assert.Equal(t, "Charles Babbage", addrs[1].params["FullName"])
	assert.Equal(t, "Marylebone", addrs[1].params["Address3"])
	assert.Equal(t, "abc", addrs[0].params["MailingGUID"])

	tpl := tr.callsTo(procAddTemplateFile)[0].params
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("%PDF-1.4")), tpl["FileData"])

	process := tr.callsTo(procProcessMailing)[0].params
	assert.Equal(t, false, process["Submit"])
	assert.Equal(t, true, process["PartialProcess"])
	assert.Equal(t, "ops@example.com", process["EmailSuccessList"])
	assert.NotContains(t, process, "HttpPostOnSuccess")
}

func TestClient_Send_Validation(t *testing.T) {
	t.Run("no addresses", func(t *testing.T) {
		tr := newFakeTransport()
		c := New(testConfig(), tr)
		c.SetTemplate(NewTemplateFile("letter.pdf", []byte("x")))

		ok, err := c.Send(context.Background())

		assert.False(t, ok)
		assert.ErrorIs(t, err, ErrValidation)
		assert.Empty(t, tr.procs())
	})

	t.Run("no template", func(t *testing.T) {
		tr := newFakeTransport()
		c := New(testConfig(), tr)
		c.AddBasicAddress("Ada", "1 Street", "Town")

		ok, err := c.Send(context.Background())

		assert.False(t, ok)
		assert.ErrorIs(t, err, ErrValidation)
		assert.Empty(t, tr.procs())
	})

	t.Run("no mailing", func(t *testing.T) {
		tr := newFakeTransport()
		c := newTestClient(tr)
		c.SetMailing(nil)

		_, err := c.Send(context.Background())

		assert.ErrorIs(t, err, ErrValidation)
		assert.Empty(t, tr.procs())
	})
}

func TestClient_Send_NonPositiveOrderRef(t *testing.T) {
	tr := happyTransport()
	tr.results[procCreateMailing] = []string{"MailingGUID: \nOrderRef: 0"}
	c := newTestClient(tr)

	ok, err := c.Send(context.Background())

	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, procCreateMailing, c.FailedStep())
	assert.Equal(t, StateFailed, c.State())
	assert.Equal(t, []string{procCreateMailing}, tr.procs())
}

func TestClient_Send_CreatedWithGUIDButNoOrderRef(t *testing.T) {
	tr := happyTransport()
	tr.results[procCreateMailing] = []string{"MailingGUID: abc\nOrderRef: 0"}
	c := newTestClient(tr)

	ok, err := c.Send(context.Background())

	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, []string{procCreateMailing, procDeleteMailing}, tr.procs())
	assert.Equal(t, StateRolledBack, c.State())
}

func TestClient_Send_TemplateRejectedRollsBack(t *testing.T) {
	// Arrange
	tr := happyTransport()
	tr.results[procAddTemplateFile] = []string{"TemplateGUID: "}
	c := newTestClient(tr)

	// Act
	ok, err := c.Send(context.Background())

	// Assert
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, procAddTemplateFile, c.FailedStep())
	assert.Equal(t, StateRolledBack, c.State())

	deletes := tr.callsTo(procDeleteMailing)
	require.Len(t, deletes, 1)
	assert.Equal(t, "abc", deletes[0].params["MailingGUID"])
	assert.NotContains(t, tr.procs(), procProcessMailing)
}

func TestClient_Send_AddressRejected(t *testing.T) {
	tr := happyTransport()
	tr.results[procAddAddress] = []string{"Success: False"}
	c := newTestClient(tr)

	ok, err := c.Send(context.Background())

	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrAddressRejected)
	assert.Equal(t, procAddAddress, c.FailedStep())
	assert.Len(t, tr.callsTo(procDeleteMailing), 1)
	assert.NotContains(t, tr.procs(), procAddTemplateFile)
}

func TestClient_Send_RemoteErrorRollsBack(t *testing.T) {
	tr := happyTransport()
	tr.results[procProcessMailing] = []string{"Error code: 12\nError code string: NoCredit\nError message: insufficient funds"}
	c := newTestClient(tr)

	ok, err := c.Send(context.Background())

	assert.False(t, ok)
	var remote *RemoteServiceError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, "12 NoCredit - insufficient funds", remote.Error())
	assert.Len(t, tr.callsTo(procDeleteMailing), 1)
	assert.Equal(t, StateRolledBack, c.State())
}

func TestClient_Send_RollbackFailure(t *testing.T) {
	// Arrange
	tr := happyTransport()
	tr.results[procAddAddress] = []string{"Success: 0"}
	deleteErr := errors.New("connection reset")
	tr.fail(procDeleteMailing, deleteErr)
	c := newTestClient(tr)

	// Act
	ok, err := c.Send(context.Background())

	// Assert
	assert.False(t, ok)
	var rb *RollbackError
	require.ErrorAs(t, err, &rb)
	assert.Equal(t, "abc", rb.MailingGUID)
	assert.ErrorIs(t, err, ErrAddressRejected)
	assert.ErrorIs(t, err, ErrTransport)
	assert.ErrorIs(t, err, deleteErr)
	assert.Equal(t, StateFailed, c.State())
}

func TestClient_Send_TransportFailureBeforeGUID(t *testing.T) {
	tr := happyTransport().fail(procCreateMailing, errors.New("dial tcp: timeout"))
	c := newTestClient(tr)

	ok, err := c.Send(context.Background())

	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrTransport)
	assert.Equal(t, []string{procCreateMailing}, tr.procs())
}

func TestClient_Send_KeepsCustomerApplication(t *testing.T) {
	tr := happyTransport()
	c := newTestClient(tr)
	require.NoError(t, c.Mailing().Set("CustomerApplication", "billing-run"))

	_, err := c.Send(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "billing-run", tr.callsTo(procCreateMailing)[0].params["CustomerApplication"])
	assert.Equal(t, "billing-run", tr.callsTo(procProcessMailing)[0].params["CustomerApplication"])
}

func TestClient_Balance(t *testing.T) {
	tr := newFakeTransport().on(procGetBalance, "Current balance: 123.45")
	cfg := testConfig()
	cfg.PaymentMethod = "Topup"
	c := New(cfg, tr)

	got, err := c.Balance(context.Background())

	require.NoError(t, err)
	assert.InDelta(t, 123.45, got, 0.0001)
	assert.Equal(t, "Topup", tr.callsTo(procGetBalance)[0].params["AccountType"])
}

func TestClient_Balance_MissingFieldIsZero(t *testing.T) {
	tr := newFakeTransport().on(procGetBalance, "Account type: Topup")
	c := New(testConfig(), tr)

	got, err := c.Balance(context.Background())

	require.NoError(t, err)
	assert.Zero(t, got)
}

func TestClient_Balance_NotANumber(t *testing.T) {
	tr := newFakeTransport().on(procGetBalance, "Current balance: n/a")
	c := New(testConfig(), tr)

	_, err := c.Balance(context.Background())

	assert.ErrorIs(t, err, ErrProtocol)
}

func TestClient_ProofFile(t *testing.T) {
	t.Run("requires session", func(t *testing.T) {
		c := New(testConfig(), newFakeTransport())

		_, err := c.ProofFile(context.Background())

		assert.ErrorIs(t, err, ErrPrecondition)
	})

	t.Run("decodes pdf", func(t *testing.T) {
		tr := newFakeTransport().on(procGetProofFile, base64.StdEncoding.EncodeToString([]byte("%PDF-proof")))
		c := New(testConfig(), tr)
		c.Attach("abc", "42")

		got, err := c.ProofFile(context.Background())

		require.NoError(t, err)
		assert.Equal(t, []byte("%PDF-proof"), got)
		assert.Equal(t, "abc", tr.callsTo(procGetProofFile)[0].params["MailingGUID"])
	})

	t.Run("not ready", func(t *testing.T) {
		tr := newFakeTransport().on(procGetProofFile, base64.StdEncoding.EncodeToString([]byte("Error: proof not ready")))
		c := New(testConfig(), tr)
		c.Attach("abc", "42")

		got, err := c.ProofFile(context.Background())

		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestClient_DeleteMailing(t *testing.T) {
	tr := newFakeTransport().on(procDeleteMailing, "Success: True")
	c := New(testConfig(), tr)

	require.NoError(t, c.DeleteMailing(context.Background(), "foreign"))
	assert.Equal(t, "foreign", tr.callsTo(procDeleteMailing)[0].params["MailingGUID"])

	assert.ErrorIs(t, c.DeleteMailing(context.Background(), ""), ErrValidation)
}

func TestClient_SendFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "invoice.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-invoice"), 0o600))

	t.Run("accepted", func(t *testing.T) {
		tr := happyTransport()
		base := New(testConfig(), tr)

		sent, err := base.SendFile(context.Background(), path, func(c *Client) error {
			c.AddBasicAddress("Ada", "1 Street", "Town")
			return nil
		})

		require.NoError(t, err)
		require.NotNil(t, sent)
		assert.NotSame(t, base, sent)
		assert.Equal(t, "abc", sent.MailingGUID())
		assert.Equal(t, "invoice.pdf", sent.Template().FileName)
	})

	t.Run("not accepted", func(t *testing.T) {
		tr := happyTransport()
		tr.results[procProcessMailing] = []string{"Success: False"}
		base := New(testConfig(), tr)

		sent, err := base.SendData(context.Background(), "x.pdf", []byte("x"), func(c *Client) error {
			c.AddBasicAddress("Ada", "1 Street", "Town")
			return nil
		})

		assert.Nil(t, sent)
		assert.ErrorIs(t, err, ErrNotAccepted)
	})

	t.Run("configure error", func(t *testing.T) {
		tr := happyTransport()
		boom := errors.New("boom")

		sent, err := New(testConfig(), tr).SendFile(context.Background(), path, func(*Client) error { return boom })

		assert.Nil(t, sent)
		assert.ErrorIs(t, err, boom)
		assert.Empty(t, tr.procs())
	})
}

func TestClient_ProgressHook(t *testing.T) {
	var seen []string
	tr := happyTransport()
	c := New(testConfig(), tr, WithProgress(func(_ context.Context, proc string) { seen = append(seen, proc) }))
	c.AddBasicAddress("Ada", "1 Street", "Town")
	c.SetTemplate(NewTemplateFile("a.pdf", []byte("x")))

	_, err := c.Send(context.Background())

	require.NoError(t, err)
	assert.Equal(t, tr.procs(), seen)
}
