package docmail

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMailing_Fields(t *testing.T) {
	m := NewMailing(MailingDefaults{Duplex: false, Colour: true, Delivery: "First"})

	assert.False(t, m.IsDuplex)
	assert.False(t, m.IsMono)
	assert.Equal(t, "First", m.DeliveryType)

	t.Run("set known field", func(t *testing.T) {
		require.NoError(t, m.Set("MailingName", "March invoices"))

		v, ok := m.Get("MailingName")
		assert.True(t, ok)
		assert.Equal(t, "March invoices", v)
	})

	t.Run("unknown field", func(t *testing.T) {
		assert.ErrorIs(t, m.Set("Colour", true), ErrUnknownField)
		assert.ErrorIs(t, m.Reset("Colour"), ErrUnknownField)

		_, ok := m.Get("Colour")
		assert.False(t, ok)
	})

	t.Run("wrong type", func(t *testing.T) {
		assert.ErrorIs(t, m.Set("IsDuplex", "yes"), ErrInvalidValue)
	})

	t.Run("reset restores construction defaults", func(t *testing.T) {
		require.NoError(t, m.Set("DeliveryType", "Courier"))
		require.NoError(t, m.Set("IsDuplex", true))

		require.NoError(t, m.Reset("DeliveryType"))
		require.NoError(t, m.Reset("IsDuplex"))
		require.NoError(t, m.Reset("MailingName"))

		assert.Equal(t, "First", m.DeliveryType)
		assert.False(t, m.IsDuplex)
		assert.Empty(t, m.MailingName)
	})

	t.Run("params cover every field", func(t *testing.T) {
		p := m.Params()
		assert.Len(t, p, len(m.Fields()))
		for _, f := range m.Fields() {
			assert.Contains(t, p, f)
		}
	})
}

func TestMailing_ResetWithoutConstructor(t *testing.T) {
	m := &Mailing{DeliveryType: "Courier"}

	require.NoError(t, m.Reset("DeliveryType"))

	assert.Equal(t, "Standard", m.DeliveryType)
}

func TestAddress(t *testing.T) {
	a := BasicAddress("Ada Lovelace", "12 Square", "London", "SW1", "UK", "ignored")

	assert.Equal(t, "SW1", a.Address3)
	assert.Equal(t, "UK", a.Address4)
	assert.Empty(t, a.Address5)

	require.NoError(t, a.Set("UseForProof", true))
	assert.True(t, a.UseForProof)
	require.NoError(t, a.Reset("UseForProof"))
	assert.False(t, a.UseForProof)

	require.NoError(t, a.Reset("FullName"))
	assert.Empty(t, a.FullName)

	assert.ErrorIs(t, a.Set("Postcode", "SW1"), ErrUnknownField)
	assert.Len(t, a.Params(), len(a.Fields()))
}

func TestTemplateFile(t *testing.T) {
	t.Run("from bytes", func(t *testing.T) {
		tpl := NewTemplateFile("letter.docx", []byte("doc"))

		assert.Equal(t, 1, tpl.Copies)
		assert.True(t, tpl.AddressedDocument)
		assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("doc")), tpl.Params()["FileData"])
	})

	t.Run("from path", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "letter.pdf")
		require.NoError(t, os.WriteFile(path, []byte("pdf"), 0o600))

		tpl, err := LoadTemplateFile(path)

		require.NoError(t, err)
		assert.Equal(t, "letter.pdf", tpl.FileName)
		assert.Equal(t, []byte("pdf"), tpl.FileData)
	})

	t.Run("missing path", func(t *testing.T) {
		_, err := LoadTemplateFile(filepath.Join(t.TempDir(), "none.pdf"))
		assert.Error(t, err)
	})

	t.Run("copies accepts decoded numbers", func(t *testing.T) {
		tpl := NewTemplateFile("a.pdf", nil)

		require.NoError(t, tpl.Set("Copies", float64(3)))
		assert.Equal(t, 3, tpl.Copies)

		assert.ErrorIs(t, tpl.Set("Copies", 2.5), ErrInvalidValue)
		assert.ErrorIs(t, tpl.Set("Copies", "3"), ErrInvalidValue)

		require.NoError(t, tpl.Reset("Copies"))
		assert.Equal(t, 1, tpl.Copies)
	})

	t.Run("file data accepts string", func(t *testing.T) {
		tpl := NewTemplateFile("a.pdf", nil)

		require.NoError(t, tpl.Set("FileData", "raw"))
		assert.Equal(t, []byte("raw"), tpl.FileData)

		require.NoError(t, tpl.Reset("FileData"))
		assert.Nil(t, tpl.FileData)
	})
}
