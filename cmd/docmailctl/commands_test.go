package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAddresses(t *testing.T) {
	got, err := parseAddresses([]string{
		"Jane Doe; 1 High Street ;London",
		"John Roe;Flat 2;3 Low Road;Leeds;West Yorkshire;LS1 1AA",
	})
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "Jane Doe", got[0].FullName)
	assert.Equal(t, "1 High Street", got[0].Address1)
	assert.Equal(t, "London", got[0].Address2)
	assert.Empty(t, got[0].Address3)

	assert.Equal(t, "Leeds", got[1].Address3)
	assert.Equal(t, "West Yorkshire", got[1].Address4)
	assert.Equal(t, "LS1 1AA", got[1].Address5)
}

func TestParseAddresses_Invalid(t *testing.T) {
	_, err := parseAddresses([]string{"Only Name;One line"})
	assert.Error(t, err)

	_, err = parseAddresses([]string{"a;b;c;d;e;f;g"})
	assert.Error(t, err)
}

func TestReadAddressCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recipients.csv")
	require.NoError(t, os.WriteFile(path, []byte("Jane Doe,1 High Street,London\n\"Roe, John\",2 Low Road,Leeds,LS1 1AA\n"), 0o600))

	got, err := readAddressCSV(path)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Roe, John", got[1].FullName)
	assert.Equal(t, "LS1 1AA", got[1].Address3)
}

func TestReadAddressCSV_BadRow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recipients.csv")
	require.NoError(t, os.WriteFile(path, []byte("Jane Doe,1 High Street\n"), 0o600))

	_, err := readAddressCSV(path)
	assert.ErrorContains(t, err, "csv row 1")
}
