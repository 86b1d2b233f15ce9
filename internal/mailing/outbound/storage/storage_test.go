package storage

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/shandysiswandi/docmailer/internal/pkg/goerror"
	"github.com/shandysiswandi/docmailer/internal/pkg/instrument"
	"github.com/shandysiswandi/docmailer/internal/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStorage struct {
	objects map[string]string
	// size overrides the reported object size when set.
	size int64
}

func (m *memStorage) Put(_ context.Context, key string, r io.Reader, opts storage.PutOptions) (storage.ObjectInfo, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return storage.ObjectInfo{}, err
	}
	m.objects[key] = string(b)
	return storage.ObjectInfo{Key: key, Size: int64(len(b)), ContentType: opts.ContentType}, nil
}

func (m *memStorage) Get(_ context.Context, key string) (io.ReadCloser, storage.ObjectInfo, error) {
	v, ok := m.objects[key]
	if !ok {
		return nil, storage.ObjectInfo{}, storage.ErrNotFound
	}
	size := int64(len(v))
	if m.size != 0 {
		size = m.size
	}
	return io.NopCloser(strings.NewReader(v)), storage.ObjectInfo{Key: key, Size: size}, nil
}

func (m *memStorage) Stat(ctx context.Context, key string) (storage.ObjectInfo, error) {
	_, info, err := m.Get(ctx, key)
	return info, err
}

func (m *memStorage) Delete(_ context.Context, key string) error {
	delete(m.objects, key)
	return nil
}

func (m *memStorage) PresignGet(_ context.Context, key string, expiry time.Duration) (string, error) {
	return "https://objects.test/" + key + "?ttl=" + expiry.String(), nil
}

func (m *memStorage) Close() error { return nil }

func TestStorage_roundTrip(t *testing.T) {
	ctx := context.Background()
	mem := &memStorage{objects: map[string]string{}}
	s := New(mem, 16, instrument.NewNoop())

	require.NoError(t, s.Put(ctx, "proofs/acme/42.pdf", "application/pdf", []byte("%PDF"), nil))

	data, err := s.Get(ctx, "proofs/acme/42.pdf")
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(data))

	url, err := s.PresignGet(ctx, "proofs/acme/42.pdf", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "https://objects.test/proofs/acme/42.pdf?ttl=1m0s", url)

	require.NoError(t, s.Delete(ctx, "proofs/acme/42.pdf"))
	_, err = s.Get(ctx, "proofs/acme/42.pdf")
	assert.ErrorIs(t, err, goerror.ErrNotFound)
}

func TestStorage_GetReadLimit(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		body    string
		size    int64
		wantErr error
	}{
		{name: "within limit", body: "12345678"},
		{name: "declared size too large", body: "1234", size: 99, wantErr: errTooLarge},
		{name: "stream longer than declared", body: "123456789", size: 4, wantErr: errTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := &memStorage{objects: map[string]string{"k": tt.body}, size: tt.size}
			s := New(mem, 8, instrument.NewNoop())

			data, err := s.Get(ctx, "k")

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.body, string(data))
		})
	}
}
