package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"time"

	"github.com/shandysiswandi/docmailer/internal/pkg/goerror"
	"github.com/shandysiswandi/docmailer/internal/pkg/instrument"
	"github.com/shandysiswandi/docmailer/internal/pkg/storage"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Storage archives mailing templates and proofs. A missing object surfaces
// as goerror.ErrNotFound.
type Storage struct {
	client  storage.Storage
	maxRead int64
	ins     instrument.Instrumentation
}

// New caps Get at maxRead bytes; zero means no cap.
func New(client storage.Storage, maxRead int64, ins instrument.Instrumentation) *Storage {
	return &Storage{client: client, maxRead: maxRead, ins: ins}
}

var errTooLarge = errors.New("archived object exceeds read limit")

func (s *Storage) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("mailing.outbound.storage").Start(ctx, name)
}

func (s *Storage) endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (s *Storage) Put(ctx context.Context, key, contentType string, data []byte, meta map[string]string) (err error) {
	ctx, span := s.startSpan(ctx, "Put")
	defer func() { s.endSpan(span, err) }()

	_, err = s.client.Put(ctx, key, bytes.NewReader(data), storage.PutOptions{
		Size:        int64(len(data)),
		ContentType: contentType,
		Metadata:    meta,
	})
	return err
}

func (s *Storage) Get(ctx context.Context, key string) (_ []byte, err error) {
	ctx, span := s.startSpan(ctx, "Get")
	defer func() { s.endSpan(span, err) }()

	rc, info, err := s.client.Get(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, goerror.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	if s.maxRead > 0 {
		if info.Size > s.maxRead {
			return nil, errTooLarge
		}
		rc = struct {
			io.Reader
			io.Closer
		}{io.LimitReader(rc, s.maxRead+1), rc}
	}

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, err
	}
	if s.maxRead > 0 && int64(len(data)) > s.maxRead {
		return nil, errTooLarge
	}
	return data, nil
}

func (s *Storage) Delete(ctx context.Context, key string) (err error) {
	ctx, span := s.startSpan(ctx, "Delete")
	defer func() { s.endSpan(span, err) }()

	return s.client.Delete(ctx, key)
}

func (s *Storage) PresignGet(ctx context.Context, key string, expiry time.Duration) (_ string, err error) {
	ctx, span := s.startSpan(ctx, "PresignGet")
	defer func() { s.endSpan(span, err) }()

	return s.client.PresignGet(ctx, key, expiry)
}
