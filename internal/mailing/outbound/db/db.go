package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shandysiswandi/docmailer/internal/pkg/goerror"
	"github.com/shandysiswandi/docmailer/internal/pkg/instrument"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// SQLSTATE codes with a domain meaning.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// conn is what the repository needs from *pgxpool.Pool.
type conn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DB persists mailings in PostgreSQL. Missing rows surface as
// goerror.ErrNotFound and duplicate keys as goerror.ErrConflict.
type DB struct {
	conn   conn
	tracer trace.Tracer
}

func NewDB(conn conn, ins instrument.Instrumentation) *DB {
	return &DB{conn: conn, tracer: ins.Tracer("mailing.outbound.db")}
}

func (s *DB) mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		return goerror.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return goerror.ErrConflict
		case pgForeignKeyViolation:
			return goerror.ErrNotFound
		}
	}
	return err
}

func (s *DB) startSpan(ctx context.Context, op string) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "db."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			semconv.DBSystemPostgreSQL,
			attribute.String("db.operation.name", op),
		),
	)
}

// endSpan marks the span failed unless err is an expected domain outcome.
func (s *DB) endSpan(span trace.Span, err error) {
	if err != nil && !errors.Is(err, goerror.ErrNotFound) && !errors.Is(err, goerror.ErrConflict) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
