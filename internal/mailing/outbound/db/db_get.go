package db

import (
	"context"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/shandysiswandi/docmailer/internal/mailing/entity"
)

const columnsMailing = `id, client_id, name, status, state, failed_step, mailing_guid, order_ref,
address_count, template_key, proof_key, remote_status, diagnostic, error, options, created_at, updated_at`

func scanMailing(row pgx.Row) (entity.Mailing, error) {
	var (
		m      entity.Mailing
		status int16
	)
	err := row.Scan(
		&m.ID,
		&m.ClientID,
		&m.Name,
		&status,
		&m.State,
		&m.FailedStep,
		&m.MailingGUID,
		&m.OrderRef,
		&m.AddressCount,
		&m.TemplateKey,
		&m.ProofKey,
		&m.RemoteStatus,
		&m.Diagnostic,
		&m.Error,
		&m.Options,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	m.Status = entity.Status(status)
	return m, err
}

func (s *DB) GetMailingByID(ctx context.Context, id int64) (_ *entity.Mailing, err error) {
	ctx, span := s.startSpan(ctx, "GetMailingByID")
	defer func() { s.endSpan(span, err) }()

	row := s.conn.QueryRow(ctx, "SELECT "+columnsMailing+" FROM mailings WHERE id = $1 AND deleted_at IS NULL", id)
	m, err := scanMailing(row)
	if err != nil {
		return nil, s.mapError(err)
	}

	return &m, nil
}

func (s *DB) ListMailings(ctx context.Context, f entity.MailingFilter) (_ []entity.Mailing, _ int64, err error) {
	ctx, span := s.startSpan(ctx, "ListMailings")
	defer func() { s.endSpan(span, err) }()

	where := []string{"deleted_at IS NULL"}
	args := []any{}
	if f.ClientID != "" {
		args = append(args, f.ClientID)
		where = append(where, "client_id = $"+strconv.Itoa(len(args)))
	}
	if f.Status != entity.StatusUnknown {
		args = append(args, int16(f.Status))
		where = append(where, "status = $"+strconv.Itoa(len(args)))
	}
	cond := strings.Join(where, " AND ")

	var total int64
	if err := s.conn.QueryRow(ctx, "SELECT count(*) FROM mailings WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, s.mapError(err)
	}

	args = append(args, f.Limit, f.Offset)
	query := "SELECT " + columnsMailing + " FROM mailings WHERE " + cond +
		" ORDER BY created_at DESC, id DESC LIMIT $" + strconv.Itoa(len(args)-1) + " OFFSET $" + strconv.Itoa(len(args))

	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, s.mapError(err)
	}
	defer rows.Close()

	items := make([]entity.Mailing, 0, f.Limit)
	for rows.Next() {
		m, err := scanMailing(rows)
		if err != nil {
			return nil, 0, s.mapError(err)
		}
		items = append(items, m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, s.mapError(err)
	}

	return items, total, nil
}
