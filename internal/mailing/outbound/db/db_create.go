package db

import (
	"context"

	"github.com/shandysiswandi/docmailer/internal/mailing/entity"
	"github.com/shandysiswandi/docmailer/internal/pkg/valueobject"
)

const queryCreateMailing = `
INSERT INTO mailings (id, client_id, name, status, address_count, template_key, options)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

func (s *DB) CreateMailing(ctx context.Context, in entity.NewMailing) (err error) {
	ctx, span := s.startSpan(ctx, "CreateMailing")
	defer func() { s.endSpan(span, err) }()

	opts := in.Options
	if opts == nil {
		opts = valueobject.JSONMap{}
	}

	_, err = s.conn.Exec(ctx, queryCreateMailing,
		in.ID,
		in.ClientID,
		in.Name,
		int16(entity.StatusPending),
		in.AddressCount,
		in.TemplateKey,
		opts,
	)
	return s.mapError(err)
}
