package usecase

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/docmailer/internal/mailing/entity"
	"github.com/shandysiswandi/docmailer/internal/pkg/goerror"
)

type (
	GetMailingInput struct {
		ID int64 `validate:"required,gt=0"`
	}

	ListMailingsInput struct {
		Status string `validate:"omitempty,oneof=pending submitted rejected failed completed processing_error timed_out"`
		Limit  int32  `validate:"omitempty,gte=1,lte=100"`
		Offset int32  `validate:"omitempty,gte=0"`
	}

	ListMailingsOutput struct {
		Mailings []entity.Mailing
		Total    int64
		Limit    int32
		Offset   int32
	}
)

func (s *Usecase) GetMailing(ctx context.Context, in GetMailingInput) (*entity.Mailing, error) {
	ctx, span := s.startSpan(ctx, "GetMailing")
	defer span.End()

	clm, err := s.authenticatedAndAuthorized(ctx, objMailing, actRead)
	if err != nil {
		return nil, err
	}

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	return s.ownedMailing(ctx, clm, in.ID)
}

func (s *Usecase) ListMailings(ctx context.Context, in ListMailingsInput) (*ListMailingsOutput, error) {
	ctx, span := s.startSpan(ctx, "ListMailings")
	defer span.End()

	clm, err := s.authenticatedAndAuthorized(ctx, objMailing, actRead)
	if err != nil {
		return nil, err
	}

	if in.Limit == 0 {
		in.Limit = 20
	}

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	filter := entity.MailingFilter{
		ClientID: clm.ClientID,
		Status:   entity.StatusFromString(in.Status),
		Limit:    in.Limit,
		Offset:   in.Offset,
	}
	if s.canSeeAll(clm) {
		filter.ClientID = ""
	}

	items, total, err := s.repoDB.ListMailings(ctx, filter)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo list mailings", "client_id", clm.ClientID, "error", err)
		return nil, goerror.NewServer(err)
	}

	return &ListMailingsOutput{Mailings: items, Total: total, Limit: in.Limit, Offset: in.Offset}, nil
}
