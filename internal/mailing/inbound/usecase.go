package inbound

import (
	"context"

	"github.com/shandysiswandi/docmailer/internal/mailing/entity"
	"github.com/shandysiswandi/docmailer/internal/mailing/usecase"
)

type ucConsumer interface {
	ConsumeMailingSubmitted(ctx context.Context, in usecase.ConsumeMailingSubmittedInput) error
}

type uc interface {
	ucConsumer

	SubmitMailing(ctx context.Context, in usecase.SubmitMailingInput) (*usecase.SubmitMailingOutput, error)
	UploadTemplate(ctx context.Context, in usecase.UploadTemplateInput) (*usecase.UploadTemplateOutput, error)
	ListMailings(ctx context.Context, in usecase.ListMailingsInput) (*usecase.ListMailingsOutput, error)
	GetMailing(ctx context.Context, in usecase.GetMailingInput) (*entity.Mailing, error)
	DeleteMailing(ctx context.Context, in usecase.DeleteMailingInput) error
	GetProof(ctx context.Context, in usecase.GetProofInput) (*usecase.GetProofOutput, error)
	GetBalance(ctx context.Context) (float64, error)
	Inflight() int64
}
