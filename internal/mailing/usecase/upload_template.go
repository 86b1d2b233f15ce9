package usecase

import (
	"context"
	"io"
	"log/slog"

	"github.com/shandysiswandi/docmailer/internal/pkg/goerror"
)

const defaultTemplateMaxSize = 20 << 20

type (
	UploadTemplateInput struct {
		FileName string `validate:"required,filename,max=255"`
		File     io.Reader
	}

	UploadTemplateOutput struct {
		TemplateKey string
		Size        int64
	}
)

// UploadTemplate stores a document once so later submissions can reference it by key.
func (s *Usecase) UploadTemplate(ctx context.Context, in UploadTemplateInput) (*UploadTemplateOutput, error) {
	ctx, span := s.startSpan(ctx, "UploadTemplate")
	defer span.End()

	clm, err := s.authenticatedAndAuthorized(ctx, objTemplate, actCreate)
	if err != nil {
		return nil, err
	}

	if in.File == nil {
		return nil, goerror.NewInvalidInput(nil, "file", "template file is required")
	}

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	maxSize := s.cfg.GetInt64("modules.mailing.template_max_size_bytes")
	if maxSize <= 0 {
		maxSize = defaultTemplateMaxSize
	}

	data, err := io.ReadAll(io.LimitReader(in.File, maxSize+1))
	if err != nil {
		slog.ErrorContext(ctx, "failed to read uploaded template", "client_id", clm.ClientID, "error", err)
		return nil, goerror.NewInvalidFormat()
	}
	if int64(len(data)) > maxSize {
		return nil, goerror.NewInvalidInput(nil, "file", "template exceeds max size")
	}
	if len(data) == 0 {
		return nil, goerror.NewInvalidInput(nil, "file", "template file is empty")
	}

	key := templateKey(clm.ClientID, s.oid.Generate(), in.FileName)
	if err := s.repoStorage.Put(ctx, key, contentTypeOf(in.FileName), data, map[string]string{
		"client_id": clm.ClientID,
	}); err != nil {
		slog.ErrorContext(ctx, "failed to store uploaded template", "client_id", clm.ClientID, "error", err)
		return nil, goerror.NewServer(err)
	}

	return &UploadTemplateOutput{TemplateKey: key, Size: int64(len(data))}, nil
}
