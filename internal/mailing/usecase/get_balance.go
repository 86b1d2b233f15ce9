package usecase

import (
	"context"
	"log/slog"
)

func (s *Usecase) GetBalance(ctx context.Context) (float64, error) {
	ctx, span := s.startSpan(ctx, "GetBalance")
	defer span.End()

	if _, err := s.authenticatedAndAuthorized(ctx, objBalance, actRead); err != nil {
		return 0, err
	}

	balance, err := s.repoDocmail.Balance(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to get docmail balance", "error", err)
		return 0, mapDocmailError(err)
	}

	return balance, nil
}
