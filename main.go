package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/shandysiswandi/docmailer/internal/app"
)

// @title           Docmailer API
// @version         1.0
// @description     Submits postal mailings to Docmail, tracks them until processing ends and archives their proofs.
// @server          http://localhost:8080
// @securityDefinitions.apikey  BearerAuth
// @in header
// @name Authorization
// @description "Bearer" followed by a space and the token from `docmailctl token`.
func main() {
	if err := run(); err != nil {
		slog.Error("docmailer exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx)
	if err != nil {
		return err
	}
	return a.Run(ctx)
}
