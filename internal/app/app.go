// Package app assembles the docmailer process: configuration, backing
// services, the mailing module and the HTTP server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"

	"github.com/casbin/casbin/v3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/docmailer/internal/pkg/clock"
	"github.com/shandysiswandi/docmailer/internal/pkg/config"
	"github.com/shandysiswandi/docmailer/internal/pkg/docmail"
	"github.com/shandysiswandi/docmailer/internal/pkg/goroutine"
	"github.com/shandysiswandi/docmailer/internal/pkg/idempotency"
	"github.com/shandysiswandi/docmailer/internal/pkg/instrument"
	"github.com/shandysiswandi/docmailer/internal/pkg/jwt"
	"github.com/shandysiswandi/docmailer/internal/pkg/mail"
	"github.com/shandysiswandi/docmailer/internal/pkg/messaging"
	"github.com/shandysiswandi/docmailer/internal/pkg/router"
	"github.com/shandysiswandi/docmailer/internal/pkg/storage"
	"github.com/shandysiswandi/docmailer/internal/pkg/uid"
	"github.com/shandysiswandi/docmailer/internal/pkg/validator"
)

type App struct {
	// ctx is cancelled when shutdown starts; consumers and background jobs
	// derive from it.
	ctx    context.Context
	cancel context.CancelFunc

	config config.Config
	ins    instrument.Instrumentation

	goroutine *goroutine.Manager
	validator validator.Validator
	clock     clock.Clocker
	uid       uid.NumberID
	oid       uid.StringID
	uuid      uid.StringID
	jwt       jwt.JWT

	dbConn           *pgxpool.Pool
	cacheConn        *redis.Client
	idemp            idempotency.Idempotency
	mail             mail.Mail
	messaging        messaging.Messaging
	storage          storage.Storage
	casbin           *casbin.Enforcer
	docmailConfig    docmail.Config
	docmailTransport docmail.Transport

	router     *router.Router
	httpServer *http.Server

	closers []closer
}

type closer struct {
	name string
	fn   func(context.Context) error
}

// New builds every dependency in order. When a step fails, whatever was
// already opened is closed before the error is returned.
func New(ctx context.Context) (*App, error) {
	appCtx, cancel := context.WithCancel(ctx)
	a := &App{ctx: appCtx, cancel: cancel}

	steps := []struct {
		name string
		fn   func() error
	}{
		{"config", a.initConfig},
		{"instrument", a.initInstrument},
		{"libraries", a.initLibraries},
		{"jwt", a.initJWT},
		{"database", a.initDatabase},
		{"redis", a.initCache},
		{"mail", a.initMail},
		{"storage", a.initStorage},
		{"messaging", a.initMessaging},
		{"casbin", a.initCasbin},
		{"docmail", a.initDocmail},
		{"http server", a.initHTTPServer},
		{"modules", a.initModules},
	}

	for _, step := range steps {
		if err := step.fn(); err != nil {
			cancel()
			return nil, errors.Join(fmt.Errorf("init %s: %w", step.name, err), a.close(context.WithoutCancel(ctx)))
		}
	}

	return a, nil
}

// onClose registers fn to run at shutdown, in reverse registration order.
func (a *App) onClose(name string, fn func(context.Context) error) {
	a.closers = append(a.closers, closer{name: name, fn: fn})
}

func (a *App) close(ctx context.Context) error {
	var errs []error
	for _, c := range slices.Backward(a.closers) {
		if err := c.fn(ctx); err != nil {
			slog.ErrorContext(ctx, "failed to close resource", "name", c.name, "error", err)
			errs = append(errs, fmt.Errorf("close %s: %w", c.name, err))
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
