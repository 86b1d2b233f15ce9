package mailing

import (
	"context"

	"github.com/casbin/casbin/v3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shandysiswandi/docmailer/internal/mailing/inbound"
	"github.com/shandysiswandi/docmailer/internal/mailing/outbound/db"
	outdocmail "github.com/shandysiswandi/docmailer/internal/mailing/outbound/docmail"
	"github.com/shandysiswandi/docmailer/internal/mailing/outbound/email"
	"github.com/shandysiswandi/docmailer/internal/mailing/outbound/mq"
	outstorage "github.com/shandysiswandi/docmailer/internal/mailing/outbound/storage"
	"github.com/shandysiswandi/docmailer/internal/mailing/usecase"
	"github.com/shandysiswandi/docmailer/internal/pkg/clock"
	"github.com/shandysiswandi/docmailer/internal/pkg/config"
	"github.com/shandysiswandi/docmailer/internal/pkg/docmail"
	"github.com/shandysiswandi/docmailer/internal/pkg/goroutine"
	"github.com/shandysiswandi/docmailer/internal/pkg/idempotency"
	"github.com/shandysiswandi/docmailer/internal/pkg/instrument"
	"github.com/shandysiswandi/docmailer/internal/pkg/mail"
	"github.com/shandysiswandi/docmailer/internal/pkg/messaging"
	"github.com/shandysiswandi/docmailer/internal/pkg/router"
	"github.com/shandysiswandi/docmailer/internal/pkg/storage"
	"github.com/shandysiswandi/docmailer/internal/pkg/uid"
	"github.com/shandysiswandi/docmailer/internal/pkg/validator"
)

type Dependency struct {
	Ctx              context.Context
	DBConn           *pgxpool.Pool
	Messaging        messaging.Messaging
	Storage          storage.Storage
	Mail             mail.Mail
	DocmailConfig    docmail.Config
	DocmailTransport docmail.Transport
	Idempotency      idempotency.Idempotency
	Enforcer         *casbin.Enforcer
	Config           config.Config
	Instrument       instrument.Instrumentation
	UID              uid.NumberID
	OID              uid.StringID
	UUID             uid.StringID
	Clock            clock.Clocker
	Goroutine        *goroutine.Manager
	Validator        validator.Validator
	Router           *router.Router
}

func New(dep Dependency) error {
	uc := usecase.New(usecase.Dependency{
		RepoDB:        db.NewDB(dep.DBConn, dep.Instrument),
		RepoDocmail:   outdocmail.New(dep.DocmailConfig, dep.DocmailTransport, dep.Instrument),
		RepoStorage:   outstorage.New(dep.Storage, dep.Config.GetInt64("modules.mailing.template_max_size_bytes"), dep.Instrument),
		RepoMessaging: mq.NewMessaging(dep.Messaging, dep.Instrument),
		RepoMail:      email.New(dep.Mail, dep.Instrument),
		Idempotency:   dep.Idempotency,
		Validator:     dep.Validator,
		Config:        dep.Config,
		UID:           dep.UID,
		OID:           dep.OID,
		Clock:         dep.Clock,
		Instrument:    dep.Instrument,
		Enforcer:      dep.Enforcer,
	})

	inbound.RegisterHTTPEndpoint(dep.Router, uc)
	if dep.Ctx != nil {
		inbound.RegisterMQConsumer(dep.Ctx, dep.Config, dep.Goroutine, dep.Messaging, dep.UUID, uc, dep.Instrument)
	}

	return nil
}
