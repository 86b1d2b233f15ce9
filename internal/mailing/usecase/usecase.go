package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/casbin/casbin/v3"
	"github.com/shandysiswandi/docmailer/internal/mailing/entity"
	"github.com/shandysiswandi/docmailer/internal/pkg/clock"
	"github.com/shandysiswandi/docmailer/internal/pkg/config"
	"github.com/shandysiswandi/docmailer/internal/pkg/docmail"
	"github.com/shandysiswandi/docmailer/internal/pkg/goerror"
	"github.com/shandysiswandi/docmailer/internal/pkg/idempotency"
	"github.com/shandysiswandi/docmailer/internal/pkg/instrument"
	"github.com/shandysiswandi/docmailer/internal/pkg/jwt"
	"github.com/shandysiswandi/docmailer/internal/pkg/mail"
	"github.com/shandysiswandi/docmailer/internal/pkg/uid"
	"github.com/shandysiswandi/docmailer/internal/pkg/validator"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/atomic"
)

type MailingSubmittedEvent struct {
	MailingID   int64
	ClientID    string
	MailingGUID string
	OrderRef    string
	NotifyEmail string
}

type repoDB interface {
	CreateMailing(ctx context.Context, in entity.NewMailing) error
	UpdateSubmitOutcome(ctx context.Context, in entity.SubmitOutcome) error
	UpdatePollOutcome(ctx context.Context, in entity.PollOutcome) error
	MarkMailingDeleted(ctx context.Context, id int64) (bool, error)
	GetMailingByID(ctx context.Context, id int64) (*entity.Mailing, error)
	ListMailings(ctx context.Context, f entity.MailingFilter) ([]entity.Mailing, int64, error)
}

type repoDocmail interface {
	Send(ctx context.Context, in entity.Submission) (entity.SendResult, error)
	WaitForStatus(ctx context.Context, guid, orderRef, expected string) (entity.PollResult, error)
	ProofFile(ctx context.Context, guid, orderRef string) ([]byte, error)
	DeleteMailing(ctx context.Context, guid string) error
	Balance(ctx context.Context) (float64, error)
}

type repoStorage interface {
	Put(ctx context.Context, key, contentType string, data []byte, meta map[string]string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
}

type repoMessaging interface {
	PublishMailingSubmitted(ctx context.Context, msg MailingSubmittedEvent) error
}

type repoMail interface {
	Send(ctx context.Context, msg mail.Message) error
}

type Usecase struct {
	repoDB        repoDB
	repoDocmail   repoDocmail
	repoStorage   repoStorage
	repoMessaging repoMessaging
	repoMail      repoMail
	idemp         idempotency.Idempotency
	validator     validator.Validator
	cfg           config.Config
	uid           uid.NumberID
	oid           uid.StringID
	clock         clock.Clocker
	ins           instrument.Instrumentation
	enforcer      *casbin.Enforcer

	inflight *atomic.Int64
}

type Dependency struct {
	RepoDB        repoDB
	RepoDocmail   repoDocmail
	RepoStorage   repoStorage
	RepoMessaging repoMessaging
	RepoMail      repoMail
	Idempotency   idempotency.Idempotency
	Validator     validator.Validator
	Config        config.Config
	UID           uid.NumberID
	OID           uid.StringID
	Clock         clock.Clocker
	Instrument    instrument.Instrumentation
	Enforcer      *casbin.Enforcer
}

func New(dep Dependency) *Usecase {
	s := &Usecase{
		repoDB:        dep.RepoDB,
		repoDocmail:   dep.RepoDocmail,
		repoStorage:   dep.RepoStorage,
		repoMessaging: dep.RepoMessaging,
		repoMail:      dep.RepoMail,
		idemp:         dep.Idempotency,
		validator:     dep.Validator,
		cfg:           dep.Config,
		uid:           dep.UID,
		oid:           dep.OID,
		clock:         dep.Clock,
		ins:           dep.Instrument,
		enforcer:      dep.Enforcer,
		inflight:      atomic.NewInt64(0),
	}

	_, err := s.ins.Meter("mailing.usecase").Int64ObservableGauge(
		"mailing.submissions.inflight",
		metric.WithDescription("Submissions currently being sent to Docmail."),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(s.inflight.Load())
			return nil
		}),
	)
	if err != nil {
		slog.Warn("failed to register inflight gauge", "error", err)
	}

	return s
}

// Inflight returns the number of submissions currently talking to Docmail.
func (s *Usecase) Inflight() int64 { return s.inflight.Load() }

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("mailing.usecase").Start(ctx, name)
}

func (s *Usecase) authenticatedAndAuthorized(ctx context.Context, obj, act string) (*jwt.Claims, error) {
	clm := jwt.GetAuth(ctx)
	if clm == nil {
		return nil, goerror.NewBusiness("Authentication required", goerror.CodeUnauthorized)
	}

	ok, err := s.enforcer.Enforce(clm.Role, obj, act)
	if err != nil {
		slog.ErrorContext(ctx, "failed to check authorization", "client_id", clm.ClientID, "role", clm.Role, "error", err)
		return nil, goerror.NewServer(err)
	}

	if !ok {
		return nil, goerror.NewBusiness("Client not allowed", goerror.CodeForbidden)
	}

	return clm, nil
}

// canSeeAll reports whether the caller may act on other clients' mailings.
func (s *Usecase) canSeeAll(clm *jwt.Claims) bool {
	ok, err := s.enforcer.Enforce(clm.Role, objMailingAll, actRead)
	return err == nil && ok
}

// ownedMailing loads the mailing and hides it from clients that do not own it.
func (s *Usecase) ownedMailing(ctx context.Context, clm *jwt.Claims, id int64) (*entity.Mailing, error) {
	m, err := s.repoDB.GetMailingByID(ctx, id)
	if errors.Is(err, goerror.ErrNotFound) {
		return nil, goerror.NewBusiness("Mailing not found", goerror.CodeNotFound)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get mailing by id", "mailing_id", id, "error", err)
		return nil, goerror.NewServer(err)
	}

	if m.ClientID != clm.ClientID && !s.canSeeAll(clm) {
		slog.WarnContext(ctx, "client asked for a mailing it does not own", "mailing_id", id, "client_id", clm.ClientID)
		return nil, goerror.NewBusiness("Mailing not found", goerror.CodeNotFound)
	}

	return m, nil
}

const (
	objMailing    = "mailing"
	objMailingAll = "mailing:all"
	objBalance    = "balance"
	objTemplate   = "template"

	actCreate = "create"
	actRead   = "read"
	actDelete = "delete"
)

// mapDocmailError turns a docmail failure into the error shown to API callers.
func mapDocmailError(err error) error {
	var (
		remote   *docmail.RemoteServiceError
		rollback *docmail.RollbackError
	)

	switch {
	case errors.As(err, &rollback):
		return goerror.NewServer(err)
	case errors.Is(err, docmail.ErrValidation),
		errors.Is(err, docmail.ErrUnknownField),
		errors.Is(err, docmail.ErrInvalidValue):
		return goerror.NewInvalidInput(nil, "mailing", err.Error())
	case errors.Is(err, docmail.ErrPrecondition):
		return goerror.NewBusiness(err.Error(), goerror.CodeConflict)
	case errors.As(err, &remote):
		return goerror.NewUpstream(err, "Docmail rejected the request: "+remote.Message)
	case errors.Is(err, docmail.ErrAddressRejected):
		return goerror.NewUpstream(err, "Docmail rejected an address")
	case errors.Is(err, context.DeadlineExceeded):
		return goerror.NewBusiness("Docmail did not answer in time", goerror.CodeTimeout)
	case errors.Is(err, docmail.ErrTransport), errors.Is(err, docmail.ErrProtocol):
		return goerror.NewUpstream(err, "Docmail is unavailable")
	default:
		return goerror.NewServer(err)
	}
}
