package usecase

import (
	"bytes"
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/casbin/casbin/v3"
	"github.com/casbin/casbin/v3/model"
	"github.com/shandysiswandi/docmailer/internal/mailing/entity"
	"github.com/shandysiswandi/docmailer/internal/pkg/config"
	"github.com/shandysiswandi/docmailer/internal/pkg/goerror"
	"github.com/shandysiswandi/docmailer/internal/pkg/idempotency"
	"github.com/shandysiswandi/docmailer/internal/pkg/instrument"
	"github.com/shandysiswandi/docmailer/internal/pkg/jwt"
	"github.com/shandysiswandi/docmailer/internal/pkg/mail"
	"github.com/shandysiswandi/docmailer/internal/pkg/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDB struct {
	mu       sync.Mutex
	mailings map[int64]*entity.Mailing
	created  []entity.NewMailing
	submits  []entity.SubmitOutcome
	polls    []entity.PollOutcome
	filters  []entity.MailingFilter
	err      error
}

func newFakeDB() *fakeDB { return &fakeDB{mailings: map[int64]*entity.Mailing{}} }

func (f *fakeDB) put(m entity.Mailing) { f.mailings[m.ID] = &m }

func (f *fakeDB) CreateMailing(_ context.Context, in entity.NewMailing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.created = append(f.created, in)
	f.mailings[in.ID] = &entity.Mailing{
		ID: in.ID, ClientID: in.ClientID, Name: in.Name, Status: entity.StatusPending,
		AddressCount: in.AddressCount, TemplateKey: in.TemplateKey, Options: in.Options,
	}
	return nil
}

func (f *fakeDB) UpdateSubmitOutcome(_ context.Context, in entity.SubmitOutcome) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submits = append(f.submits, in)
	if m, ok := f.mailings[in.ID]; ok {
		m.Status, m.State, m.FailedStep = in.Status, in.State, in.FailedStep
		m.MailingGUID, m.OrderRef, m.Error = in.MailingGUID, in.OrderRef, in.Error
	}
	return nil
}

func (f *fakeDB) UpdatePollOutcome(_ context.Context, in entity.PollOutcome) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.polls = append(f.polls, in)
	m, ok := f.mailings[in.ID]
	if !ok {
		return goerror.ErrNotFound
	}
	m.Status, m.RemoteStatus, m.Diagnostic = in.Status, in.RemoteStatus, in.Diagnostic
	if in.ProofKey != "" {
		m.ProofKey = in.ProofKey
	}
	return nil
}

func (f *fakeDB) MarkMailingDeleted(_ context.Context, id int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.mailings[id]; !ok {
		return false, nil
	}
	delete(f.mailings, id)
	return true, nil
}

func (f *fakeDB) GetMailingByID(_ context.Context, id int64) (*entity.Mailing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	m, ok := f.mailings[id]
	if !ok {
		return nil, goerror.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (f *fakeDB) ListMailings(_ context.Context, filter entity.MailingFilter) ([]entity.Mailing, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filters = append(f.filters, filter)
	var out []entity.Mailing
	for _, m := range f.mailings {
		if filter.ClientID != "" && m.ClientID != filter.ClientID {
			continue
		}
		if filter.Status != entity.StatusUnknown && m.Status != filter.Status {
			continue
		}
		out = append(out, *m)
	}
	return out, int64(len(out)), nil
}

type fakeDocmail struct {
	mu sync.Mutex

	sendRes entity.SendResult
	sendErr error
	sent    []entity.Submission

	waitRes  entity.PollResult
	waitErr  error
	waitedOn []string

	proof    []byte
	proofErr error

	deleteErr error
	deleted   []string

	balance    float64
	balanceErr error
}

func (f *fakeDocmail) Send(_ context.Context, in entity.Submission) (entity.SendResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, in)
	return f.sendRes, f.sendErr
}

func (f *fakeDocmail) WaitForStatus(_ context.Context, guid, _, expected string) (entity.PollResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.waitedOn = append(f.waitedOn, guid+"|"+expected)
	return f.waitRes, f.waitErr
}

func (f *fakeDocmail) ProofFile(context.Context, string, string) ([]byte, error) {
	return f.proof, f.proofErr
}

func (f *fakeDocmail) DeleteMailing(_ context.Context, guid string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, guid)
	return f.deleteErr
}

func (f *fakeDocmail) Balance(context.Context) (float64, error) {
	return f.balance, f.balanceErr
}

type storedObject struct {
	contentType string
	data        []byte
	meta        map[string]string
}

type fakeStorage struct {
	mu      sync.Mutex
	objects map[string]storedObject
	deleted []string
	putErr  error
	getErr  error
}

func newFakeStorage() *fakeStorage { return &fakeStorage{objects: map[string]storedObject{}} }

func (f *fakeStorage) Put(_ context.Context, key, contentType string, data []byte, meta map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return f.putErr
	}
	f.objects[key] = storedObject{contentType: contentType, data: bytes.Clone(data), meta: meta}
	return nil
}

func (f *fakeStorage) Get(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	obj, ok := f.objects[key]
	if !ok {
		return nil, goerror.ErrNotFound
	}
	return obj.data, nil
}

func (f *fakeStorage) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, key)
	delete(f.objects, key)
	return nil
}

func (f *fakeStorage) PresignGet(_ context.Context, key string, expiry time.Duration) (string, error) {
	return "https://objects.test/" + key + "?expires=" + expiry.String(), nil
}

type fakeMessaging struct {
	mu        sync.Mutex
	published []MailingSubmittedEvent
	err       error
}

func (f *fakeMessaging) PublishMailingSubmitted(_ context.Context, msg MailingSubmittedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, msg)
	return f.err
}

type fakeMail struct {
	mu   sync.Mutex
	sent []mail.Message
}

func (f *fakeMail) Send(_ context.Context, msg mail.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	return nil
}

// fakeIdempotency keeps StateTracker semantics in memory.
type fakeIdempotency struct {
	mu      sync.Mutex
	states  map[string]idempotency.State
	markErr error
}

func newFakeIdempotency() *fakeIdempotency {
	return &fakeIdempotency{states: map[string]idempotency.State{}}
}

func (f *fakeIdempotency) Acquire(_ context.Context, key string, _ time.Duration) (idempotency.State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if st, ok := f.states[key]; ok {
		return st, nil
	}
	f.states[key] = idempotency.StateInProgress
	return idempotency.StateNone, nil
}

func (f *fakeIdempotency) MarkCompleted(_ context.Context, key string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.markErr != nil {
		return f.markErr
	}
	f.states[key] = idempotency.StateCompleted
	return nil
}

func (f *fakeIdempotency) MarkFailed(_ context.Context, key string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states[key] = idempotency.StateFailed
	return nil
}

func (f *fakeIdempotency) Exec(ctx context.Context, key string, fn func(context.Context) error, _ ...idempotency.Option) error {
	st, err := f.Acquire(ctx, key, 0)
	if err != nil {
		return err
	}
	switch st {
	case idempotency.StateInProgress:
		return idempotency.ErrAlreadyInProgress
	case idempotency.StateCompleted:
		return idempotency.ErrAlreadyCompleted
	case idempotency.StateFailed:
		return idempotency.ErrAlreadyFailed
	}
	if err := fn(ctx); err != nil {
		_ = f.MarkFailed(ctx, key, 0)
		return err
	}
	return f.MarkCompleted(ctx, key, 0)
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type seqID struct{ n atomic.Int64 }

func (s *seqID) Generate() int64 { return 1000 + s.n.Add(1) }

type fixedOID string

func (o fixedOID) Generate() string { return string(o) }

const testConfigYAML = `
modules:
  mailing:
    expected_status: Mailing submitted
    idempotency_lock_minutes: 5
    idempotency_ttl_hours: 24
    proof_url_ttl_minutes: 10
    template_max_size_bytes: 64
`

const rbacModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && (p.obj == "*" || r.obj == p.obj) && (p.act == "*" || r.act == p.act)
`

type testDeps struct {
	db      *fakeDB
	docmail *fakeDocmail
	storage *fakeStorage
	mq      *fakeMessaging
	mail    *fakeMail
	idemp   *fakeIdempotency
	clock   fixedClock
}

func newTestUsecase(t *testing.T) (*Usecase, *testDeps) {
	t.Helper()

	cfg, err := config.NewViperFromBytes("yaml", []byte(testConfigYAML))
	require.NoError(t, err)

	v, err := validator.NewV10Validator()
	require.NoError(t, err)

	m, err := model.NewModelFromString(rbacModel)
	require.NoError(t, err)
	enforcer, err := casbin.NewEnforcer(m)
	require.NoError(t, err)
	_, err = enforcer.AddPolicies([][]string{
		{"client", "mailing", "create"},
		{"client", "mailing", "read"},
		{"client", "mailing", "delete"},
		{"client", "template", "create"},
		{"admin", "*", "*"},
	})
	require.NoError(t, err)

	deps := &testDeps{
		db:      newFakeDB(),
		docmail: &fakeDocmail{},
		storage: newFakeStorage(),
		mq:      &fakeMessaging{},
		mail:    &fakeMail{},
		idemp:   newFakeIdempotency(),
		clock:   fixedClock{now: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)},
	}

	uc := New(Dependency{
		RepoDB:        deps.db,
		RepoDocmail:   deps.docmail,
		RepoStorage:   deps.storage,
		RepoMessaging: deps.mq,
		RepoMail:      deps.mail,
		Idempotency:   deps.idemp,
		Validator:     v,
		Config:        cfg,
		UID:           &seqID{},
		OID:           fixedOID("65f0c0ffee"),
		Clock:         deps.clock,
		Instrument:    instrument.NewNoop(),
		Enforcer:      enforcer,
	})

	return uc, deps
}

func asClient(clientID, role string) context.Context {
	return jwt.SetAuth(context.Background(), jwt.Claims{ClientID: clientID, Role: role})
}

func assertCode(t *testing.T, err error, code goerror.Code) {
	t.Helper()

	require.Error(t, err)
	assert.Equal(t, code.String(), goerror.CodeOf(err).String(), err.Error())
}
