package docmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Client assembles and submits one Docmail mailing.
type Client struct {
	cfg       Config
	transport Transport
	opts      []Option

	caller  *Caller
	builder *RequestBuilder
	poller  *StatusPoller
	session Session

	mailing   *Mailing
	addresses []*Address
	template  *TemplateFile

	state      State
	failedStep string
}

// New returns a Client with a fresh Mailing seeded from cfg.Defaults.
func New(cfg Config, t Transport, opts ...Option) *Client {
	cfg = cfg.withDefaults()

	c := &Client{
		cfg:       cfg,
		transport: t,
		opts:      opts,
		caller:    NewCaller(t, opts...),
		mailing:   NewMailing(cfg.Defaults),
	}
	c.builder = NewRequestBuilder(Credentials{Username: cfg.Username, Password: cfg.Password}, &c.session)
	c.poller = NewStatusPoller(c.caller, c.builder, cfg.PollAttempts, cfg.PollInterval)

	return c
}

func (c *Client) SetMailing(m *Mailing) { c.mailing = m }

func (c *Client) Mailing() *Mailing { return c.mailing }

// AddAddress appends a recipient. Addresses are submitted in the order added.
func (c *Client) AddAddress(a *Address) { c.addresses = append(c.addresses, a) }

// AddBasicAddress appends BasicAddress(fullName, address1, address2, more...).
func (c *Client) AddBasicAddress(fullName, address1, address2 string, more ...string) {
	c.AddAddress(BasicAddress(fullName, address1, address2, more...))
}

func (c *Client) Addresses() []*Address { return slices.Clone(c.addresses) }

func (c *Client) SetTemplate(t *TemplateFile) { c.template = t }

func (c *Client) Template() *TemplateFile { return c.template }

// MailingGUID returns the GUID assigned by the last CreateMailing, or the attached one.
func (c *Client) MailingGUID() string { return c.session.MailingGUID }

func (c *Client) OrderRef() string { return c.session.OrderRef }

func (c *Client) State() State { return c.state }

// FailedStep names the remote call that stopped the last Send, if any.
func (c *Client) FailedStep() string { return c.failedStep }

// Attach binds the client to a mailing submitted earlier, so that ProofFile
// and WaitForStatus can be used without sending again.
func (c *Client) Attach(guid, orderRef string) {
	c.session = Session{MailingGUID: guid, OrderRef: orderRef}
}

// DeleteMailing deletes the mailing identified by guid, which need not be the
// client's own.
func (c *Client) DeleteMailing(ctx context.Context, guid string) error {
	if guid == "" {
		return fmt.Errorf("%w: mailing guid is empty", ErrValidation)
	}

	params, err := c.builder.Build(Params{"MailingGUID": guid}, false)
	if err != nil {
		return err
	}

	_, err = c.caller.Call(ctx, procDeleteMailing, params)
	return err
}

// Balance returns the current credit or invoice limit of the configured payment method.
// A response without a Current balance field reads as 0.
func (c *Client) Balance(ctx context.Context) (float64, error) {
	params, err := c.builder.Build(Params{"AccountType": c.cfg.PaymentMethod}, false)
	if err != nil {
		return 0, err
	}

	resp, err := c.caller.Call(ctx, procGetBalance, params)
	if err != nil {
		return 0, err
	}

	raw, ok := GetField(resp, "Current balance")
	if !ok {
		return 0, nil
	}

	balance, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: balance %q: %w", ErrProtocol, raw, err)
	}

	return balance, nil
}

// ProofFile returns the proof PDF of the current mailing.
//
// Docmail needs some time to render proofs after ProcessMailing, so a nil
// slice with a nil error means the proof is not available yet.
func (c *Client) ProofFile(ctx context.Context) ([]byte, error) {
	params, err := c.builder.Build(Params{}, true)
	if err != nil {
		return nil, err
	}

	resp, err := c.caller.Call(ctx, procGetProofFile, params)
	if err != nil {
		return nil, err
	}

	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(resp))
	if err != nil {
		return nil, fmt.Errorf("%w: proof file is not base64: %w", ErrProtocol, err)
	}
	if strings.HasPrefix(string(data), "Error") {
		return nil, nil
	}

	return data, nil
}

// WaitForStatus polls the current mailing until it reaches expected.
func (c *Client) WaitForStatus(ctx context.Context, expected string, raiseOnFailure bool) (PollResult, error) {
	if c.session.MailingGUID == "" {
		return PollResult{}, fmt.Errorf("%w: mailing guid is not set", ErrPrecondition)
	}
	return c.poller.Wait(ctx, c.session.MailingGUID, expected, raiseOnFailure)
}

// Poller returns the status poller sharing this client's transport and credentials.
func (c *Client) Poller() *StatusPoller { return c.poller }

// SendFile submits the document at path with a new client sharing this
// client's configuration and transport. configure may add addresses and
// adjust the mailing before sending.
func (c *Client) SendFile(ctx context.Context, path string, configure func(*Client) error) (*Client, error) {
	tpl, err := LoadTemplateFile(path)
	if err != nil {
		return nil, err
	}
	return c.sendWith(ctx, tpl, configure)
}

// SendData is SendFile for a document held in memory.
func (c *Client) SendData(ctx context.Context, fileName string, data []byte, configure func(*Client) error) (*Client, error) {
	return c.sendWith(ctx, NewTemplateFile(fileName, data), configure)
}

func (c *Client) sendWith(ctx context.Context, tpl *TemplateFile, configure func(*Client) error) (*Client, error) {
	n := New(c.cfg, c.transport, c.opts...)
	n.SetTemplate(tpl)

	if configure != nil {
		if err := configure(n); err != nil {
			return nil, err
		}
	}

	ok, err := n.Send(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotAccepted, n.FailedStep())
	}

	return n, nil
}
