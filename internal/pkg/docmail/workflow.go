package docmail

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
)

// State is the progress of a Client's submission.
type State int

const (
	StateIdle State = iota
	StateCreated
	StateAddressesAdded
	StateTemplateAdded
	StateProcessed
	// StateRolledBack means the half-submitted mailing was deleted again.
	StateRolledBack
	// StateFailed means the submission stopped and nothing was left to roll back,
	// or the rollback itself failed.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCreated:
		return "created"
	case StateAddressesAdded:
		return "addresses_added"
	case StateTemplateAdded:
		return "template_added"
	case StateProcessed:
		return "processed"
	case StateRolledBack:
		return "rolled_back"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

const (
	procCreateMailing   = "CreateMailing"
	procAddAddress      = "AddAddress"
	procAddTemplateFile = "AddTemplateFile"
	procProcessMailing  = "ProcessMailing"
	procDeleteMailing   = "DeleteMailing"
	procGetBalance      = "GetBalance"
	procGetProofFile    = "GetProofFile"
	procGetStatus       = "GetStatus"
	procExtendedCall    = "ExtendedCall"
)

type step struct {
	proc string
	run  func(context.Context) (bool, error)
	done State
}

// Send submits the mailing.
//
// It reports (true, nil) once ProcessMailing succeeded. A step that answers
// without success stops the submission with (false, nil) and FailedStep names
// it; any other failure is returned as an error. Either way, a mailing that
// was already created is deleted before Send returns.
func (c *Client) Send(ctx context.Context) (bool, error) {
	if c.mailing == nil {
		return false, fmt.Errorf("%w: no mailing set", ErrValidation)
	}
	if len(c.addresses) == 0 {
		return false, fmt.Errorf("%w: at least one address is required", ErrValidation)
	}
	if c.template == nil {
		return false, fmt.Errorf("%w: no template set", ErrValidation)
	}

	c.session = Session{}
	c.state = StateIdle
	c.failedStep = ""

	steps := []step{
		{proc: procCreateMailing, run: c.createMailing, done: StateCreated},
		{proc: procAddAddress, run: c.addAddresses, done: StateAddressesAdded},
		{proc: procAddTemplateFile, run: c.addTemplateFile, done: StateTemplateAdded},
		{proc: procProcessMailing, run: c.processMailing, done: StateProcessed},
	}

	for _, s := range steps {
		ok, err := s.run(ctx)
		if err == nil && ok {
			c.state = s.done
			continue
		}

		c.failedStep = s.proc
		return false, c.rollback(ctx, err)
	}

	return true, nil
}

// rollback deletes the created mailing, if any, and returns the error Send reports.
func (c *Client) rollback(ctx context.Context, cause error) error {
	guid := c.session.MailingGUID
	if guid == "" {
		c.state = StateFailed
		return cause
	}

	slog.WarnContext(ctx, "docmail submission failed, deleting mailing",
		"mailing_guid", guid, "step", c.failedStep, "error", cause)

	if err := c.DeleteMailing(context.WithoutCancel(ctx), guid); err != nil {
		c.state = StateFailed
		return &RollbackError{MailingGUID: guid, Cause: cause, Err: err}
	}

	c.state = StateRolledBack
	return cause
}

func (c *Client) createMailing(ctx context.Context) (bool, error) {
	if c.mailing.CustomerApplication == "" {
		c.mailing.CustomerApplication = c.cfg.ApplicationName
	}

	params, err := c.builder.Build(c.mailing.Params(), false)
	if err != nil {
		return false, err
	}

	resp, err := c.caller.Call(ctx, procCreateMailing, params)
	if err != nil {
		return false, err
	}

	c.session.MailingGUID, _ = GetField(resp, "MailingGUID")
	c.session.OrderRef, _ = GetField(resp, "OrderRef")

	ref, err := strconv.Atoi(c.session.OrderRef)
	return err == nil && ref > 0, nil
}

func (c *Client) addAddresses(ctx context.Context) (bool, error) {
	for i, a := range c.addresses {
		params, err := c.builder.Build(a.Params(), true)
		if err != nil {
			return false, err
		}

		resp, err := c.caller.Call(ctx, procAddAddress, params)
		if err != nil {
			return false, err
		}

		if !fieldTruthy(resp, "Success") {
			return false, fmt.Errorf("%w: address %d (%s)", ErrAddressRejected, i, a.FullName)
		}
	}
	return true, nil
}

func (c *Client) addTemplateFile(ctx context.Context) (bool, error) {
	params, err := c.builder.Build(c.template.Params(), true)
	if err != nil {
		return false, err
	}

	resp, err := c.caller.Call(ctx, procAddTemplateFile, params)
	if err != nil {
		return false, err
	}

	guid, _ := GetField(resp, "TemplateGUID")
	return guid != "", nil
}

func (c *Client) processMailing(ctx context.Context) (bool, error) {
	params, err := c.builder.Build(Params{
		"CustomerApplication":        c.mailing.CustomerApplication,
		"SkipPreviewImageGeneration": false,
		"Submit":                     c.cfg.SubmitAfterSend,
		"PartialProcess":             true,
		"Copies":                     1,
		"EmailSuccessList":           c.cfg.FeedbackEmail,
		"EmailErrorList":             c.cfg.FeedbackEmail,
		"HttpPostOnSuccess":          "",
		"HttpPostOnError":            "",
	}, true)
	if err != nil {
		return false, err
	}

	resp, err := c.caller.Call(ctx, procProcessMailing, params)
	if err != nil {
		return false, err
	}

	return fieldTruthy(resp, "Success"), nil
}
