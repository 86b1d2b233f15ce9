package docmail

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"
)

// StatusErrorInProcessing is the status Docmail reports for a mailing it could not process.
const StatusErrorInProcessing = "Error in processing"

var errStatusPending = errors.New("docmail: status pending")

// PollResult is the outcome of StatusPoller.Wait.
type PollResult struct {
	// Status is the last status Docmail reported.
	Status string
	// Diagnostic is the GetProcessingError answer when Status is StatusErrorInProcessing.
	Diagnostic string
	Attempts   int
}

// StatusPoller waits for a mailing to reach a status.
type StatusPoller struct {
	caller   *Caller
	builder  *RequestBuilder
	attempts int
	interval time.Duration

	// onWait observes every pause between two attempts.
	onWait func(time.Duration)
}

func NewStatusPoller(caller *Caller, builder *RequestBuilder, attempts int, interval time.Duration) *StatusPoller {
	if attempts <= 0 {
		attempts = DefaultPollAttempts
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &StatusPoller{caller: caller, builder: builder, attempts: attempts, interval: interval}
}

// Wait calls GetStatus until the mailing reports expected, reports
// StatusErrorInProcessing, or the attempts run out, pausing a fixed interval
// between calls.
//
// GetStatus is built from the credentials and guid only, without the session
// merge, so any mailing can be polled.
//
// When the final status differs from expected and raiseOnFailure is set, the
// error is a *PollTimeoutError.
func (p *StatusPoller) Wait(ctx context.Context, guid, expected string, raiseOnFailure bool) (PollResult, error) {
	var res PollResult

	err := retry.Do(ctx, p.backoff(), func(ctx context.Context) error {
		res.Attempts++

		resp, err := p.caller.Call(ctx, procGetStatus, p.builder.statusParams(guid))
		if err != nil {
			return err
		}

		res.Status, _ = GetField(resp, "Status")
		if res.Status == expected || res.Status == StatusErrorInProcessing {
			return nil
		}
		return retry.RetryableError(errStatusPending)
	})
	if err != nil && !errors.Is(err, errStatusPending) {
		return res, err
	}

	var diagErr error
	if res.Status == StatusErrorInProcessing {
		res.Diagnostic, diagErr = p.caller.Call(ctx, procExtendedCall, p.builder.processingErrorParams(guid))
		if diagErr != nil {
			slog.WarnContext(ctx, "docmail processing error lookup failed", "mailing_guid", guid, "error", diagErr)
		}
	}

	if res.Status != expected && raiseOnFailure {
		return res, errors.Join(&PollTimeoutError{Expected: expected, Actual: res.Status}, diagErr)
	}

	return res, diagErr
}

func (p *StatusPoller) backoff() retry.Backoff {
	b := retry.WithMaxRetries(uint64(p.attempts-1), retry.NewConstant(p.interval))
	if p.onWait == nil {
		return b
	}
	return retry.BackoffFunc(func() (time.Duration, bool) {
		d, stop := b.Next()
		if !stop {
			p.onWait(d)
		}
		return d, stop
	})
}
