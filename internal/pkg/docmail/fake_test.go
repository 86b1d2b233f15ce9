package docmail

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

type recordedCall struct {
	proc   string
	params Params
}

// fakeTransport answers each procedure with the next queued result, or the
// last one once the queue is drained.
type fakeTransport struct {
	mu      sync.Mutex
	results map[string][]string
	errs    map[string]error
	calls   []recordedCall
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{results: map[string][]string{}, errs: map[string]error{}}
}

func (f *fakeTransport) on(proc string, results ...string) *fakeTransport {
	f.results[proc] = append(f.results[proc], results...)
	return f
}

func (f *fakeTransport) fail(proc string, err error) *fakeTransport {
	f.errs[proc] = err
	return f
}

func (f *fakeTransport) Call(_ context.Context, proc string, params Params) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, recordedCall{proc: proc, params: params})

	if err := f.errs[proc]; err != nil {
		return nil, err
	}

	queue, ok := f.results[proc]
	if !ok {
		return nil, errors.New("unexpected call " + proc)
	}
	res := queue[0]
	if len(queue) > 1 {
		f.results[proc] = queue[1:]
	}

	return map[string]string{proc + "Result": res}, nil
}

func (f *fakeTransport) procs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]string, len(f.calls))
	for i, c := range f.calls {
		out[i] = c.proc
	}
	return out
}

func (f *fakeTransport) callsTo(proc string) []recordedCall {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []recordedCall
	for _, c := range f.calls {
		if c.proc == proc {
			out = append(out, c)
		}
	}
	return out
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Username = "user"
	cfg.Password = "secret"
	cfg.FeedbackEmail = "ops@example.com"
	return cfg
}

func createdResult(guid string, orderRef int) string {
	return fmt.Sprintf("MailingGUID: %s\r\nOrderRef: %d\r\n", guid, orderRef)
}
