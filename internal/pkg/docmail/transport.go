package docmail

import "context"

// Transport executes one remote procedure.
//
// It returns the children of the procedure's response element by name, so a
// successful call carries a "<proc>Result" entry. A nil map with a nil error
// is treated as a missing envelope.
type Transport interface {
	Call(ctx context.Context, proc string, params Params) (map[string]string, error)
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, proc string, params Params) (map[string]string, error)

func (f TransportFunc) Call(ctx context.Context, proc string, params Params) (map[string]string, error) {
	return f(ctx, proc, params)
}
