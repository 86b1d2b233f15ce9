// Package stacktrace trims panic stacks to the frames of this module.
package stacktrace

import (
	"context"
	"log/slog"
	"runtime"
	"runtime/debug"
	"strconv"
	"strings"
)

const maxDepth = 64

// InternalFrames returns "internal/<pkg>/<file>.go:<line>" for each frame of
// the calling goroutine that lives under an internal/ directory. skip counts
// frames above the caller, as in runtime.Callers.
func InternalFrames(skip int) []string {
	pcs := make([]uintptr, maxDepth)
	n := runtime.Callers(skip+2, pcs)
	frames := runtime.CallersFrames(pcs[:n])

	var out []string
	for {
		f, more := frames.Next()
		// Standard library internal packages have bare "internal/..." function names.
		if i := strings.LastIndex(f.File, "/internal/"); i >= 0 && !strings.HasPrefix(f.Function, "internal/") {
			out = append(out, f.File[i+1:]+":"+strconv.Itoa(f.Line))
		}
		if !more {
			return out
		}
	}
}

// LogPanic records a recovered value. It must be called from the deferred
// function that recovered, so the panicking frames are still on the stack.
func LogPanic(ctx context.Context, msg string, rvr any, attrs ...any) {
	attrs = append(attrs, "panic", rvr)
	if frames := InternalFrames(1); len(frames) > 0 {
		attrs = append(attrs, "stack", frames)
	} else {
		attrs = append(attrs, "stack", string(debug.Stack()))
	}
	slog.ErrorContext(ctx, msg, attrs...)
}
