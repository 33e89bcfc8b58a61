package wrap

import (
	"context"
	"errors"
)

// errorWithLogCtx carries the log context of the place where an error was produced
type errorWithLogCtx struct {
	err    error
	logCtx LogCtx
}

func (e *errorWithLogCtx) Error() string {
	return e.err.Error()
}

func (e *errorWithLogCtx) Unwrap() error {
	return e.err
}

// Error attaches the LogCtx of ctx to err. Returns nil for a nil err.
func Error(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}

	// already wrapped at the top level: refresh the context only
	if e, ok := err.(*errorWithLogCtx); ok {
		e.logCtx = current(ctx)
		return e
	}

	return &errorWithLogCtx{
		err:    err,
		logCtx: current(ctx),
	}
}

// ErrorCtx merges the LogCtx stored in err (if any) into ctx
func ErrorCtx(ctx context.Context, err error) context.Context {
	var e *errorWithLogCtx
	if errors.As(err, &e) && e != nil {
		return WithLogCtx(ctx, e.logCtx)
	}
	return ctx
}
