package lifecycle

import (
	"context"
	"io"
)

// Hook describes a named shutdown hook.
type Hook struct {
	Name string
	Fn   func(ctx context.Context) error
}

// Closer adapts an io.Closer, such as a redis client or a log file, to a hook func.
func Closer(c io.Closer) func(context.Context) error {
	return func(context.Context) error {
		if c == nil {
			return nil
		}
		return c.Close()
	}
}

// Func adapts a context-free stop function.
func Func(fn func()) func(context.Context) error {
	return func(context.Context) error {
		if fn != nil {
			fn()
		}
		return nil
	}
}
