package health

import (
	"context"
	"runtime"

	"github.com/go-faster/errors"
)

// Pinger is implemented by pgxpool.Pool and the redis cache store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Ping checks a dependency by pinging it.
func Ping(p Pinger) Func {
	return func(ctx context.Context) error {
		if err := p.Ping(ctx); err != nil {
			return errors.Wrap(err, "ping")
		}
		return nil
	}
}

// Goroutines fails when more than limit goroutines are running.
func Goroutines(limit int) Func {
	return func(context.Context) error {
		if n := runtime.NumGoroutine(); n > limit {
			return errors.Errorf("%d goroutines exceed limit %d", n, limit)
		}
		return nil
	}
}
