package shutdown

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// Timeout bounds how long a service waits for in-flight work on shutdown.
const Timeout = 10 * time.Second

// WithSignals returns a context cancelled on SIGINT/SIGTERM.
func WithSignals(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-ch:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(ch)
	}()

	return ctx, cancel
}
