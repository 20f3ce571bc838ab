package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Dispatcher sends each message on its own goroutine. Failures are logged
// and never reach the caller.
type Dispatcher struct {
	sender  Sender
	log     *slog.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewDispatcher(log *slog.Logger, sender Sender, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Dispatcher{
		sender:  sender,
		log:     log.With(slog.String("component", "notify/dispatcher")),
		timeout: timeout,
	}
}

func (d *Dispatcher) Notify(ctx context.Context, msg Message) {
	// detached from the request: the response must not wait on delivery
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer cancel()

		if err := d.sender.Send(ctx, msg); err != nil {
			d.log.Error("failed to send notification",
				slog.String("to", msg.To),
				slog.String("subject", msg.Subject),
				slog.String("error", err.Error()),
			)
			return
		}

		d.log.Debug("notification sent", slog.String("to", msg.To), slog.String("subject", msg.Subject))
	}()
}

// Wait blocks until in-flight sends finish or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
