package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const defaultDispatchTimeout = 30 * time.Second

// DispatcherOptions configures a Dispatcher.
type DispatcherOptions struct {
	Timeout time.Duration
	Logger  *slog.Logger
	// OnDone, when set, observes every finished delivery.
	OnDone func(kind Kind, err error)
}

// Dispatcher runs notifications off the request path. A delivery gets its own
// context, so it outlives the request that triggered it; failures are logged
// and dropped.
type Dispatcher struct {
	notifier Notifier
	timeout  time.Duration
	logger   *slog.Logger
	onDone   func(Kind, error)
	wg       sync.WaitGroup
}

func NewDispatcher(n Notifier, opts DispatcherOptions) *Dispatcher {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultDispatchTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		notifier: n,
		timeout:  timeout,
		logger:   logger,
		onDone:   opts.OnDone,
	}
}

// Dispatch starts delivery in the background and returns immediately.
func (d *Dispatcher) Dispatch(ev Event) {
	if d == nil || d.notifier == nil {
		return
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				d.logger.Error("notification panicked", "kind", string(ev.Kind), "submission_id", ev.Submission.ID, "panic", r)
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		err := d.notifier.Notify(ctx, ev)
		if err != nil {
			d.logger.Error("notification failed", "kind", string(ev.Kind), "submission_id", ev.Submission.ID, "err", err)
		} else {
			d.logger.Debug("notification sent", "kind", string(ev.Kind), "submission_id", ev.Submission.ID)
		}
		if d.onDone != nil {
			d.onDone(ev.Kind, err)
		}
	}()
}

// Wait blocks until in-flight deliveries finish or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	if d == nil {
		return nil
	}
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
