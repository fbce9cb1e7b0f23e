// Package notifier provides notification dispatching for alert events.
package notifier

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/driftwatch/driftwatch/internal/models"
)

// Notifier is the interface for all notification channels.
type Notifier interface {
	// Name returns the notifier name (e.g., "webhook", "sns").
	Name() string
	// Send delivers an alert event.
	Send(ctx context.Context, event *models.AlertEvent) error
	// Close releases any resources.
	Close() error
}

// ErrRateLimited is returned when a notification is dropped by rate limiting.
var ErrRateLimited = errors.New("notification rate limited")

// Options configures a Dispatcher.
type Options struct {
	// Timeout bounds each delivery attempt. Default: 10s.
	Timeout time.Duration
	// RatePerMinute caps dispatches per minute. 0 selects the default 10;
	// negative disables limiting.
	RatePerMinute int
}

// DefaultOptions returns default dispatcher options.
func DefaultOptions() Options {
	return Options{
		Timeout:       10 * time.Second,
		RatePerMinute: 10,
	}
}

// Dispatcher fans an alert event out to all registered notifiers. Deliveries
// are bounded by a timeout and retried once; a channel that still fails has
// its event dropped with a log line. Dispatch failures never propagate
// engine state corruption: the dispatcher only reads the event.
type Dispatcher struct {
	mu        sync.RWMutex
	notifiers map[string]Notifier
	limiter   *rate.Limiter
	timeout   time.Duration

	dropped int64
}

// NewDispatcher creates a dispatcher with the given options.
func NewDispatcher(opts Options) *Dispatcher {
	def := DefaultOptions()
	if opts.Timeout <= 0 {
		opts.Timeout = def.Timeout
	}
	if opts.RatePerMinute == 0 {
		opts.RatePerMinute = def.RatePerMinute
	}

	var limiter *rate.Limiter
	if opts.RatePerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(opts.RatePerMinute)/60), opts.RatePerMinute)
	}

	return &Dispatcher{
		notifiers: make(map[string]Notifier),
		limiter:   limiter,
		timeout:   opts.Timeout,
	}
}

// Register adds a notifier to the dispatcher.
func (d *Dispatcher) Register(n Notifier) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.notifiers[n.Name()] = n
}

// Unregister removes a notifier from the dispatcher.
func (d *Dispatcher) Unregister(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.notifiers, name)
}

// Len returns the number of registered notifiers.
func (d *Dispatcher) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.notifiers)
}

// Dispatch sends an event to all registered notifiers. Returns
// ErrRateLimited when the event is dropped by rate limiting, otherwise the
// combined per-channel errors after retries.
func (d *Dispatcher) Dispatch(ctx context.Context, event *models.AlertEvent) error {
	if d.limiter != nil && !d.limiter.Allow() {
		d.mu.Lock()
		d.dropped++
		d.mu.Unlock()
		return ErrRateLimited
	}

	d.mu.RLock()
	notifiers := make([]Notifier, 0, len(d.notifiers))
	for _, n := range d.notifiers {
		notifiers = append(notifiers, n)
	}
	d.mu.RUnlock()

	var errs []error
	for _, n := range notifiers {
		if err := d.sendWithRetry(ctx, n, event); err != nil {
			log.Printf("notifier %s: dropping alert %s after retry: %v", n.Name(), event.ID, err)
			errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("notification errors: %v", errs)
	}
	return nil
}

// sendWithRetry attempts a delivery twice, each attempt bounded by the
// dispatcher timeout.
func (d *Dispatcher) sendWithRetry(ctx context.Context, n Notifier, event *models.AlertEvent) error {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		attemptCtx, cancel := context.WithTimeout(ctx, d.timeout)
		err := n.Send(attemptCtx, event)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err
	}
	return lastErr
}

// Dropped returns the number of events dropped by rate limiting.
func (d *Dispatcher) Dropped() int64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.dropped
}

// Close closes all registered notifiers.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var errs []error
	for name, n := range d.notifiers {
		if err := n.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	d.notifiers = make(map[string]Notifier)

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
