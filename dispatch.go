package paysheet

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// BindingErrorHandler receives responder errors. The event's completion path
// is skipped when the responder errors, so the handler is the only place the
// failure surfaces.
type BindingErrorHandler func(event EventType, err error)

// BindOption configures a single binding.
type BindOption func(*bindConfig)

type bindConfig struct {
	timeout time.Duration
	onError BindingErrorHandler
	observe func(event EventType, status string, d time.Duration, timedOut bool)
}

// WithTimeout overrides DefaultResponderTimeout for one binding.
func WithTimeout(d time.Duration) BindOption {
	return func(c *bindConfig) { c.timeout = d }
}

// WithBindingErrorHandler routes responder errors to h. Without a handler a
// responder error panics: swallowing it would hide a merchant-side bug behind
// a sheet that silently reports failure.
func WithBindingErrorHandler(h BindingErrorHandler) BindOption {
	return func(c *bindConfig) { c.onError = h }
}

// withObserver reports settled deliveries; the Controller uses it to feed
// OnEventDelivered hooks.
func withObserver(fn func(event EventType, status string, d time.Duration, timedOut bool)) BindOption {
	return func(c *bindConfig) { c.observe = fn }
}

func newBindConfig(opts []BindOption) bindConfig {
	cfg := bindConfig{timeout: DefaultResponderTimeout}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

func (c bindConfig) fail(event EventType, err error) {
	if c.onError != nil {
		c.onError(event, err)
		return
	}
	panic(NewRequestError(ErrCodeResponderFailed,
		fmt.Sprintf("%s responder failed: %v", event, err), nil))
}

// Binding joins one event kind on one request to one responder pipeline. It
// re-targets to another request through Rebind and tears down through Close;
// both remove the previous registration before anything else, so an event is
// never delivered twice or to a dead handler.
//
// A binding created without a responder is inert: it never registers anything
// on any request, but Rebind and Close still work so callers can treat every
// binding uniformly.
type Binding struct {
	mu      sync.Mutex
	event   EventType
	handler Handler // nil when no responder was supplied
	req     Request
	sub     Subscription
	bound   bool
	closed  bool

	flusher *shippingFlusher // shipping kinds only
	ctx     context.Context
	cancel  context.CancelFunc
}

// Event returns the event kind this binding listens for.
func (b *Binding) Event() EventType { return b.event }

// Rebind moves the registration to req, removing the previous one first.
// A nil req, a closed binding, or an inert binding ends up registered
// nowhere.
func (b *Binding) Rebind(req Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.bound {
		b.req.Off(b.event, b.sub)
		b.bound = false
	}
	b.req = req
	if b.closed || b.handler == nil || req == nil {
		return
	}
	b.sub = req.On(b.event, b.handler)
	b.bound = true
}

// Close removes the registration, cancels in-flight responder contexts and
// stops the deferred-update flusher if the binding carries one. Idempotent;
// Rebind becomes a no-op afterwards.
func (b *Binding) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	if b.bound {
		b.req.Off(b.event, b.sub)
		b.bound = false
	}
	b.mu.Unlock()

	b.cancel()
	if b.flusher != nil {
		b.flusher.stop()
	}
}

// inertBinding is the no-responder binding.
func inertBinding(event EventType) *Binding {
	b := &Binding{event: event}
	b.ctx, b.cancel = context.WithCancel(context.Background())
	return b
}

// bindEvent installs the race-and-complete pipeline for one event kind:
// events of type E race respond against cfg.timeout, and whichever status
// settles first goes out through the completion function complete extracts
// from the event. Delivery happens off the request's dispatch goroutine.
func bindEvent[E Event, S ~string](
	req Request,
	event EventType,
	fallback S,
	cfg bindConfig,
	flusher *shippingFlusher,
	respond func(context.Context, E) (S, error),
	complete func(E) func(S),
) *Binding {
	b := &Binding{event: event, flusher: flusher}
	b.ctx, b.cancel = context.WithCancel(context.Background())
	b.handler = func(ev Event) {
		e, ok := ev.(E)
		if !ok {
			return
		}
		go deliver(b, e, fallback, cfg, respond, complete)
	}
	b.Rebind(req)
	return b
}

// deliver runs one event through the race and hands the settled status to the
// event's completion function. Runs on its own goroutine per event.
func deliver[E Event, S ~string](
	b *Binding,
	e E,
	fallback S,
	cfg bindConfig,
	respond func(context.Context, E) (S, error),
	complete func(E) func(S),
) {
	started := time.Now()
	status, timedOut, err := raceStatus(b.ctx, cfg.timeout, fallback, func(ctx context.Context) (S, error) {
		return respond(ctx, e)
	})
	if err != nil {
		cfg.fail(b.event, err)
		return
	}
	complete(e)(status)
	if cfg.observe != nil {
		cfg.observe(b.event, string(status), time.Since(started), timedOut)
	}
}
