package paysheet

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// config holds controller configuration assembled from Options.
type config struct {
	timeout time.Duration
	onError BindingErrorHandler

	beforeOpenHooks     []BeforeOpenHook
	afterOpenHooks      []AfterOpenHook
	afterCloseHooks     []AfterCloseHook
	externalCancelHooks []OnExternalCancelHook
	probeHooks          []OnProbeHook
	eventDeliveredHooks []OnEventDeliveredHook
}

// Option configures a Controller.
type Option func(*config)

// WithResponderTimeout sets the race window for controller-managed bindings.
// Default: DefaultResponderTimeout.
func WithResponderTimeout(d time.Duration) Option {
	return func(c *config) { c.timeout = d }
}

// WithErrorHandler routes responder errors from controller-managed bindings.
// Without it a responder error panics; see WithBindingErrorHandler.
func WithErrorHandler(h BindingErrorHandler) Option {
	return func(c *config) { c.onError = h }
}

// Controller owns the request lifecycle: handle construction and
// reconstruction from declarative options, the asynchronous support probe,
// the open/closed flag, and the host-cancel subscription. Attached bindings
// follow the live handle across reconstructions.
//
// All methods are safe for concurrent use.
type Controller struct {
	mu  sync.Mutex
	cfg config

	factory Factory
	opts    Options

	req       Request
	reqID     string
	probe     Probe
	probeGen  uint64
	open      bool
	cancelSub Subscription
	hasCancel bool

	bindings []*Binding

	ctx    context.Context // parents probe calls; canceled by Close
	stop   context.CancelFunc
	closed bool
}

// New creates a controller for factory with the given declarative options.
// A nil factory is allowed: the controller idles with no handle, a zero
// probe and no-op toggles until SetFactory delivers one.
func New(factory Factory, opts Options, copts ...Option) *Controller {
	cfg := config{timeout: DefaultResponderTimeout}
	for _, o := range copts {
		o(&cfg)
	}
	c := &Controller{cfg: cfg, opts: opts}
	c.ctx, c.stop = context.WithCancel(context.Background())

	c.mu.Lock()
	c.resetRequestLocked(factory)
	c.mu.Unlock()
	return c
}

// resetRequestLocked discards the current handle and constructs a fresh one
// for the current identity parameters. Updatable values are pinned to
// placeholders at construction; the real ones reach the handle on open.
// Bumping the probe generation orphans any in-flight support check.
func (c *Controller) resetRequestLocked(factory Factory) {
	if c.hasCancel {
		c.req.Off(EventCancel, c.cancelSub)
		c.hasCancel = false
	}
	c.factory = factory
	c.req = nil
	c.reqID = ""
	c.probeGen++
	c.probe = Probe{}

	if factory == nil {
		c.rebindLocked()
		return
	}

	req := factory.NewRequest(c.opts.withPlaceholders())
	c.req = req
	c.reqID = newRequestID()
	c.cancelSub = req.On(EventCancel, func(Event) { c.externalCancel(req) })
	c.hasCancel = true
	c.rebindLocked()
	c.startProbeLocked(req)
}

// startProbeLocked launches the support check for req. The generation
// counter keeps a slow probe from a superseded handle out of current state.
func (c *Controller) startProbeLocked(req Request) {
	c.probe = Probe{Loading: true}
	gen := c.probeGen
	reqID := c.reqID
	started := time.Now()

	go func() {
		value, err := req.CanMakePayment(c.ctx)

		c.mu.Lock()
		if c.closed || gen != c.probeGen {
			c.mu.Unlock()
			return
		}
		c.probe = Probe{Value: value, Err: err}
		probe := c.probe
		hooks := c.cfg.probeHooks
		c.mu.Unlock()

		for _, h := range hooks {
			h(ProbeContext{RequestID: reqID, Result: probe, Duration: time.Since(started)})
		}
	}()
}

// externalCancel forces the open flag down when the sheet reports its own
// dismissal. Cancels arriving from a superseded handle are ignored.
func (c *Controller) externalCancel(from Request) {
	c.mu.Lock()
	if c.closed || c.req != from {
		c.mu.Unlock()
		return
	}
	wasOpen := c.open
	c.open = false
	reqID := c.reqID
	hooks := c.cfg.externalCancelHooks
	c.mu.Unlock()

	for _, h := range hooks {
		h(CancelContext{RequestID: reqID, WasOpen: wasOpen, Timestamp: time.Now()})
	}
}

func (c *Controller) rebindLocked() {
	for _, b := range c.bindings {
		b.Rebind(c.req)
	}
}

// SetOptions applies a new declarative option set. A change to the identity
// parameters reconstructs the handle: the probe restarts and attached
// bindings move over. A change confined to the updatable subset touches
// nothing live; the new values surface on the next open or shipping flush.
func (c *Controller) SetOptions(opts Options) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	identityChanged := !c.opts.identity().equal(opts.identity())
	c.opts = opts
	if identityChanged {
		c.resetRequestLocked(c.factory)
	}
}

// SetFactory swaps the request factory. The provider session arriving after
// startup is the common case: New(nil, opts) first, SetFactory once it
// loads. The handle is reconstructed whenever the factory value changes.
func (c *Controller) SetFactory(factory Factory) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || factory == c.factory {
		return
	}
	c.resetRequestLocked(factory)
}

// Request returns the live handle, or nil before a factory arrives.
func (c *Controller) Request() Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.req
}

// RequestID returns the identifier of the live handle, "" when absent. Every
// reconstruction mints a fresh one; hook contexts carry it.
func (c *Controller) RequestID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reqID
}

// Probe returns the current support-check state.
func (c *Controller) Probe() Probe {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.probe
}

// Options returns the current declarative options.
func (c *Controller) Options() Options {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opts
}

// IsOpen reports the controller's open flag.
func (c *Controller) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

// SetOpen requests the sheet open or closed. See Toggle for the guards.
func (c *Controller) SetOpen(open bool) {
	c.Toggle(func(bool) bool { return open })
}

// Toggle computes the target state from the current flag and applies it.
// The request is silently dropped when no handle exists, the probe has not
// resolved with a wallet, the target equals the current flag, or the target
// equals the sheet's own showing state. Opening pushes the current updatable
// values and then shows; closing aborts when the capability supports it.
func (c *Controller) Toggle(fn func(open bool) bool) {
	c.mu.Lock()
	if c.closed || c.req == nil || !c.probe.Available() {
		c.mu.Unlock()
		return
	}
	req := c.req
	reqID := c.reqID

	next := fn(c.open)
	if next == c.open || next == req.IsShowing() {
		c.mu.Unlock()
		return
	}

	if next {
		octx := OpenContext{RequestID: reqID, Values: c.opts.Updatable(), Timestamp: time.Now()}
		for _, h := range c.cfg.beforeOpenHooks {
			result, err := h(octx)
			if err != nil || (result != nil && result.Abort) {
				c.mu.Unlock()
				return
			}
		}
		c.open = true
		after := c.cfg.afterOpenHooks
		c.mu.Unlock()

		// Update before Show: the placeholder construction values must never
		// render.
		req.Update(octx.Values)
		req.Show()
		for _, h := range after {
			h(octx)
		}
		return
	}

	c.open = false
	after := c.cfg.afterCloseHooks
	c.mu.Unlock()

	aborted := false
	if ab, ok := req.(Aborter); ok {
		ab.Abort()
		aborted = true
	}
	for _, h := range after {
		h(CloseContext{RequestID: reqID, Aborted: aborted, Timestamp: time.Now()})
	}
}

// Attach registers b for lifecycle management: it is rebound to the live
// handle now and after every reconstruction, and closed by Close. Attaching
// to a closed controller closes the binding immediately.
func (c *Controller) Attach(b *Binding) *Binding {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		b.Close()
		return b
	}
	c.bindings = append(c.bindings, b)
	b.Rebind(c.req)
	return b
}

// OnShippingAddressChange attaches a managed shipping-address binding. A nil
// values provider reads the controller's own current updatable options, so
// responders that call SetOptions get their new totals flushed. A nil
// respond attaches an inert binding.
func (c *Controller) OnShippingAddressChange(values ValueProvider, respond ShippingAddressResponder, opts ...BindOption) *Binding {
	if values == nil {
		values = c.updatableSnapshot
	}
	return c.Attach(HandleShippingAddressChange(nil, values, respond, c.bindOptions(opts)...))
}

// OnShippingOptionChange attaches a managed shipping-option binding; see
// OnShippingAddressChange.
func (c *Controller) OnShippingOptionChange(values ValueProvider, respond ShippingOptionResponder, opts ...BindOption) *Binding {
	if values == nil {
		values = c.updatableSnapshot
	}
	return c.Attach(HandleShippingOptionChange(nil, values, respond, c.bindOptions(opts)...))
}

// OnPaymentMethod attaches a managed paymentmethod binding. A nil respond
// attaches an inert binding.
func (c *Controller) OnPaymentMethod(respond PaymentMethodResponder, opts ...BindOption) *Binding {
	return c.Attach(HandlePaymentMethod(nil, respond, c.bindOptions(opts)...))
}

// OnSource attaches a managed source binding.
func (c *Controller) OnSource(respond SourceResponder, opts ...BindOption) *Binding {
	return c.Attach(HandleSource(nil, respond, c.bindOptions(opts)...))
}

// OnToken attaches a managed token binding.
func (c *Controller) OnToken(respond TokenResponder, opts ...BindOption) *Binding {
	return c.Attach(HandleToken(nil, respond, c.bindOptions(opts)...))
}

// updatableSnapshot is the default ValueProvider for managed shipping
// bindings.
func (c *Controller) updatableSnapshot() UpdateOptions {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opts.Updatable()
}

// bindOptions prepends controller defaults so explicit opts win.
func (c *Controller) bindOptions(opts []BindOption) []BindOption {
	base := []BindOption{WithTimeout(c.cfg.timeout)}
	if c.cfg.onError != nil {
		base = append(base, WithBindingErrorHandler(c.cfg.onError))
	}
	if len(c.cfg.eventDeliveredHooks) > 0 {
		base = append(base, withObserver(c.observeDelivery))
	}
	return append(base, opts...)
}

func (c *Controller) observeDelivery(event EventType, status string, d time.Duration, timedOut bool) {
	c.mu.Lock()
	hooks := c.cfg.eventDeliveredHooks
	c.mu.Unlock()

	for _, h := range hooks {
		h(EventDeliveryContext{Event: event, Status: status, Duration: d, TimedOut: timedOut})
	}
}

// Close tears the controller down: the in-flight probe is orphaned, the
// cancel subscription removed and every attached binding closed. The live
// handle itself needs no teardown beyond listener removal, so it is left
// alone. Idempotent; every method is a no-op afterwards.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	if c.hasCancel {
		c.req.Off(EventCancel, c.cancelSub)
		c.hasCancel = false
	}
	bindings := c.bindings
	c.bindings = nil
	c.mu.Unlock()

	c.stop()
	for _, b := range bindings {
		b.Close()
	}
}

// newRequestID mints a handle identifier: "req_" plus a UUID v4 without
// hyphens.
func newRequestID() string {
	return "req_" + strings.ReplaceAll(uuid.New().String(), "-", "")
}
