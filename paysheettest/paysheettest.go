// Package paysheettest provides scripted in-memory implementations of the
// paysheet capability contract.
//
// Factory and Request stand in for a real sheet host in tests and demos:
// they record every capability call in order, script the support probe, and
// fire events into registered handlers the way a host dispatch loop would.
// The Fire helpers return buffered channels carrying whatever the bindings
// send back, so tests can assert on responses without wiring their own
// plumbing.
package paysheettest

import (
	"context"
	"fmt"
	"sync"

	"github.com/paysheet/paysheet"
)

// Factory constructs scripted Requests and records every construction.
// Mutating the scripting fields between constructions scripts successive
// handles differently; each Request snapshots them when built.
type Factory struct {
	mu sync.Mutex

	support    *paysheet.SupportResult
	supportErr error
	gate       chan struct{}
	requests   []*Request
}

// NewFactory returns a factory whose requests report support for every
// wallet.
func NewFactory() *Factory {
	return &Factory{
		support: &paysheet.SupportResult{ApplePay: true, GooglePay: true, Link: true},
	}
}

// ScriptSupport sets the result the next constructed requests resolve their
// support check with. A nil result models a host where no wallet can pay.
func (f *Factory) ScriptSupport(result *paysheet.SupportResult, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.support = result
	f.supportErr = err
}

// GateProbe makes subsequently constructed requests block their support
// check until the returned release function is called.
func (f *Factory) GateProbe() (release func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	gate := make(chan struct{})
	f.gate = gate
	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }
}

// NewRequest implements paysheet.Factory.
func (f *Factory) NewRequest(opts paysheet.Options) paysheet.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := &Request{
		opts:       opts,
		support:    f.support,
		supportErr: f.supportErr,
		gate:       f.gate,
		handlers:   make(map[paysheet.EventType]map[paysheet.Subscription]paysheet.Handler),
	}
	f.requests = append(f.requests, r)
	return r
}

// Constructed returns how many requests the factory has built.
func (f *Factory) Constructed() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

// Request returns the i-th constructed request.
func (f *Factory) Request(i int) *Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[i]
}

// Last returns the most recently constructed request. It panics when nothing
// was constructed yet.
func (f *Factory) Last() *Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

// Request is a scripted in-memory payment request.
type Request struct {
	mu sync.Mutex

	opts       paysheet.Options
	support    *paysheet.SupportResult
	supportErr error
	gate       chan struct{}

	showing bool
	updates []paysheet.UpdateOptions
	calls   []string

	handlers map[paysheet.EventType]map[paysheet.Subscription]paysheet.Handler
	nextSub  paysheet.Subscription
}

// ConstructionOptions returns the options the request was built with.
func (r *Request) ConstructionOptions() paysheet.Options {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.opts
}

// CanMakePayment implements paysheet.Request. It blocks on the factory's
// probe gate when one was armed.
func (r *Request) CanMakePayment(ctx context.Context) (*paysheet.SupportResult, error) {
	r.mu.Lock()
	gate := r.gate
	r.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.support, r.supportErr
}

// IsShowing implements paysheet.Request.
func (r *Request) IsShowing() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.showing
}

// Show implements paysheet.Request.
func (r *Request) Show() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.showing = true
	r.calls = append(r.calls, "show")
}

// Abort implements paysheet.Aborter.
func (r *Request) Abort() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.showing = false
	r.calls = append(r.calls, "abort")
}

// Update implements paysheet.Request.
func (r *Request) Update(opts paysheet.UpdateOptions) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, opts)
	r.calls = append(r.calls, "update")
}

// On implements paysheet.Request.
func (r *Request) On(event paysheet.EventType, h paysheet.Handler) paysheet.Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextSub++
	sub := r.nextSub
	m := r.handlers[event]
	if m == nil {
		m = make(map[paysheet.Subscription]paysheet.Handler)
		r.handlers[event] = m
	}
	m[sub] = h
	r.calls = append(r.calls, fmt.Sprintf("on:%s", event))
	return sub
}

// Off implements paysheet.Request.
func (r *Request) Off(event paysheet.EventType, sub paysheet.Subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handlers[event], sub)
	r.calls = append(r.calls, fmt.Sprintf("off:%s", event))
}

// Calls returns the capability calls in order: "show", "abort", "update",
// "on:<event>" and "off:<event>" entries.
func (r *Request) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.calls))
	copy(out, r.calls)
	return out
}

// Updates returns every pushed update in order.
func (r *Request) Updates() []paysheet.UpdateOptions {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]paysheet.UpdateOptions, len(r.updates))
	copy(out, r.updates)
	return out
}

// HandlerCount returns the number of live handlers for event.
func (r *Request) HandlerCount(event paysheet.EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handlers[event])
}

// Fire delivers ev to every handler registered for its type and reports how
// many there were. Handlers run on the calling goroutine with no lock held.
func (r *Request) Fire(ev paysheet.Event) int {
	r.mu.Lock()
	hs := make([]paysheet.Handler, 0, len(r.handlers[ev.Type()]))
	for _, h := range r.handlers[ev.Type()] {
		hs = append(hs, h)
	}
	r.mu.Unlock()

	for _, h := range hs {
		h(ev)
	}
	return len(hs)
}

// Cancel models the payer dismissing the sheet: the showing flag drops and a
// cancel event fires.
func (r *Request) Cancel() {
	r.mu.Lock()
	r.showing = false
	r.mu.Unlock()
	r.Fire(&paysheet.CancelEvent{})
}

// FireShippingAddressChange fires a shippingaddresschange event. The returned
// channel receives every UpdateWith response; its capacity of 2 lets tests
// detect double responses.
func (r *Request) FireShippingAddressChange(addr paysheet.ShippingAddress) <-chan paysheet.UpdateDetails {
	ch := make(chan paysheet.UpdateDetails, 2)
	r.Fire(&paysheet.ShippingAddressChangeEvent{
		ShippingAddress: addr,
		UpdateWith:      func(d paysheet.UpdateDetails) { ch <- d },
	})
	return ch
}

// FireShippingOptionChange fires a shippingoptionchange event; see
// FireShippingAddressChange.
func (r *Request) FireShippingOptionChange(opt paysheet.ShippingOption) <-chan paysheet.UpdateDetails {
	ch := make(chan paysheet.UpdateDetails, 2)
	r.Fire(&paysheet.ShippingOptionChangeEvent{
		ShippingOption: opt,
		UpdateWith:     func(d paysheet.UpdateDetails) { ch <- d },
	})
	return ch
}

// FirePaymentMethod fires a paymentmethod event. The returned channel
// receives every Complete verdict.
func (r *Request) FirePaymentMethod(p paysheet.PaymentMethodPayload) <-chan paysheet.CompletionStatus {
	ch := make(chan paysheet.CompletionStatus, 2)
	r.Fire(&paysheet.PaymentMethodEvent{
		PaymentMethodPayload: p,
		Complete:             func(s paysheet.CompletionStatus) { ch <- s },
	})
	return ch
}

// FireSource fires a source event; see FirePaymentMethod.
func (r *Request) FireSource(p paysheet.SourcePayload) <-chan paysheet.CompletionStatus {
	ch := make(chan paysheet.CompletionStatus, 2)
	r.Fire(&paysheet.SourceEvent{
		SourcePayload: p,
		Complete:      func(s paysheet.CompletionStatus) { ch <- s },
	})
	return ch
}

// FireToken fires a token event; see FirePaymentMethod.
func (r *Request) FireToken(p paysheet.TokenPayload) <-chan paysheet.CompletionStatus {
	ch := make(chan paysheet.CompletionStatus, 2)
	r.Fire(&paysheet.TokenEvent{
		TokenPayload: p,
		Complete:     func(s paysheet.CompletionStatus) { ch <- s },
	})
	return ch
}
