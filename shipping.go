package paysheet

import (
	"context"
	"sync"
)

// ValueProvider supplies the updatable options a shipping flush applies. It
// runs at flush time, not when the event fires, so a responder that adjusts
// totals for the new address gets its adjustments onto the sheet.
type ValueProvider func() UpdateOptions

// ShippingAddressResponder prices or rejects a candidate shipping address.
type ShippingAddressResponder func(ctx context.Context, addr ShippingAddress) (UpdateStatus, error)

// ShippingOptionResponder prices or rejects a selected shipping option.
type ShippingOptionResponder func(ctx context.Context, opt ShippingOption) (UpdateStatus, error)

// HandleShippingAddressChange subscribes respond to shippingaddresschange
// events on req. Each event's raced status is latched and flushed back to the
// sheet: on UpdateSuccess the flush re-reads values and sends the display
// items, shipping options and total alongside the status; any other status
// goes out alone. values must be non-nil when respond is non-nil.
//
// A nil respond installs nothing on the request at all. A nil req defers
// registration until Rebind.
func HandleShippingAddressChange(req Request, values ValueProvider, respond ShippingAddressResponder, opts ...BindOption) *Binding {
	if respond == nil {
		return inertBinding(EventShippingAddressChange)
	}
	f := newShippingFlusher(values)
	return bindEvent(req, EventShippingAddressChange, UpdateFail, newBindConfig(opts), f,
		func(ctx context.Context, e *ShippingAddressChangeEvent) (UpdateStatus, error) {
			return respond(ctx, e.ShippingAddress)
		},
		func(e *ShippingAddressChangeEvent) func(UpdateStatus) {
			return func(status UpdateStatus) { f.arm(e.UpdateWith, status) }
		},
	)
}

// HandleShippingOptionChange subscribes respond to shippingoptionchange
// events on req, with the same latch-and-flush contract as
// HandleShippingAddressChange.
func HandleShippingOptionChange(req Request, values ValueProvider, respond ShippingOptionResponder, opts ...BindOption) *Binding {
	if respond == nil {
		return inertBinding(EventShippingOptionChange)
	}
	f := newShippingFlusher(values)
	return bindEvent(req, EventShippingOptionChange, UpdateFail, newBindConfig(opts), f,
		func(ctx context.Context, e *ShippingOptionChangeEvent) (UpdateStatus, error) {
			return respond(ctx, e.ShippingOption)
		},
		func(e *ShippingOptionChangeEvent) func(UpdateStatus) {
			return func(status UpdateStatus) { f.arm(e.UpdateWith, status) }
		},
	)
}

// pendingUpdate is one latched shipping response: the event's UpdateWith and
// the status the race settled on. Both land in the cell together.
type pendingUpdate struct {
	apply  func(UpdateDetails)
	status UpdateStatus
}

// shippingFlusher defers the UpdateWith call out of the delivery goroutine so
// the value provider is read after the responder's side effects landed. At
// most one response is pending: a newer one overwrites an unflushed
// predecessor and the superseded event never hears back. The sheet has
// already moved on from it, so answering would be talking to the past.
type shippingFlusher struct {
	mu      sync.Mutex
	pending *pendingUpdate

	values ValueProvider
	wake   chan struct{}
	done   chan struct{}
}

func newShippingFlusher(values ValueProvider) *shippingFlusher {
	f := &shippingFlusher{
		values: values,
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go f.run()
	return f
}

// arm latches a settled response, replacing any unflushed one, and wakes the
// flush goroutine. The buffered wake channel coalesces bursts.
func (f *shippingFlusher) arm(apply func(UpdateDetails), status UpdateStatus) {
	f.mu.Lock()
	f.pending = &pendingUpdate{apply: apply, status: status}
	f.mu.Unlock()

	select {
	case f.wake <- struct{}{}:
	default:
	}
}

func (f *shippingFlusher) run() {
	for {
		select {
		case <-f.wake:
			f.flush()
		case <-f.done:
			return
		}
	}
}

// flush consumes the pending cell. The cell clears before the capability call
// so a response armed while UpdateWith runs is kept, not lost.
func (f *shippingFlusher) flush() {
	f.mu.Lock()
	p := f.pending
	f.pending = nil
	f.mu.Unlock()

	if p == nil {
		return
	}
	if p.status != UpdateSuccess {
		p.apply(UpdateDetails{Status: p.status})
		return
	}
	vals := f.values()
	p.apply(UpdateDetails{
		Status:          UpdateSuccess,
		DisplayItems:    vals.DisplayItems,
		ShippingOptions: vals.ShippingOptions,
		Total:           &vals.Total,
	})
}

func (f *shippingFlusher) stop() {
	close(f.done)
}
