package paysheet

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

// fakeRequest is an in-memory Request for tests. It records capability
// traffic in call order and fires events synchronously on the calling
// goroutine, the way a host dispatch loop would.
type fakeRequest struct {
	mu         sync.Mutex
	opts       Options
	support    *SupportResult
	supportErr error
	gate       chan struct{} // when non-nil, CanMakePayment blocks until closed
	showing    bool
	updates    []UpdateOptions
	trace      []string
	handlers   map[EventType]map[Subscription]Handler
	nextSub    Subscription
}

func newFakeRequest() *fakeRequest {
	return &fakeRequest{
		support:  &SupportResult{ApplePay: true},
		handlers: make(map[EventType]map[Subscription]Handler),
	}
}

func (r *fakeRequest) CanMakePayment(ctx context.Context) (*SupportResult, error) {
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

func (r *fakeRequest) IsShowing() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.showing
}

func (r *fakeRequest) Show() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.showing = true
	r.trace = append(r.trace, "show")
}

func (r *fakeRequest) Abort() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.showing = false
	r.trace = append(r.trace, "abort")
}

func (r *fakeRequest) Update(opts UpdateOptions) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, opts)
	r.trace = append(r.trace, "update")
}

func (r *fakeRequest) On(event EventType, h Handler) Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextSub++
	sub := r.nextSub
	m := r.handlers[event]
	if m == nil {
		m = make(map[Subscription]Handler)
		r.handlers[event] = m
	}
	m[sub] = h
	r.trace = append(r.trace, fmt.Sprintf("on:%s", event))
	return sub
}

func (r *fakeRequest) Off(event EventType, sub Subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handlers[event], sub)
	r.trace = append(r.trace, fmt.Sprintf("off:%s", event))
}

// fire delivers ev to every registered handler, lock released first.
func (r *fakeRequest) fire(ev Event) int {
	r.mu.Lock()
	hs := make([]Handler, 0, len(r.handlers[ev.Type()]))
	for _, h := range r.handlers[ev.Type()] {
		hs = append(hs, h)
	}
	r.mu.Unlock()

	for _, h := range hs {
		h(ev)
	}
	return len(hs)
}

// cancelFromHost models the payer dismissing the sheet.
func (r *fakeRequest) cancelFromHost() {
	r.mu.Lock()
	r.showing = false
	r.mu.Unlock()
	r.fire(&CancelEvent{})
}

func (r *fakeRequest) handlerCount(event EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handlers[event])
}

func (r *fakeRequest) traceCopy() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.trace))
	copy(out, r.trace)
	return out
}

func (r *fakeRequest) traceCount(entry string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.trace {
		if e == entry {
			n++
		}
	}
	return n
}

func (r *fakeRequest) updatesCopy() []UpdateOptions {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]UpdateOptions, len(r.updates))
	copy(out, r.updates)
	return out
}

// fakeFactory records every construction. Support scripting set on the
// factory is snapshotted into each request it builds.
type fakeFactory struct {
	mu         sync.Mutex
	support    *SupportResult
	supportErr error
	gate       chan struct{}
	requests   []*fakeRequest
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{support: &SupportResult{ApplePay: true}}
}

func (f *fakeFactory) NewRequest(opts Options) Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := newFakeRequest()
	r.opts = opts
	r.support = f.support
	r.supportErr = f.supportErr
	r.gate = f.gate
	f.requests = append(f.requests, r)
	return r
}

func (f *fakeFactory) setSupport(s *SupportResult) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.support = s
}

func (f *fakeFactory) constructed() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *fakeFactory) request(i int) *fakeRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[i]
}

func (f *fakeFactory) last() *fakeRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, d time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(2 * time.Millisecond)
	}
	return cond()
}
