package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/paysheet/paysheet"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1 << 20
)

// Session speaks the bridge protocol over one websocket connection. It is a
// paysheet.Factory: every handle it constructs lives on the host side of the
// connection, and the session relays capability calls out and events back.
//
// A session ends when the connection drops, the host misbehaves, or Close is
// called; Done is closed either way and every constructed handle goes dead
// with it.
type Session struct {
	conn *websocket.Conn

	writeMu sync.Mutex

	mu       sync.Mutex
	requests map[string]*Request
	waiters  map[string]chan supportReply
	opts     paysheet.Options
	err      error

	nextCorr   atomic.Uint64
	configured chan struct{}
	confOnce   sync.Once
	done       chan struct{}
	closeOnce  sync.Once
}

type supportReply struct {
	result *paysheet.SupportResult
	err    error
}

func newSession(conn *websocket.Conn) *Session {
	s := &Session{
		conn:       conn,
		requests:   make(map[string]*Request),
		waiters:    make(map[string]chan supportReply),
		configured: make(chan struct{}),
		done:       make(chan struct{}),
	}
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	go s.readLoop()
	go s.pingLoop()
	return s
}

// Done is closed when the session ends.
func (s *Session) Done() <-chan struct{} { return s.done }

// Err returns what ended the session: nil after a local Close, the transport
// or protocol error otherwise. Only meaningful after Done is closed.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close ends the session and releases every waiter. Idempotent.
func (s *Session) Close() error {
	s.closeWithErr(nil)
	return nil
}

// WaitConfigured blocks until the host delivers a valid configure message
// and returns its options. Invalid documents are answered with an error
// message and waiting continues.
func (s *Session) WaitConfigured(ctx context.Context) (paysheet.Options, error) {
	select {
	case <-s.configured:
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.opts, nil
	case <-s.done:
		return paysheet.Options{}, paysheet.NewRequestError(paysheet.ErrCodeTransportClosed,
			"session ended before the host configured", nil)
	case <-ctx.Done():
		return paysheet.Options{}, ctx.Err()
	}
}

// NewRequest implements paysheet.Factory. The handle is registered locally
// and announced to the host with a create message carrying the construction
// options. Handles on a dead session are inert: calls go nowhere and the
// support check reports the transport error.
func (s *Session) NewRequest(opts paysheet.Options) paysheet.Request {
	r := &Request{
		s:        s,
		id:       "pr_" + strings.ReplaceAll(uuid.New().String(), "-", ""),
		handlers: make(map[paysheet.EventType]map[paysheet.Subscription]paysheet.Handler),
	}

	s.mu.Lock()
	s.requests[r.id] = r
	s.mu.Unlock()

	raw, err := json.Marshal(opts)
	if err != nil {
		s.closeWithErr(fmt.Errorf("failed to encode construction options: %w", err))
		return r
	}
	s.send(Message{Type: MessageCreate, RequestID: r.id, Options: raw})
	return r
}

func (s *Session) send(msg Message) error {
	select {
	case <-s.done:
		return paysheet.NewRequestError(paysheet.ErrCodeTransportClosed, "session is closed", nil)
	default:
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := s.conn.WriteJSON(msg); err != nil {
		werr := paysheet.NewRequestError(paysheet.ErrCodeTransportFailed,
			fmt.Sprintf("failed to write %s message: %v", msg.Type, err), nil)
		s.closeWithErr(werr)
		return werr
	}
	return nil
}

// sendError reports a host protocol violation without ending the session.
func (s *Session) sendError(id, requestID string, err error) {
	s.send(Message{Type: MessageError, ID: id, RequestID: requestID, Error: err.Error()})
}

func (s *Session) closeWithErr(err error) {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
		close(s.done)
		s.conn.Close()
	})
}

func (s *Session) readLoop() {
	for {
		var msg Message
		if err := s.conn.ReadJSON(&msg); err != nil {
			s.closeWithErr(err)
			return
		}
		s.handleMessage(msg)
	}
}

func (s *Session) pingLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				s.closeWithErr(err)
				return
			}
		case <-s.done:
			return
		}
	}
}

func (s *Session) handleMessage(msg Message) {
	switch msg.Type {
	case MessageConfigure:
		opts, err := paysheet.ValidateOptionsJSON(msg.Options)
		if err != nil {
			s.sendError(msg.ID, "", err)
			return
		}
		s.mu.Lock()
		s.opts = opts
		s.mu.Unlock()
		s.confOnce.Do(func() { close(s.configured) })

	case MessageCanMakePaymentResult:
		s.mu.Lock()
		ch, ok := s.waiters[msg.ID]
		delete(s.waiters, msg.ID)
		s.mu.Unlock()
		if !ok {
			return
		}
		reply := supportReply{result: msg.Result}
		if msg.Error != "" {
			reply = supportReply{err: paysheet.NewRequestError(paysheet.ErrCodeProbeFailed, msg.Error, nil)}
		}
		ch <- reply

	case MessageShowing:
		if r := s.request(msg.RequestID); r != nil && msg.Showing != nil {
			r.setShowing(*msg.Showing)
		}

	case MessageEvent:
		r := s.request(msg.RequestID)
		if r == nil {
			s.sendError("", msg.RequestID, paysheet.NewRequestError(paysheet.ErrCodeUnknownRequest,
				fmt.Sprintf("no request %q on this session", msg.RequestID), nil))
			return
		}
		ev, err := s.buildEvent(r, msg)
		if err != nil {
			s.sendError("", msg.RequestID, err)
			return
		}
		r.dispatch(ev)
	}
}

// buildEvent turns an inbound event message into the typed event the
// bindings expect. The completion functions write back through the session,
// tagged with the host's event ID.
func (s *Session) buildEvent(r *Request, msg Message) (paysheet.Event, error) {
	updateWith := func(d paysheet.UpdateDetails) {
		s.send(Message{Type: MessageUpdateWith, RequestID: r.id, EventID: msg.EventID, Details: &d})
	}
	complete := func(status paysheet.CompletionStatus) {
		s.send(Message{Type: MessageComplete, RequestID: r.id, EventID: msg.EventID, Status: string(status)})
	}

	switch msg.Event {
	case paysheet.EventCancel:
		r.setShowing(false)
		return &paysheet.CancelEvent{}, nil

	case paysheet.EventShippingAddressChange:
		var p shippingPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return nil, fmt.Errorf("failed to decode shipping address payload: %w", err)
		}
		return &paysheet.ShippingAddressChangeEvent{ShippingAddress: p.ShippingAddress, UpdateWith: updateWith}, nil

	case paysheet.EventShippingOptionChange:
		var p shippingPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return nil, fmt.Errorf("failed to decode shipping option payload: %w", err)
		}
		return &paysheet.ShippingOptionChangeEvent{ShippingOption: p.ShippingOption, UpdateWith: updateWith}, nil

	case paysheet.EventPaymentMethod:
		var p paysheet.PaymentMethodPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return nil, fmt.Errorf("failed to decode payment method payload: %w", err)
		}
		return &paysheet.PaymentMethodEvent{PaymentMethodPayload: p, Complete: complete}, nil

	case paysheet.EventSource:
		var p paysheet.SourcePayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return nil, fmt.Errorf("failed to decode source payload: %w", err)
		}
		return &paysheet.SourceEvent{SourcePayload: p, Complete: complete}, nil

	case paysheet.EventToken:
		var p paysheet.TokenPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return nil, fmt.Errorf("failed to decode token payload: %w", err)
		}
		return &paysheet.TokenEvent{TokenPayload: p, Complete: complete}, nil
	}

	return nil, paysheet.NewRequestError(paysheet.ErrCodeUnsupportedEvent,
		fmt.Sprintf("unsupported event type %q", msg.Event), nil)
}

func (s *Session) request(id string) *Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[id]
}

// Request is a handle whose real sheet lives on the host side of a Session.
type Request struct {
	s  *Session
	id string

	mu       sync.Mutex
	showing  bool
	handlers map[paysheet.EventType]map[paysheet.Subscription]paysheet.Handler
	nextSub  paysheet.Subscription
}

// ID returns the handle's wire identifier.
func (r *Request) ID() string { return r.id }

// CanMakePayment implements paysheet.Request. It round-trips the support
// check through the host and waits for the correlated reply.
func (r *Request) CanMakePayment(ctx context.Context) (*paysheet.SupportResult, error) {
	corr := fmt.Sprintf("c%d", r.s.nextCorr.Add(1))
	ch := make(chan supportReply, 1)

	r.s.mu.Lock()
	r.s.waiters[corr] = ch
	r.s.mu.Unlock()

	if err := r.s.send(Message{Type: MessageCanMakePayment, ID: corr, RequestID: r.id}); err != nil {
		r.s.dropWaiter(corr)
		return nil, err
	}

	select {
	case reply := <-ch:
		return reply.result, reply.err
	case <-r.s.done:
		return nil, paysheet.NewRequestError(paysheet.ErrCodeTransportClosed,
			"session ended before the support check resolved", nil)
	case <-ctx.Done():
		r.s.dropWaiter(corr)
		return nil, ctx.Err()
	}
}

func (s *Session) dropWaiter(corr string) {
	s.mu.Lock()
	delete(s.waiters, corr)
	s.mu.Unlock()
}

// IsShowing implements paysheet.Request. The local mirror follows Show and
// Abort optimistically and the host's showing and cancel messages
// authoritatively.
func (r *Request) IsShowing() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.showing
}

func (r *Request) setShowing(v bool) {
	r.mu.Lock()
	r.showing = v
	r.mu.Unlock()
}

// Show implements paysheet.Request.
func (r *Request) Show() {
	r.setShowing(true)
	r.s.send(Message{Type: MessageShow, RequestID: r.id})
}

// Abort implements paysheet.Aborter.
func (r *Request) Abort() {
	r.setShowing(false)
	r.s.send(Message{Type: MessageAbort, RequestID: r.id})
}

// Update implements paysheet.Request.
func (r *Request) Update(opts paysheet.UpdateOptions) {
	r.s.send(Message{Type: MessageUpdate, RequestID: r.id, Update: &opts})
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
	return sub
}

// Off implements paysheet.Request.
func (r *Request) Off(event paysheet.EventType, sub paysheet.Subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handlers[event], sub)
}

// dispatch fans an event out to the registered handlers, lock released
// first.
func (r *Request) dispatch(ev paysheet.Event) {
	r.mu.Lock()
	hs := make([]paysheet.Handler, 0, len(r.handlers[ev.Type()]))
	for _, h := range r.handlers[ev.Type()] {
		hs = append(hs, h)
	}
	r.mu.Unlock()

	for _, h := range hs {
		h(ev)
	}
}
