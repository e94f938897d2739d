package paysheet

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v81"
)

func fireToken(r *fakeRequest, id string) <-chan CompletionStatus {
	ch := make(chan CompletionStatus, 2)
	r.fire(&TokenEvent{
		TokenPayload: TokenPayload{Token: &stripe.Token{ID: id}},
		Complete:     func(s CompletionStatus) { ch <- s },
	})
	return ch
}

func TestBinding_NilResponderTouchesNothing(t *testing.T) {
	req := newFakeRequest()

	bindings := []*Binding{
		HandleShippingAddressChange(req, func() UpdateOptions { return UpdateOptions{} }, nil),
		HandleShippingOptionChange(req, func() UpdateOptions { return UpdateOptions{} }, nil),
		HandlePaymentMethod(req, nil),
		HandleSource(req, nil),
		HandleToken(req, nil),
	}
	for _, b := range bindings {
		b.Rebind(req)
		b.Close()
	}

	if got := len(req.traceCopy()); got != 0 {
		t.Errorf("Expected no capability traffic without responders, got %v", req.traceCopy())
	}
}

func TestBinding_SubscribesAndDelivers(t *testing.T) {
	req := newFakeRequest()

	b := HandleToken(req, func(ctx context.Context, p *TokenPayload) (CompletionStatus, error) {
		if p.Token == nil || p.Token.ID != "tok_visa" {
			t.Errorf("Responder got wrong payload: %+v", p)
		}
		return CompletionSuccess, nil
	})
	defer b.Close()

	if req.handlerCount(EventToken) != 1 {
		t.Fatalf("Expected 1 token handler, got %d", req.handlerCount(EventToken))
	}

	ch := fireToken(req, "tok_visa")
	select {
	case status := <-ch:
		if status != CompletionSuccess {
			t.Errorf("Expected success completion, got %v", status)
		}
	case <-time.After(time.Second):
		t.Fatal("Complete was never called")
	}
}

func TestBinding_RebindMovesRegistration(t *testing.T) {
	req1 := newFakeRequest()
	req2 := newFakeRequest()

	b := HandleToken(req1, func(ctx context.Context, p *TokenPayload) (CompletionStatus, error) {
		return CompletionSuccess, nil
	})
	defer b.Close()

	b.Rebind(req2)

	if req1.handlerCount(EventToken) != 0 {
		t.Error("Expected old request to be unsubscribed")
	}
	if req2.handlerCount(EventToken) != 1 {
		t.Error("Expected new request to be subscribed")
	}

	// The superseded handle no longer reaches the responder.
	if n := req1.fire(&TokenEvent{Complete: func(CompletionStatus) {}}); n != 0 {
		t.Errorf("Expected no handlers on old request, fired %d", n)
	}

	ch := fireToken(req2, "tok_after_move")
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("Rebound handler never delivered")
	}
}

func TestBinding_RebindSameRequestRemovesBeforeAdding(t *testing.T) {
	req := newFakeRequest()

	b := HandleToken(req, func(ctx context.Context, p *TokenPayload) (CompletionStatus, error) {
		return CompletionSuccess, nil
	})
	defer b.Close()

	b.Rebind(req)

	want := []string{"on:token", "off:token", "on:token"}
	got := req.traceCopy()
	if len(got) != len(want) {
		t.Fatalf("Expected trace %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Expected trace %v, got %v", want, got)
		}
	}
	if req.handlerCount(EventToken) != 1 {
		t.Errorf("Expected exactly one live handler, got %d", req.handlerCount(EventToken))
	}
}

func TestBinding_RebindToNilLeavesNothingBehind(t *testing.T) {
	req := newFakeRequest()

	b := HandleToken(req, func(ctx context.Context, p *TokenPayload) (CompletionStatus, error) {
		return CompletionSuccess, nil
	})
	defer b.Close()

	b.Rebind(nil)

	if req.handlerCount(EventToken) != 0 {
		t.Error("Expected unsubscription when rebinding to nil")
	}
}

func TestBinding_CloseUnsubscribesAndSticks(t *testing.T) {
	req := newFakeRequest()

	b := HandleToken(req, func(ctx context.Context, p *TokenPayload) (CompletionStatus, error) {
		return CompletionSuccess, nil
	})

	b.Close()
	b.Close() // idempotent

	if req.handlerCount(EventToken) != 0 {
		t.Error("Expected Close to unsubscribe")
	}

	// Closed bindings refuse to resubscribe.
	b.Rebind(req)
	if req.handlerCount(EventToken) != 0 {
		t.Error("Expected Rebind after Close to be a no-op")
	}
}

func TestBinding_ResponderErrorRoutesToHandler(t *testing.T) {
	req := newFakeRequest()
	boom := errors.New("gateway 500")
	caught := make(chan error, 1)

	b := HandleToken(req,
		func(ctx context.Context, p *TokenPayload) (CompletionStatus, error) {
			return "", boom
		},
		WithBindingErrorHandler(func(event EventType, err error) {
			if event != EventToken {
				t.Errorf("Expected token event in error handler, got %v", event)
			}
			caught <- err
		}),
	)
	defer b.Close()

	ch := fireToken(req, "tok_err")

	select {
	case err := <-caught:
		if !errors.Is(err, boom) {
			t.Errorf("Expected responder error, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Error handler never ran")
	}

	// An errored responder must not complete the event.
	select {
	case status := <-ch:
		t.Errorf("Expected no completion after responder error, got %v", status)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBinding_TimeoutCompletesFailExactlyOnce(t *testing.T) {
	req := newFakeRequest()
	release := make(chan struct{})

	b := HandleToken(req,
		func(ctx context.Context, p *TokenPayload) (CompletionStatus, error) {
			<-release
			return CompletionSuccess, nil
		},
		WithTimeout(25*time.Millisecond),
	)
	defer b.Close()

	ch := fireToken(req, "tok_slow")

	select {
	case status := <-ch:
		if status != CompletionFail {
			t.Errorf("Expected fail fallback, got %v", status)
		}
	case <-time.After(time.Second):
		t.Fatal("Timeout fallback never completed the event")
	}

	// Let the stale responder finish; its success must go nowhere.
	close(release)
	select {
	case status := <-ch:
		t.Errorf("Late responder leaked a second completion: %v", status)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestBinding_ForeignEventTypeIgnored(t *testing.T) {
	req := newFakeRequest()
	delivered := make(chan struct{}, 1)

	b := HandleToken(req, func(ctx context.Context, p *TokenPayload) (CompletionStatus, error) {
		delivered <- struct{}{}
		return CompletionSuccess, nil
	})
	defer b.Close()

	// A host bug that routes a foreign event into the handler must not reach
	// the responder or blow up the pipeline.
	req.mu.Lock()
	var h Handler
	for _, v := range req.handlers[EventToken] {
		h = v
	}
	req.mu.Unlock()

	h(&CancelEvent{})

	select {
	case <-delivered:
		t.Error("Responder ran for an event of the wrong type")
	case <-time.After(50 * time.Millisecond):
	}
}
