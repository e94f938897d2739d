package paysheet

import (
	"context"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v81"
)

func TestHandlePaymentMethod_CompletesWithResponderStatus(t *testing.T) {
	req := newFakeRequest()

	b := HandlePaymentMethod(req, func(ctx context.Context, p *PaymentMethodPayload) (CompletionStatus, error) {
		if p.PaymentMethod == nil || p.PaymentMethod.ID != "pm_card_visa" {
			t.Errorf("Responder got wrong payment method: %+v", p.PaymentMethod)
		}
		if p.PayerEmail != "payer@example.com" {
			t.Errorf("Responder got wrong payer info: %+v", p.PayerInfo)
		}
		return CompletionSuccess, nil
	})
	defer b.Close()

	ch := make(chan CompletionStatus, 2)
	req.fire(&PaymentMethodEvent{
		PaymentMethodPayload: PaymentMethodPayload{
			PayerInfo:     PayerInfo{PayerEmail: "payer@example.com", WalletName: WalletApplePay},
			PaymentMethod: &stripe.PaymentMethod{ID: "pm_card_visa", Type: stripe.PaymentMethodTypeCard},
		},
		Complete: func(s CompletionStatus) { ch <- s },
	})

	select {
	case status := <-ch:
		if status != CompletionSuccess {
			t.Errorf("Expected success, got %v", status)
		}
	case <-time.After(time.Second):
		t.Fatal("Complete never called")
	}
}

func TestHandlePaymentMethod_FailVerdictPassesThrough(t *testing.T) {
	req := newFakeRequest()

	b := HandlePaymentMethod(req, func(ctx context.Context, p *PaymentMethodPayload) (CompletionStatus, error) {
		return CompletionFail, nil
	})
	defer b.Close()

	ch := make(chan CompletionStatus, 2)
	req.fire(&PaymentMethodEvent{Complete: func(s CompletionStatus) { ch <- s }})

	select {
	case status := <-ch:
		if status != CompletionFail {
			t.Errorf("Expected fail verdict, got %v", status)
		}
	case <-time.After(time.Second):
		t.Fatal("Complete never called")
	}
}

func TestHandleSource_CompletesWithResponderStatus(t *testing.T) {
	req := newFakeRequest()

	b := HandleSource(req, func(ctx context.Context, p *SourcePayload) (CompletionStatus, error) {
		if p.Source == nil || p.Source.ID != "src_123" {
			t.Errorf("Responder got wrong source: %+v", p.Source)
		}
		return CompletionSuccess, nil
	})
	defer b.Close()

	ch := make(chan CompletionStatus, 2)
	req.fire(&SourceEvent{
		SourcePayload: SourcePayload{Source: &stripe.Source{ID: "src_123"}},
		Complete:      func(s CompletionStatus) { ch <- s },
	})

	select {
	case status := <-ch:
		if status != CompletionSuccess {
			t.Errorf("Expected success, got %v", status)
		}
	case <-time.After(time.Second):
		t.Fatal("Complete never called")
	}
}

func TestHandleToken_ShippingDataRidesAlong(t *testing.T) {
	req := newFakeRequest()
	seen := make(chan *TokenPayload, 1)

	b := HandleToken(req, func(ctx context.Context, p *TokenPayload) (CompletionStatus, error) {
		seen <- p
		return CompletionSuccess, nil
	})
	defer b.Close()

	req.fire(&TokenEvent{
		TokenPayload: TokenPayload{
			Token:           &stripe.Token{ID: "tok_189g"},
			ShippingAddress: &ShippingAddress{Country: "GB", City: "London"},
			ShippingOption:  &ShippingOption{ID: "express", Amount: 900},
		},
		Complete: func(CompletionStatus) {},
	})

	select {
	case p := <-seen:
		if p.ShippingAddress == nil || p.ShippingAddress.City != "London" {
			t.Errorf("Shipping address lost in payload: %+v", p.ShippingAddress)
		}
		if p.ShippingOption == nil || p.ShippingOption.ID != "express" {
			t.Errorf("Shipping option lost in payload: %+v", p.ShippingOption)
		}
	case <-time.After(time.Second):
		t.Fatal("Responder never ran")
	}
}

func TestCompletion_ResponderCannotDoubleComplete(t *testing.T) {
	req := newFakeRequest()

	// The payload type carries no Complete; completing twice would need the
	// pipeline itself to misbehave. Two sequential events complete once each.
	b := HandleToken(req, func(ctx context.Context, p *TokenPayload) (CompletionStatus, error) {
		return CompletionSuccess, nil
	})
	defer b.Close()

	first := fireToken(req, "tok_1")
	second := fireToken(req, "tok_2")

	for i, ch := range []<-chan CompletionStatus{first, second} {
		select {
		case <-ch:
		case <-time.After(time.Second):
			t.Fatalf("Event %d never completed", i+1)
		}
	}
	for i, ch := range []<-chan CompletionStatus{first, second} {
		select {
		case s := <-ch:
			t.Errorf("Event %d completed twice: %v", i+1, s)
		case <-time.After(50 * time.Millisecond):
		}
	}
}
