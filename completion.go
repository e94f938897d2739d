package paysheet

import "context"

// PaymentMethodResponder charges or rejects a minted payment method. The
// returned status closes or re-arms the sheet.
type PaymentMethodResponder func(ctx context.Context, p *PaymentMethodPayload) (CompletionStatus, error)

// SourceResponder charges or rejects a minted source.
type SourceResponder func(ctx context.Context, p *SourcePayload) (CompletionStatus, error)

// TokenResponder charges or rejects a minted card token.
type TokenResponder func(ctx context.Context, p *TokenPayload) (CompletionStatus, error)

// HandlePaymentMethod subscribes respond to paymentmethod events on req and
// completes each event with the raced verdict: the responder's status when it
// settles inside the window, CompletionFail otherwise. The responder sees the
// payload only; the event's Complete stays with the pipeline and fires
// exactly once per event.
//
// A nil respond installs nothing on the request at all. A nil req defers
// registration until Rebind.
func HandlePaymentMethod(req Request, respond PaymentMethodResponder, opts ...BindOption) *Binding {
	if respond == nil {
		return inertBinding(EventPaymentMethod)
	}
	return bindEvent(req, EventPaymentMethod, CompletionFail, newBindConfig(opts), nil,
		func(ctx context.Context, e *PaymentMethodEvent) (CompletionStatus, error) {
			return respond(ctx, &e.PaymentMethodPayload)
		},
		func(e *PaymentMethodEvent) func(CompletionStatus) { return e.Complete },
	)
}

// HandleSource subscribes respond to source events on req, with the same
// completion contract as HandlePaymentMethod.
func HandleSource(req Request, respond SourceResponder, opts ...BindOption) *Binding {
	if respond == nil {
		return inertBinding(EventSource)
	}
	return bindEvent(req, EventSource, CompletionFail, newBindConfig(opts), nil,
		func(ctx context.Context, e *SourceEvent) (CompletionStatus, error) {
			return respond(ctx, &e.SourcePayload)
		},
		func(e *SourceEvent) func(CompletionStatus) { return e.Complete },
	)
}

// HandleToken subscribes respond to token events on req, with the same
// completion contract as HandlePaymentMethod.
func HandleToken(req Request, respond TokenResponder, opts ...BindOption) *Binding {
	if respond == nil {
		return inertBinding(EventToken)
	}
	return bindEvent(req, EventToken, CompletionFail, newBindConfig(opts), nil,
		func(ctx context.Context, e *TokenEvent) (CompletionStatus, error) {
			return respond(ctx, &e.TokenPayload)
		},
		func(e *TokenEvent) func(CompletionStatus) { return e.Complete },
	)
}
