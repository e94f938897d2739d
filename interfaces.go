package paysheet

import "context"

// Subscription identifies one registered handler on a Request. Tokens are
// only meaningful to the Request that issued them.
type Subscription uint64

// Handler receives fired events. Request implementations invoke handlers on
// their own delivery goroutine; handlers must not block it. The bindings in
// this package hand real work off immediately.
type Handler func(Event)

// Request is the live payment-request capability for one identity parameter
// set. Implementations adapt a concrete sheet host: a browser page behind
// remote.Bridge, a webview, or paysheettest.Request in tests.
//
// On and Off may be called while the implementation is delivering an event,
// so implementations must not hold their dispatch lock across handler calls.
// None of the methods may call back into the Controller that owns the handle.
type Request interface {
	// CanMakePayment reports which wallets can present this request. A nil
	// result with a nil error means none can. Called once per handle.
	CanMakePayment(ctx context.Context) (*SupportResult, error)

	// IsShowing reports whether the sheet is currently presented.
	IsShowing() bool

	// Show presents the sheet.
	Show()

	// Update pushes the updatable option subset into the live request.
	Update(opts UpdateOptions)

	// On registers h for the named event and returns its subscription token.
	On(event EventType, h Handler) Subscription

	// Off removes the handler registered under sub. Unknown tokens are
	// ignored.
	Off(event EventType, sub Subscription)
}

// Aborter is an optional interface for requests that can dismiss a showing
// sheet. Hosts that cannot abort simply do not implement it and callers
// tolerate the absence; the sheet then closes only from the host side.
type Aborter interface {
	Abort()
}

// Factory constructs request handles. It stands in for the wallet provider
// session; a nil Factory means the provider has not arrived yet and the
// Controller idles until SetFactory delivers one.
//
// Factory values must be comparable (a pointer receiver is the norm): the
// Controller reconstructs its handle when the factory value changes.
type Factory interface {
	NewRequest(opts Options) Request
}
