// Package paysheet coordinates browser-style payment-request sheets from Go.
//
// # Overview
//
// Wallet payment sheets (Apple Pay, Google Pay, Link, browser-saved cards)
// expose an awkward imperative surface: a request handle that must be
// constructed with final-looking values, probed asynchronously for support,
// shown at most once per user gesture, and answered within a deadline every
// time it fires an event. This package turns that surface into a declarative
// one. Callers hand a Controller the options they want and a responder per
// event kind; the package owns handle construction and reconstruction,
// listener registration, response deadlines and completion bookkeeping.
//
// The package never talks to a wallet itself. It drives any implementation
// of the Request interface: remote.Bridge adapts a browser page over a
// websocket, and paysheettest provides a scripted in-memory host for tests.
//
// # Lifecycle
//
// A Controller splits Options into identity parameters (country, disabled
// wallets, payer-data flags) and updatable values (currency, display items,
// shipping options, total). Identity changes reconstruct the handle; value
// changes do not touch it. Handles are constructed with placeholder values
// and receive the real ones through Update immediately before Show, so a
// half-configured sheet never renders.
//
//	ctrl := paysheet.New(factory, opts)
//	defer ctrl.Close()
//
//	ctrl.OnShippingAddressChange(nil, func(ctx context.Context, addr paysheet.ShippingAddress) (paysheet.UpdateStatus, error) {
//	    next := reprice(ctrl.Options(), addr)
//	    ctrl.SetOptions(next)
//	    return paysheet.UpdateSuccess, nil
//	})
//	ctrl.OnToken(func(ctx context.Context, p *paysheet.TokenPayload) (paysheet.CompletionStatus, error) {
//	    return charge(ctx, p.Token)
//	})
//
//	ctrl.SetOpen(true)
//
// # Deadlines
//
// Every responder races a timeout (DefaultResponderTimeout unless overridden
// with WithTimeout). If the responder wins, its status goes to the sheet; if
// the timeout wins, the failure status goes out instead and the late result
// is discarded. Exactly one status reaches the sheet per event either way.
//
// # Standalone bindings
//
// The Handle* functions attach a responder to a bare Request without a
// Controller. The returned Binding moves between handles with Rebind and
// detaches with Close.
package paysheet
