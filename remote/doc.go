// Package remote adapts a browser page into a paysheet capability over a
// websocket.
//
// The real PaymentRequest machinery only exists inside the payer's browser.
// This package puts the coordination on the Go side anyway: a small script on
// the page speaks a JSON protocol over a websocket, and each connection
// becomes a Session that implements paysheet.Factory. Handles the session
// constructs relay Show, Update and Abort to the page and deliver the page's
// events to whatever bindings are attached, so a paysheet.Controller drives a
// real browser sheet the same way it drives a test fake.
//
// # Server Usage
//
//	bridge := remote.NewBridge(func(s *remote.Session) {
//	    opts, err := s.WaitConfigured(context.Background())
//	    if err != nil {
//	        return
//	    }
//
//	    ctrl := paysheet.New(s, opts)
//	    defer ctrl.Close()
//	    ctrl.OnToken(chargeToken)
//
//	    <-s.Done()
//	})
//	http.Handle("/paysheet", bridge)
//
// # Protocol
//
// The host opens the socket and sends a configure message carrying the
// merchant's options document; the bridge validates it against the options
// schema before accepting. The bridge then announces handles with create
// messages and drives them with update, show, abort and canMakePayment; the
// host answers with canMakePaymentResult and showing, and streams event
// messages. Responses to events travel back as updateWith and complete,
// tagged with the host's event IDs.
package remote
