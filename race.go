package paysheet

import (
	"context"
	"time"
)

// DefaultResponderTimeout bounds how long a responder may run before the
// sheet receives the failure fallback. Wallet UIs sit on a spinner while an
// update or completion is outstanding, and Apple Pay in particular gives up
// after roughly thirty seconds; two seconds keeps the sheet honest when
// merchant logic stalls.
const DefaultResponderTimeout = 2 * time.Second

// raceStatus resolves to the status produced within timeout, or to fallback
// once the timeout fires. A produce error inside the window propagates
// unchanged. timedOut reports which side won.
//
// The single select makes a second outcome impossible: the losing side writes
// into a buffered channel nobody reads, so a late settlement is inert and the
// caller's completion path runs once per invocation. The produce context is
// canceled as soon as the race settles.
func raceStatus[S any](ctx context.Context, timeout time.Duration, fallback S, produce func(context.Context) (S, error)) (status S, timedOut bool, err error) {
	type settled struct {
		status S
		err    error
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	out := make(chan settled, 1)
	go func() {
		s, err := produce(ctx)
		out <- settled{status: s, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case s := <-out:
		if s.err != nil {
			var zero S
			return zero, false, s.err
		}
		return s.status, false, nil
	case <-timer.C:
		return fallback, true, nil
	}
}
