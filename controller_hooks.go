package paysheet

import "time"

// ============================================================================
// Hook Context Types
// ============================================================================

// OpenContext describes a sheet presentation on its way out.
type OpenContext struct {
	RequestID string
	Values    UpdateOptions // pushed into the handle right before Show
	Timestamp time.Time
}

// CloseContext describes a locally requested close. Aborted reports whether
// the capability supported aborting; when false the flag flipped but the
// host sheet stays up until the host takes it down.
type CloseContext struct {
	RequestID string
	Aborted   bool
	Timestamp time.Time
}

// CancelContext describes a host-side dismissal. WasOpen reports whether the
// controller considered the sheet open when the cancel arrived.
type CancelContext struct {
	RequestID string
	WasOpen   bool
	Timestamp time.Time
}

// ProbeContext reports a settled support check. Stale probes from superseded
// handles never reach hooks.
type ProbeContext struct {
	RequestID string
	Result    Probe
	Duration  time.Duration
}

// EventDeliveryContext reports one settled responder race on a
// controller-managed binding. TimedOut marks deliveries where the fallback
// status went out instead of the responder's.
type EventDeliveryContext struct {
	Event    EventType
	Status   string
	Duration time.Duration
	TimedOut bool
}

// ============================================================================
// Hook Types
// ============================================================================

// BeforeOpenResult controls whether a guarded open proceeds.
type BeforeOpenResult struct {
	Abort  bool
	Reason string
}

// BeforeOpenHook runs before a toggle commits to opening. Returning an error
// or Abort=true suppresses the open; the controller state is untouched.
// Hooks run on the toggling goroutine and must not call back into the
// Controller.
type BeforeOpenHook func(OpenContext) (*BeforeOpenResult, error)

// AfterOpenHook runs after Update and Show were issued to the capability.
type AfterOpenHook func(OpenContext)

// AfterCloseHook runs after a locally requested close was applied.
type AfterCloseHook func(CloseContext)

// OnExternalCancelHook runs after a host-side dismissal forced the open flag
// down.
type OnExternalCancelHook func(CancelContext)

// OnProbeHook runs when the support check for the current handle settles.
type OnProbeHook func(ProbeContext)

// OnEventDeliveredHook runs after a controller-managed binding pushed a
// status back to the sheet.
type OnEventDeliveredHook func(EventDeliveryContext)

// ============================================================================
// Hook Options
// ============================================================================

// WithBeforeOpenHook adds a hook that can veto sheet presentation.
func WithBeforeOpenHook(hook BeforeOpenHook) Option {
	return func(c *config) {
		c.beforeOpenHooks = append(c.beforeOpenHooks, hook)
	}
}

// WithAfterOpenHook adds a hook observing completed opens.
func WithAfterOpenHook(hook AfterOpenHook) Option {
	return func(c *config) {
		c.afterOpenHooks = append(c.afterOpenHooks, hook)
	}
}

// WithAfterCloseHook adds a hook observing completed local closes.
func WithAfterCloseHook(hook AfterCloseHook) Option {
	return func(c *config) {
		c.afterCloseHooks = append(c.afterCloseHooks, hook)
	}
}

// WithExternalCancelHook adds a hook observing host-side dismissals.
func WithExternalCancelHook(hook OnExternalCancelHook) Option {
	return func(c *config) {
		c.externalCancelHooks = append(c.externalCancelHooks, hook)
	}
}

// WithProbeHook adds a hook observing settled support checks.
func WithProbeHook(hook OnProbeHook) Option {
	return func(c *config) {
		c.probeHooks = append(c.probeHooks, hook)
	}
}

// WithEventDeliveredHook adds a hook observing managed-binding deliveries.
func WithEventDeliveredHook(hook OnEventDeliveredHook) Option {
	return func(c *config) {
		c.eventDeliveredHooks = append(c.eventDeliveredHooks, hook)
	}
}
