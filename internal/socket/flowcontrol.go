package socket

import "time"

// FlowReason names why flow control is applied in one direction, per
// spec.md §4.9's state machine: Relaxed -> Applied(reason) ->
// Relaxed|Locked(Close).
type FlowReason int

const (
	ReasonNone FlowReason = iota
	ReasonManual
	ReasonBackpressure
	ReasonRateLimit
	ReasonClose
)

// FlowLevel is the coarse state: relaxed, applied for some reason, or
// permanently locked because the socket is closing.
type FlowLevel int

const (
	FlowRelaxed FlowLevel = iota
	FlowApplied
	FlowLocked
)

// FlowState tracks flow control for one direction (send or receive).
// Multiple reasons can hold a direction Applied at once (e.g. manual
// AND rate-limit); relaxing clears one reason and only drops to
// Relaxed once none remain, per spec.md's "arms a timer whose expiry
// relaxes only if no other reason remains."
type FlowState struct {
	level   FlowLevel
	reasons map[FlowReason]bool
	timer   *time.Timer
}

// NewFlowState returns a Relaxed FlowState.
func NewFlowState() *FlowState {
	return &FlowState{reasons: make(map[FlowReason]bool)}
}

// Apply transitions into Applied for the given reason. Applying
// ReasonClose locks the direction permanently.
func (f *FlowState) Apply(reason FlowReason) {
	if f.level == FlowLocked {
		return
	}
	if reason == ReasonClose {
		f.level = FlowLocked
		f.reasons = map[FlowReason]bool{ReasonClose: true}
		return
	}
	f.reasons[reason] = true
	f.level = FlowApplied
}

// ArmRateLimitTimer schedules onExpiry at d; on fire, Relax(ReasonRateLimit)
// is expected to be called by the caller.
func (f *FlowState) ArmRateLimitTimer(d time.Duration, onExpiry func()) {
	if f.timer != nil {
		f.timer.Stop()
	}
	f.timer = time.AfterFunc(d, onExpiry)
}

// Relax clears one reason. The direction returns to Relaxed only once
// every reason has been cleared and the direction is not Locked.
func (f *FlowState) Relax(reason FlowReason) {
	if f.level == FlowLocked {
		return
	}
	delete(f.reasons, reason)
	if len(f.reasons) == 0 {
		f.level = FlowRelaxed
	}
}

// Level reports the current coarse flow level.
func (f *FlowState) Level() FlowLevel { return f.level }

// Applied reports whether the direction currently has any interest
// deregistered (Applied or Locked).
func (f *FlowState) Applied() bool { return f.level != FlowRelaxed }
