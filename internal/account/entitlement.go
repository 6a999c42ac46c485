package account

import "time"

// State is the subscription lifecycle of an account.
type State string

const (
	StateNone      State = "none"
	StateTrialing  State = "trialing"
	StateActive    State = "active"
	StateCanceling State = "canceling"
	StateCanceled  State = "canceled"
)

// Entitlement holds the subscription flags of an account. The boolean and
// timestamp fields are kept for clients that read them directly; they are
// only ever changed through the transition methods so that they agree with
// State.
type Entitlement struct {
	State State

	TrialActive   bool
	TrialFinished bool
	TrialStartAt  *time.Time
	TrialEndAt    *time.Time

	SubscriptionActive  bool
	SubscriptionStartAt *time.Time
	SubscriptionEndAt   *time.Time

	Canceled       bool
	CancelFeedback *string
	CancelReason   *string
	CancelComment  *string
	CancelAt       *time.Time
	CanceledAt     *time.Time
}

// Period is a billed interval.
type Period struct {
	Start time.Time
	End   time.Time
}

// Cancellation describes a provider-side cancellation request.
type Cancellation struct {
	Feedback   *string
	Reason     *string
	Comment    *string
	CancelAt   *time.Time
	CanceledAt *time.Time
	// Ended is set when the provider reports the subscription as already canceled.
	Ended bool
}

// ended reports whether access stops now. The provider also stamps
// CanceledAt on requests scheduled for a later CancelAt.
func (c Cancellation) ended() bool {
	if c.Ended {
		return true
	}

	if c.CanceledAt == nil {
		return false
	}

	return c.CancelAt == nil || !c.CancelAt.After(*c.CanceledAt)
}

// StartTrial moves the account into its free trial window, dropping any
// earlier cancellation.
func (e *Entitlement) StartTrial(p Period) {
	e.State = StateTrialing
	e.SubscriptionActive = true
	e.TrialActive = true
	e.TrialFinished = false
	e.TrialStartAt = timePtr(p.Start)
	e.TrialEndAt = timePtr(p.End)
	e.clearCancellation()
}

// Activate records a paid subscription period. Any trial and any pending
// cancellation are cleared.
func (e *Entitlement) Activate(p Period) {
	e.State = StateActive
	e.SubscriptionActive = true
	e.TrialActive = false
	e.TrialFinished = true
	e.TrialStartAt = nil
	e.TrialEndAt = nil
	e.SubscriptionStartAt = timePtr(p.Start)
	e.SubscriptionEndAt = timePtr(p.End)
	e.clearCancellation()
}

// Cancel applies a cancellation. A scheduled cancellation keeps access until
// CancelAt; an ended one revokes it immediately.
func (e *Entitlement) Cancel(c Cancellation) {
	e.Canceled = true
	e.CancelFeedback = c.Feedback
	e.CancelReason = c.Reason
	e.CancelComment = c.Comment
	e.CancelAt = c.CancelAt
	e.CanceledAt = c.CanceledAt

	if c.ended() {
		e.State = StateCanceled
		e.SubscriptionActive = false
		e.TrialActive = false

		return
	}

	e.State = StateCanceling
}

// Resume withdraws a scheduled cancellation, returning to the trial or paid
// state the account held before.
func (e *Entitlement) Resume() {
	if e.State != StateCanceling {
		return
	}

	e.State = StateActive
	if e.TrialActive {
		e.State = StateTrialing
	}

	e.clearCancellation()
}

// Lapse is applied when the provider no longer reports an active subscription.
func (e *Entitlement) Lapse() {
	e.State = StateCanceled
	e.SubscriptionActive = false
	e.TrialActive = false
}

// HasAccess reports whether paid features are available at now.
func (e *Entitlement) HasAccess(now time.Time) bool {
	switch e.State {
	case StateTrialing, StateActive:
		return true
	case StateCanceling:
		return e.CancelAt == nil || now.Before(*e.CancelAt)
	default:
		return false
	}
}

func (e *Entitlement) clearCancellation() {
	e.Canceled = false
	e.CancelFeedback = nil
	e.CancelReason = nil
	e.CancelComment = nil
	e.CancelAt = nil
	e.CanceledAt = nil
}

func timePtr(t time.Time) *time.Time {
	return &t
}
