package fragment

// Outcome is what a subscription did with one watch delivery.
type Outcome string

const (
	// OutcomeAccepted means the delivery produced a new Result.
	OutcomeAccepted Outcome = "accepted"
	// OutcomeSuppressed means the delivery equalled the last accepted diff.
	OutcomeSuppressed Outcome = "suppressed"
	// OutcomeDiscarded means the delivery arrived after teardown.
	OutcomeDiscarded Outcome = "discarded"
)

// Recorder observes subscription activity. Implemented by metrics.Recorder.
type Recorder interface {
	Delivery(outcome Outcome)
	SubscriptionStarted()
	SubscriptionStopped()
}

type nopRecorder struct{}

func (nopRecorder) Delivery(Outcome)     {}
func (nopRecorder) SubscriptionStarted() {}
func (nopRecorder) SubscriptionStopped() {}
