package orders

// Stage tracks how far a submission got through the intake pipeline.
type Stage string

const (
	StageReceived  Stage = "RECEIVED"
	StageValidated Stage = "VALIDATED"
	StageNotified  Stage = "NOTIFIED"
	StagePersisted Stage = "PERSISTED"
	StageResponded Stage = "RESPONDED"
	StageFailed    Stage = "FAILED"
)

// Notification outcome is reported separately and never moves a submission
// to FAILED.
var validNext = map[Stage]map[Stage]bool{
	StageReceived:  {StageValidated: true, StageFailed: true},
	StageValidated: {StageNotified: true},
	StageNotified:  {StagePersisted: true, StageFailed: true},
	StagePersisted: {StageResponded: true},
	StageFailed:    {StageResponded: true},
	StageResponded: {},
}

func CanTransition(from, to Stage) bool {
	return validNext[from][to]
}

// Respond marks the outcome as answered. It is a no-op from any stage that
// cannot be answered yet.
func (o *Outcome) Respond() {
	if CanTransition(o.Stage, StageResponded) {
		o.Stage = StageResponded
	}
}
