package playback

import (
	"fmt"
	"strings"

	"github.com/vireo-cli/vireo/engine"
)

// Outcome classifies one engine attempt.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeFailure
	OutcomeCancelled
)

// AttemptResult records the fate of a single engine attempt within one
// prepare loop. Failure reasons accumulate across attempts to build the
// terminal diagnostic.
type AttemptResult struct {
	Engine  engine.ID
	Outcome Outcome
	Reason  error
}

func (a AttemptResult) String() string {
	switch a.Outcome {
	case OutcomeSuccess:
		return fmt.Sprintf("%s: ok", a.Engine)
	case OutcomeCancelled:
		return fmt.Sprintf("%s: cancelled", a.Engine)
	default:
		return fmt.Sprintf("%s: %v", a.Engine, a.Reason)
	}
}

// joinDiagnostic builds the user-visible failure message from the recorded
// attempts, one entry per engine, in attempt order.
func joinDiagnostic(attempts []AttemptResult) string {
	reasons := make([]string, 0, len(attempts))
	for _, attempt := range attempts {
		if attempt.Outcome == OutcomeFailure {
			reasons = append(reasons, attempt.String())
		}
	}
	return strings.Join(reasons, "; ")
}
