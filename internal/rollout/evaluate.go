package rollout

import (
	"fmt"

	"google.golang.org/api/androidpublisher/v3"
)

// Release statuses reported by the Play Developer API.
const (
	StatusCompleted  = "completed"
	StatusHalted     = "halted"
	StatusInProgress = "inProgress"
	StatusDraft      = "draft"
)

// Outcome describes what to do about a single track release.
type Outcome struct {
	// Notify is true when a rollout-increase message should be sent.
	Notify bool

	// AtCeiling is true when the release is in progress but already at or
	// above the highest configured step.
	AtCeiling bool

	// Current is the release's current user fraction.
	Current float64

	// Next is the fraction the rollout will be increased to. Only meaningful
	// when Notify is true and AtCeiling is false.
	Next float64

	// Reason explains skip decisions for logging.
	Reason string
}

// Evaluate decides whether a release warrants a rollout-increase message.
//
// Completed and halted releases need no messaging. Draft releases have no
// active rollout to increase. Anything else is treated as an in-progress
// staged rollout: the next ladder rung above the current user fraction is
// selected, and a ceiling outcome is produced when no higher rung exists.
func Evaluate(release *androidpublisher.TrackRelease, ladder Ladder) Outcome {
	switch release.Status {
	case StatusCompleted:
		return Outcome{Reason: "release is completed, no messaging needed"}
	case StatusHalted:
		return Outcome{Reason: "release was halted, skipping messaging"}
	case StatusDraft:
		return Outcome{Reason: "release is a draft with no active rollout"}
	}

	current := release.UserFraction
	next, ok := ladder.Next(current)
	if !ok {
		return Outcome{
			Notify:    true,
			AtCeiling: true,
			Current:   current,
			Reason:    fmt.Sprintf("rollout at %.0f%% is at or above the highest configured step", current*100),
		}
	}

	return Outcome{
		Notify:  true,
		Current: current,
		Next:    next,
	}
}
