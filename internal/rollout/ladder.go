// Package rollout implements the staged-rollout ladder and the release
// evaluation rules for Play Console phased releases.
package rollout

import (
	"fmt"
	"strconv"
	"strings"

	steperrors "github.com/ruialmeida51/bitrise-step-google-console-rollout-messenger/internal/errors"
)

// Ladder is an ascending list of rollout fractions (e.g. 0.01, 0.2, 0.5, 1.0).
type Ladder []float64

// ParseLadder parses a comma-separated percentage list (e.g. "1,20,50,100")
// into rollout fractions.
//
// Each value must be an integer between 0 and 100, and every value must be
// strictly greater than the previous one.
func ParseLadder(raw string) (Ladder, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, steperrors.InputError{
			Input:      "rollout_increase_steps",
			Message:    "no rollout steps provided",
			Suggestion: "Set a comma-separated list such as 1,20,50,100",
		}
	}

	parts := strings.Split(raw, ",")
	steps := make([]int, 0, len(parts))
	for _, part := range parts {
		step, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, steperrors.InputError{
				Input:      "rollout_increase_steps",
				Value:      raw,
				Message:    "rollout steps must be comma-separated numbers only",
				Suggestion: "Use integer percentages such as 1,20,50,100",
			}
		}
		steps = append(steps, step)
	}

	for _, step := range steps {
		if step < 0 || step > 100 {
			return nil, steperrors.InputError{
				Input:      "rollout_increase_steps",
				Value:      raw,
				Message:    fmt.Sprintf("rollout step %d is outside 0-100", step),
				Suggestion: "All rollout steps must be percentages between 0 and 100",
			}
		}
	}

	for i := 0; i < len(steps)-1; i++ {
		if steps[i] >= steps[i+1] {
			return nil, steperrors.InputError{
				Input:      "rollout_increase_steps",
				Value:      raw,
				Message:    "each rollout step must be strictly greater than the previous",
				Suggestion: "Order the percentages ascending, e.g. 1,20,50,100",
			}
		}
	}

	ladder := make(Ladder, len(steps))
	for i, step := range steps {
		ladder[i] = float64(step) / 100.0
	}
	return ladder, nil
}

// Next returns the first configured fraction strictly greater than current.
// The second return value is false when the rollout is already at or above
// the highest configured step.
func (l Ladder) Next(current float64) (float64, bool) {
	for _, step := range l {
		if step > current {
			return step, true
		}
	}
	return 0, false
}

// Percentages returns the ladder as whole percentages for display.
func (l Ladder) Percentages() []int {
	out := make([]int, len(l))
	for i, step := range l {
		out[i] = int(step*100 + 0.5)
	}
	return out
}

// String renders the ladder as "1% -> 20% -> 50% -> 100%".
func (l Ladder) String() string {
	parts := make([]string, len(l))
	for i, pct := range l.Percentages() {
		parts[i] = fmt.Sprintf("%d%%", pct)
	}
	return strings.Join(parts, " -> ")
}
