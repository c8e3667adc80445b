package notifications

import (
	"time"
)

// EventType represents the type of rollout event.
type EventType string

const (
	// EventTypeIncrease indicates a staged rollout is about to be increased
	// to the next configured step.
	EventTypeIncrease EventType = "increase_scheduled"

	// EventTypeCeiling indicates the rollout is already at or above the
	// highest configured step.
	EventTypeCeiling EventType = "ceiling_reached"
)

// RolloutEvent represents a phased-rollout observation to announce.
type RolloutEvent struct {
	// Type is the type of event (increase_scheduled, ceiling_reached).
	Type EventType

	// PackageName is the application package being rolled out.
	PackageName string

	// Track is the release channel (e.g. "production", "internal").
	Track string

	// ReleaseName is the Play Console release name, if any.
	ReleaseName string

	// VersionCodes lists the version codes in the release.
	VersionCodes []int64

	// CurrentFraction is the present rollout user fraction (0..1).
	CurrentFraction float64

	// NextFraction is the fraction the rollout will be increased to.
	// Zero for ceiling events.
	NextFraction float64

	// Metadata contains additional context (build URL, app title, ...).
	Metadata map[string]string

	// Timestamp is when the event was observed.
	Timestamp time.Time
}

// CurrentPercent returns the current fraction as a percentage.
func (e RolloutEvent) CurrentPercent() float64 {
	return e.CurrentFraction * 100
}

// NextPercent returns the next fraction as a percentage.
func (e RolloutEvent) NextPercent() float64 {
	return e.NextFraction * 100
}

// AllEventTypes returns all valid event types.
func AllEventTypes() []EventType {
	return []EventType{
		EventTypeIncrease,
		EventTypeCeiling,
	}
}
