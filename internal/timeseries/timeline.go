package timeseries

import (
	"fmt"
	"strings"
	"time"
)

// TimeLayout is the accepted wall-clock format for timeline bounds.
const TimeLayout = "2006-01-02 15:04:05"

// Default timeline used when a caller supplies nothing.
const (
	DefaultStart          = "2021-01-01 00:00:00"
	DefaultEnd            = "2021-01-02 00:00:00"
	DefaultProcessMinutes = 10.0
)

var timeLayouts = []string{TimeLayout, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04", "2006-01-02"}

// Timeline is a half-open interval [Start, End) sampled every Step.
type Timeline struct {
	Start time.Time
	End   time.Time
	Step  time.Duration
}

// ParseTime parses a timeline bound. Times without a zone are taken as UTC.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, ErrInvalidTimeline.WithContext("value", s)
}

// ParseTimeline builds a Timeline from textual bounds and a step in minutes.
func ParseTimeline(start, end string, processMinutes float64) (Timeline, error) {
	st, err := ParseTime(start)
	if err != nil {
		return Timeline{}, err
	}
	en, err := ParseTime(end)
	if err != nil {
		return Timeline{}, err
	}
	tl := Timeline{Start: st, End: en, Step: time.Duration(processMinutes * float64(time.Minute))}
	return tl, tl.Validate()
}

// DefaultTimeline returns one day sampled every ten minutes.
func DefaultTimeline() Timeline {
	tl, _ := ParseTimeline(DefaultStart, DefaultEnd, DefaultProcessMinutes)
	return tl
}

// Validate checks that the timeline has at least one step.
func (tl Timeline) Validate() error {
	switch {
	case tl.Step <= 0:
		return ErrInvalidTimeline.WithContext("reason", "process time must be positive")
	case !tl.End.After(tl.Start):
		return ErrInvalidTimeline.WithContext("reason", "end must be after start")
	case tl.Size() == 0:
		return ErrInvalidTimeline.WithContext("reason", "process time longer than the timeline")
	}
	return nil
}

// Duration is End-Start.
func (tl Timeline) Duration() time.Duration { return tl.End.Sub(tl.Start) }

// Size is the number of whole steps that fit in the timeline.
func (tl Timeline) Size() int {
	if tl.Step <= 0 {
		return 0
	}
	return int(tl.Duration() / tl.Step)
}

// Times returns Size() timestamps Start + i*Step.
func (tl Timeline) Times() []time.Time {
	out := make([]time.Time, tl.Size())
	for i := range out {
		out[i] = tl.Start.Add(time.Duration(i) * tl.Step)
	}
	return out
}

// Midpoint is the default drift change point.
func (tl Timeline) Midpoint() time.Time {
	return tl.End.Add(-tl.Duration() / 2)
}

// IndexAt returns the step index of t, floored.
func (tl Timeline) IndexAt(t time.Time) int {
	return int(t.Sub(tl.Start) / tl.Step)
}

// ProcessMinutes is Step expressed in minutes.
func (tl Timeline) ProcessMinutes() float64 { return tl.Step.Minutes() }

func (tl Timeline) String() string {
	return fmt.Sprintf("%s .. %s every %gm", tl.Start.Format(TimeLayout), tl.End.Format(TimeLayout), tl.ProcessMinutes())
}
