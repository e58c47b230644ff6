// Package timeutils provides the fixed-offset local time helpers used by the
// controller. The site is single-location, so a configured UTC offset is
// used in place of a timezone database lookup - this is a deliberate
// simplification, not an oversight.
package timeutils

import "time"

// Provider derives local calendar facts from an instant. The engine passes
// each tick's input time through it rather than reading the wall clock, so
// tests can drive the controller through specific times of day and across
// midnight without sleeping.
type Provider struct {
	offset         time.Duration // fixed offset from UTC, e.g. +10h
	nightStartHour int
	nightEndHour   int
}

// NewProvider returns a Provider using the given fixed UTC offset (in hours)
// and night window boundaries (local hour, 0-23).
func NewProvider(offsetHours, nightStartHour, nightEndHour int) Provider {
	return Provider{
		offset:         time.Duration(offsetHours) * time.Hour,
		nightStartHour: nightStartHour,
		nightEndHour:   nightEndHour,
	}
}

// zone returns a fixed time.Location for the provider's offset, named for
// readability in logs rather than IANA lookup.
func (p Provider) zone() *time.Location {
	return time.FixedZone("local", int(p.offset.Seconds()))
}

// Local returns t expressed in the provider's fixed-offset zone.
func (p Provider) Local(t time.Time) time.Time {
	return t.In(p.zone())
}

// Now returns the current time in the provider's fixed-offset zone.
func (p Provider) Now() time.Time {
	return p.Local(time.Now())
}

// DateString returns the local calendar date of t as YYYY-MM-DD.
func (p Provider) DateString(t time.Time) string {
	return p.Local(t).Format("2006-01-02")
}

// ISO returns t formatted as local-time ISO-8601 with the configured fixed
// offset, e.g. "2026-08-01T14:32:00+10:00".
func (p Provider) ISO(t time.Time) string {
	return p.Local(t).Format(time.RFC3339)
}

// Hour returns the local hour-of-day (0-23) of t.
func (p Provider) Hour(t time.Time) int {
	return p.Local(t).Hour()
}

// IsNight returns true if t falls within the configured night window,
// [nightStartHour, 24) union [0, nightEndHour), wrapped at midnight.
func (p Provider) IsNight(t time.Time) bool {
	h := p.Hour(t)
	if p.nightStartHour <= p.nightEndHour {
		// window does not wrap, e.g. start=1 end=2 (unusual, but handle it)
		return h >= p.nightStartHour && h < p.nightEndHour
	}
	return h >= p.nightStartHour || h < p.nightEndHour
}

// MidnightBoundaryCrossed returns true if prev and next fall on different
// local calendar dates.
func (p Provider) MidnightBoundaryCrossed(prev, next time.Time) bool {
	return p.DateString(prev) != p.DateString(next)
}
