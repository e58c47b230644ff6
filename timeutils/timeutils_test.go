package timeutils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsNight_WrappedWindow(t *testing.T) {
	p := NewProvider(10, 22, 6) // +10:00, night is 22:00-06:00 local

	tests := []struct {
		utc  string
		want bool
	}{
		{"2026-08-01T02:00:00Z", false}, // 12:00 local - day
		{"2026-08-01T13:00:00Z", true},  // 23:00 local - night
		{"2026-08-01T19:30:00Z", true},  // 05:30 local - night
		{"2026-08-01T23:00:00Z", false}, // 09:00 local - day
	}

	for _, tc := range tests {
		ts, err := time.Parse(time.RFC3339, tc.utc)
		assert.NoError(t, err)
		assert.Equal(t, tc.want, p.IsNight(ts), "utc=%s", tc.utc)
	}
}

func TestDateString_CrossesMidnightLocally(t *testing.T) {
	p := NewProvider(10, 22, 6)

	prev := mustParse("2026-07-31T10:00:00Z") // 20:00 local, July 31
	next := mustParse("2026-08-01T00:00:00Z") // 10:00 local, August 1

	assert.True(t, p.MidnightBoundaryCrossed(prev, next))
	assert.Equal(t, "2026-07-31", p.DateString(prev))
	assert.Equal(t, "2026-08-01", p.DateString(next))
}

func TestISO_UsesFixedOffset(t *testing.T) {
	p := NewProvider(10, 22, 6)
	ts := mustParse("2026-08-01T00:00:00Z")
	assert.Equal(t, "2026-08-01T10:00:00+10:00", p.ISO(ts))
}

func mustParse(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}
