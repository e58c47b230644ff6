// Package eventlog implements the bounded, classified append-only event log
// kept alongside engine state.
package eventlog

import (
	"time"

	"github.com/google/uuid"

	"github.com/solarhome/gridctl/config"
)

const (
	TypeStateChange      = "STATE_CHANGE"
	TypeBatteryProtect   = "BATTERY_PROTECTION"
	TypeHwsEvent         = "HWS_EVENT"
	TypeDebounce         = "DEBOUNCE"
	TypeDataProtection   = "DATA_PROTECTION"
	TypeDailySummary     = "DAILY_SUMMARY"
	TypePerformanceAlert = "PERFORMANCE_ALERT"
	TypeSystemInfo       = "SYSTEM_INFO"
	TypeSystem           = "SYSTEM"
	TypeError            = "ERROR"
	TypeWarning          = "WARNING"

	PriorityLow      = "low"
	PriorityNormal   = "normal"
	PriorityHigh     = "high"
	PriorityCritical = "critical"
)

// Entry is one log record.
type Entry struct {
	ID           string
	LocalIsoTime string
	Type         string
	Priority     string
	Message      string
	Data         map[string]any
	Date         string // local YYYY-MM-DD of the entry
}

// Log is the in-memory bounded append-only log. Its state is what
// PersistentStore round-trips between ticks.
type Log struct {
	entries          []Entry
	lastCleanupAt    time.Time
	hasLastCleanup   bool
	lastSummaryDate  string
}

// Load reconstructs a Log from persisted state.
func Load(entries []Entry, lastCleanupAt time.Time, hasLastCleanup bool, lastSummaryDate string) *Log {
	return &Log{entries: entries, lastCleanupAt: lastCleanupAt, hasLastCleanup: hasLastCleanup, lastSummaryDate: lastSummaryDate}
}

// New creates an empty log.
func New() *Log {
	return &Log{}
}

// Entries returns the current entries, oldest first.
func (l *Log) Entries() []Entry {
	return l.entries
}

// LastCleanup returns the last age-based cleanup time, if any has run.
func (l *Log) LastCleanup() (time.Time, bool) {
	return l.lastCleanupAt, l.hasLastCleanup
}

// LastSummaryDate returns the local date for which a daily summary was last emitted.
func (l *Log) LastSummaryDate() string {
	return l.lastSummaryDate
}

// Append writes a new entry, truncating the oldest entries first if the log
// exceeds max_log_entries, and runs age-based cleanup if the configured
// interval has elapsed since the last cleanup.
func (l *Log) Append(cfg config.Config, now time.Time, localIso, date, typ, priority, message string, data map[string]any) {
	l.entries = append(l.entries, Entry{
		ID:           uuid.NewString(),
		LocalIsoTime: localIso,
		Type:         typ,
		Priority:     priority,
		Message:      message,
		Data:         data,
		Date:         date,
	})

	l.truncateToCapacity(cfg.MaxLogEntries)
	l.maybeCleanupByAge(cfg, now)
}

func (l *Log) truncateToCapacity(max int) {
	if max <= 0 || len(l.entries) <= max {
		return
	}
	excess := len(l.entries) - max
	l.entries = l.entries[excess:]
}

func (l *Log) maybeCleanupByAge(cfg config.Config, now time.Time) {
	interval := time.Duration(cfg.LogCleanupIntervalHours * float64(time.Hour))
	if l.hasLastCleanup && now.Sub(l.lastCleanupAt) < interval {
		return
	}

	maxAge := time.Duration(cfg.LogMaxAgeDays * 24 * float64(time.Hour))
	cutoff := now.Add(-maxAge)

	kept := l.entries[:0:0]
	for _, e := range l.entries {
		t, err := time.Parse(time.RFC3339, e.LocalIsoTime)
		if err != nil || t.After(cutoff) {
			kept = append(kept, e)
		}
	}
	l.entries = kept
	l.lastCleanupAt = now
	l.hasLastCleanup = true
}

// ShouldEmitDailySummary reports whether a DAILY_SUMMARY entry should be
// written this tick: at most once per local date, and only during the
// local hours {23, 0, 1}.
func (l *Log) ShouldEmitDailySummary(localDate string, localHour int) bool {
	if localDate == l.lastSummaryDate {
		return false
	}
	return localHour == 23 || localHour == 0 || localHour == 1
}

// MarkDailySummaryEmitted records that the summary for localDate was written.
func (l *Log) MarkDailySummaryEmitted(localDate string) {
	l.lastSummaryDate = localDate
}
