// Package store persists engine state on top of gorm and a pure-Go sqlite
// driver.
package store

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/solarhome/gridctl/eventlog"
	"github.com/solarhome/gridctl/target"
	"github.com/solarhome/gridctl/transition"
)

// Store is the single PersistentStore collaborator. One instance is shared
// by the engine across the process lifetime.
type Store struct {
	db *gorm.DB
}

// New opens (creating if necessary) the sqlite file at path and migrates
// every table the engine needs.
func New(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	err = db.AutoMigrate(
		&EngineState{},
		&TargetCacheRow{},
		&DebounceEntryRow{},
		&ExportHistoryRow{},
		&EventLogRow{},
	)
	if err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	return &Store{db: db}, nil
}

// Snapshot is everything the engine reads once at process start (and on
// every tick re-reads from its own in-memory copy, never re-querying the
// database mid-tick).
type Snapshot struct {
	CurrentState    transition.State
	Hws             HwsPersisted
	DebounceEntries map[string]time.Time
	TargetCache     target.Result
	HasTargetCache  bool
	ExportHistory   []target.DailyRecord
	ExportMonths    []int
	Log             *eventlog.Log
}

// HwsPersisted is the actuator's HWS sub-controller state as stored.
type HwsPersisted struct {
	On            bool
	LastOffAt     time.Time
	LastOffIsZero bool
}

// Load reads every persisted blob once, falling back to the documented
// defaults (EXPORT_PRIORITY current state, empty debounce registry, no
// target cache, empty history, empty log) when the store is fresh.
func (s *Store) Load() (Snapshot, error) {
	var snap Snapshot

	var state EngineState
	result := s.db.FirstOrCreate(&state, EngineState{ID: 1, CurrentState: string(transition.DefaultState), HwsLastOffIsZero: true, LastLogCleanupIsZero: true})
	if result.Error != nil {
		return Snapshot{}, fmt.Errorf("load engine state: %w", result.Error)
	}

	snap.CurrentState = transition.State(state.CurrentState)
	if !transition.IsKnown(snap.CurrentState) {
		snap.CurrentState = transition.DefaultState
	}
	snap.Hws = HwsPersisted{
		On:            state.HwsOn,
		LastOffAt:     epochMsToTime(state.HwsLastOffEpochMs),
		LastOffIsZero: state.HwsLastOffIsZero,
	}

	var debounceRows []DebounceEntryRow
	if err := s.db.Find(&debounceRows).Error; err != nil {
		return Snapshot{}, fmt.Errorf("load debounce registry: %w", err)
	}
	snap.DebounceEntries = make(map[string]time.Time, len(debounceRows))
	for _, row := range debounceRows {
		key := row.FromState + "_to_" + row.ToState
		snap.DebounceEntries[key] = epochMsToTime(row.RequestedAtEpochMs)
	}

	var cache TargetCacheRow
	result = s.db.First(&cache, "id = ?", 1)
	if result.Error == nil {
		snap.HasTargetCache = true
		snap.TargetCache = target.Result{
			BaseTarget:          cache.BaseTarget,
			StaticMonthlyTarget: cache.StaticMonthlyTarget,
			PerformanceRatio:    cache.PerformanceRatio,
			AdjustedTarget:      cache.AdjustedTarget,
			RollingDays:         cache.RollingDays,
			RollingExportTotal:  cache.RollingExportTotal,
			HasMixedMonths:      cache.HasMixedMonths,
			AdjustmentReason:    cache.AdjustmentReason,
		}
	} else if result.Error != gorm.ErrRecordNotFound {
		return Snapshot{}, fmt.Errorf("load target cache: %w", result.Error)
	}

	var historyRows []ExportHistoryRow
	if err := s.db.Order("date asc").Find(&historyRows).Error; err != nil {
		return Snapshot{}, fmt.Errorf("load export history: %w", err)
	}
	for _, row := range historyRows {
		snap.ExportHistory = append(snap.ExportHistory, target.DailyRecord{
			Date:       row.Date,
			ExportKwh:  row.ExportKwh,
			TargetKwh:  row.TargetKwh,
			RecordedAt: row.RecordedAtEpochMs,
		})
		snap.ExportMonths = append(snap.ExportMonths, monthOf(row.Date))
	}

	var logRows []EventLogRow
	if err := s.db.Order("local_iso_time asc").Find(&logRows).Error; err != nil {
		return Snapshot{}, fmt.Errorf("load event log: %w", err)
	}
	entries := make([]eventlog.Entry, 0, len(logRows))
	for _, row := range logRows {
		entries = append(entries, eventlog.Entry{
			ID:           row.ID,
			LocalIsoTime: row.LocalIsoTime,
			Type:         row.Type,
			Priority:     row.Priority,
			Message:      row.Message,
			Data:         decodeData(row.DataJSON),
			Date:         row.Date,
		})
	}
	snap.Log = eventlog.Load(entries, epochMsToTime(state.LastLogCleanupEpochMs), !state.LastLogCleanupIsZero, state.LastDailySummaryDate)

	return snap, nil
}

// TickWrite bundles every blob the engine may update during a single tick.
// CommitTick applies them all inside one transaction, so a crash mid-tick
// never leaves a partially-updated blob.
type TickWrite struct {
	CurrentState    transition.State
	Hws             HwsPersisted
	DebounceEntries map[string]time.Time
	TargetCache     target.Result
	HistoryAppend   *target.DailyRecord // nil if today's entry already exists
	Log             []eventlog.Entry    // the full current bounded log, mirrored into event_log verbatim
	LastSummaryDate string
	LastCleanupAt   time.Time
	HasLastCleanup  bool
}

// CommitTick durably applies every change from a tick in a single gorm
// transaction: either all of it commits or none does.
func (s *Store) CommitTick(w TickWrite) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		state := EngineState{
			ID:                    1,
			CurrentState:          string(w.CurrentState),
			HwsOn:                 w.Hws.On,
			HwsLastOffEpochMs:     timeToEpochMs(w.Hws.LastOffAt),
			HwsLastOffIsZero:      w.Hws.LastOffIsZero,
			LastDailySummaryDate:  w.LastSummaryDate,
			LastLogCleanupEpochMs: timeToEpochMs(w.LastCleanupAt),
			LastLogCleanupIsZero:  !w.HasLastCleanup,
		}
		if err := tx.Save(&state).Error; err != nil {
			return fmt.Errorf("save engine state: %w", err)
		}

		if err := tx.Where("1 = 1").Delete(&DebounceEntryRow{}).Error; err != nil {
			return fmt.Errorf("clear debounce registry: %w", err)
		}
		for key, at := range w.DebounceEntries {
			from, to, ok := splitTransitionKey(key)
			if !ok {
				continue
			}
			row := DebounceEntryRow{FromState: from, ToState: to, RequestedAtEpochMs: timeToEpochMs(at)}
			if err := tx.Create(&row).Error; err != nil {
				return fmt.Errorf("persist debounce entry: %w", err)
			}
		}

		cacheRow := TargetCacheRow{
			ID:                  1,
			BaseTarget:          w.TargetCache.BaseTarget,
			StaticMonthlyTarget: w.TargetCache.StaticMonthlyTarget,
			PerformanceRatio:    w.TargetCache.PerformanceRatio,
			AdjustedTarget:      w.TargetCache.AdjustedTarget,
			RollingDays:         w.TargetCache.RollingDays,
			RollingExportTotal:  w.TargetCache.RollingExportTotal,
			HasMixedMonths:      w.TargetCache.HasMixedMonths,
			AdjustmentReason:    w.TargetCache.AdjustmentReason,
		}
		if err := tx.Save(&cacheRow).Error; err != nil {
			return fmt.Errorf("save target cache: %w", err)
		}

		if w.HistoryAppend != nil {
			var existing ExportHistoryRow
			result := tx.First(&existing, "date = ?", w.HistoryAppend.Date)
			if result.Error == gorm.ErrRecordNotFound {
				row := ExportHistoryRow{
					Date:              w.HistoryAppend.Date,
					ExportKwh:         w.HistoryAppend.ExportKwh,
					TargetKwh:         w.HistoryAppend.TargetKwh,
					RecordedAtEpochMs: w.HistoryAppend.RecordedAt,
				}
				if err := tx.Create(&row).Error; err != nil {
					return fmt.Errorf("append export history: %w", err)
				}
				if err := trimHistoryToWindow(tx, 30); err != nil {
					return err
				}
			} else if result.Error != nil {
				return fmt.Errorf("check export history: %w", result.Error)
			}
			// else: today's entry already exists, write-once-per-day semantics, leave it untouched
		}

		// The log is mirrored wholesale rather than appended-to, so the
		// persisted table always carries exactly the bounded, age-cleaned
		// set the engine holds in memory - never more than max_log_entries.
		if err := tx.Where("1 = 1").Delete(&EventLogRow{}).Error; err != nil {
			return fmt.Errorf("clear event log: %w", err)
		}
		for _, entry := range w.Log {
			row := EventLogRow{
				ID:           entry.ID,
				LocalIsoTime: entry.LocalIsoTime,
				Type:         entry.Type,
				Priority:     entry.Priority,
				Message:      entry.Message,
				DataJSON:     encodeData(entry.Data),
				Date:         entry.Date,
			}
			if err := tx.Create(&row).Error; err != nil {
				return fmt.Errorf("write event log entry: %w", err)
			}
		}

		return nil
	})
}

func trimHistoryToWindow(tx *gorm.DB, window int) error {
	var count int64
	if err := tx.Model(&ExportHistoryRow{}).Count(&count).Error; err != nil {
		return fmt.Errorf("count export history: %w", err)
	}
	if count <= int64(window) {
		return nil
	}

	excess := count - int64(window)
	var stale []ExportHistoryRow
	if err := tx.Order("date asc").Limit(int(excess)).Find(&stale).Error; err != nil {
		return fmt.Errorf("find stale export history: %w", err)
	}
	for _, row := range stale {
		if err := tx.Delete(&row).Error; err != nil {
			return fmt.Errorf("trim export history: %w", err)
		}
	}
	return nil
}

func splitTransitionKey(key string) (from, to string, ok bool) {
	const sep = "_to_"
	idx := strings.Index(key, sep)
	if idx < 0 {
		return "", "", false
	}
	return key[:idx], key[idx+len(sep):], true
}

func monthOf(date string) int {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return 0
	}
	return int(t.Month())
}

func epochMsToTime(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

func timeToEpochMs(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func encodeData(data map[string]any) string {
	if len(data) == 0 {
		return ""
	}
	b, err := json.Marshal(data)
	if err != nil {
		return ""
	}
	return string(b)
}

func decodeData(raw string) map[string]any {
	if raw == "" {
		return nil
	}
	var data map[string]any
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil
	}
	return data
}
