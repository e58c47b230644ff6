package store

// EngineState is the single-row table holding the engine's scalar persisted
// fields. Row id is always 1.
type EngineState struct {
	ID                    uint `gorm:"primaryKey"`
	CurrentState          string
	HwsOn                 bool
	HwsLastOffEpochMs     int64
	HwsLastOffIsZero      bool
	LastDailySummaryDate  string
	LastLogCleanupEpochMs int64
	LastLogCleanupIsZero  bool
}

// TargetCacheRow is the single-row table holding the last AdaptiveTargetResult.
type TargetCacheRow struct {
	ID                  uint `gorm:"primaryKey"`
	BaseTarget          float64
	StaticMonthlyTarget float64
	PerformanceRatio    float64
	AdjustedTarget      float64
	RollingDays         int
	RollingExportTotal  float64
	HasMixedMonths      bool
	AdjustmentReason    string
}

// DebounceEntryRow persists one pending (from, to) debounce request.
type DebounceEntryRow struct {
	FromState          string `gorm:"primaryKey"`
	ToState            string `gorm:"primaryKey"`
	RequestedAtEpochMs int64
}

// ExportHistoryRow is one day's export-vs-target record. Date is unique:
// the history updater writes it at most once per local day.
type ExportHistoryRow struct {
	ID                uint   `gorm:"primaryKey"`
	Date              string `gorm:"uniqueIndex"`
	ExportKwh         float64
	TargetKwh         float64
	RecordedAtEpochMs int64
}

// EventLogRow is one append-only log entry.
type EventLogRow struct {
	ID           string `gorm:"primaryKey"`
	LocalIsoTime string
	Type         string
	Priority     string
	Message      string
	DataJSON     string
	Date         string `gorm:"index"`
}
