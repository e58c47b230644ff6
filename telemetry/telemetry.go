// Package telemetry defines the tick input and output command records that
// flow through the controller, plus stand-in sources for local running.
package telemetry

import "time"

// TickInput is the instantaneous snapshot of plant telemetry read once at
// the start of a tick. Subsequent reads within that tick must not re-read
// the ingestion layer - this struct is the frozen copy they see instead.
type TickInput struct {
	Time                    time.Time `json:"time"`
	DailyExportWh           float64   `json:"daily_export_wh"`
	GridPowerW              float64   `json:"grid_power_w"`
	GenerationW             float64   `json:"generation_w"`
	BatterySocPct           float64   `json:"battery_soc_pct"`
	BatteryPowerW           float64   `json:"battery_power_w"`
	InverterMode            int       `json:"inverter_mode"`
	EnergyManagementEnabled bool      `json:"enabled"`
}

// DailyExportKwh is a convenience accessor used throughout the engine.
func (t TickInput) DailyExportKwh() float64 {
	return t.DailyExportWh / 1000.0
}

// Actions is the set of actuation commands the engine asks the transport
// collaborator to apply to the inverter/HWS this tick.
type Actions struct {
	SetEssMode    bool  `json:"set_ess_mode"`
	GridSetpointW *int  `json:"grid_setpoint_w"` // nil means "no setpoint", i.e. leave it alone
	EnableHws     bool  `json:"enable_hws"`
	InverterMode  int   `json:"inverter_mode"`
}

// Status summarises the tick for observability/dashboards.
type Status struct {
	ExportTargetKwh         float64 `json:"export_target_kwh"`
	DailyExportKwh          float64 `json:"daily_export_kwh"`
	TargetReached           bool    `json:"target_reached"`
	BatterySocPct           float64 `json:"battery_soc_pct"`
	ExcessGenerationW       float64 `json:"excess_generation_w"`
	BatteryPowerW           float64 `json:"battery_power_w"`
	BatteryProtectionActive bool    `json:"battery_protection_active"`
}

// Debug carries human-facing explanation of the tick's decision.
type Debug struct {
	StateReason string    `json:"state_reason"`
	NextCheck   time.Time `json:"next_check"`
}

// Command is the full output record produced once per tick.
type Command struct {
	Timestamp    time.Time `json:"timestamp"`
	CurrentState string    `json:"current_state"`
	Actions      Actions   `json:"actions"`
	Status       Status    `json:"status"`
	Debug        Debug     `json:"debug"`
}

// Source is implemented by any collaborator that can produce a TickInput on
// demand - a real ingestion layer in production, a fixture in tests.
type Source interface {
	Read() (TickInput, error)
}
