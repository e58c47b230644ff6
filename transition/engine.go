package transition

import (
	"fmt"
	"time"

	"github.com/solarhome/gridctl/config"
)

// Input is the subset of a tick's validated telemetry, plus the daily
// export target already computed by the AdaptiveTargetCalc, that the
// decision engine needs.
type Input struct {
	DailyExportKwh float64
	TargetKwh      float64
	GridPowerW     float64
	GenerationW    float64
	BatterySocPct  float64
	BatteryPowerW  float64
	IsNight        bool
	HwsOn          bool
}

// Decision is the outcome of a single Decide call.
type Decision struct {
	NextState               State
	Reason                  string
	Logs                    []LogRequest
	BatteryProtectionActive bool
}

// TargetReached reports whether the configured daily export target has been
// met or exceeded.
func (in Input) TargetReached() bool {
	return in.DailyExportKwh >= in.TargetKwh
}

func (in Input) sufficientSolar(cfg config.Config) bool {
	return in.GenerationW >= cfg.MinGenerationForExportW || in.BatteryPowerW >= cfg.StrongChargingThresholdW
}

func (in Input) excessGenerationW() float64 {
	return in.ExcessGenerationW()
}

// ExcessGenerationW is the generation exceeding what the site itself is
// consuming right now, derived as max(0, -grid_power_w).
func (in Input) ExcessGenerationW() float64 {
	excess := -in.GridPowerW
	if excess < 0 {
		return 0
	}
	return excess
}

// Decide runs the prioritised override rules and, if none match, the
// default per-state transition table, and returns the next state. current
// must be one of the five known states - the caller is responsible for
// resetting an unrecognised persisted value to DefaultState before calling
// Decide (see the PersistentStore load path).
func Decide(cfg config.Config, reg *Registry, now time.Time, current State, in Input) Decision {

	debounceTime := time.Duration(cfg.StateChangeDebounceTimeMinutes * float64(time.Minute))

	// Rule 1: stale-generation protection. Trust the grid meter over a sticky generation sensor.
	if current == StateExportPriority &&
		in.GridPowerW < -cfg.SignificantExportThresholdW &&
		in.GenerationW < cfg.MinGenerationForExportW {
		return Decision{
			NextState: current,
			Reason:    "stale generation sensor suspected, holding EXPORT_PRIORITY",
			Logs: []LogRequest{{
				Type:     LogTypeDataProtection,
				Priority: PriorityHigh,
				Message:  "grid export significant but generation reads low; distrusting generation sensor",
				Data: map[string]any{
					"grid_power_w": in.GridPowerW,
					"generation_w": in.GenerationW,
				},
			}},
		}
	}

	// Rule 2: battery-protection override. Bypasses debouncing entirely - over-discharge is irreversible.
	if in.BatterySocPct <= cfg.MinSocThresholdPct && in.BatteryPowerW < 0 {
		reg.ClearAll()
		return Decision{
			NextState:               StateExportPriority,
			Reason:                  "battery protection: SOC at or below minimum while discharging",
			BatteryProtectionActive: true,
			Logs: []LogRequest{{
				Type:     LogTypeBatteryProtect,
				Priority: PriorityCritical,
				Message:  "battery SOC at or below minimum threshold while discharging; forcing EXPORT_PRIORITY",
				Data: map[string]any{
					"soc_pct":         in.BatterySocPct,
					"battery_power_w": in.BatteryPowerW,
				},
			}},
		}
	}

	targetReached := in.TargetReached()
	sufficientSolar := in.sufficientSolar(cfg)
	notCharging := in.BatteryPowerW <= 0
	charging := in.BatteryPowerW > 0

	// Rule 3: under-target reset during the day with sufficient solar.
	if current != StateExportPriority && !targetReached && !in.IsNight && sufficientSolar {
		if d, matched := requestDecision(reg, "under_target_reset", current, StateExportPriority, now, debounceTime); matched {
			return d
		}
	}

	// Rule 4: deep-shortfall reset. Logically a subset of rule 3's conditions (battery charging
	// strongly already implies sufficient solar) but kept distinct for log differentiation.
	if current != StateExportPriority && in.TargetKwh > 0 &&
		(in.DailyExportKwh/in.TargetKwh) < (cfg.ExportTargetPercentage/100) &&
		in.BatteryPowerW >= cfg.StrongChargingThresholdW &&
		!in.IsNight && sufficientSolar {
		if d, matched := requestDecision(reg, "deep_shortfall_reset", current, StateExportPriority, now, debounceTime); matched {
			return d
		}
	}

	// Rule 5: hysteresis exit from EXPORT_PRIORITY - stay threshold is deliberately lower than the entry threshold.
	if current == StateExportPriority && !in.IsNight &&
		in.GenerationW < cfg.MinGenerationToStayExportW &&
		in.BatteryPowerW < cfg.BatteryChargingThresholdW &&
		in.BatterySocPct > cfg.MinSocThresholdPct {
		if d, matched := requestDecision(reg, "hysteresis_exit", current, StateSelfConsume, now, debounceTime); matched {
			return d
		}
	}

	// Rule 6: default per-state transitions. None of these pass through the debounce registry.
	switch current {

	case StateExportPriority:
		if targetReached {
			return stateChange(current, StateBatteryStorage, "daily export target reached")
		}
		if in.GenerationW < cfg.MinGenerationForExportW && in.BatterySocPct > cfg.EveningSelfConsumeSocThreshold && notCharging {
			return stateChange(current, StateSelfConsume, "low generation into the evening with healthy SOC")
		}
		return hold(current, "no override or default condition matched")

	case StateBatteryStorage:
		if in.BatterySocPct >= cfg.MaxSocThresholdPct && in.excessGenerationW() > 0.8*cfg.HwsPowerRatingW {
			return stateChange(current, StateLoadManagement, "battery full with excess generation available for HWS")
		}
		if in.BatterySocPct <= cfg.MinSocThresholdPct && notCharging {
			return stateChange(current, StateSelfConsume, "SOC at minimum and not charging")
		}
		if in.BatteryPowerW < 0 {
			return stateChange(current, StateSelfConsume, "battery discharging")
		}
		return hold(current, "no override or default condition matched")

	case StateLoadManagement:
		if in.HwsOn && (in.BatterySocPct <= cfg.MaxSocThresholdPct-cfg.HwsSocDropThresholdPct || in.GenerationW < cfg.HwsGenerationDropThresholdW) {
			if in.BatterySocPct <= cfg.MinSocThresholdPct {
				return stateChange(current, StateSelfConsume, "HWS load dropping and SOC low")
			}
			return stateChange(current, StateBatteryStorage, "HWS load dropping")
		}
		return hold(current, "no override or default condition matched")

	case StateSelfConsume:
		if charging && !targetReached {
			return stateChange(current, StateExportPriority, "charging and target not yet reached")
		}
		if charging && targetReached {
			return stateChange(current, StateBatteryStorage, "charging and target already reached")
		}
		return hold(current, "no override or default condition matched")

	default:
		// Unreachable in normal operation: the caller resets any unrecognised persisted state to
		// DefaultState before calling Decide. Kept as a defensive fallback per the safety goal.
		return Decision{
			NextState: StateSafeMode,
			Reason:    fmt.Sprintf("unrecognised state %q encountered in decision engine", current),
			Logs: []LogRequest{{
				Type:     LogTypeSystem,
				Priority: PriorityHigh,
				Message:  "unrecognised state reached the decision engine; forcing SAFE_MODE",
				Data:     map[string]any{"state": string(current)},
			}},
		}
	}
}

// requestDecision wraps a debounced-transition request into a Decision, or reports matched=false if
// the registry has nothing to report yet (which cannot actually happen - Request always returns an
// outcome - so matched is always true; it exists to keep call sites uniform and readable).
func requestDecision(reg *Registry, componentName string, from, to State, now time.Time, debounceTime time.Duration) (Decision, bool) {
	outcome, remaining := reg.Request(from, to, now, debounceTime)

	switch outcome {
	case OutcomeStarted:
		return Decision{
			NextState: from,
			Reason:    fmt.Sprintf("%s: debouncing request %s -> %s", componentName, from, to),
			Logs: []LogRequest{{
				Type:     LogTypeDebounce,
				Priority: PriorityNormal,
				Message:  fmt.Sprintf("%s request started", componentName),
				Data:     map[string]any{"from": string(from), "to": string(to)},
			}},
		}, true

	case OutcomeApproved:
		return Decision{
			NextState: to,
			Reason:    fmt.Sprintf("%s: approved %s -> %s", componentName, from, to),
			Logs: []LogRequest{{
				Type:     LogTypeDebounce,
				Priority: PriorityNormal,
				Message:  fmt.Sprintf("%s approved", componentName),
				Data:     map[string]any{"from": string(from), "to": string(to)},
			}},
		}, true

	default: // OutcomePending
		return Decision{
			NextState: from,
			Reason:    fmt.Sprintf("%s: debouncing, %.0fs remaining", componentName, remaining.Seconds()),
		}, true
	}
}

func stateChange(from, to State, reason string) Decision {
	return Decision{
		NextState: to,
		Reason:    reason,
		Logs: []LogRequest{{
			Type:     LogTypeStateChange,
			Priority: PriorityNormal,
			Message:  fmt.Sprintf("%s -> %s: %s", from, to, reason),
			Data:     map[string]any{"from": string(from), "to": string(to)},
		}},
	}
}

func hold(current State, reason string) Decision {
	return Decision{NextState: current, Reason: reason}
}
