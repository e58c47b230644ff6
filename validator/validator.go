// Package validator bounds-checks a tick's raw telemetry before anything
// else in the engine is allowed to act on it.
package validator

import (
	"fmt"
	"math"

	"github.com/solarhome/gridctl/telemetry"
)

const (
	socMin             = -5
	socMax             = 105
	powerMagnitudeMax  = 50000
	dailyExportKwhMin  = 0
	dailyExportKwhMax  = 200
)

// Result is either valid (Errors is empty) or invalid.
type Result struct {
	Errors []string
}

// OK reports whether the validation passed.
func (r Result) OK() bool {
	return len(r.Errors) == 0
}

// Validate bounds-checks a TickInput against plausible plant ranges and
// returns every violation found (not just the first), so a single ERROR
// log entry can describe the whole failure.
func Validate(in telemetry.TickInput) Result {
	var errs []string

	if in.BatterySocPct < socMin || in.BatterySocPct > socMax {
		errs = append(errs, fmt.Sprintf("battery_soc_pct %.2f out of range [%d, %d]", in.BatterySocPct, socMin, socMax))
	}
	if math.Abs(in.GenerationW) > powerMagnitudeMax {
		errs = append(errs, fmt.Sprintf("generation_w %.1f exceeds magnitude %d", in.GenerationW, powerMagnitudeMax))
	}
	if math.Abs(in.GridPowerW) > powerMagnitudeMax {
		errs = append(errs, fmt.Sprintf("grid_power_w %.1f exceeds magnitude %d", in.GridPowerW, powerMagnitudeMax))
	}
	if math.Abs(in.BatteryPowerW) > powerMagnitudeMax {
		errs = append(errs, fmt.Sprintf("battery_power_w %.1f exceeds magnitude %d", in.BatteryPowerW, powerMagnitudeMax))
	}
	dailyExportKwh := in.DailyExportKwh()
	if dailyExportKwh < dailyExportKwhMin || dailyExportKwh > dailyExportKwhMax {
		errs = append(errs, fmt.Sprintf("daily_export_kwh %.2f out of range [%d, %d]", dailyExportKwh, dailyExportKwhMin, dailyExportKwhMax))
	}

	return Result{Errors: errs}
}
