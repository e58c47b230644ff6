package validator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/solarhome/gridctl/telemetry"
)

func TestValidate_AcceptsNominalInput(t *testing.T) {
	in := telemetry.TickInput{
		Time:          time.Now(),
		DailyExportWh: 12500,
		GridPowerW:    -1200,
		GenerationW:   3200,
		BatterySocPct: 62,
		BatteryPowerW: 800,
	}

	result := Validate(in)
	assert.True(t, result.OK())
	assert.Empty(t, result.Errors)
}

func TestValidate_RejectsSocOutOfRange(t *testing.T) {
	in := telemetry.TickInput{BatterySocPct: 106}
	result := Validate(in)
	assert.False(t, result.OK())
	assert.Len(t, result.Errors, 1)
}

func TestValidate_AcceptsSocBoundaries(t *testing.T) {
	assert.True(t, Validate(telemetry.TickInput{BatterySocPct: -5}).OK())
	assert.True(t, Validate(telemetry.TickInput{BatterySocPct: 105}).OK())
}

func TestValidate_RejectsExcessivePowerMagnitude(t *testing.T) {
	cases := []telemetry.TickInput{
		{GenerationW: 50001},
		{GridPowerW: -50001},
		{BatteryPowerW: 50001},
	}
	for _, in := range cases {
		result := Validate(in)
		assert.False(t, result.OK())
	}
}

func TestValidate_RejectsDailyExportOutOfRange(t *testing.T) {
	in := telemetry.TickInput{DailyExportWh: 201_000}
	result := Validate(in)
	assert.False(t, result.OK())
	assert.Contains(t, result.Errors[0], "daily_export_kwh")
}

func TestValidate_AccumulatesMultipleErrors(t *testing.T) {
	in := telemetry.TickInput{
		BatterySocPct: 500,
		GenerationW:   100000,
		DailyExportWh: 500_000,
	}
	result := Validate(in)
	assert.Len(t, result.Errors, 3)
}
