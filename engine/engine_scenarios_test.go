package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solarhome/gridctl/eventlog"
	"github.com/solarhome/gridctl/telemetry"
)

// TestScenario_S6_LoadManagementActivatesAndReleasesHws reproduces the
// load-management HWS activation/deactivation scenario: battery full with
// excess generation turns HWS on and logs HWS_EVENT(TURNED_ON); generation
// then dropping turns it back off and logs HWS_EVENT(TURNED_OFF).
func TestScenario_S6_LoadManagementActivatesAndReleasesHws(t *testing.T) {
	e := newTestEngine(t)

	// Reach BATTERY_STORAGE first: daily export already past target.
	cmd, err := e.Tick(telemetry.TickInput{
		Time:                    time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		DailyExportWh:           30_000,
		GenerationW:             3000,
		GridPowerW:              -1500,
		BatterySocPct:           60,
		BatteryPowerW:           1500,
		EnergyManagementEnabled: true,
	})
	require.NoError(t, err)
	require.Equal(t, "BATTERY_STORAGE", cmd.CurrentState)

	// soc at max threshold, generation far exceeding 0.8*hws_power_rating.
	cmd, err = e.Tick(telemetry.TickInput{
		Time:                    time.Date(2026, 8, 1, 12, 5, 0, 0, time.UTC),
		DailyExportWh:           30_000,
		GenerationW:             4000,
		GridPowerW:              -2600,
		BatterySocPct:           99,
		BatteryPowerW:           0,
		EnergyManagementEnabled: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "LOAD_MANAGEMENT", cmd.CurrentState)
	assert.True(t, cmd.Actions.EnableHws)
	assertLastEntryIs(t, e, eventlog.TypeHwsEvent, "HWS_EVENT(TURNED_ON)")

	// Generation drops below the HWS drop threshold; HWS releases, state steps back.
	cmd, err = e.Tick(telemetry.TickInput{
		Time:                    time.Date(2026, 8, 1, 12, 10, 0, 0, time.UTC),
		DailyExportWh:           30_000,
		GenerationW:             800,
		GridPowerW:              0,
		BatterySocPct:           99,
		BatteryPowerW:           0,
		EnergyManagementEnabled: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "BATTERY_STORAGE", cmd.CurrentState)
	assert.False(t, cmd.Actions.EnableHws)
	assertLastEntryIs(t, e, eventlog.TypeHwsEvent, "HWS_EVENT(TURNED_OFF)")
}

func assertLastEntryIs(t *testing.T, e *Engine, typ, message string) {
	t.Helper()
	entries := e.log.Entries()
	require.NotEmpty(t, entries)
	last := entries[len(entries)-1]
	assert.Equal(t, typ, last.Type)
	assert.Equal(t, message, last.Message)
}
