package actuator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solarhome/gridctl/config"
	"github.com/solarhome/gridctl/transition"
)

func TestDecide_ExportPriorityCommand(t *testing.T) {
	cfg := config.Defaults()
	cmd, _ := Decide(cfg, transition.StateExportPriority, Facts{}, HwsState{}, time.Now())

	assert.False(t, cmd.SetEssMode)
	assert.Nil(t, cmd.GridSetpointW)
	assert.Equal(t, 3, cmd.InverterMode)
	assert.False(t, cmd.EnableHws)
}

func TestDecide_SafeModeCommand(t *testing.T) {
	cfg := config.Defaults()
	cmd, _ := Decide(cfg, transition.StateSafeMode, Facts{}, HwsState{}, time.Now())

	assert.False(t, cmd.SetEssMode)
	assert.Nil(t, cmd.GridSetpointW)
	assert.Equal(t, 4, cmd.InverterMode)
}

func TestDecide_BatteryStorageSetsZeroSetpoint(t *testing.T) {
	cfg := config.Defaults()
	cmd, _ := Decide(cfg, transition.StateBatteryStorage, Facts{}, HwsState{}, time.Now())

	require.NotNil(t, cmd.GridSetpointW)
	assert.Equal(t, 0, *cmd.GridSetpointW)
	assert.True(t, cmd.SetEssMode)
}

func TestDecide_HwsTurnsOnWhenConditionsMetAndCooldownExpired(t *testing.T) {
	cfg := config.Defaults()
	facts := Facts{BatterySocPct: 97, GenerationW: 2000}

	cmd, hws := Decide(cfg, transition.StateLoadManagement, facts, HwsState{LastOffIsZero: true}, time.Now())

	assert.True(t, cmd.EnableHws)
	assert.True(t, hws.On)
}

func TestDecide_HwsDoesNotTurnOnDuringCooldown(t *testing.T) {
	cfg := config.Defaults()
	facts := Facts{BatterySocPct: 97, GenerationW: 2000}
	now := time.Now()
	hws := HwsState{On: false, LastOffAt: now.Add(-5 * time.Minute)}

	cmd, next := Decide(cfg, transition.StateLoadManagement, facts, hws, now)

	assert.False(t, cmd.EnableHws)
	assert.False(t, next.On)
}

func TestDecide_HwsTurnsOnAfterCooldownExpires(t *testing.T) {
	cfg := config.Defaults()
	facts := Facts{BatterySocPct: 97, GenerationW: 2000}
	now := time.Now()
	hws := HwsState{On: false, LastOffAt: now.Add(-31 * time.Minute)}

	cmd, next := Decide(cfg, transition.StateLoadManagement, facts, hws, now)

	assert.True(t, cmd.EnableHws)
	assert.True(t, next.On)
}

func TestDecide_HwsTurnsOffOnSocDrop(t *testing.T) {
	cfg := config.Defaults()
	facts := Facts{BatterySocPct: 90, GenerationW: 2000} // 99 - 5 = 94 floor, 90 <= 94
	now := time.Now()
	hws := HwsState{On: true}

	cmd, next := Decide(cfg, transition.StateLoadManagement, facts, hws, now)

	assert.False(t, cmd.EnableHws)
	assert.False(t, next.On)
	assert.Equal(t, now, next.LastOffAt)
}

func TestDecide_HwsTurnsOffOnLowGeneration(t *testing.T) {
	cfg := config.Defaults()
	facts := Facts{BatterySocPct: 97, GenerationW: 1000} // below the 1500W drop threshold
	hws := HwsState{On: true}

	cmd, next := Decide(cfg, transition.StateLoadManagement, facts, hws, time.Now())

	assert.False(t, cmd.EnableHws)
	assert.False(t, next.On)
}

func TestDecide_HwsHoldsOnWhenStillHealthy(t *testing.T) {
	cfg := config.Defaults()
	facts := Facts{BatterySocPct: 97, GenerationW: 2000}
	hws := HwsState{On: true}

	cmd, next := Decide(cfg, transition.StateLoadManagement, facts, hws, time.Now())

	assert.True(t, cmd.EnableHws)
	assert.True(t, next.On)
}

func TestDecide_LeavingLoadManagementTurnsHwsOff(t *testing.T) {
	cfg := config.Defaults()
	now := time.Now()
	hws := HwsState{On: true}

	_, next := Decide(cfg, transition.StateBatteryStorage, Facts{}, hws, now)

	assert.False(t, next.On)
	assert.Equal(t, now, next.LastOffAt)
}
