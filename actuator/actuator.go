// Package actuator maps a decided state to the concrete command sent to the
// inverter and hot water system, including the HWS cooldown sub-controller.
package actuator

import (
	"time"

	"github.com/solarhome/gridctl/config"
	"github.com/solarhome/gridctl/transition"
)

// HwsState is the persisted sub-controller state the engine must round-trip
// across ticks.
type HwsState struct {
	On            bool
	LastOffAt     time.Time
	LastOffIsZero bool // true until the first OFF transition, so cooldown starts "already expired"
}

// Facts is the subset of a tick's inputs the actuator needs, independent of
// the transition package so it stays testable in isolation.
type Facts struct {
	BatterySocPct float64
	GenerationW   float64
	ExcessGenW    float64
}

// Command is the actuation output for a single tick.
type Command struct {
	SetEssMode    bool
	GridSetpointW *int
	InverterMode  int
	EnableHws     bool
}

func zero() *int {
	z := 0
	return &z
}

// Decide maps next_state to a Command and runs the HWS sub-controller when
// next_state is LOAD_MANAGEMENT. It returns the updated HwsState the caller
// must persist.
func Decide(cfg config.Config, state transition.State, facts Facts, hws HwsState, now time.Time) (Command, HwsState) {
	switch state {
	case transition.StateExportPriority:
		return Command{SetEssMode: false, GridSetpointW: nil, InverterMode: 3, EnableHws: false}, turnOff(hws, now)

	case transition.StateBatteryStorage:
		return Command{SetEssMode: true, GridSetpointW: zero(), InverterMode: 3, EnableHws: false}, turnOff(hws, now)

	case transition.StateSelfConsume:
		return Command{SetEssMode: true, GridSetpointW: zero(), InverterMode: 3, EnableHws: false}, turnOff(hws, now)

	case transition.StateLoadManagement:
		nextHws := decideHws(cfg, facts, hws, now)
		return Command{SetEssMode: true, GridSetpointW: zero(), InverterMode: 3, EnableHws: nextHws.On}, nextHws

	case transition.StateSafeMode:
		fallthrough
	default:
		return Command{SetEssMode: false, GridSetpointW: nil, InverterMode: 4, EnableHws: false}, turnOff(hws, now)
	}
}

func turnOff(hws HwsState, now time.Time) HwsState {
	if !hws.On {
		return hws
	}
	return HwsState{On: false, LastOffAt: now}
}

func decideHws(cfg config.Config, facts Facts, hws HwsState, now time.Time) HwsState {
	socDropFloor := cfg.MaxSocThresholdPct - cfg.HwsSocDropThresholdPct
	shouldDrop := facts.BatterySocPct <= socDropFloor || facts.GenerationW < cfg.HwsGenerationDropThresholdW

	if hws.On {
		if shouldDrop {
			return HwsState{On: false, LastOffAt: now}
		}
		return hws
	}

	cooldownExpired := hws.LastOffIsZero || now.Sub(hws.LastOffAt) >= time.Duration(cfg.HwsCooldownPeriodMinutes*float64(time.Minute))
	readyToTurnOn := cooldownExpired && facts.BatterySocPct > socDropFloor && facts.GenerationW >= cfg.HwsGenerationDropThresholdW
	if readyToTurnOn {
		return HwsState{On: true}
	}
	return hws
}
