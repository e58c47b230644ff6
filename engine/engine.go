// Package engine wires the validator, adaptive target calculator,
// transition decision engine, actuator and persistent store together into a
// single per-tick entrypoint that operates synchronously on one input
// snapshot per call.
package engine

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/solarhome/gridctl/actuator"
	"github.com/solarhome/gridctl/config"
	"github.com/solarhome/gridctl/eventlog"
	"github.com/solarhome/gridctl/store"
	"github.com/solarhome/gridctl/target"
	"github.com/solarhome/gridctl/telemetry"
	"github.com/solarhome/gridctl/timeutils"
	"github.com/solarhome/gridctl/transition"
	"github.com/solarhome/gridctl/validator"
)

// Engine is the process-lifetime orchestrator. It is not goroutine-safe by
// design: ticks must never overlap, so one Engine must only ever be driven
// from one goroutine. LastCommand is the sole exception, safe to call
// concurrently from the status API.
type Engine struct {
	cfg    config.Config
	store  *store.Store
	clock  timeutils.Provider

	currentState    transition.State
	debounceReg     *transition.Registry
	hws             actuator.HwsState
	targetCache     target.Result
	hasTargetCache  bool
	exportHistory   []target.DailyRecord
	exportMonths    []int
	log             *eventlog.Log

	lastMu      sync.RWMutex
	lastCommand telemetry.Command
}

// LastCommand returns the most recently produced command record. Safe to
// call concurrently with Tick - it is read by the status API's HTTP
// handlers, which run on their own goroutines outside the single-threaded
// tick loop.
func (e *Engine) LastCommand() telemetry.Command {
	e.lastMu.RLock()
	defer e.lastMu.RUnlock()
	return e.lastCommand
}

func (e *Engine) setLastCommand(cmd telemetry.Command) {
	e.lastMu.Lock()
	e.lastCommand = cmd
	e.lastMu.Unlock()
}

// New builds an Engine and loads its persisted state from store.
func New(cfg config.Config, st *store.Store) (*Engine, error) {
	snap, err := st.Load()
	if err != nil {
		return nil, fmt.Errorf("load persisted state: %w", err)
	}

	return &Engine{
		cfg:            cfg,
		store:          st,
		clock:          timeutils.NewProvider(cfg.LocalOffsetHours, cfg.NightStartHour, cfg.NightEndHour),
		currentState:   snap.CurrentState,
		debounceReg:    transition.Load(snap.DebounceEntries),
		hws:            actuator.HwsState{On: snap.Hws.On, LastOffAt: snap.Hws.LastOffAt, LastOffIsZero: snap.Hws.LastOffIsZero},
		targetCache:    snap.TargetCache,
		hasTargetCache: snap.HasTargetCache,
		exportHistory:  snap.ExportHistory,
		exportMonths:   snap.ExportMonths,
		log:            snap.Log,
	}, nil
}

// Tick runs one full cycle: validate, compute the adaptive target, decide
// the next state, compute the actuation command, persist, and return. A
// panic raised by any truly-unreachable internal state is recovered here so
// it cannot crash the caller's tick loop; the recovered tick reports an
// error and leaves durable state untouched.
func (e *Engine) Tick(in telemetry.TickInput) (cmd telemetry.Command, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("recovered from panic during tick", "panic", r)
			err = fmt.Errorf("tick panicked: %v", r)
		}
	}()

	now := e.clock.Local(in.Time)

	if !in.EnergyManagementEnabled {
		result := disabledCommand(in.Time)
		e.setLastCommand(result)
		return result, nil
	}

	if result := validator.Validate(in); !result.OK() {
		e.appendLog(now, eventlog.TypeError, eventlog.PriorityHigh, "validation failed, holding degraded output", map[string]any{"errors": result.Errors})
		if err := e.persistLogOnly(); err != nil {
			return telemetry.Command{}, fmt.Errorf("commit validation failure log: %w", err)
		}
		return degradedCommand(in.Time), nil
	}

	month := int(now.Month())
	targetResult := target.Evaluate(e.cfg, e.exportHistory, e.exportMonths, month)
	if targetResult.RollingDays >= 3 {
		e.targetCache = targetResult
		e.hasTargetCache = true
	} else if !e.hasTargetCache {
		e.targetCache = targetResult
	}

	transitionInput := transition.Input{
		DailyExportKwh: in.DailyExportKwh(),
		TargetKwh:      e.targetCache.AdjustedTarget,
		GridPowerW:     in.GridPowerW,
		GenerationW:    in.GenerationW,
		BatterySocPct:  in.BatterySocPct,
		BatteryPowerW:  in.BatteryPowerW,
		IsNight:        e.clock.IsNight(in.Time),
		HwsOn:          e.hws.On,
	}

	decision := transition.Decide(e.cfg, e.debounceReg, now, e.currentState, transitionInput)
	e.currentState = decision.NextState

	for _, lr := range decision.Logs {
		e.appendLog(now, lr.Type, lr.Priority, lr.Message, lr.Data)
	}

	facts := actuator.Facts{
		BatterySocPct: in.BatterySocPct,
		GenerationW:   in.GenerationW,
		ExcessGenW:    transitionInput.ExcessGenerationW(),
	}
	actions, nextHws := actuator.Decide(e.cfg, e.currentState, facts, e.hws, now)
	if nextHws.On != e.hws.On {
		if nextHws.On {
			e.appendLog(now, eventlog.TypeHwsEvent, eventlog.PriorityNormal, "HWS_EVENT(TURNED_ON)", map[string]any{
				"battery_soc_pct": facts.BatterySocPct,
				"generation_w":    facts.GenerationW,
			})
		} else {
			e.appendLog(now, eventlog.TypeHwsEvent, eventlog.PriorityNormal, "HWS_EVENT(TURNED_OFF)", map[string]any{
				"battery_soc_pct": facts.BatterySocPct,
				"generation_w":    facts.GenerationW,
			})
		}
	}
	e.hws = nextHws

	var historyAppend *target.DailyRecord
	today := e.clock.DateString(in.Time)
	if !e.hasTodayRecord(today) {
		rec := target.DailyRecord{
			Date:       today,
			ExportKwh:  in.DailyExportKwh(),
			TargetKwh:  e.targetCache.AdjustedTarget,
			RecordedAt: in.Time.UnixMilli(),
		}
		e.exportHistory = append(e.exportHistory, rec)
		e.exportMonths = append(e.exportMonths, month)
		historyAppend = &rec
	}

	localHour := e.clock.Hour(in.Time)
	if e.log.ShouldEmitDailySummary(today, localHour) {
		e.appendLog(now, eventlog.TypeDailySummary, eventlog.PriorityNormal, "daily summary", map[string]any{
			"date":             today,
			"daily_export_kwh": in.DailyExportKwh(),
			"target_kwh":       e.targetCache.AdjustedTarget,
		})
		e.log.MarkDailySummaryEmitted(today)
	}

	lastCleanupAt, hasLastCleanup := e.log.LastCleanup()

	writeErr := e.store.CommitTick(store.TickWrite{
		CurrentState:    e.currentState,
		Hws:             store.HwsPersisted{On: e.hws.On, LastOffAt: e.hws.LastOffAt, LastOffIsZero: e.hws.LastOffIsZero},
		DebounceEntries: e.debounceReg.Snapshot(),
		TargetCache:     e.targetCache,
		HistoryAppend:   historyAppend,
		Log:             e.log.Entries(),
		LastSummaryDate: e.log.LastSummaryDate(),
		LastCleanupAt:   lastCleanupAt,
		HasLastCleanup:  hasLastCleanup,
	})
	if writeErr != nil {
		return telemetry.Command{}, fmt.Errorf("commit tick: %w", writeErr)
	}

	result := telemetry.Command{
		Timestamp:    in.Time,
		CurrentState: string(e.currentState),
		Actions: telemetry.Actions{
			SetEssMode:    actions.SetEssMode,
			GridSetpointW: actions.GridSetpointW,
			EnableHws:     actions.EnableHws,
			InverterMode:  actions.InverterMode,
		},
		Status: telemetry.Status{
			ExportTargetKwh:         e.targetCache.AdjustedTarget,
			DailyExportKwh:          in.DailyExportKwh(),
			TargetReached:           transitionInput.TargetReached(),
			BatterySocPct:           in.BatterySocPct,
			ExcessGenerationW:       transitionInput.ExcessGenerationW(),
			BatteryPowerW:           in.BatteryPowerW,
			BatteryProtectionActive: decision.BatteryProtectionActive,
		},
		Debug: telemetry.Debug{
			StateReason: decision.Reason,
			NextCheck:   in.Time.Add(time.Duration(e.cfg.TickPeriodSeconds) * time.Second),
		},
	}
	e.setLastCommand(result)
	return result, nil
}

// persistLogOnly durably appends the log entries written since the last
// commit without touching any other blob, used on the validation-failure
// path where the state machine must not advance.
func (e *Engine) persistLogOnly() error {
	lastCleanupAt, hasLastCleanup := e.log.LastCleanup()
	return e.store.CommitTick(store.TickWrite{
		CurrentState:    e.currentState,
		Hws:             store.HwsPersisted{On: e.hws.On, LastOffAt: e.hws.LastOffAt, LastOffIsZero: e.hws.LastOffIsZero},
		DebounceEntries: e.debounceReg.Snapshot(),
		TargetCache:     e.targetCache,
		Log:             e.log.Entries(),
		LastSummaryDate: e.log.LastSummaryDate(),
		LastCleanupAt:   lastCleanupAt,
		HasLastCleanup:  hasLastCleanup,
	})
}

func (e *Engine) hasTodayRecord(date string) bool {
	for _, r := range e.exportHistory {
		if r.Date == date {
			return true
		}
	}
	return false
}

func (e *Engine) appendLog(now time.Time, typ, priority, message string, data map[string]any) {
	e.log.Append(e.cfg, now, e.clock.ISO(now), e.clock.DateString(now), typ, priority, message, data)
}

func degradedCommand(at time.Time) telemetry.Command {
	return telemetry.Command{
		Timestamp:    at,
		CurrentState: "", // state machine is not advanced on a validation failure
		Actions: telemetry.Actions{
			SetEssMode:   false,
			InverterMode: 3,
			EnableHws:    false,
		},
		Debug: telemetry.Debug{
			StateReason: "validation failed; degraded output, state machine not advanced",
		},
	}
}

// disabledCommand is returned when the energy_management_enabled master
// switch is off. The state machine is not advanced and nothing is persisted.
func disabledCommand(at time.Time) telemetry.Command {
	return telemetry.Command{
		Timestamp:    at,
		CurrentState: "DISABLED",
		Actions: telemetry.Actions{
			SetEssMode:    false,
			GridSetpointW: nil,
			EnableHws:     false,
			InverterMode:  3,
		},
		Debug: telemetry.Debug{
			StateReason: "energy management disabled; state machine not advanced",
		},
	}
}
