package telemetry

import (
	"math/rand"
	"time"
)

// FixedSource always returns the same TickInput except for its Time field,
// which is refreshed to now() on each Read. It is useful for driving the
// engine from a single hand-built scenario.
type FixedSource struct {
	Input TickInput
}

func NewFixedSource(input TickInput) *FixedSource {
	return &FixedSource{Input: input}
}

func (s *FixedSource) Read() (TickInput, error) {
	input := s.Input
	input.Time = time.Now()
	return input, nil
}

// RandomWalkSource produces plausible, slowly-drifting telemetry for local
// runs of cmd/gridctl without any real inverter or meter attached - the
// stand-in for the out-of-scope ingestion collaborator.
type RandomWalkSource struct {
	rng           *rand.Rand
	dailyExportWh float64
	soc           float64
	lastDay       string
	enabled       bool
}

func NewRandomWalkSource(seed int64) *RandomWalkSource {
	return &RandomWalkSource{
		rng:     rand.New(rand.NewSource(seed)),
		soc:     60,
		enabled: true,
	}
}

// SetEnabled flips the master switch reported on every subsequent Read,
// letting a caller (or test) exercise the engine's DISABLED behaviour
// without a real master-switch collaborator attached.
func (s *RandomWalkSource) SetEnabled(enabled bool) {
	s.enabled = enabled
}

func (s *RandomWalkSource) Read() (TickInput, error) {
	now := time.Now()
	day := now.Format("2006-01-02")
	if day != s.lastDay {
		s.dailyExportWh = 0
		s.lastDay = day
	}

	hour := now.Hour()
	generation := 0.0
	if hour >= 7 && hour <= 18 {
		generation = 3000 + s.rng.Float64()*1500 - 750
		if generation < 0 {
			generation = 0
		}
	}

	batteryPower := s.rng.Float64()*1000 - 500
	if s.soc >= 99 {
		batteryPower = -abs(batteryPower)
	} else if s.soc <= 10 {
		batteryPower = abs(batteryPower)
	}
	s.soc += batteryPower / 10000
	if s.soc > 100 {
		s.soc = 100
	}
	if s.soc < 0 {
		s.soc = 0
	}

	gridPower := generation - 1500 + s.rng.Float64()*400 - 200
	if gridPower < 0 {
		s.dailyExportWh += -gridPower / 900 // rough Wh accrual per ~4s tick
	}

	return TickInput{
		Time:                    now,
		DailyExportWh:           s.dailyExportWh,
		GridPowerW:              gridPower,
		GenerationW:             generation,
		BatterySocPct:           s.soc,
		BatteryPowerW:           batteryPower,
		InverterMode:            3,
		EnergyManagementEnabled: s.enabled,
	}, nil
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
