// Package config defines the engine's tunables and loads them from a JSON
// file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// MonthlyTargets maps a calendar month (1-12) to a seasonal export target in
// kWh/day.
type MonthlyTargets map[int]float64

// Config holds every tunable the engine reads at startup. Read starts from
// Defaults(), so fields omitted from the config file keep their defaults.
type Config struct {
	MaxSocThresholdPct              float64        `json:"maxSocThreshold"`
	MinSocThresholdPct              float64        `json:"minSocThreshold"`
	HwsPowerRatingW                 float64        `json:"hwsPowerRating"`
	HwsSocDropThresholdPct          float64        `json:"hwsSocDropThreshold"`
	HwsGenerationDropThresholdW     float64        `json:"hwsGenerationDropThreshold"`
	HwsCooldownPeriodMinutes        float64        `json:"hwsCooldownPeriod"`
	ExportTargetPercentage          float64        `json:"exportTargetPercentage"`
	BatteryChargingThresholdW       float64        `json:"batteryChargingThreshold"`
	StrongChargingThresholdW        float64        `json:"strongChargingThreshold"`
	MinGenerationForExportW         float64        `json:"minGenerationForExport"`
	MinGenerationToStayExportW      float64        `json:"minGenerationToStayExport"`
	EveningSelfConsumeSocThreshold  float64        `json:"eveningSelfConsumeSocThreshold"`
	StateChangeDebounceTimeMinutes  float64        `json:"stateChangeDebounceTime"`
	SignificantExportThresholdW     float64        `json:"significantExportThreshold"`
	NightStartHour                  int            `json:"nightStartHour"`
	NightEndHour                    int            `json:"nightEndHour"`
	CatchupDays                     float64        `json:"catchupDays"`
	CatchupAggressiveness           float64        `json:"catchupAggressiveness"`
	MaxLogEntries                   int            `json:"maxLogEntries"`
	LogMaxAgeDays                   float64        `json:"logMaxAgeDays"`
	LogCleanupIntervalHours         float64        `json:"logCleanupIntervalHours"`
	MonthlyTargets                  MonthlyTargets `json:"monthlyTargets"`
	LocalOffsetHours                int            `json:"localOffsetHours"`

	// StorePath is the sqlite file backing the PersistentStore.
	StorePath string `json:"storePath"`
	// LiveFeedAddr, if non-empty, is the host:port the websocket status
	// broadcaster listens on.
	LiveFeedAddr string `json:"liveFeedAddr"`
	// StatusAPIAddr, if non-empty, is the host:port the REST status API
	// (/health, /status) listens on.
	StatusAPIAddr string `json:"statusApiAddr"`
	// TickPeriodSeconds is how often cmd/gridctl drives the engine; it has
	// no effect on engine semantics, only on the CLI's ticker.
	TickPeriodSeconds float64 `json:"tickPeriodSeconds"`
}

// Defaults returns the calibrated default configuration.
func Defaults() Config {
	return Config{
		MaxSocThresholdPct:             99,
		MinSocThresholdPct:             25,
		HwsPowerRatingW:                3000,
		HwsSocDropThresholdPct:         5,
		HwsGenerationDropThresholdW:    1500,
		HwsCooldownPeriodMinutes:       30,
		ExportTargetPercentage:         40,
		BatteryChargingThresholdW:      50,
		StrongChargingThresholdW:       1000,
		MinGenerationForExportW:        500,
		MinGenerationToStayExportW:     300,
		EveningSelfConsumeSocThreshold: 30,
		StateChangeDebounceTimeMinutes: 5,
		SignificantExportThresholdW:    2000,
		NightStartHour:                 21,
		NightEndHour:                   6,
		CatchupDays:                    5,
		CatchupAggressiveness:          0.5,
		MaxLogEntries:                  500,
		LogMaxAgeDays:                  30,
		LogCleanupIntervalHours:        24,
		MonthlyTargets: MonthlyTargets{
			1: 30, 2: 28, 3: 26, 4: 22, 5: 18, 6: 15,
			7: 15, 8: 18, 9: 22, 10: 26, 11: 28, 12: 30,
		},
		LocalOffsetHours:  10,
		StorePath:         "./gridctl.sqlite",
		TickPeriodSeconds: 4,
	}
}

// Read loads configuration from the given JSON file path, applying
// Defaults() first so that any field omitted from the file keeps its
// calibrated default value.
func Read(path string) (Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	cfg := Defaults()
	if err := json.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	return cfg, nil
}

// MonthlyTarget returns the static seasonal target for the given month,
// falling back to 25.0 kWh/day if the month is not present in the table.
func (c Config) MonthlyTarget(month int) float64 {
	if v, ok := c.MonthlyTargets[month]; ok {
		return v
	}
	return 25.0
}
