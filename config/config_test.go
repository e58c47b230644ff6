package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults_FillsEveryCalibratedField(t *testing.T) {
	cfg := Defaults()

	assert.Equal(t, 99.0, cfg.MaxSocThresholdPct)
	assert.Equal(t, 25.0, cfg.MinSocThresholdPct)
	assert.Equal(t, 500.0, cfg.MinGenerationForExportW)
	assert.Equal(t, 300.0, cfg.MinGenerationToStayExportW)
	assert.Equal(t, 5.0, cfg.StateChangeDebounceTimeMinutes)
	assert.Len(t, cfg.MonthlyTargets, 12)
}

func TestMonthlyTarget_FallsBackWhenMonthMissing(t *testing.T) {
	cfg := Defaults()
	assert.Equal(t, 30.0, cfg.MonthlyTarget(1))

	delete(cfg.MonthlyTargets, 7)
	assert.Equal(t, 25.0, cfg.MonthlyTarget(7))
}

func TestRead_OverlaysProvidedFieldsOntoDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"maxSocThreshold": 95, "storePath": "/tmp/custom.sqlite"}`), 0o644))

	cfg, err := Read(path)
	require.NoError(t, err)

	assert.Equal(t, 95.0, cfg.MaxSocThresholdPct)
	assert.Equal(t, "/tmp/custom.sqlite", cfg.StorePath)
	// untouched fields retain their default value
	assert.Equal(t, 25.0, cfg.MinSocThresholdPct)
}

func TestRead_MissingFileReturnsError(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
