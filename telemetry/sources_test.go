package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixedSource_RefreshesTimeOnEachRead(t *testing.T) {
	s := NewFixedSource(TickInput{GenerationW: 1234, EnergyManagementEnabled: true})

	in, err := s.Read()
	require.NoError(t, err)
	assert.Equal(t, 1234.0, in.GenerationW)
	assert.False(t, in.Time.IsZero())
}

func TestRandomWalkSource_DefaultsEnabledAndRespectsSetEnabled(t *testing.T) {
	s := NewRandomWalkSource(1)

	in, err := s.Read()
	require.NoError(t, err)
	assert.True(t, in.EnergyManagementEnabled)

	s.SetEnabled(false)
	in, err = s.Read()
	require.NoError(t, err)
	assert.False(t, in.EnergyManagementEnabled)
}
