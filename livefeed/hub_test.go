package livefeed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/solarhome/gridctl/telemetry"
)

func TestPublish_WithNoClientsDoesNotBlockOrPanic(t *testing.T) {
	h := NewHub()
	assert.NotPanics(t, func() {
		h.Publish(telemetry.Command{Timestamp: time.Now(), CurrentState: "EXPORT_PRIORITY"})
	})
}

func TestClientCount_StartsAtZero(t *testing.T) {
	h := NewHub()
	assert.Equal(t, 0, h.ClientCount())
}

func TestPublish_CachesLastMessage(t *testing.T) {
	h := NewHub()
	h.Publish(telemetry.Command{CurrentState: "BATTERY_STORAGE"})

	h.lastMu.RLock()
	defer h.lastMu.RUnlock()
	assert.Contains(t, string(h.last), "BATTERY_STORAGE")
}
