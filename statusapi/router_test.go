package statusapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/solarhome/gridctl/telemetry"
)

type fakeSource struct {
	cmd telemetry.Command
}

func (f fakeSource) LastCommand() telemetry.Command {
	return f.cmd
}

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	m.Run()
}

func TestHealth_ReturnsOK(t *testing.T) {
	router := NewRouter(fakeSource{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}

func TestStatus_ReturnsLastCommand(t *testing.T) {
	source := fakeSource{cmd: telemetry.Command{
		Timestamp:    time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		CurrentState: "BATTERY_STORAGE",
	}}
	router := NewRouter(source)

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "BATTERY_STORAGE")
}
