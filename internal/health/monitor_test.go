package health

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func monitorAt(t *testing.T) (*Monitor, *time.Time) {
	t.Helper()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	m := NewMonitor()
	m.now = func() time.Time { return now }
	return m, &now
}

func TestStatusStartsOK(t *testing.T) {
	m, _ := monitorAt(t)
	st := m.Status()
	assert.Equal(t, "ok", st.State)
	assert.Empty(t, st.FailingDetectors)
	assert.Zero(t, st.ReconnectsLastHour)
}

func TestRecentDetectorFailureDegradesStatus(t *testing.T) {
	m, now := monitorAt(t)
	m.NoteDetectorFailure("classic_rsi")

	st := m.Status()
	assert.Equal(t, "degraded", st.State)
	assert.Equal(t, []string{"classic_rsi"}, st.FailingDetectors)
	assert.Equal(t, 1, st.DetectorErrorTotal["classic_rsi"])

	// failure ages out of the failing window but stays in the totals
	*now = now.Add(10 * time.Minute)
	st = m.Status()
	assert.Equal(t, "ok", st.State)
	assert.Empty(t, st.FailingDetectors)
	assert.Equal(t, 1, st.DetectorErrorTotal["classic_rsi"])
}

func TestReconnectChurnDegradesStatus(t *testing.T) {
	m, now := monitorAt(t)
	for i := 0; i < 3; i++ {
		m.NoteReconnect()
	}
	assert.Equal(t, "ok", m.Status().State, "3 reconnects tolerated")

	m.NoteReconnect()
	st := m.Status()
	assert.Equal(t, "degraded", st.State)
	assert.Equal(t, 4, st.ReconnectsLastHour)

	// old reconnects pruned after an hour
	*now = now.Add(2 * time.Hour)
	st = m.Status()
	assert.Equal(t, "ok", st.State)
	assert.Zero(t, st.ReconnectsLastHour)
}

func TestFailingDetectorsSorted(t *testing.T) {
	m, _ := monitorAt(t)
	m.NoteDetectorFailure("smc_bos")
	m.NoteDetectorFailure("classic_rsi")

	st := m.Status()
	assert.Equal(t, []string{"classic_rsi", "smc_bos"}, st.FailingDetectors)
}
