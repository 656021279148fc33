package migrate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCfgStateReader lets status_test.go exercise Status without a real
// cache.Cache, mirroring the narrow cfgStateReader seam status.go defines.
type fakeCfgStateReader struct {
	state cfgState
}

func (f *fakeCfgStateReader) ReadCfgState(_ string, v any) bool {
	out := v.(*cfgState)
	*out = f.state
	return true
}

func TestStatusReportsAppliedAndPendingMigrations(t *testing.T) {
	reader := &fakeCfgStateReader{state: cfgState{
		Actual: 1,
		Applied: []appliedEntry{
			{ID: 1, Title: "rename lg-cfg/config.yaml to lg-cfg/sections.yaml", At: "2026-01-01T00:00:00Z"},
		},
	}}

	report := Status(reader, "/repo/lg-cfg")

	assert.Equal(t, CfgCurrent, report.CfgCurrent)
	assert.Equal(t, 1, report.Actual)
	require.Len(t, report.Steps, len(Migrations()))

	assert.Equal(t, 1, report.Steps[0].ID)
	assert.True(t, report.Steps[0].Applied)
	assert.Equal(t, "2026-01-01T00:00:00Z", report.Steps[0].At)

	assert.Equal(t, 2, report.Steps[1].ID)
	assert.False(t, report.Steps[1].Applied)
	assert.Empty(t, report.Steps[1].At)

	assert.Empty(t, report.LastError)
}

func TestStatusSurfacesLastError(t *testing.T) {
	reader := &fakeCfgStateReader{state: cfgState{
		Actual:    0,
		LastError: &failureInfo{Message: "boom"},
	}}

	report := Status(reader, "/repo/lg-cfg")
	assert.Equal(t, "boom", report.LastError)
	for _, step := range report.Steps {
		assert.False(t, step.Applied)
	}
}
