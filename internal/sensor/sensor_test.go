package sensor

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hypermind/hypermind-agent/internal/config"
	"github.com/hypermind/hypermind-agent/internal/scraper"
)

type fakeSource struct {
	ep   config.EndpointConfig
	snap *scraper.Snapshot
	ok   bool
}

func (f fakeSource) Endpoint() config.EndpointConfig { return f.ep }
func (f fakeSource) Data() *scraper.Snapshot          { return f.snap }
func (f fakeSource) LastUpdateSuccess() bool          { return f.ok }

var ep = config.EndpointConfig{Host: "10.0.0.5", Port: 3000, ScaleMin: 0, ScaleMax: 10000}

func TestStates_WithData(t *testing.T) {
	src := fakeSource{ep: ep, ok: true, snap: &scraper.Snapshot{
		ActiveNodes:       42,
		DirectConnections: 7,
		ScaleMin:          0,
		ScaleMax:          10000,
		ScaleRatio:        0.0042,
		FetchedAt:         time.Now(),
	}}

	states := States("e1", src)
	require.Len(t, states, 2)

	active, direct := states[0], states[1]
	assert.Equal(t, "e1_active_nodes", active.UniqueID)
	assert.Equal(t, "Active Nodes", active.Name)
	assert.Equal(t, "mdi:server-network", active.Icon)
	assert.Equal(t, "nodes", active.Unit)
	assert.Equal(t, StateClassMeasurement, active.StateClass)
	require.NotNil(t, active.Value)
	assert.Equal(t, 42, *active.Value)
	assert.True(t, active.Available)
	assert.Equal(t, map[string]any{"scale_min": 0, "scale_max": 10000, "scale_ratio": 0.0042}, active.Attributes)

	assert.Equal(t, "e1_direct_connections", direct.UniqueID)
	assert.Equal(t, "connections", direct.Unit)
	assert.Equal(t, "mdi:connection", direct.Icon)
	require.NotNil(t, direct.Value)
	assert.Equal(t, 7, *direct.Value)
	assert.Nil(t, direct.Attributes, "scale attributes belong to active nodes only")
}

func TestStates_BeforeFirstData(t *testing.T) {
	states := States("e1", fakeSource{ep: ep})
	for _, s := range states {
		assert.Nil(t, s.Value)
		assert.Nil(t, s.Attributes)
		assert.False(t, s.Available)
	}

	raw, err := json.Marshal(states[0])
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"native_value":null`)
	assert.NotContains(t, string(raw), "extra_state_attributes")
}

func TestStates_UnavailableKeepsLastValue(t *testing.T) {
	src := fakeSource{ep: ep, ok: false, snap: &scraper.Snapshot{ActiveNodes: 3}}
	s := States("e1", src)[0]
	assert.False(t, s.Available)
	require.NotNil(t, s.Value)
	assert.Equal(t, 3, *s.Value)
}

func TestDevice(t *testing.T) {
	d := Device("e1", ep)
	assert.Equal(t, "Hypermind", d.Name)
	assert.Equal(t, "lklynet", d.Manufacturer)
	assert.Equal(t, "Hypermind P2P Counter", d.Model)
	assert.Equal(t, "1.0.0", d.SWVersion)
	assert.Equal(t, "http://10.0.0.5:3000", d.ConfigurationURL)
	assert.Equal(t, []string{"hypermind", "e1"}, d.Identifiers)

	v6 := Device("e1", config.EndpointConfig{Host: "::1", Port: 3000})
	assert.Equal(t, "http://[::1]:3000", v6.ConfigurationURL)
}
