package sensor

import (
	"github.com/hypermind/hypermind-agent/internal/config"
	"github.com/hypermind/hypermind-agent/internal/scraper"
)

// Keys of the exposed sensors.
const (
	KeyActiveNodes       = "active_nodes"
	KeyDirectConnections = "direct_connections"
)

// Attribute names on the active nodes sensor.
const (
	AttrScaleMin   = "scale_min"
	AttrScaleMax   = "scale_max"
	AttrScaleRatio = "scale_ratio"
)

// StateClassMeasurement marks a sensor whose value is a current reading.
const StateClassMeasurement = "measurement"

// Description is the static metadata of one sensor.
type Description struct {
	Key        string `json:"key"`
	Name       string `json:"name"`
	Icon       string `json:"icon"`
	Unit       string `json:"unit_of_measurement"`
	StateClass string `json:"state_class"`
}

// Descriptions lists the sensors every entry exposes, in display order.
var Descriptions = []Description{
	{
		Key:        KeyActiveNodes,
		Name:       "Active Nodes",
		Icon:       "mdi:server-network",
		Unit:       "nodes",
		StateClass: StateClassMeasurement,
	},
	{
		Key:        KeyDirectConnections,
		Name:       "Direct Connections",
		Icon:       "mdi:connection",
		Unit:       "connections",
		StateClass: StateClassMeasurement,
	},
}

// DeviceInfo groups the sensors of one entry.
type DeviceInfo struct {
	Identifiers      []string `json:"identifiers"`
	Name             string   `json:"name"`
	Manufacturer     string   `json:"manufacturer"`
	Model            string   `json:"model"`
	SWVersion        string   `json:"sw_version"`
	ConfigurationURL string   `json:"configuration_url"`
}

// Device returns the device of entry id polling ep.
func Device(entryID string, ep config.EndpointConfig) DeviceInfo {
	return DeviceInfo{
		Identifiers:      []string{"hypermind", entryID},
		Name:             "Hypermind",
		Manufacturer:     "lklynet",
		Model:            "Hypermind P2P Counter",
		SWVersion:        "1.0.0",
		ConfigurationURL: ep.BaseURL(),
	}
}

// Source is the read side of a coordinator.
type Source interface {
	Endpoint() config.EndpointConfig
	Data() *scraper.Snapshot
	LastUpdateSuccess() bool
}

// State is the current state of one sensor.
type State struct {
	Description

	UniqueID   string         `json:"unique_id"`
	EntryID    string         `json:"entry_id"`
	Value      *int           `json:"native_value"`
	Available  bool           `json:"available"`
	Attributes map[string]any `json:"extra_state_attributes,omitempty"`
	Device     DeviceInfo     `json:"device"`
}

// UniqueID returns the stable id of sensor key on entry id.
func UniqueID(entryID, key string) string {
	return entryID + "_" + key
}

// States returns the state of every sensor of entry id, in Descriptions
// order.
func States(entryID string, src Source) []State {
	snap := src.Data()
	available := src.LastUpdateSuccess()
	dev := Device(entryID, src.Endpoint())

	out := make([]State, 0, len(Descriptions))
	for _, d := range Descriptions {
		out = append(out, State{
			Description: d,
			UniqueID:    UniqueID(entryID, d.Key),
			EntryID:     entryID,
			Value:       value(snap, d.Key),
			Available:   available,
			Attributes:  attributes(snap, d.Key),
			Device:      dev,
		})
	}
	return out
}

func value(snap *scraper.Snapshot, key string) *int {
	if snap == nil {
		return nil
	}
	var v int
	switch key {
	case KeyActiveNodes:
		v = snap.ActiveNodes
	case KeyDirectConnections:
		v = snap.DirectConnections
	default:
		return nil
	}
	return &v
}

func attributes(snap *scraper.Snapshot, key string) map[string]any {
	if snap == nil || key != KeyActiveNodes {
		return nil
	}
	return map[string]any{
		AttrScaleMin:   snap.ScaleMin,
		AttrScaleMax:   snap.ScaleMax,
		AttrScaleRatio: snap.ScaleRatio,
	}
}
