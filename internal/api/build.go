package api

import (
	"github.com/hypermind/hypermind-agent/internal/entries"
	"github.com/hypermind/hypermind-agent/internal/manager"
	"github.com/hypermind/hypermind-agent/internal/sensor"
)

// BuildEntry assembles the API view of e.
func BuildEntry(e *entries.Entry, mgr *manager.Manager) EntryResponse {
	resp := EntryResponse{
		ID:        e.ID,
		UniqueID:  e.UniqueID,
		Title:     e.Title,
		Source:    e.Source,
		Data:      e.Data,
		Options:   e.Options,
		State:     mgr.State(e.ID),
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
	if c, ok := mgr.Coordinator(e.ID); ok {
		st := c.Status()
		resp.Status = &st
		resp.Snapshot = c.Data()
	}
	return resp
}

// BuildSensors returns the sensor states of every loaded entry in store
// order. Entries that are not loaded expose no sensors.
func BuildSensors(st *entries.Store, mgr *manager.Manager) []sensor.State {
	out := make([]sensor.State, 0)
	for _, e := range st.List() {
		out = append(out, entrySensors(e.ID, mgr)...)
	}
	return out
}

func entrySensors(id string, mgr *manager.Manager) []sensor.State {
	c, ok := mgr.Coordinator(id)
	if !ok {
		return []sensor.State{}
	}
	return sensor.States(id, c)
}
