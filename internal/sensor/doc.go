// Package sensor turns an entry's latest snapshot into the two sensor
// states it exposes: active nodes and direct connections.
//
// Each sensor has a stable unique id "<entry_id>_<key>" and belongs to one
// device per entry. Before the first successful refresh a sensor's value is
// null. Only the active nodes sensor carries the scale attributes
// (scale_min, scale_max, scale_ratio). A sensor is available while the
// entry's most recent refresh succeeded; after a failure it keeps its last
// value and reports unavailable.
package sensor
