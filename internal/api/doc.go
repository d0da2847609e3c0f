// Package api implements the REST API of hypermind-agent.
//
// Routes (all JSON):
//
//	GET    /api/v1/health                 entry counts by state
//	GET    /api/v1/entries                all entries with state and latest data
//	POST   /api/v1/entries                set up a new entry (rate limited)
//	GET    /api/v1/entries/{id}           one entry
//	PUT    /api/v1/entries/{id}/options   edit scale_min / scale_max
//	DELETE /api/v1/entries/{id}           unload and remove
//	POST   /api/v1/entries/{id}/refresh   poll a loaded entry now
//	GET    /api/v1/entries/{id}/sensors   sensor states of one entry
//	GET    /api/v1/sensors                sensor states of every loaded entry
//	POST   /api/v1/validate               connectivity check only (rate limited)
//
// A rejected setup answers 400 with {"errors":{"base":"<reason>"}} where
// reason is invalid_input, invalid_scale, cannot_connect or unknown. A
// host:port that is already configured answers 409 with
// {"reason":"already_configured"}.
//
// Options.Metrics and Options.Stream, when set, are mounted at /metrics and
// /ws/stream.
package api
