// Package manager owns the runtime state of every configured entry.
//
// Setup builds a coordinator for an entry and performs its first refresh.
// An entry is loaded only when that refresh succeeds; otherwise it is left
// in setup_retry and the first refresh is retried on the scan interval until
// it succeeds or the entry is unloaded. Reload tears the coordinator down and
// builds a new one from the entry's current data and options. Unload stops
// polling and discards the entry's data.
//
// Reconcile applies a reloaded config file: file entries that disappeared
// are removed, new ones are added and set up, and changed scale bounds are
// applied with a reload. Entries created through the API are left alone.
//
// Subscribe registers a callback that fires after every refresh of any
// loaded entry and after every state change; the WebSocket hub uses it to
// push sensor states.
package manager
