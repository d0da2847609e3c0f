// Package coordinator drives periodic polling of one Hypermind endpoint.
//
// Schedule(ctx, interval, task) is the scheduling substrate: a ticker loop
// that runs task serially and returns a cancellable Handle.
//
// Coordinator wraps a Poller (the scraper) with:
//   - FirstRefresh: the initial poll that must succeed before the entry is
//     loaded; failure returns ErrNotReady
//   - Start/Stop: periodic Refresh via Schedule
//   - Data: the latest snapshot, held in an atomic pointer and replaced
//     wholesale on every success
//   - Status: last_update_success plus failure bookkeeping; failed polls
//     keep the previous snapshot
//   - AddListener: callbacks run after every refresh; the manager
//     fans them out to its subscribers
package coordinator
