// Package scraper polls a Hypermind node's GET /api/stats endpoint and
// normalizes the payload into a Snapshot.
//
// Fetcher.Poll issues one request per call, bounded by a single deadline that
// covers connect and body read (10s by default). Failures are *FetchError
// values classified as timeout, transport error (including an undecodable
// body) or bad status; ErrTimeout, ErrTransport and ErrBadStatus match them
// with errors.Is. Absent count/direct fields default to zero.
//
// ScaleRatio clamps the active node count into [scale_min, scale_max] and
// maps it to [0, 1], rounded to four decimals; a degenerate window gives 0.
//
// Fetcher.FetchStats exposes the raw payload, including whether count was
// present, for the setup-time connectivity check in package setup.
package scraper
