// Package setup validates and applies user-supplied endpoint configuration.
//
// Validator.Validate is the setup-time connectivity check: an invalid scale
// window is rejected without a request; otherwise one bounded GET must return
// 200 with a count field. Rejections are *RejectError values whose Reason is
// the form error key (invalid_scale, cannot_connect, unknown).
//
// Flow drives an entry's lifecycle: Create (validate, dedupe host:port, store,
// set up), UpdateOptions (re-check the scale window with the same rule, store,
// reload) and Remove.
package setup
