// Package config loads and watches the hypermind-agent configuration file.
//
// Top-level types:
//   - Config{Agent, Entries}: full config tree parsed from YAML
//   - AgentConfig: http_addr, scan_interval, request_timeout, log_level,
//     setup_rate_per_minute, setup_burst
//   - EntrySpec: data and options maps of one configured endpoint
//   - EndpointConfig: host, port, scale_min, scale_max; the immutable value
//     handed to the fetcher and validator
//
// Load(path) reads the YAML file, applies defaults (:8099, 5s scan, 10s
// request timeout, info logging), then validates agent settings and resolves
// every entry, rejecting invalid scale ranges and duplicate host:port pairs.
//
// ResolveEndpoint(data, options) is the three-tier lookup used when an entry
// is set up: options override data override defaults for the scale bounds.
//
// Watch(ctx, path, onChange) uses fsnotify to detect file changes and calls
// onChange with the newly parsed Config.
package config
