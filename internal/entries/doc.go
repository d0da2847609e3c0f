// Package entries is the in-memory registry of configured Hypermind
// endpoints. Each Entry carries its setup data, its post-setup options and a
// unique id derived from host:port that prevents configuring one node twice.
package entries
