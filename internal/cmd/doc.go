// Package cmd implements the hypermind-agent command line.
//
//	hypermind-agent serve     run the agent: poll entries, serve API, stream, metrics
//	hypermind-agent validate  run the setup connectivity check against one node
//	hypermind-agent poll      poll one node, or every configured entry, once
//	hypermind-agent version   print build information
//
// Every flag can also be set through a HYPERMIND_* environment variable
// (dashes become underscores): HYPERMIND_CONFIG, HYPERMIND_LOG_LEVEL,
// HYPERMIND_HTTP_ADDR and so on. Flags and environment override the values
// of the config file.
package cmd
