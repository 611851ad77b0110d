// Package log is a small wrapper around the standard library logger used by
// every wsearch component.
//
// Each component asks for a named logger with ForService. Every line carries
// the level and a "[name>]" prefix, followed by the message and any key/value
// fields attached with With:
//
//	l := log.ForService("search")
//	l.With("type", "database_row").Errorf("building projection: %v", err)
//	// 2025/01/02 15:04:05.000000 ERROR [search>] building projection: ... type=database_row
//
// Debug output is off by default. It can be enabled for every logger
// (SetGlobalDebug) or for a single service (EnableDebugFor), which is what the
// `--debug` flag and the `[log]` configuration section drive.
//
// SetOutput redirects all loggers, existing ones included. Tests use it to
// capture output in a buffer.
package log
