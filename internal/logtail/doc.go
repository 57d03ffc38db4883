// Package logtail reads the tail of the xrayview log file and filters it by
// level. The TUI owns the terminal while it runs, so the log file is the only
// record of request failures; `xrayview logs` uses this package to show it.
package logtail
