// Package scans implements the list screen's query logic: filter state,
// option derivation and a client that keeps the scan store in step with the
// latest request.
//
// Every LoadAll/ApplyFilters/Clear call takes a new sequence number and
// cancels the request before it. When a response comes back for a sequence
// that is no longer current it is dropped and the caller gets ErrSuperseded,
// so typing quickly into the search box can never leave an older result on
// screen.
package scans
