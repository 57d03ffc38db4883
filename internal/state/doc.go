// Package state holds the scan list shown on the list screen.
//
// # Overview
//
// Store is the single place where fetch results land. The scans client
// writes to it after every list request; the UI reads copies from it when
// rendering. It is safe for concurrent use and its zero value is ready.
//
// # Update Semantics
//
//	// Success: the list is replaced wholesale
//	store.Update(scans, nil)
//	→ snapshot.Scans = scans
//	→ snapshot.LastError = nil
//	→ snapshot.ConsecutiveFailures = 0
//
//	// Failure: the last good list stays visible
//	store.Update(nil, err)
//	→ snapshot.Scans = <unchanged>
//	→ snapshot.LastError = err
//	→ snapshot.ConsecutiveFailures++
//
// The UI shows an error banner while LastError is set and keeps rendering
// the previous list underneath it. Nothing retries automatically.
//
// # Copies
//
// Update and Snapshot both copy the scan slice and each scan's tags, so a
// snapshot held by a render can never observe a later fetch.
package state
