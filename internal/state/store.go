package state

import (
	"fmt"
	"sync"
	"time"

	"github.com/five82/xrayview/internal/xray"
)

// Snapshot represents the latest scan list available to the UI.
type Snapshot struct {
	Scans               []xray.Scan
	Loaded              bool // at least one fetch has succeeded
	LastUpdated         time.Time
	LastError           error
	ConsecutiveFailures int // Number of consecutive failed fetches
}

// IsOffline returns true when the API has been unreachable for multiple fetches.
func (s Snapshot) IsOffline() bool {
	return s.ConsecutiveFailures >= 2
}

// Empty reports whether a successful fetch returned no scans.
func (s Snapshot) Empty() bool {
	return s.Loaded && len(s.Scans) == 0
}

// Store coordinates concurrent updates to the snapshot.
type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot
}

// Update replaces the stored scan list. When err is non-nil the previous list
// is kept but the error is recorded for visibility.
func (s *Store) Update(scans []xray.Scan, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.snapshot.LastError = err
		s.snapshot.LastUpdated = time.Now()
		s.snapshot.ConsecutiveFailures++
		return
	}

	s.snapshot.Scans = cloneScans(scans)
	s.snapshot.Loaded = true
	s.snapshot.LastError = nil
	s.snapshot.LastUpdated = time.Now()
	s.snapshot.ConsecutiveFailures = 0
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	snap.Scans = cloneScans(s.snapshot.Scans)
	if s.snapshot.LastError != nil {
		snap.LastError = fmt.Errorf("%w", s.snapshot.LastError)
	}
	return snap
}

func cloneScans(items []xray.Scan) []xray.Scan {
	if len(items) == 0 {
		return nil
	}
	dup := make([]xray.Scan, len(items))
	for i, item := range items {
		dup[i] = item
		if item.Tags != nil {
			dup[i].Tags = append(xray.Tags(nil), item.Tags...)
		}
	}
	return dup
}
