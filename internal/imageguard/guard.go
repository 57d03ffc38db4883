// Package imageguard tracks the load state of scan images so screens can
// render a placeholder instead of a broken image.
package imageguard

import (
	"strings"

	"github.com/five82/xrayview/internal/xray"
)

// State is the load state of one rendered image.
type State int

const (
	// Missing means the scan has no image; nothing is ever loaded.
	Missing State = iota
	Loading
	Loaded
	Failed
)

func (s State) String() string {
	switch s {
	case Missing:
		return "missing"
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Resolve returns the URL to load for image. Values starting with "http" are
// used verbatim; anything else is appended to base. ok is false when the scan
// has no image.
func Resolve(image, base string) (resolved string, ok bool) {
	if image == "" {
		return "", false
	}
	if strings.HasPrefix(image, "http") {
		return image, true
	}
	return base + image, true
}

// Guard is the state machine for one rendered image. Loaded and Failed are
// terminal for an attempt; Retry starts a new attempt on the same URL.
type Guard struct {
	url     string
	state   State
	attempt int
	info    xray.ImageInfo
	err     error
}

// New builds a guard for a scan image. A scan without an image starts (and
// stays) Missing; otherwise the guard starts Loading on attempt 1.
func New(image, base string) *Guard {
	u, ok := Resolve(image, base)
	if !ok {
		return &Guard{state: Missing}
	}
	return &Guard{url: u, state: Loading, attempt: 1}
}

// URL returns the resolved image URL (empty when Missing).
func (g *Guard) URL() string { return g.url }

// State returns the current state.
func (g *Guard) State() State { return g.state }

// Attempt identifies the current load; signals for older attempts are ignored.
func (g *Guard) Attempt() int { return g.attempt }

// Info returns what the last successful load reported.
func (g *Guard) Info() xray.ImageInfo { return g.info }

// Err returns the last load failure.
func (g *Guard) Err() error { return g.err }

// Succeed records a load success for attempt. It reports whether the state changed.
func (g *Guard) Succeed(attempt int, info xray.ImageInfo) bool {
	if g.state != Loading || attempt != g.attempt {
		return false
	}
	g.state = Loaded
	g.info = info
	g.err = nil
	return true
}

// Fail records a load failure for attempt. It reports whether the state changed.
func (g *Guard) Fail(attempt int, err error) bool {
	if g.state != Loading || attempt != g.attempt {
		return false
	}
	g.state = Failed
	g.err = err
	return true
}

// Retry re-enters Loading after a failure and returns the new attempt number.
// It is a no-op (ok=false) in any other state, so repeated presses while a
// retry is in flight issue nothing.
func (g *Guard) Retry() (attempt int, ok bool) {
	if g.state != Failed {
		return 0, false
	}
	g.attempt++
	g.state = Loading
	g.err = nil
	return g.attempt, true
}
