package imageguard

import (
	"context"

	"golang.org/x/sync/semaphore"

	"github.com/five82/xrayview/internal/xray"
)

// Request asks the loader to fetch one image for one attempt.
type Request struct {
	Generation uint64
	ID         xray.ScanID
	Attempt    int
	URL        string
}

// Result is the outcome of a Request.
type Result struct {
	Request
	Info xray.ImageInfo
	Err  error
}

// Tracker keeps one Guard per item of the rendered list. Each Reset starts a
// new generation so results for a previous list are dropped.
type Tracker struct {
	base       string
	generation uint64
	guards     map[xray.ScanID]*Guard
}

// NewTracker builds a tracker resolving relative images against base.
func NewTracker(base string) *Tracker {
	return &Tracker{base: base, guards: make(map[xray.ScanID]*Guard)}
}

// Reset replaces all guards for a freshly rendered list and returns the loads
// to issue. Scans without images get a Missing guard and no request.
func (t *Tracker) Reset(scans []xray.Scan) []Request {
	t.generation++
	t.guards = make(map[xray.ScanID]*Guard, len(scans))
	var reqs []Request
	for _, s := range scans {
		g := New(s.Image, t.base)
		t.guards[s.ID] = g
		if g.State() == Loading {
			reqs = append(reqs, Request{Generation: t.generation, ID: s.ID, Attempt: g.Attempt(), URL: g.URL()})
		}
	}
	return reqs
}

// Guard returns the guard for id, or nil.
func (t *Tracker) Guard(id xray.ScanID) *Guard {
	return t.guards[id]
}

// Apply feeds a load result to the matching guard. Results from an older
// generation or attempt are ignored. It reports whether any state changed.
func (t *Tracker) Apply(res Result) bool {
	if res.Generation != t.generation {
		return false
	}
	g, ok := t.guards[res.ID]
	if !ok {
		return false
	}
	if res.Err != nil {
		return g.Fail(res.Attempt, res.Err)
	}
	return g.Succeed(res.Attempt, res.Info)
}

// Retry restarts a failed image and returns the single request to issue.
func (t *Tracker) Retry(id xray.ScanID) (Request, bool) {
	g, ok := t.guards[id]
	if !ok {
		return Request{}, false
	}
	attempt, ok := g.Retry()
	if !ok {
		return Request{}, false
	}
	return Request{Generation: t.generation, ID: id, Attempt: attempt, URL: g.URL()}, true
}

// Prober loads an image. *xray.Client implements it.
type Prober interface {
	ProbeImage(ctx context.Context, imageURL string) (xray.ImageInfo, error)
}

// Loader runs image probes with bounded concurrency.
type Loader struct {
	prober Prober
	sem    *semaphore.Weighted
}

// DefaultConcurrency bounds simultaneous image loads.
const DefaultConcurrency = 4

// NewLoader builds a Loader allowing at most limit concurrent probes.
func NewLoader(p Prober, limit int64) *Loader {
	if limit <= 0 {
		limit = DefaultConcurrency
	}
	return &Loader{prober: p, sem: semaphore.NewWeighted(limit)}
}

// Load performs req, blocking while the concurrency limit is reached.
func (l *Loader) Load(ctx context.Context, req Request) Result {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return Result{Request: req, Err: err}
	}
	defer l.sem.Release(1)
	info, err := l.prober.ProbeImage(ctx, req.URL)
	return Result{Request: req, Info: info, Err: err}
}
