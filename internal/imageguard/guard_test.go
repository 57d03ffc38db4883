package imageguard

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/xrayview/internal/xray"
)

func TestResolve(t *testing.T) {
	got, ok := Resolve("http://x/y.png", "https://api.example.com")
	require.True(t, ok)
	assert.Equal(t, "http://x/y.png", got)

	got, ok = Resolve("/media/y.png", "https://api.example.com")
	require.True(t, ok)
	assert.Equal(t, "https://api.example.com/media/y.png", got)

	got, ok = Resolve("https://cdn.example.com/a.jpg", "http://ignored")
	require.True(t, ok)
	assert.Equal(t, "https://cdn.example.com/a.jpg", got)

	_, ok = Resolve("", "https://api.example.com")
	assert.False(t, ok)
}

func TestGuard_MissingNeverLoads(t *testing.T) {
	g := New("", "http://base")
	assert.Equal(t, Missing, g.State())
	assert.False(t, g.Succeed(0, xray.ImageInfo{}))
	assert.False(t, g.Fail(0, errors.New("x")))
	_, ok := g.Retry()
	assert.False(t, ok)
	assert.Equal(t, Missing, g.State())
}

func TestGuard_TransitionsAreTerminalPerAttempt(t *testing.T) {
	g := New("/media/a.png", "http://base")
	require.Equal(t, Loading, g.State())
	assert.Equal(t, "http://base/media/a.png", g.URL())

	assert.True(t, g.Fail(1, errors.New("404")))
	assert.Equal(t, Failed, g.State())
	// A late success for the same attempt cannot resurrect it.
	assert.False(t, g.Succeed(1, xray.ImageInfo{}))
	assert.Equal(t, Failed, g.State())

	attempt, ok := g.Retry()
	require.True(t, ok)
	assert.Equal(t, 2, attempt)
	assert.Equal(t, Loading, g.State())
	assert.Equal(t, "http://base/media/a.png", g.URL())

	// Second press while loading issues nothing.
	_, ok = g.Retry()
	assert.False(t, ok)

	// Signal from the first attempt is stale.
	assert.False(t, g.Fail(1, errors.New("late")))
	assert.True(t, g.Succeed(2, xray.ImageInfo{ContentType: "image/png"}))
	assert.Equal(t, Loaded, g.State())
	assert.Equal(t, "image/png", g.Info().ContentType)
}

func TestTracker_FailureIsolatedPerItem(t *testing.T) {
	tr := NewTracker("https://api.example.com")
	scans := []xray.Scan{
		{ID: "1", Image: "/media/1.png"},
		{ID: "2", Image: "http://cdn/2.png"},
		{ID: "3"},
	}
	reqs := tr.Reset(scans)
	require.Len(t, reqs, 2)
	assert.Equal(t, Missing, tr.Guard("3").State())

	assert.True(t, tr.Apply(Result{Request: reqs[0], Err: errors.New("broken")}))
	assert.Equal(t, Failed, tr.Guard("1").State())
	assert.Equal(t, Loading, tr.Guard("2").State())
	assert.Equal(t, Missing, tr.Guard("3").State())

	assert.True(t, tr.Apply(Result{Request: reqs[1]}))
	assert.Equal(t, Loaded, tr.Guard("2").State())
	assert.Equal(t, Failed, tr.Guard("1").State())
}

func TestTracker_DropsResultsFromPreviousList(t *testing.T) {
	tr := NewTracker("http://base")
	old := tr.Reset([]xray.Scan{{ID: "1", Image: "/a.png"}})
	tr.Reset([]xray.Scan{{ID: "1", Image: "/a.png"}})

	assert.False(t, tr.Apply(Result{Request: old[0], Err: errors.New("stale")}))
	assert.Equal(t, Loading, tr.Guard("1").State())
}

func TestTracker_RetryIssuesOneRequest(t *testing.T) {
	tr := NewTracker("http://base")
	reqs := tr.Reset([]xray.Scan{{ID: "9", Image: "/x.png"}})
	_, ok := tr.Retry("9")
	assert.False(t, ok, "retry while loading")

	tr.Apply(Result{Request: reqs[0], Err: errors.New("timeout")})
	req, ok := tr.Retry("9")
	require.True(t, ok)
	assert.Equal(t, "http://base/x.png", req.URL)
	assert.Equal(t, 2, req.Attempt)

	_, ok = tr.Retry("9")
	assert.False(t, ok)
	_, ok = tr.Retry("unknown")
	assert.False(t, ok)
}

type countingProber struct {
	mu      sync.Mutex
	active  int
	maxSeen int
	calls   atomic.Int32
}

func (p *countingProber) ProbeImage(ctx context.Context, u string) (xray.ImageInfo, error) {
	p.calls.Add(1)
	p.mu.Lock()
	p.active++
	if p.active > p.maxSeen {
		p.maxSeen = p.active
	}
	p.mu.Unlock()
	time.Sleep(10 * time.Millisecond)
	p.mu.Lock()
	p.active--
	p.mu.Unlock()
	return xray.ImageInfo{URL: u}, nil
}

func TestLoader_BoundsConcurrency(t *testing.T) {
	p := &countingProber{}
	l := NewLoader(p, 2)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := l.Load(context.Background(), Request{URL: "http://x"})
			assert.NoError(t, res.Err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(8), p.calls.Load())
	assert.LessOrEqual(t, p.maxSeen, 2)
}

func TestLoader_CancelledContext(t *testing.T) {
	l := NewLoader(&countingProber{}, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := l.Load(ctx, Request{ID: "1"})
	assert.Error(t, res.Err)
}
