package session

import (
	"errors"
	"image"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type collector struct {
	mu      sync.Mutex
	results []Result
}

func (c *collector) deliver(r Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, r)
}

func (c *collector) all() []Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Result(nil), c.results...)
}

func TestSchedulerDebounces(t *testing.T) {
	var renders int32
	render := func(Document) (*image.RGBA, error) {
		atomic.AddInt32(&renders, 1)
		return image.NewRGBA(image.Rect(0, 0, 1, 1)), nil
	}
	c := &collector{}
	s := NewScheduler(30*time.Millisecond, func() Document { return Document{} }, render, c.deliver)
	defer s.Close()

	for i := 0; i < 10; i++ {
		s.Trigger()
		time.Sleep(2 * time.Millisecond)
	}

	require.Eventually(t, func() bool { return len(c.all()) == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&renders), "a burst of triggers renders once")
	assert.Equal(t, uint64(1), c.all()[0].Generation)
}

func TestSchedulerDropsStaleResults(t *testing.T) {
	release := make(chan struct{})
	var calls int32
	render := func(Document) (*image.RGBA, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			<-release
		}
		return image.NewRGBA(image.Rect(0, 0, 1, 1)), nil
	}
	c := &collector{}
	s := NewScheduler(time.Millisecond, func() Document { return Document{} }, render, c.deliver)

	s.Flush()
	require.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 1 }, time.Second, time.Millisecond)
	s.Flush()
	require.Eventually(t, func() bool { return len(c.all()) == 1 }, time.Second, time.Millisecond)

	close(release)
	s.Close()

	results := c.all()
	require.Len(t, results, 1, "the slow first render finished last and was dropped")
	assert.Equal(t, uint64(2), results[0].Generation)
	assert.Equal(t, uint64(2), s.Generation())
}

func TestSchedulerSnapshotsAtStart(t *testing.T) {
	var padding atomic.Value
	padding.Store(10.0)

	seen := make(chan float64, 1)
	render := func(doc Document) (*image.RGBA, error) {
		seen <- doc.State.Padding
		return nil, nil
	}
	s := NewScheduler(time.Millisecond, func() Document {
		var d Document
		d.State.Padding = padding.Load().(float64)
		return d
	}, render, nil)
	defer s.Close()

	s.Flush()
	padding.Store(99.0)
	assert.Equal(t, 10.0, <-seen)
}

func TestSchedulerCloseStopsTriggers(t *testing.T) {
	var renders int32
	s := NewScheduler(5*time.Millisecond, func() Document { return Document{} }, func(Document) (*image.RGBA, error) {
		atomic.AddInt32(&renders, 1)
		return nil, nil
	}, nil)

	s.Trigger()
	s.Close()
	s.Trigger()
	time.Sleep(30 * time.Millisecond)
	assert.Zero(t, atomic.LoadInt32(&renders))
}

type frameCounter struct{ n int32 }

func (f *frameCounter) WriteFrame(*image.RGBA) error {
	atomic.AddInt32(&f.n, 1)
	return nil
}

func TestPreviewKeepsLastGoodImage(t *testing.T) {
	frames := &frameCounter{}
	p := NewPreview(frames)
	updates, unsubscribe := p.Subscribe()
	defer unsubscribe()

	good := image.NewRGBA(image.Rect(0, 0, 4, 3))
	p.Deliver(Result{Generation: 1, Image: good})
	u := <-updates
	assert.Equal(t, uint64(1), u.Generation)
	assert.Equal(t, 4, u.Width)
	assert.Empty(t, u.Error)

	p.Deliver(Result{Generation: 2, Err: errors.New("failed to render image")})
	u = <-updates
	assert.Equal(t, "failed to render image", u.Error)

	img, gen, err := p.Latest()
	assert.Same(t, good, img)
	assert.Equal(t, uint64(2), gen)
	assert.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&frames.n))
}

func TestSessionDrivesScheduler(t *testing.T) {
	s := newSession(t)
	p := NewPreview()
	sched := NewScheduler(5*time.Millisecond, s.Snapshot, Render, p.Deliver)
	defer sched.Close()
	s.OnChange(sched.Trigger)

	s.SetPadding(10)
	require.Eventually(t, func() bool {
		img, _, _ := p.Latest()
		return img != nil && img.Bounds().Dx() == 220
	}, time.Second, 5*time.Millisecond)
}
