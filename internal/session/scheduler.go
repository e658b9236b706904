package session

import (
	"image"
	"sync"
	"time"

	"github.com/bryanchriswhite/snapframe/internal/compositor"
	"github.com/bryanchriswhite/snapframe/internal/logger"
)

// DefaultDebounce coalesces bursts of edits such as slider drags
const DefaultDebounce = 100 * time.Millisecond

// RenderFunc renders a document snapshot
type RenderFunc func(Document) (*image.RGBA, error)

// Render is the default RenderFunc
func Render(doc Document) (*image.RGBA, error) {
	return compositor.Render(doc.State, doc.Annotations)
}

// Result is a completed render
type Result struct {
	Generation uint64
	Image      *image.RGBA
	Err        error
	Elapsed    time.Duration
}

// Scheduler debounces render requests and runs each render on its own
// goroutine against a snapshot taken when the render starts. Results are
// delivered only when no newer render has started since, so the last
// started render is the one that wins.
type Scheduler struct {
	delay    time.Duration
	snapshot func() Document
	render   RenderFunc
	deliver  func(Result)

	mu      sync.Mutex
	timer   *time.Timer
	started uint64
	closed  bool

	deliverMu sync.Mutex
	wg        sync.WaitGroup
}

// NewScheduler creates a scheduler rendering snapshots with render and
// handing fresh results to deliver. A non-positive delay uses DefaultDebounce.
func NewScheduler(delay time.Duration, snapshot func() Document, render RenderFunc, deliver func(Result)) *Scheduler {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	if render == nil {
		render = Render
	}
	return &Scheduler{
		delay:    delay,
		snapshot: snapshot,
		render:   render,
		deliver:  deliver,
	}
}

// Trigger requests a render after the debounce window. Further triggers
// within the window push the render back.
func (s *Scheduler) Trigger() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.delay, s.fire)
}

// Flush starts a render immediately, skipping any pending debounce
func (s *Scheduler) Flush() {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()
	s.fire()
}

// Generation returns the generation of the latest started render
func (s *Scheduler) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

func (s *Scheduler) fire() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.started++
	gen := s.started
	s.wg.Add(1)
	s.mu.Unlock()

	doc := s.snapshot()
	go s.run(gen, doc)
}

func (s *Scheduler) run(gen uint64, doc Document) {
	defer s.wg.Done()
	log := logger.WithComponent("scheduler")

	started := time.Now()
	img, err := s.render(doc)
	res := Result{Generation: gen, Image: img, Err: err, Elapsed: time.Since(started)}

	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()

	s.mu.Lock()
	latest := s.started
	s.mu.Unlock()
	if gen != latest {
		log.Debug().Uint64("generation", gen).Uint64("latest", latest).Msg("Dropping stale render")
		return
	}

	if err != nil {
		log.Warn().Err(err).Uint64("generation", gen).Msg("Render failed")
	} else {
		log.Debug().Uint64("generation", gen).Dur("elapsed", res.Elapsed).Msg("Render complete")
	}
	if s.deliver != nil {
		s.deliver(res)
	}
}

// Close stops pending triggers and waits for in-flight renders
func (s *Scheduler) Close() {
	s.mu.Lock()
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()
	s.wg.Wait()
}
