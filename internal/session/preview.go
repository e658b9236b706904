package session

import (
	"image"
	"sync"
	"time"

	"github.com/bryanchriswhite/snapframe/internal/logger"
)

// FrameWriter receives every successfully rendered preview frame
type FrameWriter interface {
	WriteFrame(frame *image.RGBA) error
}

// Update describes a preview change pushed to subscribers
type Update struct {
	Generation uint64    `json:"generation"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	Error      string    `json:"error,omitempty"`
	Time       time.Time `json:"time"`
}

// Preview keeps the latest good render. A failed render records its error
// but leaves the previous image in place.
type Preview struct {
	mu         sync.RWMutex
	image      *image.RGBA
	generation uint64
	err        error
	writers    []FrameWriter

	subsMu sync.Mutex
	subs   map[chan Update]struct{}
}

// NewPreview creates a preview forwarding frames to writers
func NewPreview(writers ...FrameWriter) *Preview {
	return &Preview{
		writers: writers,
		subs:    make(map[chan Update]struct{}),
	}
}

// Deliver records a scheduler result; it is the scheduler's deliver callback
func (p *Preview) Deliver(r Result) {
	u := Update{Generation: r.Generation, Time: time.Now()}

	p.mu.Lock()
	p.generation = r.Generation
	p.err = r.Err
	if r.Err == nil && r.Image != nil {
		p.image = r.Image
	}
	if p.image != nil {
		u.Width, u.Height = p.image.Bounds().Dx(), p.image.Bounds().Dy()
	}
	writers := p.writers
	p.mu.Unlock()

	if r.Err != nil {
		u.Error = r.Err.Error()
	} else if r.Image != nil {
		for _, w := range writers {
			if err := w.WriteFrame(r.Image); err != nil {
				logger.WithComponent("preview").Debug().Err(err).Msg("Frame writer rejected preview")
			}
		}
	}

	p.subsMu.Lock()
	for ch := range p.subs {
		select {
		case ch <- u:
		default:
			// slow subscriber, it will catch up on the next update
		}
	}
	p.subsMu.Unlock()
}

// Latest returns the latest good image, its generation and the error of the
// most recent render, if any
func (p *Preview) Latest() (*image.RGBA, uint64, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.image, p.generation, p.err
}

// Subscribe returns a channel of preview updates and a function that
// unsubscribes and closes it
func (p *Preview) Subscribe() (<-chan Update, func()) {
	ch := make(chan Update, 4)
	p.subsMu.Lock()
	p.subs[ch] = struct{}{}
	p.subsMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			p.subsMu.Lock()
			delete(p.subs, ch)
			p.subsMu.Unlock()
			close(ch)
		})
	}
}
