package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"sync"

	"github.com/bryanchriswhite/snapframe/internal/geometry"
	"github.com/bryanchriswhite/snapframe/internal/logger"
)

// Backend names accepted by Open
const (
	BackendAuto   = "auto"
	BackendX11    = "x11"
	BackendKWin   = "kwin"
	BackendPortal = "portal"
)

// Router routes capture requests to the first provider that supports them.
// Providers reporting ErrUnsupported are skipped; any other error is
// returned as is.
type Router struct {
	mu        sync.RWMutex
	providers []Provider
}

// NewRouter creates a router over providers, in priority order
func NewRouter(providers ...Provider) *Router {
	return &Router{providers: providers}
}

// Open connects to the capture backends named by backend: "x11", "kwin",
// "portal", or "auto" to try them in that order
func Open(backend string, thumbnails bool) (*Router, error) {
	log := logger.WithComponent("capture-router")
	backend = strings.ToLower(strings.TrimSpace(backend))
	if backend == "" {
		backend = BackendAuto
	}
	switch backend {
	case BackendAuto, BackendX11, BackendKWin, BackendPortal:
	default:
		return nil, fmt.Errorf("unknown capture backend: %q", backend)
	}

	var providers []Provider
	var errs []string

	if backend == BackendAuto || backend == BackendX11 {
		x11, err := NewX11Provider(thumbnails)
		if err != nil {
			log.Warn().Err(err).Msg("X11 capture not available")
			errs = append(errs, err.Error())
		} else {
			providers = append(providers, x11)
			log.Debug().Msg("X11 capture initialized")
		}
	}

	if backend == BackendAuto || backend == BackendKWin {
		kwin, err := NewKWinProvider()
		if err != nil {
			log.Debug().Err(err).Msg("KWin capture not available")
			errs = append(errs, err.Error())
		} else {
			providers = append(providers, kwin)
			log.Debug().Msg("KWin capture initialized")
		}
	}

	if backend == BackendAuto || backend == BackendPortal {
		portal, err := NewPortalProvider(PortalOptions{})
		if err != nil {
			log.Warn().Err(err).Msg("Screenshot portal not available")
			errs = append(errs, err.Error())
		} else {
			providers = append(providers, portal)
			log.Debug().Msg("Screenshot portal initialized")
		}
	}

	if len(providers) == 0 {
		return nil, fmt.Errorf("%w: no capture backends available (%s)", ErrUnsupported, strings.Join(errs, "; "))
	}
	return NewRouter(providers...), nil
}

// Name lists the routed providers
func (r *Router) Name() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.providers))
	for i, p := range r.providers {
		names[i] = p.Name()
	}
	return "router(" + strings.Join(names, ",") + ")"
}

// Close closes every provider
func (r *Router) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for _, p := range r.providers {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	r.providers = nil
	return errors.Join(errs...)
}

// route calls fn on each provider in turn until one does not report
// ErrUnsupported
func route[T any](r *Router, op string, fn func(Provider) (T, error)) (T, error) {
	r.mu.RLock()
	providers := append([]Provider(nil), r.providers...)
	r.mu.RUnlock()

	log := logger.WithComponent("capture-router")
	var zero T
	for _, p := range providers {
		v, err := fn(p)
		if errors.Is(err, ErrUnsupported) {
			log.Debug().Str("provider", p.Name()).Str("op", op).Msg("Provider does not support operation")
			continue
		}
		if err != nil {
			log.Debug().Err(err).Str("provider", p.Name()).Str("op", op).Msg("Capture failed")
			return zero, err
		}
		log.Debug().Str("provider", p.Name()).Str("op", op).Msg("Captured")
		return v, nil
	}
	return zero, fmt.Errorf("%w: no provider supports %s", ErrUnsupported, op)
}

// CaptureRegion captures rect with the first capable provider
func (r *Router) CaptureRegion(ctx context.Context, rect geometry.Rect) (image.Image, error) {
	return route(r, "region", func(p Provider) (image.Image, error) { return p.CaptureRegion(ctx, rect) })
}

// CaptureFullscreen captures the screen with the first capable provider
func (r *Router) CaptureFullscreen(ctx context.Context) (image.Image, error) {
	return route(r, "fullscreen", func(p Provider) (image.Image, error) { return p.CaptureFullscreen(ctx) })
}

// CaptureWindow captures window id with the first capable provider
func (r *Router) CaptureWindow(ctx context.Context, id uint32) (image.Image, error) {
	return route(r, "window", func(p Provider) (image.Image, error) { return p.CaptureWindow(ctx, id) })
}

// ListWindows lists windows with the first capable provider
func (r *Router) ListWindows(ctx context.Context) ([]WindowInfo, error) {
	return route(r, "list windows", func(p Provider) ([]WindowInfo, error) { return p.ListWindows(ctx) })
}
