package capture

import (
	"context"
	"fmt"
	"image"
	"net/url"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bryanchriswhite/snapframe/internal/geometry"
	"github.com/bryanchriswhite/snapframe/internal/logger"
	"github.com/disintegration/imaging"
	"github.com/godbus/dbus/v5"
)

// Portal D-Bus constants
const (
	portalService   = "org.freedesktop.portal.Desktop"
	portalPath      = "/org/freedesktop/portal/desktop"
	screenshotIface = "org.freedesktop.portal.Screenshot"
	requestIface    = "org.freedesktop.portal.Request"
)

// Portal request response codes
const (
	portalResponseSuccess   = 0
	portalResponseCancelled = 1
)

// DefaultPortalTimeout bounds how long the user has to answer the portal
// dialog
const DefaultPortalTimeout = 60 * time.Second

var requestSeq uint64

// PortalProvider captures through the xdg-desktop-portal Screenshot
// interface, which works on Wayland compositors. The portal cannot target a
// window by id or enumerate windows.
type PortalProvider struct {
	conn        *dbus.Conn
	mu          sync.Mutex
	interactive bool
	keepFiles   bool
	timeout     time.Duration
}

// PortalOptions configures a PortalProvider
type PortalOptions struct {
	// Interactive lets the user pick what to capture in the portal dialog
	Interactive bool
	// KeepFiles leaves the portal's screenshot file on disk after loading
	KeepFiles bool
	Timeout   time.Duration
}

// NewPortalProvider connects to the session bus and checks that the
// Screenshot portal is present
func NewPortalProvider(opts PortalOptions) (*PortalProvider, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}

	obj := conn.Object(portalService, portalPath)
	if _, err := obj.GetProperty(screenshotIface + ".version"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("screenshot portal not available: %w", err)
	}

	if opts.Timeout <= 0 {
		opts.Timeout = DefaultPortalTimeout
	}
	return &PortalProvider{
		conn:        conn,
		interactive: opts.Interactive,
		keepFiles:   opts.KeepFiles,
		timeout:     opts.Timeout,
	}, nil
}

// Name returns the provider name
func (p *PortalProvider) Name() string {
	return "portal"
}

// Close closes the bus connection
func (p *PortalProvider) Close() error {
	return p.conn.Close()
}

// CaptureFullscreen asks the portal for a screenshot and loads the file it
// writes
func (p *PortalProvider) CaptureFullscreen(ctx context.Context) (image.Image, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	uri, err := p.screenshot(ctx)
	if err != nil {
		return nil, err
	}
	return p.load(uri)
}

// CaptureRegion captures the screen and crops rect out of it
func (p *PortalProvider) CaptureRegion(ctx context.Context, rect geometry.Rect) (image.Image, error) {
	full, err := p.CaptureFullscreen(ctx)
	if err != nil {
		return nil, err
	}
	return cropRegion(full, rect)
}

// CaptureWindow is not offered by the portal
func (p *PortalProvider) CaptureWindow(context.Context, uint32) (image.Image, error) {
	return nil, fmt.Errorf("%w: portal cannot capture a window by id", ErrUnsupported)
}

// ListWindows is not offered by the portal
func (p *PortalProvider) ListWindows(context.Context) ([]WindowInfo, error) {
	return nil, fmt.Errorf("%w: portal cannot list windows", ErrUnsupported)
}

// screenshot calls Screenshot and waits for the request's Response signal,
// returning the uri of the written file
func (p *PortalProvider) screenshot(ctx context.Context) (string, error) {
	log := logger.WithComponent("portal")
	obj := p.conn.Object(portalService, portalPath)

	token := fmt.Sprintf("snapframe%d_%d", os.Getpid(), atomic.AddUint64(&requestSeq, 1))
	options := map[string]dbus.Variant{
		"handle_token": dbus.MakeVariant(token),
		"modal":        dbus.MakeVariant(true),
		"interactive":  dbus.MakeVariant(p.interactive),
	}

	// Subscribe before calling so the response cannot be missed
	responseChan := make(chan *dbus.Signal, 10)
	matchRule := fmt.Sprintf("type='signal',interface='%s',member='Response'", requestIface)
	if err := p.conn.BusObject().Call("org.freedesktop.DBus.AddMatch", 0, matchRule).Err; err != nil {
		log.Warn().Err(err).Msg("Failed to add match rule")
	}
	p.conn.Signal(responseChan)
	defer p.conn.RemoveSignal(responseChan)

	var requestPath dbus.ObjectPath
	if err := obj.CallWithContext(ctx, screenshotIface+".Screenshot", 0, "", options).Store(&requestPath); err != nil {
		return "", fmt.Errorf("%w: Screenshot call failed: %v", ErrCaptureFailed, err)
	}

	log.Info().Str("request_path", string(requestPath)).Msg("Waiting for Screenshot response (portal dialog may appear)")

	timeout := time.NewTimer(p.timeout)
	defer timeout.Stop()
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-timeout.C:
			return "", fmt.Errorf("%w: timeout waiting for Screenshot response", ErrCaptureFailed)
		case sig := <-responseChan:
			if sig.Path != requestPath || sig.Name != requestIface+".Response" {
				continue
			}
			return parseScreenshotResponse(sig.Body)
		}
	}
}

// parseScreenshotResponse decodes a Request.Response body (u, a{sv})
func parseScreenshotResponse(body []interface{}) (string, error) {
	if len(body) < 2 {
		return "", fmt.Errorf("%w: invalid portal response", ErrCaptureFailed)
	}
	code, ok := body[0].(uint32)
	if !ok {
		return "", fmt.Errorf("%w: invalid portal response code %T", ErrCaptureFailed, body[0])
	}

	switch code {
	case portalResponseSuccess:
	case portalResponseCancelled:
		return "", fmt.Errorf("%w: request cancelled", ErrPermissionDenied)
	default:
		return "", fmt.Errorf("%w: portal request failed (code %d)", ErrCaptureFailed, code)
	}

	results, ok := body[1].(map[string]dbus.Variant)
	if !ok {
		return "", fmt.Errorf("%w: invalid portal results %T", ErrCaptureFailed, body[1])
	}
	v, ok := results["uri"]
	if !ok {
		return "", fmt.Errorf("%w: no uri in portal response", ErrCaptureFailed)
	}
	uri, ok := v.Value().(string)
	if !ok || uri == "" {
		return "", fmt.Errorf("%w: unexpected uri type %T", ErrCaptureFailed, v.Value())
	}
	return uri, nil
}

// load decodes the file behind a file:// uri and removes it unless
// keepFiles is set
func (p *PortalProvider) load(uri string) (image.Image, error) {
	u, err := url.Parse(uri)
	if err != nil || u.Scheme != "file" {
		return nil, fmt.Errorf("%w: unsupported screenshot uri %q", ErrCaptureFailed, uri)
	}

	img, err := imaging.Open(u.Path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read screenshot: %v", ErrCaptureFailed, err)
	}
	if !p.keepFiles {
		if err := os.Remove(u.Path); err != nil {
			logger.WithComponent("portal").Debug().Err(err).Str("path", u.Path).Msg("Failed to remove portal screenshot")
		}
	}
	return img, nil
}
