package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"sync"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/composite"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/bryanchriswhite/snapframe/internal/geometry"
	"github.com/bryanchriswhite/snapframe/internal/logger"
)

// X11Provider captures the screen and windows over X11/XWayland
type X11Provider struct {
	conn             *xgb.Conn
	root             xproto.Window
	screen           *xproto.ScreenInfo
	compositeEnabled bool
	thumbnails       bool
	mu               sync.Mutex
}

// NewX11Provider connects to the X server named by $DISPLAY. With thumbnails
// set, ListWindows captures a scaled preview of every window.
func NewX11Provider(thumbnails bool) (*X11Provider, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X server: %w", err)
	}

	setup := xproto.Setup(conn)
	screen := setup.DefaultScreen(conn)

	p := &X11Provider{
		conn:       conn,
		root:       screen.Root,
		screen:     screen,
		thumbnails: thumbnails,
	}

	log := logger.WithComponent("x11-capture")
	if err := composite.Init(conn); err != nil {
		log.Warn().
			Err(err).
			Msg("Composite extension not available - window screenshots may fail for obscured windows")
	} else {
		p.compositeEnabled = true
		log.Debug().Msg("Composite extension initialized")
	}

	return p, nil
}

// Name returns the provider name
func (p *X11Provider) Name() string {
	return "x11"
}

// Close closes the X11 connection
func (p *X11Provider) Close() error {
	p.conn.Close()
	return nil
}

func (p *X11Provider) screenBounds() image.Rectangle {
	return image.Rect(0, 0, int(p.screen.WidthInPixels), int(p.screen.HeightInPixels))
}

// CaptureRegion captures a region of the root window
func (p *X11Provider) CaptureRegion(ctx context.Context, rect geometry.Rect) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r, err := pixelBounds(rect, p.screenBounds())
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.getImage(xproto.Drawable(p.root), r)
}

// CaptureFullscreen captures the whole root window
func (p *X11Provider) CaptureFullscreen(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.getImage(xproto.Drawable(p.root), p.screenBounds())
}

// CaptureWindow captures a window by id, descending into its children when
// the window itself is a frame or is not viewable
func (p *X11Provider) CaptureWindow(ctx context.Context, id uint32) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if id == 0 {
		return nil, fmt.Errorf("%w: invalid id 0", ErrWindowNotFound)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	log := logger.WithComponent("x11-capture")
	win := xproto.Window(id)

	attrs, err := xproto.GetWindowAttributes(p.conn, win).Reply()
	if err != nil {
		return nil, windowError(id, err)
	}

	log.Debug().
		Uint32("window_id", id).
		Uint16("class", attrs.Class).
		Uint8("map_state", attrs.MapState).
		Msg("Window attributes")

	if attrs.Class != xproto.WindowClassInputOutput || attrs.MapState != xproto.MapStateViewable {
		child, err := p.findCapturableChild(win)
		if err != nil {
			return nil, fmt.Errorf("%w: window %d is not viewable: %v", ErrCaptureFailed, id, err)
		}
		log.Debug().Uint32("child_window_id", uint32(child)).Msg("Found capturable child window")
		win = child
	}

	geom, err := xproto.GetGeometry(p.conn, xproto.Drawable(win)).Reply()
	if err != nil {
		return nil, windowError(id, err)
	}

	return p.captureWindowDrawable(win, geom)
}

// windowError maps X errors for a window request to capture errors
func windowError(id uint32, err error) error {
	var badWindow xproto.WindowError
	var badDrawable xproto.DrawableError
	if errors.As(err, &badWindow) || errors.As(err, &badDrawable) {
		return fmt.Errorf("%w: %d", ErrWindowNotFound, id)
	}
	return fmt.Errorf("%w: window %d: %v", ErrCaptureFailed, id, err)
}

// findCapturableChild recursively searches for a viewable child window
func (p *X11Provider) findCapturableChild(parent xproto.Window) (xproto.Window, error) {
	tree, err := xproto.QueryTree(p.conn, parent).Reply()
	if err != nil {
		return 0, fmt.Errorf("failed to query tree: %w", err)
	}

	for _, child := range tree.Children {
		attrs, err := xproto.GetWindowAttributes(p.conn, child).Reply()
		if err != nil {
			continue
		}
		geom, err := xproto.GetGeometry(p.conn, xproto.Drawable(child)).Reply()
		if err != nil {
			continue
		}

		if attrs.Class == xproto.WindowClassInputOutput && attrs.MapState == xproto.MapStateViewable {
			if geom.Width > 10 && geom.Height > 10 {
				return child, nil
			}
		}

		if grandchild, err := p.findCapturableChild(child); err == nil {
			return grandchild, nil
		}
	}

	return 0, fmt.Errorf("no capturable child found")
}

// captureWindowDrawable reads a window's pixels, preferring its Composite
// pixmap so obscured windows capture correctly
func (p *X11Provider) captureWindowDrawable(win xproto.Window, geom *xproto.GetGeometryReply) (image.Image, error) {
	log := logger.WithComponent("x11-capture")
	drawable := xproto.Drawable(win)

	if p.compositeEnabled {
		if err := composite.RedirectWindowChecked(p.conn, win, composite.RedirectAutomatic).Check(); err != nil {
			log.Warn().
				Err(err).
				Uint32("window_id", uint32(win)).
				Msg("Failed to redirect window via Composite, falling back to direct capture")
		} else {
			defer composite.UnredirectWindow(p.conn, win, composite.RedirectAutomatic)

			if pixmap, err := xproto.NewPixmapId(p.conn); err == nil {
				if err := composite.NameWindowPixmapChecked(p.conn, win, pixmap).Check(); err == nil {
					drawable = xproto.Drawable(pixmap)
					defer xproto.FreePixmap(p.conn, pixmap)
				}
			}
		}
	}

	return p.getImage(drawable, image.Rect(0, 0, int(geom.Width), int(geom.Height)))
}

// getImage reads r from drawable as a ZPixmap. Callers hold p.mu.
func (p *X11Provider) getImage(drawable xproto.Drawable, r image.Rectangle) (image.Image, error) {
	reply, err := xproto.GetImage(
		p.conn,
		xproto.ImageFormatZPixmap,
		drawable,
		int16(r.Min.X), int16(r.Min.Y),
		uint16(r.Dx()), uint16(r.Dy()),
		0xffffffff,
	).Reply()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get image: %v", ErrCaptureFailed, err)
	}
	return convertImageData(reply.Data, r.Dx(), r.Dy(), int(p.screen.RootDepth))
}

// convertImageData converts 24/32-bit BGRX pixel data to opaque RGBA
func convertImageData(data []byte, width, height, depth int) (*image.RGBA, error) {
	if depth != 24 && depth != 32 {
		return nil, fmt.Errorf("%w: unsupported depth %d", ErrCaptureFailed, depth)
	}
	if len(data) < width*height*4 {
		return nil, fmt.Errorf("%w: short image data (%d bytes for %dx%d)", ErrCaptureFailed, len(data), width, height)
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for i := 0; i < width*height; i++ {
		o := i * 4
		img.Pix[o] = data[o+2]
		img.Pix[o+1] = data[o+1]
		img.Pix[o+2] = data[o]
		img.Pix[o+3] = 255
	}
	return img, nil
}

// ListWindows lists top-level client windows, preferring the EWMH
// _NET_CLIENT_LIST and falling back to the root window's children
func (p *X11Provider) ListWindows(ctx context.Context) ([]WindowInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	log := logger.WithComponent("x11-capture")

	p.mu.Lock()
	ids, err := p.clientList()
	if err != nil || len(ids) == 0 {
		log.Debug().Err(err).Msg("ListWindows: EWMH unavailable, falling back to QueryTree")
		var tree *xproto.QueryTreeReply
		tree, err = xproto.QueryTree(p.conn, p.root).Reply()
		if err != nil {
			p.mu.Unlock()
			return nil, fmt.Errorf("%w: failed to query windows: %v", ErrCaptureFailed, err)
		}
		ids = tree.Children
	}

	windows := make([]WindowInfo, 0, len(ids))
	for _, win := range ids {
		info, err := p.windowInfo(win)
		if err != nil {
			continue
		}
		// skip windows without title or class, usually not user windows
		if info.Title == "" && info.AppName == "" {
			continue
		}
		windows = append(windows, info)
	}
	p.mu.Unlock()

	if p.thumbnails {
		for i := range windows {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			img, err := p.CaptureWindow(ctx, windows[i].ID)
			if err != nil {
				log.Debug().Err(err).Uint32("window_id", windows[i].ID).Msg("Skipping thumbnail")
				continue
			}
			windows[i].Thumbnail = thumbnail(img)
		}
	}

	log.Debug().Int("count", len(windows)).Msg("Listed windows")
	return windows, nil
}

func (p *X11Provider) clientList() ([]xproto.Window, error) {
	atom, err := p.getAtom("_NET_CLIENT_LIST")
	if err != nil {
		return nil, err
	}
	reply, err := xproto.GetProperty(p.conn, false, p.root, atom, xproto.GetPropertyTypeAny, 0, (1<<32)-1).Reply()
	if err != nil {
		return nil, err
	}

	ids := make([]xproto.Window, 0, len(reply.Value)/4)
	for i := 0; i+4 <= len(reply.Value); i += 4 {
		ids = append(ids, xproto.Window(uint32(reply.Value[i])|
			uint32(reply.Value[i+1])<<8|
			uint32(reply.Value[i+2])<<16|
			uint32(reply.Value[i+3])<<24))
	}
	return ids, nil
}

// windowInfo reads title, class and root-relative bounds of win
func (p *X11Provider) windowInfo(win xproto.Window) (WindowInfo, error) {
	info := WindowInfo{ID: uint32(win)}

	geom, err := xproto.GetGeometry(p.conn, xproto.Drawable(win)).Reply()
	if err != nil {
		return info, err
	}
	x, y := int(geom.X), int(geom.Y)
	if tr, err := xproto.TranslateCoordinates(p.conn, win, p.root, 0, 0).Reply(); err == nil {
		x, y = int(tr.DstX), int(tr.DstY)
	}
	info.Bounds = geometry.R(float64(x), float64(y), float64(geom.Width), float64(geom.Height))

	for _, name := range []string{"_NET_WM_NAME", "WM_NAME"} {
		if atom, err := p.getAtom(name); err == nil {
			if title, err := p.getProperty(win, atom); err == nil && title != "" {
				info.Title = title
				break
			}
		}
	}

	// WM_CLASS is "instance\0class\0"
	if atom, err := p.getAtom("WM_CLASS"); err == nil {
		if raw, err := p.getProperty(win, atom); err == nil {
			parts := strings.Split(raw, "\x00")
			if len(parts) >= 2 && parts[1] != "" {
				info.AppName = parts[1]
			} else if parts[0] != "" {
				info.AppName = parts[0]
			}
		}
	}

	return info, nil
}

func (p *X11Provider) getAtom(name string) (xproto.Atom, error) {
	reply, err := xproto.InternAtom(p.conn, false, uint16(len(name)), name).Reply()
	if err != nil {
		return 0, err
	}
	return reply.Atom, nil
}

func (p *X11Provider) getProperty(win xproto.Window, atom xproto.Atom) (string, error) {
	reply, err := xproto.GetProperty(p.conn, false, win, atom, xproto.GetPropertyTypeAny, 0, (1<<32)-1).Reply()
	if err != nil {
		return "", err
	}
	if reply.ValueLen == 0 {
		return "", fmt.Errorf("empty property")
	}
	return string(reply.Value), nil
}
