package capture

import (
	"bufio"
	"context"
	"fmt"
	"hash/fnv"
	"image"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/bryanchriswhite/snapframe/internal/geometry"
	"github.com/bryanchriswhite/snapframe/internal/logger"
	"github.com/disintegration/imaging"
	"github.com/godbus/dbus/v5"
	"github.com/google/uuid"
)

const kwinService = "org.kde.KWin"

// commandRunner runs an external program and returns its stdout
type commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// KWinProvider captures on KDE Plasma Wayland sessions, where X11 capture
// only sees XWayland clients. Screens are grabbed with spectacle; windows
// are enumerated and raised with kdotool.
type KWinProvider struct {
	run        commandRunner
	useKdotool bool
	tempDir    string

	// kdotool ids are UUID strings; WindowInfo ids are their hashes
	uuidMu      sync.RWMutex
	windowUUIDs map[uint32]string
}

// NewKWinProvider checks that KWin owns a name on the session bus and that
// spectacle is installed
func NewKWinProvider() (*KWinProvider, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}
	defer conn.Close()

	var names []string
	if err := conn.BusObject().Call("org.freedesktop.DBus.ListNames", 0).Store(&names); err != nil {
		return nil, fmt.Errorf("failed to list D-Bus names: %w", err)
	}
	found := false
	for _, name := range names {
		if name == kwinService {
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("KWin service not found on D-Bus")
	}

	if _, err := exec.LookPath("spectacle"); err != nil {
		return nil, fmt.Errorf("spectacle not found: %w", err)
	}

	_, kdoErr := exec.LookPath("kdotool")
	if kdoErr != nil {
		logger.WithComponent("kwin").Info().Msg("kdotool not found, window capture disabled")
	}
	return newKWinProvider(execRunner, kdoErr == nil), nil
}

func newKWinProvider(run commandRunner, useKdotool bool) *KWinProvider {
	return &KWinProvider{
		run:         run,
		useKdotool:  useKdotool,
		tempDir:     os.TempDir(),
		windowUUIDs: make(map[uint32]string),
	}
}

// Name returns the provider name
func (p *KWinProvider) Name() string {
	return "kwin"
}

// Close is a no-op; every capture runs its own process
func (p *KWinProvider) Close() error {
	return nil
}

// spectacle runs a background capture in mode ("--fullscreen" or
// "--activewindow") and loads the written file
func (p *KWinProvider) spectacle(ctx context.Context, mode string) (image.Image, error) {
	path := filepath.Join(p.tempDir, "snapframe-"+uuid.NewString()+".png")
	defer os.Remove(path)

	if _, err := p.run(ctx, "spectacle", "--background", "--nonotify", mode, "--output", path); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: spectacle: %v", ErrCaptureFailed, err)
	}

	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read spectacle output: %v", ErrCaptureFailed, err)
	}
	return img, nil
}

// CaptureFullscreen captures all screens
func (p *KWinProvider) CaptureFullscreen(ctx context.Context) (image.Image, error) {
	return p.spectacle(ctx, "--fullscreen")
}

// CaptureRegion captures the screen and crops rect out of it
func (p *KWinProvider) CaptureRegion(ctx context.Context, rect geometry.Rect) (image.Image, error) {
	full, err := p.CaptureFullscreen(ctx)
	if err != nil {
		return nil, err
	}
	return cropRegion(full, rect)
}

// CaptureWindow raises window id and captures the active window. Ids come
// from ListWindows.
func (p *KWinProvider) CaptureWindow(ctx context.Context, id uint32) (image.Image, error) {
	if !p.useKdotool {
		return nil, fmt.Errorf("%w: window capture needs kdotool", ErrUnsupported)
	}

	p.uuidMu.RLock()
	windowUUID, ok := p.windowUUIDs[id]
	p.uuidMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: 0x%x", ErrWindowNotFound, id)
	}

	if _, err := p.run(ctx, "kdotool", "windowactivate", windowUUID); err != nil {
		return nil, fmt.Errorf("%w: 0x%x: %v", ErrWindowNotFound, id, err)
	}
	return p.spectacle(ctx, "--activewindow")
}

// ListWindows enumerates windows through kdotool
func (p *KWinProvider) ListWindows(ctx context.Context) ([]WindowInfo, error) {
	if !p.useKdotool {
		return nil, fmt.Errorf("%w: window listing needs kdotool", ErrUnsupported)
	}

	output, err := p.run(ctx, "kdotool", "search", "--name", ".")
	if err != nil {
		return nil, fmt.Errorf("%w: kdotool search failed: %v", ErrCaptureFailed, err)
	}

	uuids := make(map[uint32]string)
	windows := make([]WindowInfo, 0)
	scanner := bufio.NewScanner(strings.NewReader(string(output)))
	for scanner.Scan() {
		windowUUID := strings.TrimSpace(scanner.Text())
		if windowUUID == "" {
			continue
		}

		info := p.windowInfo(ctx, windowUUID)
		if info.Title == "" && info.AppName == "" {
			continue
		}
		uuids[info.ID] = windowUUID
		windows = append(windows, info)
	}

	p.uuidMu.Lock()
	p.windowUUIDs = uuids
	p.uuidMu.Unlock()
	return windows, nil
}

// windowInfo queries one window; missing fields are left empty
func (p *KWinProvider) windowInfo(ctx context.Context, windowUUID string) WindowInfo {
	query := func(cmd string) string {
		out, err := p.run(ctx, "kdotool", cmd, windowUUID)
		if err != nil {
			return ""
		}
		return strings.TrimSpace(string(out))
	}

	return WindowInfo{
		ID:      hashWindowID(windowUUID),
		Title:   query("getwindowname"),
		AppName: query("getwindowclassname"),
		Bounds:  parseKdotoolGeometry(query("getwindowgeometry")),
	}
}

// hashWindowID maps a kdotool window UUID to a numeric id
func hashWindowID(s string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(s))
	return h.Sum32()
}

// parseKdotoolGeometry parses "Window <id>\n  Position: X,Y\n  Geometry: WxH"
func parseKdotoolGeometry(output string) geometry.Rect {
	var r geometry.Rect
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "Position:"):
			parts := strings.Split(strings.TrimSpace(strings.TrimPrefix(line, "Position:")), ",")
			if len(parts) >= 2 {
				r.X, _ = strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
				r.Y, _ = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
			}
		case strings.HasPrefix(line, "Geometry:"):
			parts := strings.Split(strings.TrimSpace(strings.TrimPrefix(line, "Geometry:")), "x")
			if len(parts) >= 2 {
				r.Width, _ = strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
				r.Height, _ = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
			}
		}
	}
	return r
}
