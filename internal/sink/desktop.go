package sink

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/bryanchriswhite/snapframe/internal/export"
	"github.com/bryanchriswhite/snapframe/internal/logger"
)

// ClipboardCommand is an external program that reads clipboard content on
// stdin. MIME is substituted for the "{mime}" placeholder in Args.
type ClipboardCommand struct {
	Name string
	Args []string
}

// DefaultClipboardCommands are tried in order: Wayland first, then X11
var DefaultClipboardCommands = []ClipboardCommand{
	{Name: "wl-copy", Args: []string{"--type", "{mime}"}},
	{Name: "xclip", Args: []string{"-selection", "clipboard", "-t", "{mime}", "-i"}},
	{Name: "xsel", Args: []string{"--clipboard", "--input"}},
}

// Desktop writes exports to the local filesystem and places them on the
// desktop clipboard through the first available clipboard tool
type Desktop struct {
	Commands []ClipboardCommand
	FileMode os.FileMode
	lookPath func(string) (string, error)
}

// NewDesktop creates a desktop sink using the default clipboard tools
func NewDesktop() *Desktop {
	return &Desktop{
		Commands: DefaultClipboardCommands,
		FileMode: 0o644,
		lookPath: exec.LookPath,
	}
}

// WriteFile writes data to path, creating parent directories as needed
func (d *Desktop) WriteFile(ctx context.Context, data []byte, path string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", export.ErrSaveFailed, err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("%w: failed to create directory %s: %v", export.ErrSaveFailed, dir, err)
		}
	}

	mode := d.FileMode
	if mode == 0 {
		mode = 0o644
	}
	if err := os.WriteFile(path, data, mode); err != nil {
		return fmt.Errorf("%w: %v", export.ErrSaveFailed, err)
	}

	logger.WithComponent("sink").Debug().Str("path", path).Int("bytes", len(data)).Msg("Wrote file")
	return nil
}

// CopyToClipboard pipes data into the first clipboard tool found on PATH
func (d *Desktop) CopyToClipboard(ctx context.Context, data []byte, mimeType string) error {
	log := logger.WithComponent("sink")
	look := d.lookPath
	if look == nil {
		look = exec.LookPath
	}

	for _, c := range d.Commands {
		path, err := look(c.Name)
		if err != nil {
			continue
		}

		args := make([]string, len(c.Args))
		for i, a := range c.Args {
			args[i] = strings.ReplaceAll(a, "{mime}", mimeType)
		}

		cmd := exec.CommandContext(ctx, path, args...)
		cmd.Stdin = bytes.NewReader(data)
		var stderr bytes.Buffer
		cmd.Stderr = &stderr
		if err := cmd.Run(); err != nil {
			return fmt.Errorf("%w: %s: %v: %s", export.ErrClipboardFailed, c.Name, err, strings.TrimSpace(stderr.String()))
		}

		log.Debug().Str("tool", c.Name).Str("mime", mimeType).Int("bytes", len(data)).Msg("Copied to clipboard")
		return nil
	}

	return fmt.Errorf("%w: no clipboard tool found (tried %s)", export.ErrClipboardFailed, d.commandNames())
}

func (d *Desktop) commandNames() string {
	names := make([]string, len(d.Commands))
	for i, c := range d.Commands {
		names[i] = c.Name
	}
	return strings.Join(names, ", ")
}
