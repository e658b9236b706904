package sink

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/bryanchriswhite/snapframe/internal/export"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "shots", "a.png")

	d := NewDesktop()
	require.NoError(t, d.WriteFile(context.Background(), []byte("data"), path))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "data", string(got))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = d.WriteFile(ctx, []byte("data"), path)
	assert.ErrorIs(t, err, export.ErrSaveFailed)

	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))
	err = d.WriteFile(context.Background(), []byte("data"), filepath.Join(blocker, "x.png"))
	assert.ErrorIs(t, err, export.ErrSaveFailed)
}

func TestCopyToClipboard(t *testing.T) {
	out := filepath.Join(t.TempDir(), "clipboard")

	tests := []struct {
		message  string
		commands []ClipboardCommand
		lookPath func(string) (string, error)
		wantErr  bool
	}{
		{
			message:  "pipe data into the first available tool",
			commands: []ClipboardCommand{{Name: "missing-tool"}, {Name: "sh", Args: []string{"-c", "cat > " + out + "; echo {mime} >> " + out}}},
		},
		{
			message:  "fail when no tool is installed",
			commands: []ClipboardCommand{{Name: "wl-copy"}, {Name: "xclip"}},
			lookPath: func(string) (string, error) { return "", errors.New("not found") },
			wantErr:  true,
		},
		{
			message:  "fail when the tool exits non-zero",
			commands: []ClipboardCommand{{Name: "sh", Args: []string{"-c", "exit 3"}}},
			wantErr:  true,
		},
	}
	for _, tt := range tests {
		t.Run("Should "+tt.message, func(t *testing.T) {
			d := NewDesktop()
			d.Commands = tt.commands
			if tt.lookPath != nil {
				d.lookPath = tt.lookPath
			}

			err := d.CopyToClipboard(context.Background(), []byte("png-bytes"), "image/png")
			if tt.wantErr {
				assert.ErrorIs(t, err, export.ErrClipboardFailed)
				return
			}
			require.NoError(t, err)
			got, err := os.ReadFile(out)
			require.NoError(t, err)
			assert.Equal(t, "png-bytesimage/png\n", string(got))
		})
	}
}
