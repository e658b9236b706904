package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/bryanchriswhite/snapframe/internal/annotation"
	"github.com/bryanchriswhite/snapframe/internal/compositor"
	"github.com/bryanchriswhite/snapframe/internal/logger"
	"github.com/chai2010/webp"
)

// Format is an export image format
type Format string

const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
	FormatWebP Format = "webp"
)

// DefaultJPEGQuality is used when Options.Quality is unset
const DefaultJPEGQuality = 0.9

// FileNameLayout formats the default export name, e.g.
// "Screenshot 2024-03-01 14-05-09"
const FileNameLayout = "2006-01-02 15-04-05"

var (
	ErrInvalidFormat   = errors.New("invalid export format")
	ErrSaveFailed      = errors.New("failed to save file")
	ErrClipboardFailed = errors.New("failed to copy to clipboard")
)

// ParseFormat accepts format names and common file extensions
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "png":
		return FormatPNG, nil
	case "jpeg", "jpg":
		return FormatJPEG, nil
	case "webp":
		return FormatWebP, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidFormat, s)
}

// FormatForPath infers the format from a file name's extension
func FormatForPath(path string) (Format, error) {
	return ParseFormat(filepath.Ext(path))
}

// Extension returns the file extension for f, without the dot
func (f Format) Extension() string {
	switch f {
	case FormatJPEG:
		return "jpg"
	default:
		return string(f)
	}
}

// MIMEType returns the media type for f
func (f Format) MIMEType() string {
	switch f {
	case FormatJPEG:
		return "image/jpeg"
	case FormatWebP:
		return "image/webp"
	default:
		return "image/png"
	}
}

// Options controls encoding. Quality is in [0,1] and only applies to lossy
// formats; zero means DefaultJPEGQuality.
type Options struct {
	Format   Format  `json:"format" yaml:"format"`
	Quality  float64 `json:"quality" yaml:"quality"`
	Lossless bool    `json:"lossless,omitempty" yaml:"lossless,omitempty"`
	FileName string  `json:"file_name,omitempty" yaml:"file_name,omitempty"`
}

// DefaultOptions exports PNG
func DefaultOptions() Options {
	return Options{Format: FormatPNG, Quality: DefaultJPEGQuality}
}

// Encode serialises img in the requested format
func Encode(img image.Image, opts Options) ([]byte, error) {
	var buf bytes.Buffer
	var err error

	switch opts.Format {
	case FormatPNG, "":
		enc := png.Encoder{CompressionLevel: png.DefaultCompression}
		err = enc.Encode(&buf, img)
	case FormatJPEG:
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality(opts.Quality)})
	case FormatWebP:
		err = webp.Encode(&buf, img, &webp.Options{
			Lossless: opts.Lossless,
			Quality:  float32(lossyQuality(opts.Quality) * 100),
		})
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidFormat, opts.Format)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to encode %s: %v", ErrInvalidFormat, opts.Format, err)
	}
	return buf.Bytes(), nil
}

// lossyQuality substitutes DefaultJPEGQuality for an unset quality
func lossyQuality(q float64) float64 {
	if q == 0 {
		return DefaultJPEGQuality
	}
	return q
}

func jpegQuality(q float64) int {
	v := int(math.Round(lossyQuality(q) * 100))
	if v < 1 {
		return 1
	}
	if v > 100 {
		return 100
	}
	return v
}

// GenerateFileName returns custom when set, otherwise a timestamped name
// without extension
func GenerateFileName(custom string, now time.Time) string {
	if custom = strings.TrimSpace(custom); custom != "" {
		return custom
	}
	return "Screenshot " + now.Format(FileNameLayout)
}

// FileName returns the generated name with the format's extension appended
func FileName(opts Options, now time.Time) string {
	name := GenerateFileName(opts.FileName, now)
	format := opts.Format
	if format == "" {
		format = FormatPNG
	}
	ext := "." + format.Extension()
	if strings.EqualFold(filepath.Ext(name), ext) {
		return name
	}
	return name + ext
}

// Sink persists encoded exports
type Sink interface {
	WriteFile(ctx context.Context, data []byte, path string) error
	CopyToClipboard(ctx context.Context, data []byte, mimeType string) error
}

// Exporter renders and encodes editor snapshots
type Exporter struct {
	sink Sink
	now  func() time.Time
}

// NewExporter creates an exporter writing through sink
func NewExporter(sink Sink) *Exporter {
	return &Exporter{sink: sink, now: time.Now}
}

// Export renders state with annotations and encodes the result. Each call
// renders into its own canvas so concurrent exports do not interfere.
func (e *Exporter) Export(state compositor.State, annotations []annotation.Annotation, opts Options) ([]byte, error) {
	img, err := compositor.Render(state, annotations)
	if err != nil {
		return nil, err
	}
	return Encode(img, opts)
}

// ExportAndSave exports and writes the result into dir, returning the path
// written
func (e *Exporter) ExportAndSave(ctx context.Context, state compositor.State, annotations []annotation.Annotation, opts Options, dir string) (string, error) {
	data, err := e.Export(state, annotations, opts)
	if err != nil {
		return "", err
	}

	path := filepath.Join(dir, FileName(opts, e.now()))
	if err := e.sink.WriteFile(ctx, data, path); err != nil {
		if errors.Is(err, ErrSaveFailed) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", ErrSaveFailed, err)
	}

	logger.WithComponent("export").Info().
		Str("path", path).
		Str("format", string(opts.Format)).
		Int("bytes", len(data)).
		Msg("Saved export")
	return path, nil
}

// ExportAndCopy exports as PNG and places the bytes on the clipboard
func (e *Exporter) ExportAndCopy(ctx context.Context, state compositor.State, annotations []annotation.Annotation) error {
	data, err := e.Export(state, annotations, Options{Format: FormatPNG})
	if err != nil {
		return err
	}

	if err := e.sink.CopyToClipboard(ctx, data, FormatPNG.MIMEType()); err != nil {
		if errors.Is(err, ErrClipboardFailed) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrClipboardFailed, err)
	}

	logger.WithComponent("export").Info().Int("bytes", len(data)).Msg("Copied export to clipboard")
	return nil
}
