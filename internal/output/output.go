package output

import (
	"image"
)

// Output defines the interface for preview frame sinks. The render scheduler
// hands every fresh composite to WriteFrame.
type Output interface {
	// Start initializes the output mechanism
	Start() error

	// Stop cleanly shuts down the output
	Stop() error

	// WriteFrame sends a frame to the output
	// The image is expected to be in RGBA format
	WriteFrame(frame *image.RGBA) error

	// Name returns a human-readable name for this output type
	Name() string

	// IsRunning returns true if the output is currently active
	IsRunning() bool
}

// Config holds common configuration for all output types
type Config struct {
	// Quality is the JPEG quality in [0,1]
	Quality float64
	// ClientBuffer is the number of frames queued per client
	ClientBuffer int
}

// DefaultConfig returns the preview stream defaults
func DefaultConfig() Config {
	return Config{Quality: 0.85, ClientBuffer: 2}
}
