package commands

import (
	"context"
	"fmt"
	"image"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bryanchriswhite/snapframe/internal/background"
	"github.com/bryanchriswhite/snapframe/internal/capture"
	"github.com/bryanchriswhite/snapframe/internal/export"
	"github.com/bryanchriswhite/snapframe/internal/geometry"
	"github.com/bryanchriswhite/snapframe/internal/logger"
	"github.com/bryanchriswhite/snapframe/internal/sink"
	"github.com/spf13/cobra"
)

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Capture a screenshot and export it with effects",
	Long: `Capture the full screen, a region or a window, composite it with the
configured editor effects and export it.

Without --output the file is written to the configured output directory with
a timestamped name.`,
	Example: `  # Capture the whole screen
  snapframe capture

  # Capture a region as JPEG
  snapframe capture --region 100,100,800,600 -o shot.jpg

  # Capture a window by id (see 'snapframe windows')
  snapframe capture --window 0x3a00007 --preset "Ocean Radial"

  # Capture without any effects and copy to the clipboard
  snapframe capture --raw --copy`,
	RunE: runCapture,
}

var (
	captureRegion  string
	captureWindow  string
	captureOutput  string
	capturePreset  string
	capturePadding float64
	captureRaw     bool
	captureCopy    bool
	captureBackend string
)

func init() {
	rootCmd.AddCommand(captureCmd)

	captureCmd.Flags().StringVar(&captureRegion, "region", "", "capture region as x,y,width,height")
	captureCmd.Flags().StringVar(&captureWindow, "window", "", "capture the window with this id")
	captureCmd.Flags().StringVarP(&captureOutput, "output", "o", "", "output file")
	captureCmd.Flags().StringVar(&capturePreset, "preset", "", "background gradient preset")
	captureCmd.Flags().Float64Var(&capturePadding, "padding", -1, "padding override")
	captureCmd.Flags().BoolVar(&captureRaw, "raw", false, "export the capture without effects")
	captureCmd.Flags().BoolVar(&captureCopy, "copy", false, "copy the result to the clipboard instead of saving")
	captureCmd.Flags().StringVar(&captureBackend, "backend", "", "capture backend (auto, x11, portal)")
}

// parseRegion parses "x,y,width,height"
func parseRegion(s string) (geometry.Rect, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return geometry.Rect{}, fmt.Errorf("invalid region %q (use x,y,width,height)", s)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return geometry.Rect{}, fmt.Errorf("invalid region %q: %w", s, err)
		}
		v[i] = f
	}
	return geometry.R(v[0], v[1], v[2], v[3]), nil
}

// parseWindowID accepts decimal or 0x-prefixed hex ids
func parseWindowID(s string) (uint32, error) {
	id, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid window id %q: %w", s, err)
	}
	return uint32(id), nil
}

func runCapture(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("capture")

	if captureRegion != "" && captureWindow != "" {
		return fmt.Errorf("--region and --window are mutually exclusive")
	}

	_, cfg, err := loadConfig()
	if err != nil {
		return err
	}
	backend := cfg.Capture.Backend
	if captureBackend != "" {
		backend = captureBackend
	}

	router, err := capture.Open(backend, false)
	if err != nil {
		return err
	}
	defer router.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var img image.Image
	switch {
	case captureRegion != "":
		rect, perr := parseRegion(captureRegion)
		if perr != nil {
			return perr
		}
		img, err = router.CaptureRegion(ctx, rect)
	case captureWindow != "":
		id, perr := parseWindowID(captureWindow)
		if perr != nil {
			return perr
		}
		img, err = router.CaptureWindow(ctx, id)
	default:
		img, err = router.CaptureFullscreen(ctx)
	}
	if err != nil {
		return err
	}

	state := cfg.Editor.State()
	if captureRaw {
		state.Padding, state.CornerRadius, state.Shadow.Blur = 0, 0, 0
		state.Background = nil
	}
	if capturePadding >= 0 {
		state.Padding = capturePadding
	}
	if capturePreset != "" {
		p, err := background.LookupPreset(capturePreset)
		if err != nil {
			return err
		}
		state.Background = background.Gradient{Preset: p}
	}
	state.Screenshot = img
	state = state.Clamp()

	exporter := export.NewExporter(sink.NewDesktop())
	if captureCopy {
		if err := exporter.ExportAndCopy(ctx, state, nil); err != nil {
			return err
		}
		log.Info().Msg("Copied capture to clipboard")
		return nil
	}

	opts, err := cfg.Export.Options()
	if err != nil {
		return err
	}
	dir := cfg.Export.OutputDir
	if captureOutput != "" {
		if opts.Format, err = export.FormatForPath(captureOutput); err != nil {
			return err
		}
		dir = filepath.Dir(captureOutput)
		opts.FileName = filepath.Base(captureOutput)
	}

	path, err := exporter.ExportAndSave(ctx, state, nil, opts, dir)
	if err != nil {
		return err
	}
	fmt.Println(path)
	return nil
}
