package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bryanchriswhite/snapframe/internal/api"
	"github.com/bryanchriswhite/snapframe/internal/capture"
	"github.com/bryanchriswhite/snapframe/internal/export"
	"github.com/bryanchriswhite/snapframe/internal/logger"
	"github.com/bryanchriswhite/snapframe/internal/output"
	"github.com/bryanchriswhite/snapframe/internal/session"
	"github.com/bryanchriswhite/snapframe/internal/sink"
	"github.com/disintegration/imaging"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve [SCREENSHOT]",
	Short: "Start the snapframe editor server",
	Long: `Start the snapframe HTTP server.

The server holds one editing session and exposes it through a REST API. Every
edit schedules a debounced re-render; the result is pushed to WebSocket
subscribers on /api/ws and streamed as MJPEG on /stream.`,
	Example: `  # Start server on default port (8080)
  snapframe serve

  # Open an existing image for editing
  snapframe serve ~/Pictures/shot.png

  # Start server on custom port with debug logging
  snapframe serve --port 9090 --log-level debug`,
	Args: cobra.MaximumNArgs(1),
	RunE: runServe,
}

var serveNoCapture bool

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&serveNoCapture, "no-capture", false, "disable the screen capture backends")
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("serve")

	configMgr, cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log.Info().Str("path", configMgr.GetConfigPath()).Str("log_level", cfg.LogLevel).Msg("Configuration loaded")

	sess := session.New(cfg.Editor.State())
	if len(args) == 1 {
		img, err := imaging.Open(args[0], imaging.AutoOrientation(true))
		if err != nil {
			return fmt.Errorf("failed to open screenshot: %w", err)
		}
		if err := sess.SetScreenshot(img); err != nil {
			return err
		}
	}

	// Preview pipeline: session edits -> scheduler -> preview -> stream
	stream := output.NewMJPEGOutput(output.DefaultConfig())
	if err := stream.Start(); err != nil {
		return fmt.Errorf("failed to start preview stream: %w", err)
	}
	defer stream.Stop()

	preview := session.NewPreview(stream)
	scheduler := session.NewScheduler(cfg.Render.Debounce(), sess.Snapshot, session.Render, preview.Deliver)
	defer scheduler.Close()
	sess.OnChange(scheduler.Trigger)
	if len(args) == 1 {
		scheduler.Trigger()
	}

	var capturer capture.Provider
	if !serveNoCapture {
		router, err := capture.Open(cfg.Capture.Backend, cfg.Capture.Thumbnails)
		if err != nil {
			log.Warn().Err(err).Msg("Screen capture disabled")
		} else {
			defer router.Close()
			capturer = router
			log.Info().Str("backend", router.Name()).Msg("Screen capture ready")
		}
	}

	exporter := export.NewExporter(sink.NewDesktop())
	server := api.NewServer(sess, preview, stream, exporter, configMgr, capturer)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Start(cfg.ServerPort)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down gracefully...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	log.Info().
		Str("api", fmt.Sprintf("http://localhost:%d/api", cfg.ServerPort)).
		Str("preview", fmt.Sprintf("http://localhost:%d/", cfg.ServerPort)).
		Msg("snapframe is running, press Ctrl+C to stop")

	return g.Wait()
}
