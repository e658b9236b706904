package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/bryanchriswhite/snapframe/internal/annotation"
	"github.com/bryanchriswhite/snapframe/internal/background"
	"github.com/bryanchriswhite/snapframe/internal/capture"
	"github.com/bryanchriswhite/snapframe/internal/config"
	"github.com/bryanchriswhite/snapframe/internal/export"
	"github.com/bryanchriswhite/snapframe/internal/logger"
	"github.com/bryanchriswhite/snapframe/internal/output"
	"github.com/bryanchriswhite/snapframe/internal/session"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

// MaxUploadSize caps screenshot uploads
const MaxUploadSize = 64 << 20

// Server represents the HTTP API server
type Server struct {
	router    *mux.Router
	session   *session.Session
	preview   *session.Preview
	stream    *output.MJPEGOutput
	exporter  *export.Exporter
	configMgr *config.Manager
	capturer  capture.Provider
	upgrader  websocket.Upgrader
	httpSrv   *http.Server
}

// NewServer creates a new API server. capturer may be nil when no capture
// backend is available; capture endpoints then answer 501.
func NewServer(sess *session.Session, preview *session.Preview, stream *output.MJPEGOutput, exporter *export.Exporter, configMgr *config.Manager, capturer capture.Provider) *Server {
	s := &Server{
		router:    mux.NewRouter(),
		session:   sess,
		preview:   preview,
		stream:    stream,
		exporter:  exporter,
		configMgr: configMgr,
		capturer:  capturer,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins for local tooling
			},
		},
	}

	s.setupRoutes()
	s.httpSrv = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	// Document
	api.HandleFunc("/state", s.handleGetState).Methods("GET")
	api.HandleFunc("/screenshot", s.handleUploadScreenshot).Methods("POST")
	api.HandleFunc("/capture", s.handleCapture).Methods("POST")
	api.HandleFunc("/windows", s.handleListWindows).Methods("GET")

	// Effects
	api.HandleFunc("/effects/padding", s.handleSetPadding).Methods("PUT")
	api.HandleFunc("/effects/corner-radius", s.handleSetCornerRadius).Methods("PUT")
	api.HandleFunc("/effects/shadow", s.handleSetShadow).Methods("PUT")
	api.HandleFunc("/effects/background", s.handleSetBackground).Methods("PUT")
	api.HandleFunc("/effects/background", s.handleClearBackground).Methods("DELETE")
	api.HandleFunc("/effects/aspect", s.handleAdjustAspect).Methods("POST")
	api.HandleFunc("/presets", s.handleGetPresets).Methods("GET")

	// Annotations and tools
	api.HandleFunc("/annotations", s.handleGetAnnotations).Methods("GET")
	api.HandleFunc("/annotations", s.handleAddAnnotation).Methods("POST")
	api.HandleFunc("/annotations/{id}", s.handleUpdateAnnotation).Methods("PUT")
	api.HandleFunc("/annotations/{id}", s.handleDeleteAnnotation).Methods("DELETE")
	api.HandleFunc("/annotations/{id}/text", s.handleSetText).Methods("PUT")
	api.HandleFunc("/select", s.handleSelect).Methods("POST")
	api.HandleFunc("/select", s.handleClearSelection).Methods("DELETE")
	api.HandleFunc("/tool", s.handleSetTool).Methods("PUT")
	api.HandleFunc("/style", s.handleSetStyle).Methods("PUT")
	api.HandleFunc("/text-style", s.handleSetTextStyle).Methods("PUT")

	// Crop
	api.HandleFunc("/crop", s.handleGetCrop).Methods("GET")
	api.HandleFunc("/crop", s.handleSetCropRect).Methods("PUT")
	api.HandleFunc("/crop/start", s.handleStartCrop).Methods("POST")
	api.HandleFunc("/crop/drag", s.handleDragCrop).Methods("POST")
	api.HandleFunc("/crop/aspect", s.handleSetCropAspect).Methods("PUT")
	api.HandleFunc("/crop/apply", s.handleApplyCrop).Methods("POST")
	api.HandleFunc("/crop/cancel", s.handleCancelCrop).Methods("POST")

	// History
	api.HandleFunc("/undo", s.handleUndo).Methods("POST")
	api.HandleFunc("/redo", s.handleRedo).Methods("POST")

	// Output
	api.HandleFunc("/preview.png", s.handlePreview).Methods("GET")
	api.HandleFunc("/export", s.handleDownload).Methods("GET")
	api.HandleFunc("/export", s.handleExport).Methods("POST")
	api.HandleFunc("/clipboard", s.handleClipboard).Methods("POST")
	api.HandleFunc("/ws", s.handlePreviewSocket)

	// Configuration
	api.HandleFunc("/config", s.handleGetConfig).Methods("GET")
	api.HandleFunc("/config", s.handleUpdateConfig).Methods("PUT")
	api.HandleFunc("/profiles", s.handleGetProfiles).Methods("GET")
	api.HandleFunc("/profiles", s.handleCreateProfile).Methods("POST")
	api.HandleFunc("/profiles/{id}", s.handleDeleteProfile).Methods("DELETE")
	api.HandleFunc("/profiles/{id}/apply", s.handleApplyProfile).Methods("POST")

	// Health check
	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	// Preview stream
	if s.stream != nil {
		s.router.HandleFunc("/stream", s.stream.GetHTTPHandler())
		s.router.HandleFunc("/stream/stats", s.stream.GetStatsHandler()).Methods("GET")
		s.router.HandleFunc("/", s.stream.GetViewerHandler()).Methods("GET")
	}
}

// Handler returns the routed handler with CORS applied
func (s *Server) Handler() http.Handler {
	return s.enableCORS(s.router)
}

// Start starts the HTTP server and blocks until it stops. It returns nil
// once Shutdown has been called, even if Shutdown ran first.
func (s *Server) Start(port int) error {
	addr := fmt.Sprintf(":%d", port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	logger.WithComponent("api").Info().Str("addr", ln.Addr().String()).Msg("Starting server")
	if err := s.httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

// enableCORS adds CORS headers
func (s *Server) enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeSuccess(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// writeError maps domain errors to HTTP status codes
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, annotation.ErrNotFound),
		errors.Is(err, capture.ErrWindowNotFound):
		status = http.StatusNotFound
	case errors.Is(err, session.ErrNoScreenshot),
		errors.Is(err, session.ErrCropInactive),
		errors.Is(err, session.ErrNotDrawing),
		errors.Is(err, session.ErrNothingToUndo),
		errors.Is(err, session.ErrNothingToRedo):
		status = http.StatusConflict
	case errors.Is(err, session.ErrInvalidCrop),
		errors.Is(err, capture.ErrInvalidBounds),
		errors.Is(err, export.ErrInvalidFormat),
		errors.Is(err, background.ErrFileAccessDenied),
		errors.Is(err, background.ErrInvalidImage),
		errors.Is(err, background.ErrImageTooLarge):
		status = http.StatusBadRequest
	case errors.Is(err, capture.ErrPermissionDenied):
		status = http.StatusForbidden
	case errors.Is(err, capture.ErrUnsupported):
		status = http.StatusNotImplemented
	}

	if status == http.StatusInternalServerError {
		logger.WithComponent("api").Error().Err(err).Msg("Request failed")
	}
	http.Error(w, err.Error(), status)
}

// decode reads a JSON request body into v, answering 400 on failure
func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": "0.1.0",
	})
}
