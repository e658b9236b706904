package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/bryanchriswhite/snapframe/internal/annotation"
	"github.com/bryanchriswhite/snapframe/internal/background"
	"github.com/bryanchriswhite/snapframe/internal/capture"
	"github.com/bryanchriswhite/snapframe/internal/compositor"
	"github.com/bryanchriswhite/snapframe/internal/config"
	"github.com/bryanchriswhite/snapframe/internal/export"
	"github.com/bryanchriswhite/snapframe/internal/geometry"
	"github.com/bryanchriswhite/snapframe/internal/logger"
	"github.com/bryanchriswhite/snapframe/internal/session"
	"github.com/disintegration/imaging"
	"github.com/gorilla/mux"
)

// StateResponse is the editor state reported by GET /api/state
type StateResponse struct {
	HasScreenshot  bool                 `json:"has_screenshot"`
	ScreenshotSize geometry.Size        `json:"screenshot_size"`
	CanvasSize     geometry.Size        `json:"canvas_size"`
	Padding        float64              `json:"padding"`
	CornerRadius   float64              `json:"corner_radius"`
	Shadow         compositor.Shadow    `json:"shadow"`
	Background     string               `json:"background"`
	Annotations    annotation.List      `json:"annotations"`
	Selected       string               `json:"selected,omitempty"`
	Tool           session.Tool         `json:"tool"`
	Style          annotation.Style     `json:"style"`
	TextStyle      annotation.TextStyle `json:"text_style"`
	Crop           session.CropState    `json:"crop"`
	CanUndo        bool                 `json:"can_undo"`
	CanRedo        bool                 `json:"can_redo"`
	Generation     uint64               `json:"generation"`
}

func (s *Server) state() StateResponse {
	doc := s.session.Snapshot()
	st := doc.State
	resp := StateResponse{
		HasScreenshot:  st.Screenshot != nil,
		ScreenshotSize: st.ScreenshotSize(),
		CanvasSize:     st.CanvasSize(),
		Padding:        st.Padding,
		CornerRadius:   st.CornerRadius,
		Shadow:         st.Shadow,
		Background:     background.Describe(st.Background),
		Annotations:    doc.Annotations,
		Tool:           s.session.Tool(),
		Style:          s.session.Style(),
		TextStyle:      s.session.TextStyle(),
		Crop:           s.session.Crop(),
		CanUndo:        s.session.CanUndo(),
		CanRedo:        s.session.CanRedo(),
	}
	if resp.Annotations == nil {
		resp.Annotations = annotation.List{}
	}
	if a, ok := s.session.Selected(); ok {
		resp.Selected = a.ID
	}
	if s.preview != nil {
		_, resp.Generation, _ = s.preview.Latest()
	}
	return resp
}

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.state())
}

// Document

func (s *Server) handleUploadScreenshot(w http.ResponseWriter, r *http.Request) {
	img, err := imaging.Decode(http.MaxBytesReader(w, r.Body, MaxUploadSize), imaging.AutoOrientation(true))
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid image: %v", err), http.StatusBadRequest)
		return
	}
	s.setScreenshot(w, img)
}

func (s *Server) setScreenshot(w http.ResponseWriter, img image.Image) {
	if err := s.session.SetScreenshot(img); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.state())
}

// CaptureRequest selects what POST /api/capture grabs
type CaptureRequest struct {
	Mode     string         `json:"mode"`
	Rect     *geometry.Rect `json:"rect,omitempty"`
	WindowID uint32         `json:"window_id,omitempty"`
}

func (s *Server) handleCapture(w http.ResponseWriter, r *http.Request) {
	if s.capturer == nil {
		writeError(w, fmt.Errorf("%w: no capture backend", capture.ErrUnsupported))
		return
	}

	var req CaptureRequest
	if !decode(w, r, &req) {
		return
	}

	var img image.Image
	var err error
	switch req.Mode {
	case "", "fullscreen":
		img, err = s.capturer.CaptureFullscreen(r.Context())
	case "region":
		if req.Rect == nil {
			http.Error(w, "region capture needs a rect", http.StatusBadRequest)
			return
		}
		img, err = s.capturer.CaptureRegion(r.Context(), *req.Rect)
	case "window":
		img, err = s.capturer.CaptureWindow(r.Context(), req.WindowID)
	default:
		http.Error(w, fmt.Sprintf("unknown capture mode: %q", req.Mode), http.StatusBadRequest)
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}

	logger.WithComponent("api").Info().
		Str("mode", req.Mode).
		Int("width", img.Bounds().Dx()).
		Int("height", img.Bounds().Dy()).
		Msg("Captured screenshot")
	s.setScreenshot(w, img)
}

func (s *Server) handleListWindows(w http.ResponseWriter, r *http.Request) {
	if s.capturer == nil {
		writeError(w, fmt.Errorf("%w: no capture backend", capture.ErrUnsupported))
		return
	}
	windows, err := s.capturer.ListWindows(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, windows)
}

// Effects

type valueRequest struct {
	Value *float64 `json:"value"`
}

func (s *Server) decodeValue(w http.ResponseWriter, r *http.Request) (float64, bool) {
	var req valueRequest
	if !decode(w, r, &req) {
		return 0, false
	}
	if req.Value == nil {
		http.Error(w, "missing value", http.StatusBadRequest)
		return 0, false
	}
	return *req.Value, true
}

func (s *Server) handleSetPadding(w http.ResponseWriter, r *http.Request) {
	if v, ok := s.decodeValue(w, r); ok {
		s.session.SetPadding(v)
		writeJSON(w, http.StatusOK, s.state())
	}
}

func (s *Server) handleSetCornerRadius(w http.ResponseWriter, r *http.Request) {
	if v, ok := s.decodeValue(w, r); ok {
		s.session.SetCornerRadius(v)
		writeJSON(w, http.StatusOK, s.state())
	}
}

func (s *Server) handleSetShadow(w http.ResponseWriter, r *http.Request) {
	shadow := s.session.Snapshot().State.Shadow
	if !decode(w, r, &shadow) {
		return
	}
	s.session.SetShadow(shadow)
	writeJSON(w, http.StatusOK, s.state())
}

// BackgroundRequest names a gradient preset or an image file on the server
type BackgroundRequest struct {
	Preset string `json:"preset,omitempty"`
	Image  string `json:"image,omitempty"`
}

func (s *Server) handleSetBackground(w http.ResponseWriter, r *http.Request) {
	var req BackgroundRequest
	if !decode(w, r, &req) {
		return
	}

	var bg background.Background
	switch {
	case req.Preset != "" && req.Image == "":
		p, err := background.LookupPreset(req.Preset)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		bg = background.Gradient{Preset: p}
	case req.Image != "" && req.Preset == "":
		img, err := background.LoadImage(req.Image)
		if err != nil {
			writeError(w, err)
			return
		}
		bg = img
	default:
		http.Error(w, "set exactly one of preset or image", http.StatusBadRequest)
		return
	}

	s.session.SetBackground(bg)
	writeJSON(w, http.StatusOK, s.state())
}

func (s *Server) handleClearBackground(w http.ResponseWriter, r *http.Request) {
	s.session.SetBackground(nil)
	writeJSON(w, http.StatusOK, s.state())
}

func (s *Server) handleAdjustAspect(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Ratio float64 `json:"ratio"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.Ratio <= 0 {
		http.Error(w, "ratio must be positive", http.StatusBadRequest)
		return
	}
	if err := s.session.AdjustPaddingForAspect(req.Ratio); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.state())
}

func (s *Server) handleGetPresets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, background.Presets())
}

// Annotations

func (s *Server) handleGetAnnotations(w http.ResponseWriter, r *http.Request) {
	anns := s.session.Annotations()
	if anns == nil {
		anns = annotation.List{}
	}
	writeJSON(w, http.StatusOK, anns)
}

// AddAnnotationRequest either draws with the active tool across Frame or
// adds a fully specified Annotation
type AddAnnotationRequest struct {
	Frame      *geometry.Rect         `json:"frame,omitempty"`
	Annotation *annotation.Annotation `json:"annotation,omitempty"`
}

func (s *Server) handleAddAnnotation(w http.ResponseWriter, r *http.Request) {
	var req AddAnnotationRequest
	if !decode(w, r, &req) {
		return
	}

	var a annotation.Annotation
	switch {
	case req.Annotation != nil:
		if _, err := annotation.ParseKind(string(req.Annotation.Kind)); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		a = s.session.AddAnnotation(*req.Annotation)
	case req.Frame != nil:
		var err error
		if a, err = s.session.Draw(*req.Frame); err != nil {
			writeError(w, err)
			return
		}
	default:
		http.Error(w, "set frame or annotation", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (s *Server) handleUpdateAnnotation(w http.ResponseWriter, r *http.Request) {
	var a annotation.Annotation
	if !decode(w, r, &a) {
		return
	}
	a.ID = mux.Vars(r)["id"]
	if err := s.session.UpdateAnnotation(a); err != nil {
		writeError(w, err)
		return
	}
	updated, _ := s.session.Annotation(a.ID)
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteAnnotation(w http.ResponseWriter, r *http.Request) {
	if err := s.session.DeleteAnnotation(mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w)
}

func (s *Server) handleSetText(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if !decode(w, r, &req) {
		return
	}
	id := mux.Vars(r)["id"]
	if err := s.session.SetText(id, req.Text); err != nil {
		if errors.Is(err, annotation.ErrNotFound) {
			writeError(w, err)
		} else {
			http.Error(w, err.Error(), http.StatusBadRequest)
		}
		return
	}
	updated, _ := s.session.Annotation(id)
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var p geometry.Point
	if !decode(w, r, &p) {
		return
	}
	a, ok := s.session.Select(p)
	if !ok {
		http.Error(w, "no annotation at point", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleClearSelection(w http.ResponseWriter, r *http.Request) {
	s.session.ClearSelection()
	writeSuccess(w)
}

func (s *Server) handleSetTool(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Tool string `json:"tool"`
	}
	if !decode(w, r, &req) {
		return
	}
	tool, err := session.ParseTool(req.Tool)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.session.SetTool(tool); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.state())
}

func (s *Server) handleSetStyle(w http.ResponseWriter, r *http.Request) {
	style := s.session.Style()
	if !decode(w, r, &style) {
		return
	}
	s.session.SetStyle(style)
	writeJSON(w, http.StatusOK, style)
}

func (s *Server) handleSetTextStyle(w http.ResponseWriter, r *http.Request) {
	ts := s.session.TextStyle()
	if !decode(w, r, &ts) {
		return
	}
	s.session.SetTextStyle(ts)
	writeJSON(w, http.StatusOK, ts)
}

// Crop

func (s *Server) handleGetCrop(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Crop())
}

func (s *Server) handleStartCrop(w http.ResponseWriter, r *http.Request) {
	if err := s.session.StartCrop(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.session.Crop())
}

func (s *Server) handleSetCropRect(w http.ResponseWriter, r *http.Request) {
	var rect geometry.Rect
	if !decode(w, r, &rect) {
		return
	}
	if err := s.session.SetCropRect(rect); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.session.Crop())
}

// DragRequest moves a crop handle by a delta
type DragRequest struct {
	Handle string         `json:"handle"`
	Delta  geometry.Point `json:"delta"`
}

func (s *Server) handleDragCrop(w http.ResponseWriter, r *http.Request) {
	var req DragRequest
	if !decode(w, r, &req) {
		return
	}
	handle, err := geometry.ParseHandle(req.Handle)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if _, err := s.session.UpdateCrop(handle, req.Delta); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.session.Crop())
}

func (s *Server) handleSetCropAspect(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Ratio *float64 `json:"ratio"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.Ratio != nil && *req.Ratio <= 0 {
		http.Error(w, "ratio must be positive", http.StatusBadRequest)
		return
	}
	s.session.SetCropAspect(req.Ratio)
	writeJSON(w, http.StatusOK, s.session.Crop())
}

func (s *Server) handleApplyCrop(w http.ResponseWriter, r *http.Request) {
	if err := s.session.ApplyCrop(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.state())
}

func (s *Server) handleCancelCrop(w http.ResponseWriter, r *http.Request) {
	s.session.CancelCrop()
	writeJSON(w, http.StatusOK, s.session.Crop())
}

// History

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	if err := s.session.Undo(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.state())
}

func (s *Server) handleRedo(w http.ResponseWriter, r *http.Request) {
	if err := s.session.Redo(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.state())
}

// Output

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	var img *image.RGBA
	if s.preview != nil {
		img, _, _ = s.preview.Latest()
	}
	if img == nil {
		doc := s.session.Snapshot()
		if doc.State.Screenshot == nil {
			writeError(w, session.ErrNoScreenshot)
			return
		}
		var err error
		if img, err = session.Render(doc); err != nil {
			writeError(w, err)
			return
		}
	}

	data, err := export.Encode(img, export.DefaultOptions())
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", export.FormatPNG.MIMEType())
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(data)
}

// exportOptions starts from the configured export defaults
func (s *Server) exportOptions() export.Options {
	opts, err := s.configMgr.Get().Export.Options()
	if err != nil {
		return export.DefaultOptions()
	}
	return opts
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	opts := s.exportOptions()
	q := r.URL.Query()
	if f := q.Get("format"); f != "" {
		format, err := export.ParseFormat(f)
		if err != nil {
			writeError(w, err)
			return
		}
		opts.Format = format
	}
	if qs := q.Get("quality"); qs != "" {
		quality, err := strconv.ParseFloat(qs, 64)
		if err != nil || quality <= 0 || quality > 1 {
			http.Error(w, "quality must be in (0,1]", http.StatusBadRequest)
			return
		}
		opts.Quality = quality
	}
	opts.Lossless = q.Get("lossless") == "true"

	doc := s.session.Snapshot()
	if doc.State.Screenshot == nil {
		writeError(w, session.ErrNoScreenshot)
		return
	}
	data, err := s.exporter.Export(doc.State, doc.Annotations, opts)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", opts.Format.MIMEType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName(opts, time.Now())))
	w.Write(data)
}

// ExportRequest overrides the configured export settings for POST
// /api/export
type ExportRequest struct {
	Format   string   `json:"format,omitempty"`
	Quality  *float64 `json:"quality,omitempty"`
	Lossless bool     `json:"lossless,omitempty"`
	FileName string   `json:"file_name,omitempty"`
	Dir      string   `json:"dir,omitempty"`
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var req ExportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	opts := s.exportOptions()
	if req.Format != "" {
		format, err := export.ParseFormat(req.Format)
		if err != nil {
			writeError(w, err)
			return
		}
		opts.Format = format
	}
	if req.Quality != nil {
		opts.Quality = *req.Quality
	}
	opts.Lossless = req.Lossless
	if req.FileName != "" {
		opts.FileName = req.FileName
	}
	dir := req.Dir
	if dir == "" {
		dir = s.configMgr.Get().Export.OutputDir
	}

	doc := s.session.Snapshot()
	if doc.State.Screenshot == nil {
		writeError(w, session.ErrNoScreenshot)
		return
	}
	path, err := s.exporter.ExportAndSave(r.Context(), doc.State, doc.Annotations, opts, dir)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success", "path": path})
}

func (s *Server) handleClipboard(w http.ResponseWriter, r *http.Request) {
	doc := s.session.Snapshot()
	if doc.State.Screenshot == nil {
		writeError(w, session.ErrNoScreenshot)
		return
	}
	if err := s.exporter.ExportAndCopy(r.Context(), doc.State, doc.Annotations); err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w)
}

func (s *Server) handlePreviewSocket(w http.ResponseWriter, r *http.Request) {
	log := logger.WithComponent("api")
	if s.preview == nil {
		http.Error(w, "preview not available", http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("WebSocket upgrade error")
		return
	}
	defer conn.Close()

	updates, unsubscribe := s.preview.Subscribe()
	defer unsubscribe()

	// The read side only watches for the client going away
	go func() {
		for {
			if _, _, err := conn.NextReader(); err != nil {
				unsubscribe()
				return
			}
		}
	}()

	img, gen, renderErr := s.preview.Latest()
	initial := session.Update{Generation: gen, Time: time.Now()}
	if img != nil {
		initial.Width, initial.Height = img.Bounds().Dx(), img.Bounds().Dy()
	}
	if renderErr != nil {
		initial.Error = renderErr.Error()
	}
	if err := conn.WriteJSON(initial); err != nil {
		log.Debug().Err(err).Msg("WebSocket write error")
		return
	}

	for u := range updates {
		if err := conn.WriteJSON(u); err != nil {
			log.Debug().Err(err).Msg("WebSocket write error")
			return
		}
	}
}

// Configuration

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.configMgr.Get())
}

func (s *Server) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	cfg := s.configMgr.Get()
	if !decode(w, r, cfg) {
		return
	}
	if err := s.configMgr.Update(cfg); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, s.configMgr.Get())
}

func (s *Server) handleGetProfiles(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.configMgr.ListProfiles())
}

// handleCreateProfile saves the session's current effects as a profile
func (s *Server) handleCreateProfile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.Name == "" {
		http.Error(w, "missing name", http.StatusBadRequest)
		return
	}

	profile, err := s.configMgr.CreateProfile(req.Name, EditorFromState(s.session.Snapshot().State))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusCreated, profile)
}

func (s *Server) handleDeleteProfile(w http.ResponseWriter, r *http.Request) {
	if err := s.configMgr.DeleteProfile(mux.Vars(r)["id"]); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeSuccess(w)
}

// handleApplyProfile makes a profile the configured default and applies its
// effects to the open document
func (s *Server) handleApplyProfile(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.configMgr.ApplyProfile(id); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	ApplyEditor(s.session, s.configMgr.Get().Editor)
	writeJSON(w, http.StatusOK, s.state())
}

// EditorFromState captures a document's effects as editor settings
func EditorFromState(st compositor.State) config.EditorConfig {
	e := config.EditorConfig{
		Padding:      st.Padding,
		CornerRadius: st.CornerRadius,
		ShadowBlur:   st.Shadow.Blur,
		ShadowOffset: st.Shadow.Offset,
		ShadowColor:  st.Shadow.Color,
	}
	if g, ok := st.Background.(background.Gradient); ok {
		e.BackgroundPreset = g.Preset.Name
	}
	return e
}

// ApplyEditor sets a session's effects from editor settings. Each change is
// a separate undoable edit.
func ApplyEditor(sess *session.Session, e config.EditorConfig) {
	st := e.State()
	sess.SetPadding(st.Padding)
	sess.SetCornerRadius(st.CornerRadius)
	sess.SetShadow(st.Shadow)
	sess.SetBackground(st.Background)
}
