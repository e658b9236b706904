package session

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/bryanchriswhite/snapframe/internal/annotation"
	"github.com/bryanchriswhite/snapframe/internal/background"
	"github.com/bryanchriswhite/snapframe/internal/compositor"
	"github.com/bryanchriswhite/snapframe/internal/geometry"
	"github.com/bryanchriswhite/snapframe/internal/logger"
	"github.com/google/uuid"
)

// Tool is the active editor tool
type Tool string

const (
	ToolSelect    Tool = "select"
	ToolArrow     Tool = "arrow"
	ToolRectangle Tool = "rectangle"
	ToolEllipse   Tool = "ellipse"
	ToolLine      Tool = "line"
	ToolText      Tool = "text"
	ToolCrop      Tool = "crop"
)

// ParseTool validates a tool name
func ParseTool(s string) (Tool, error) {
	switch t := Tool(s); t {
	case ToolSelect, ToolArrow, ToolRectangle, ToolEllipse, ToolLine, ToolText, ToolCrop:
		return t, nil
	}
	return "", fmt.Errorf("unknown tool: %q", s)
}

// Kind returns the annotation kind the tool draws
func (t Tool) Kind() (annotation.Kind, bool) {
	switch t {
	case ToolArrow:
		return annotation.KindArrow, true
	case ToolRectangle:
		return annotation.KindRectangle, true
	case ToolEllipse:
		return annotation.KindEllipse, true
	case ToolLine:
		return annotation.KindLine, true
	case ToolText:
		return annotation.KindText, true
	}
	return "", false
}

var (
	ErrNoScreenshot  = errors.New("no screenshot loaded")
	ErrNotDrawing    = errors.New("active tool does not draw annotations")
	ErrCropInactive  = errors.New("crop is not active")
	ErrInvalidCrop   = errors.New("crop rectangle is empty")
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrNothingToRedo = errors.New("nothing to redo")
)

// Session is the single owner of an editing document. Every mutation goes
// through its methods, which notify change listeners once the lock is
// released so renders can be scheduled.
type Session struct {
	mu        sync.RWMutex
	doc       Document
	history   History
	tool      Tool
	style     annotation.Style
	textStyle annotation.TextStyle
	selected  string
	crop      CropState

	listenersMu sync.RWMutex
	listeners   []func()
}

// New creates a session editing state with no annotations
func New(state compositor.State) *Session {
	return &Session{
		doc:       Document{State: state.Clamp()},
		tool:      ToolSelect,
		style:     annotation.DefaultStyle(),
		textStyle: annotation.DefaultTextStyle(),
	}
}

// OnChange registers fn to run after every document change
func (s *Session) OnChange(fn func()) {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *Session) changed() {
	s.listenersMu.RLock()
	listeners := make([]func(), len(s.listeners))
	copy(listeners, s.listeners)
	s.listenersMu.RUnlock()

	for _, fn := range listeners {
		fn()
	}
}

// Snapshot returns an immutable copy of the document for rendering or export
func (s *Session) Snapshot() Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.Clone()
}

// SetScreenshot starts editing a new capture. Annotations, history, crop and
// selection belong to the previous capture and are cleared; effects are kept.
func (s *Session) SetScreenshot(img image.Image) error {
	if img == nil || img.Bounds().Empty() {
		return ErrNoScreenshot
	}

	s.mu.Lock()
	s.doc.State.Screenshot = img
	s.doc.Annotations = nil
	s.history.Reset()
	s.crop = CropState{}
	s.selected = ""
	s.mu.Unlock()

	logger.WithComponent("session").Debug().
		Int("width", img.Bounds().Dx()).
		Int("height", img.Bounds().Dy()).
		Msg("Loaded screenshot")
	s.changed()
	return nil
}

// do builds a command from the current document and records it without
// releasing the lock in between, then notifies listeners
func (s *Session) do(build func(doc *Document) (Command, error)) error {
	s.mu.Lock()
	c, err := build(&s.doc)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.history.Do(&s.doc, c)
	s.mu.Unlock()

	logger.WithComponent("session").Debug().Str("command", c.Name()).Msg("Applied command")
	s.changed()
	return nil
}

// SetPadding sets the padding, clamped to [0, MaxPadding]
func (s *Session) SetPadding(v float64) {
	to := compositor.State{Padding: v}.Clamp().Padding
	s.do(func(doc *Document) (Command, error) {
		return SetPadding{From: doc.State.Padding, To: to}, nil
	})
}

// SetCornerRadius sets the corner radius, clamped to [0, MaxCornerRadius]
func (s *Session) SetCornerRadius(v float64) {
	to := compositor.State{CornerRadius: v}.Clamp().CornerRadius
	s.do(func(doc *Document) (Command, error) {
		return SetCornerRadius{From: doc.State.CornerRadius, To: to}, nil
	})
}

// SetShadow replaces the shadow settings, clamping blur to [0, MaxShadowBlur]
func (s *Session) SetShadow(shadow compositor.Shadow) {
	to := compositor.State{Shadow: shadow}.Clamp().Shadow
	s.do(func(doc *Document) (Command, error) {
		return SetShadow{From: doc.State.Shadow, To: to}, nil
	})
}

// SetBackground replaces the background; nil renders white
func (s *Session) SetBackground(bg background.Background) {
	s.do(func(doc *Document) (Command, error) {
		return SetBackground{From: doc.State.Background, To: bg}, nil
	})
}

// Tool returns the active tool
func (s *Session) Tool() Tool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tool
}

// SetTool switches tools. Selection is cleared; choosing the crop tool starts
// a crop and any other tool cancels one.
func (s *Session) SetTool(t Tool) error {
	if _, err := ParseTool(string(t)); err != nil {
		return err
	}

	s.mu.Lock()
	s.tool = t
	s.selected = ""
	s.mu.Unlock()

	if t == ToolCrop {
		return s.StartCrop()
	}
	s.CancelCrop()
	return nil
}

// Style returns the stroke style used for new annotations
func (s *Session) Style() annotation.Style {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.style
}

// SetStyle sets the stroke style used for new annotations
func (s *Session) SetStyle(style annotation.Style) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.style = style
}

// TextStyle returns the defaults for new text annotations
func (s *Session) TextStyle() annotation.TextStyle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.textStyle
}

// SetTextStyle sets the defaults for new text annotations
func (s *Session) SetTextStyle(ts annotation.TextStyle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.textStyle = ts
}

// Draw creates an annotation with the active tool spanning frame
func (s *Session) Draw(frame geometry.Rect) (annotation.Annotation, error) {
	s.mu.RLock()
	kind, ok := s.tool.Kind()
	style, textStyle := s.style, s.textStyle
	s.mu.RUnlock()
	if !ok {
		return annotation.Annotation{}, ErrNotDrawing
	}
	return s.AddAnnotation(annotation.New(kind, frame, style, textStyle)), nil
}

// AddAnnotation places a on top of the annotation list and selects it
func (s *Session) AddAnnotation(a annotation.Annotation) annotation.Annotation {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.Frame = a.Frame.Normalized()

	s.do(func(doc *Document) (Command, error) {
		s.selected = a.ID
		return AddAnnotation{A: a.Clone(), Index: len(doc.Annotations)}, nil
	})
	return a
}

// UpdateAnnotation replaces the annotation sharing a.ID
func (s *Session) UpdateAnnotation(a annotation.Annotation) error {
	a.Frame = a.Frame.Normalized()
	return s.do(func(doc *Document) (Command, error) {
		from, ok := doc.Annotations.Find(a.ID)
		if !ok {
			return nil, fmt.Errorf("%w: %s", annotation.ErrNotFound, a.ID)
		}
		return UpdateAnnotation{From: from.Clone(), To: a.Clone()}, nil
	})
}

// SetText replaces the text of a text annotation
func (s *Session) SetText(id, text string) error {
	return s.do(func(doc *Document) (Command, error) {
		from, ok := doc.Annotations.Find(id)
		if !ok {
			return nil, fmt.Errorf("%w: %s", annotation.ErrNotFound, id)
		}
		if from.Kind != annotation.KindText {
			return nil, fmt.Errorf("annotation %s is a %s, not text", id, from.Kind)
		}
		to := from.Clone()
		to.Text = text
		return UpdateAnnotation{From: from.Clone(), To: to}, nil
	})
}

// DeleteAnnotation removes the annotation id
func (s *Session) DeleteAnnotation(id string) error {
	return s.do(func(doc *Document) (Command, error) {
		index := doc.Annotations.Index(id)
		if index < 0 {
			return nil, fmt.Errorf("%w: %s", annotation.ErrNotFound, id)
		}
		if s.selected == id {
			s.selected = ""
		}
		return RemoveAnnotation{A: doc.Annotations[index].Clone(), Index: index}, nil
	})
}

// Annotation returns a copy of the annotation id
func (s *Session) Annotation(id string) (annotation.Annotation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.doc.Annotations.Find(id)
	return a.Clone(), ok
}

// Annotations returns a copy of the annotation list in paint order
func (s *Session) Annotations() annotation.List {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.Annotations.Clone()
}

// Select selects the topmost annotation under p, clearing the selection when
// nothing is hit
func (s *Session) Select(p geometry.Point) (annotation.Annotation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.doc.Annotations.HitTest(p)
	if !ok {
		s.selected = ""
		return annotation.Annotation{}, false
	}
	s.selected = a.ID
	return a.Clone(), true
}

// Selected returns the selected annotation
func (s *Session) Selected() (annotation.Annotation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.selected == "" {
		return annotation.Annotation{}, false
	}
	a, ok := s.doc.Annotations.Find(s.selected)
	return a.Clone(), ok
}

// ClearSelection deselects any annotation
func (s *Session) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = ""
}

// Undo reverts the latest edit
func (s *Session) Undo() error {
	s.mu.Lock()
	c, ok := s.history.Undo(&s.doc)
	s.fixSelection()
	s.mu.Unlock()
	if !ok {
		return ErrNothingToUndo
	}
	logger.WithComponent("session").Debug().Str("command", c.Name()).Msg("Undid command")
	s.changed()
	return nil
}

// Redo re-applies the latest undone edit
func (s *Session) Redo() error {
	s.mu.Lock()
	c, ok := s.history.Redo(&s.doc)
	s.fixSelection()
	s.mu.Unlock()
	if !ok {
		return ErrNothingToRedo
	}
	logger.WithComponent("session").Debug().Str("command", c.Name()).Msg("Redid command")
	s.changed()
	return nil
}

func (s *Session) CanUndo() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.history.CanUndo()
}

func (s *Session) CanRedo() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.history.CanRedo()
}

// fixSelection drops a selection whose annotation no longer exists. Callers
// hold s.mu.
func (s *Session) fixSelection() {
	if s.selected != "" && s.doc.Annotations.Index(s.selected) < 0 {
		s.selected = ""
	}
}
