package session

import (
	"image"

	"github.com/bryanchriswhite/snapframe/internal/annotation"
	"github.com/bryanchriswhite/snapframe/internal/background"
	"github.com/bryanchriswhite/snapframe/internal/compositor"
)

// MaxHistory caps both the undo and the redo stack
const MaxHistory = 50

// Document is everything that gets rendered: the composition recipe and the
// annotation list
type Document struct {
	State       compositor.State
	Annotations annotation.List
}

// Clone returns a copy that shares no mutable annotation data with d
func (d Document) Clone() Document {
	return Document{State: d.State, Annotations: d.Annotations.Clone()}
}

// Command is a reversible document edit
type Command interface {
	Apply(doc *Document)
	Invert() Command
	Name() string
}

type SetPadding struct{ From, To float64 }

func (c SetPadding) Apply(doc *Document) { doc.State.Padding = c.To }
func (c SetPadding) Invert() Command     { return SetPadding{From: c.To, To: c.From} }
func (c SetPadding) Name() string        { return "set padding" }

type SetCornerRadius struct{ From, To float64 }

func (c SetCornerRadius) Apply(doc *Document) { doc.State.CornerRadius = c.To }
func (c SetCornerRadius) Invert() Command     { return SetCornerRadius{From: c.To, To: c.From} }
func (c SetCornerRadius) Name() string        { return "set corner radius" }

type SetShadow struct{ From, To compositor.Shadow }

func (c SetShadow) Apply(doc *Document) { doc.State.Shadow = c.To }
func (c SetShadow) Invert() Command     { return SetShadow{From: c.To, To: c.From} }
func (c SetShadow) Name() string        { return "set shadow" }

type SetBackground struct{ From, To background.Background }

func (c SetBackground) Apply(doc *Document) { doc.State.Background = c.To }
func (c SetBackground) Invert() Command     { return SetBackground{From: c.To, To: c.From} }
func (c SetBackground) Name() string        { return "set background" }

// ReplaceScreenshot swaps the screenshot bitmap, as done by an applied crop
type ReplaceScreenshot struct{ From, To image.Image }

func (c ReplaceScreenshot) Apply(doc *Document) { doc.State.Screenshot = c.To }
func (c ReplaceScreenshot) Invert() Command     { return ReplaceScreenshot{From: c.To, To: c.From} }
func (c ReplaceScreenshot) Name() string        { return "crop" }

// AddAnnotation inserts A at Index
type AddAnnotation struct {
	A     annotation.Annotation
	Index int
}

func (c AddAnnotation) Apply(doc *Document) {
	doc.Annotations = doc.Annotations.Insert(c.Index, c.A)
}
func (c AddAnnotation) Invert() Command { return RemoveAnnotation(c) }
func (c AddAnnotation) Name() string    { return "add annotation" }

// RemoveAnnotation deletes A, remembering Index so undo restores paint order
type RemoveAnnotation struct {
	A     annotation.Annotation
	Index int
}

func (c RemoveAnnotation) Apply(doc *Document) {
	if l, _, err := doc.Annotations.Remove(c.A.ID); err == nil {
		doc.Annotations = l
	}
}
func (c RemoveAnnotation) Invert() Command { return AddAnnotation(c) }
func (c RemoveAnnotation) Name() string    { return "delete annotation" }

type UpdateAnnotation struct{ From, To annotation.Annotation }

func (c UpdateAnnotation) Apply(doc *Document) {
	if l, err := doc.Annotations.Replace(c.To); err == nil {
		doc.Annotations = l
	}
}
func (c UpdateAnnotation) Invert() Command { return UpdateAnnotation{From: c.To, To: c.From} }
func (c UpdateAnnotation) Name() string    { return "update annotation" }

// History is a bounded undo/redo log
type History struct {
	undo []Command
	redo []Command
}

// Do applies c to doc and records it. Any redo entries are discarded.
func (h *History) Do(doc *Document, c Command) {
	c.Apply(doc)
	h.undo = push(h.undo, c)
	h.redo = nil
}

// Undo reverts the latest command
func (h *History) Undo(doc *Document) (Command, bool) {
	if len(h.undo) == 0 {
		return nil, false
	}
	c := h.undo[len(h.undo)-1]
	h.undo = h.undo[:len(h.undo)-1]
	c.Invert().Apply(doc)
	h.redo = push(h.redo, c)
	return c, true
}

// Redo re-applies the latest undone command
func (h *History) Redo(doc *Document) (Command, bool) {
	if len(h.redo) == 0 {
		return nil, false
	}
	c := h.redo[len(h.redo)-1]
	h.redo = h.redo[:len(h.redo)-1]
	c.Apply(doc)
	h.undo = push(h.undo, c)
	return c, true
}

func (h *History) CanUndo() bool { return len(h.undo) > 0 }
func (h *History) CanRedo() bool { return len(h.redo) > 0 }

// Reset forgets all recorded commands
func (h *History) Reset() {
	h.undo, h.redo = nil, nil
}

func push(stack []Command, c Command) []Command {
	stack = append(stack, c)
	if len(stack) > MaxHistory {
		stack = append(stack[:0:0], stack[len(stack)-MaxHistory:]...)
	}
	return stack
}
