package annotation

import (
	"errors"
	"fmt"

	"github.com/bryanchriswhite/snapframe/internal/geometry"
)

// ErrNotFound is returned when no annotation has the requested id
var ErrNotFound = errors.New("annotation not found")

// List is an ordered annotation sequence. Index order is paint order: later
// entries draw on top and win hit tests. Methods never mutate the receiver's
// backing array in place; they return a new List.
type List []Annotation

// Clone deep-copies the list
func (l List) Clone() List {
	if l == nil {
		return nil
	}
	out := make(List, len(l))
	for i, a := range l {
		out[i] = a.Clone()
	}
	return out
}

// HitTest returns the topmost annotation whose frame contains p
func (l List) HitTest(p geometry.Point) (Annotation, bool) {
	for i := len(l) - 1; i >= 0; i-- {
		if l[i].Contains(p) {
			return l[i], true
		}
	}
	return Annotation{}, false
}

// Index returns the position of the annotation with id, or -1
func (l List) Index(id string) int {
	for i, a := range l {
		if a.ID == id {
			return i
		}
	}
	return -1
}

// Find returns the annotation with id
func (l List) Find(id string) (Annotation, bool) {
	if i := l.Index(id); i >= 0 {
		return l[i], true
	}
	return Annotation{}, false
}

// Insert returns a list with a placed at index i (clamped to the list bounds)
func (l List) Insert(i int, a Annotation) List {
	if i < 0 || i > len(l) {
		i = len(l)
	}
	out := make(List, 0, len(l)+1)
	out = append(out, l[:i]...)
	out = append(out, a)
	return append(out, l[i:]...)
}

// Append returns a list with a on top
func (l List) Append(a Annotation) List {
	return l.Insert(len(l), a)
}

// Remove returns a list without the annotation id, plus its former index
func (l List) Remove(id string) (List, int, error) {
	i := l.Index(id)
	if i < 0 {
		return l, -1, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	out := make(List, 0, len(l)-1)
	out = append(out, l[:i]...)
	return append(out, l[i+1:]...), i, nil
}

// Replace returns a list with the annotation sharing a.ID swapped for a
func (l List) Replace(a Annotation) (List, error) {
	i := l.Index(a.ID)
	if i < 0 {
		return l, fmt.Errorf("%w: %s", ErrNotFound, a.ID)
	}
	out := make(List, len(l))
	copy(out, l)
	out[i] = a
	return out, nil
}
