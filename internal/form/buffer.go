package form

import (
	"github.com/roach88/jeamlit/internal/ir"
)

// Edit is a pending value for one form member.
type Edit struct {
	WidgetID string
	Value    ir.Value
}

// Buffer holds unsubmitted edits per form, in edit order.
// It is owned by a single session worker and is not safe for concurrent use.
type Buffer struct {
	forms map[string][]Edit
}

// NewBuffer returns an empty Buffer.
func NewBuffer() *Buffer {
	return &Buffer{forms: make(map[string][]Edit)}
}

// Put records an edit. A later edit of the same widget replaces the earlier
// one but keeps its position.
func (b *Buffer) Put(formID, widgetID string, v ir.Value) {
	edits := b.forms[formID]
	for i := range edits {
		if edits[i].WidgetID == widgetID {
			edits[i].Value = v
			return
		}
	}
	b.forms[formID] = append(edits, Edit{WidgetID: widgetID, Value: v})
}

// Pending returns the unsubmitted value of a member, if any.
func (b *Buffer) Pending(formID, widgetID string) (ir.Value, bool) {
	for _, e := range b.forms[formID] {
		if e.WidgetID == widgetID {
			return e.Value, true
		}
	}
	return nil, false
}

// Edits returns a copy of the pending edits of a form.
func (b *Buffer) Edits(formID string) []Edit {
	edits := b.forms[formID]
	if len(edits) == 0 {
		return nil
	}
	return append([]Edit(nil), edits...)
}

// Drop discards every pending edit of a form.
func (b *Buffer) Drop(formID string) {
	delete(b.forms, formID)
}

// Retain drops edits of widgets for which keep returns false, and forms
// left without edits.
func (b *Buffer) Retain(keep func(formID, widgetID string) bool) {
	for formID, edits := range b.forms {
		kept := edits[:0]
		for _, e := range edits {
			if keep(formID, e.WidgetID) {
				kept = append(kept, e)
			}
		}
		if len(kept) == 0 {
			delete(b.forms, formID)
			continue
		}
		b.forms[formID] = kept
	}
}

// Len returns the total number of pending edits.
func (b *Buffer) Len() int {
	n := 0
	for _, edits := range b.forms {
		n += len(edits)
	}
	return n
}
