// Package render holds the output of a run: an ordered sequence of display
// instructions consumed by the transport layer.
package render

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/roach88/jeamlit/internal/ir"
)

// ElementKind identifies a display instruction.
type ElementKind string

const (
	ElementTitle          ElementKind = "title"
	ElementText           ElementKind = "text"
	ElementMarkdown       ElementKind = "markdown"
	ElementWidget         ElementKind = "widget"
	ElementContainerStart ElementKind = "container_start"
	ElementContainerEnd   ElementKind = "container_end"
)

// Element is one display instruction.
// Container markers carry the container kind in Text and the path of the
// container they open or close in Path. Key names a form or keyed
// container; Weight is the relative width of a column.
type Element struct {
	Kind   ElementKind `json:"kind"`
	Path   string      `json:"path"`
	Text   string      `json:"text,omitempty"`
	Key    string      `json:"key,omitempty"`
	Weight float64     `json:"weight,omitempty"`
	Widget *WidgetView `json:"widget,omitempty"`
}

// WidgetView is the displayed state of a widget.
type WidgetView struct {
	ID    string   `json:"id"`
	Kind  string   `json:"kind"`
	Label string   `json:"label"`
	Value ir.Value `json:"value"`
	Form  string   `json:"form,omitempty"`
	Min   *float64 `json:"min,omitempty"`
	Max   *float64 `json:"max,omitempty"`
	Step  float64  `json:"step,omitempty"`
}

// Output is the ordered result of one completed run.
type Output struct {
	Elements []Element `json:"elements"`
}

// Append adds an element.
func (o *Output) Append(e Element) {
	o.Elements = append(o.Elements, e)
}

// Len returns the number of elements.
func (o Output) Len() int {
	return len(o.Elements)
}

// Texts returns the text of title, text and markdown elements in order.
func (o Output) Texts() []string {
	var texts []string
	for _, e := range o.Elements {
		switch e.Kind {
		case ElementTitle, ElementText, ElementMarkdown:
			texts = append(texts, e.Text)
		}
	}
	return texts
}

// Contains reports whether any text element contains s.
func (o Output) Contains(s string) bool {
	for _, t := range o.Texts() {
		if strings.Contains(t, s) {
			return true
		}
	}
	return false
}

// Widget returns the view of the widget with the given identity.
func (o Output) Widget(id string) (*WidgetView, bool) {
	for _, e := range o.Elements {
		if e.Kind == ElementWidget && e.Widget.ID == id {
			return e.Widget, true
		}
	}
	return nil, false
}

// Equal reports whether two outputs hold identical elements.
func (o Output) Equal(other Output) bool {
	if len(o.Elements) != len(other.Elements) {
		return false
	}
	for i := range o.Elements {
		if !elementEqual(o.Elements[i], other.Elements[i]) {
			return false
		}
	}
	return true
}

// Digest returns a content hash of the output.
// Identical outputs always share a digest.
func (o Output) Digest() (string, error) {
	doc := make([]any, len(o.Elements))
	for i, e := range o.Elements {
		doc[i] = e.canonical()
	}
	return ir.Digest(doc)
}

// Text renders the output one element per line, indented by container
// depth. It is the transcript format used by golden files.
func (o Output) Text() string {
	var sb strings.Builder
	depth := 0
	for _, e := range o.Elements {
		if e.Kind == ElementContainerEnd && depth > 0 {
			depth--
		}
		sb.WriteString(strings.Repeat("  ", depth))
		sb.WriteString(e.line())
		sb.WriteByte('\n')
		if e.Kind == ElementContainerStart {
			depth++
		}
	}
	return sb.String()
}

func (e Element) line() string {
	switch e.Kind {
	case ElementWidget:
		w := e.Widget
		return fmt.Sprintf("%s %q = %s", w.Kind, w.Label, ir.Format(w.Value))
	case ElementContainerStart:
		if e.Key != "" {
			return e.Text + " " + e.Key + " {"
		}
		return e.Text + " {"
	case ElementContainerEnd:
		return "}"
	default:
		return string(e.Kind) + ": " + e.Text
	}
}

func (e Element) canonical() map[string]any {
	m := map[string]any{
		"kind": string(e.Kind),
		"path": e.Path,
	}
	if e.Text != "" {
		m["text"] = e.Text
	}
	if e.Key != "" {
		m["key"] = e.Key
	}
	if e.Weight != 0 {
		m["weight"] = e.Weight
	}
	if w := e.Widget; w != nil {
		wm := map[string]any{
			"id":    w.ID,
			"kind":  w.Kind,
			"label": w.Label,
		}
		if w.Value != nil {
			wm["value"] = w.Value
		}
		if w.Form != "" {
			wm["form"] = w.Form
		}
		if w.Min != nil {
			wm["min"] = *w.Min
		}
		if w.Max != nil {
			wm["max"] = *w.Max
		}
		if w.Step != 0 {
			wm["step"] = w.Step
		}
		m["widget"] = wm
	}
	return m
}

func elementEqual(a, b Element) bool {
	if a.Kind != b.Kind || a.Path != b.Path || a.Text != b.Text || a.Key != b.Key || a.Weight != b.Weight {
		return false
	}
	if a.Widget == nil || b.Widget == nil {
		return a.Widget == nil && b.Widget == nil
	}
	return reflect.DeepEqual(*a.Widget, *b.Widget)
}
