package engine

import (
	"fmt"
	"math"

	"github.com/roach88/jeamlit/internal/form"
	"github.com/roach88/jeamlit/internal/ir"
	"github.com/roach88/jeamlit/internal/render"
)

// Block is a layout container. Output and widgets declared through a
// Block appear inside it, in call order.
type Block struct {
	run    *Run
	kind   string
	path   string
	key    string
	weight float64
	form   *form.Context

	nodes    []node
	children int
}

type node struct {
	elem  render.Element
	block *Block
}

// Title writes a title.
func (b *Block) Title(text string) {
	b.emitText(render.ElementTitle, text)
}

// Text writes a line of text.
func (b *Block) Text(text string) {
	b.emitText(render.ElementText, text)
}

// Textf writes formatted text.
func (b *Block) Textf(format string, args ...any) {
	if !b.run.ok() {
		return
	}
	b.emitText(render.ElementText, fmt.Sprintf(format, args...))
}

// Markdown writes markdown source; rendering it is the client's concern.
func (b *Block) Markdown(text string) {
	b.emitText(render.ElementMarkdown, text)
}

// Columns lays out len(weights) side-by-side columns with relative widths.
func (b *Block) Columns(weights ...float64) []*Block {
	cols := make([]*Block, len(weights))
	if !b.run.ok() {
		for i := range cols {
			cols[i] = b.detached("column")
		}
		return cols
	}
	if len(weights) == 0 {
		b.run.Fail(layoutError("columns requires at least one weight"))
		return cols
	}
	for _, w := range weights {
		if !(w > 0) || math.IsInf(w, 0) {
			b.run.Fail(layoutError(fmt.Sprintf("column weight must be positive and finite, got %v", w)))
			for i := range cols {
				cols[i] = b.detached("column")
			}
			return cols
		}
	}

	row := b.child("columns", "", 0)
	for i, w := range weights {
		cols[i] = row.child("column", "", w)
	}
	return cols
}

// Container opens a nested container. key may be empty.
func (b *Block) Container(key string) *Block {
	if !b.run.ok() {
		return b.detached("container")
	}
	return b.child("container", key, 0)
}

// Form opens a form scope. Input widgets declared through the returned
// Form buffer their edits until its submit button is pressed.
func (b *Block) Form(id string, clearOnSubmit bool) *Form {
	r := b.run
	if !r.ok() {
		return &Form{Block: b.detached("form")}
	}
	if b.form != nil {
		r.Fail(&form.UsageError{FormID: id, Reason: fmt.Sprintf("forms cannot be nested (inside form %q)", b.form.ID)})
		return &Form{Block: b.detached("form")}
	}
	ctx, err := r.forms.Open(id, clearOnSubmit)
	if err != nil {
		r.Fail(err)
		return &Form{Block: b.detached("form")}
	}
	c := b.child("form", id, 0)
	c.form = ctx
	return &Form{Block: c}
}

// Form is a form scope.
type Form struct {
	*Block
}

// SubmitButton declares the form's submit button. It returns true only on
// the run triggered by pressing it.
func (f *Form) SubmitButton(label string, opts ...WidgetOption) bool {
	return f.FormSubmitButton(label, opts...)
}

// Submitted reports whether this run was triggered by the form's submit
// button.
func (f *Form) Submitted() bool {
	return f.form != nil && f.form.Submitted()
}

// ID returns the form id.
func (f *Form) ID() string {
	if f.form == nil {
		return ""
	}
	return f.form.ID
}

func (b *Block) emitText(kind render.ElementKind, text string) {
	if !b.run.ok() {
		return
	}
	b.emit(render.Element{Kind: kind, Text: text})
}

func (b *Block) emit(e render.Element) {
	e.Path = b.path
	b.nodes = append(b.nodes, node{elem: e})
}

func (b *Block) child(kind, key string, weight float64) *Block {
	c := &Block{
		run:    b.run,
		kind:   kind,
		key:    key,
		weight: weight,
		form:   b.form,
		path:   fmt.Sprintf("%s/%s-%d", b.path, kind, b.children),
	}
	b.children++
	b.nodes = append(b.nodes, node{block: c})
	return c
}

// detached returns a block that is not part of the output tree. Returned
// after a run error so scripts never see a nil block.
func (b *Block) detached(kind string) *Block {
	return &Block{run: b.run, kind: kind, path: b.path + "/" + kind, form: b.form}
}

func (b *Block) flatten(out *render.Output) {
	for _, n := range b.nodes {
		if n.block == nil {
			out.Append(n.elem)
			continue
		}
		c := n.block
		out.Append(render.Element{
			Kind:   render.ElementContainerStart,
			Path:   c.path,
			Text:   c.kind,
			Key:    c.key,
			Weight: c.weight,
		})
		c.flatten(out)
		out.Append(render.Element{
			Kind: render.ElementContainerEnd,
			Path: c.path,
			Text: c.kind,
		})
	}
}

// LayoutError reports an invalid layout call. Layout containers are not
// widgets and carry no value.
type LayoutError struct {
	Op     string
	Reason string
}

func (e *LayoutError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

func layoutError(reason string) error {
	return &LayoutError{Op: "columns", Reason: reason}
}

// Value helpers for primitives that must return a zero value after an error.

func asNumber(v ir.Value) float64 {
	n, _ := v.(ir.Number)
	return float64(n)
}

func asBool(v ir.Value) bool {
	b, _ := v.(ir.Bool)
	return bool(b)
}

func asString(v ir.Value) string {
	s, _ := v.(ir.String)
	return string(s)
}
