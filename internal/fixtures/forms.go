package fixtures

import (
	"fmt"

	"github.com/roach88/jeamlit/internal/engine"
	"github.com/roach88/jeamlit/internal/ir"
)

// Forms adds two numbers entered in a clear-on-submit form.
func Forms(r *engine.Run) error {
	cols := r.Columns(1, 2, 3)
	cols[0].Title("Sum:")

	f := r.Form("addition", true)
	a := f.NumberInput("a", engine.Key("valA"))
	b := f.NumberInput("b")
	submit := f.SubmitButton("add")
	cols[2].Title(fmt.Sprintf("%.2f", a+b))

	if submit {
		cols[1].Title(fmt.Sprintf("%.2f", a+b))
	}

	if v, ok := r.State().Lookup("valA"); ok {
		r.Text(ir.Format(v))
	} else {
		r.Text("valA not submitted yet")
	}

	r.Slider("lol refresh", 0, 100, 0)
	return nil
}

// FormsStrict reads a form member's key before anything was submitted,
// which fails the initial load with KEY_NOT_FOUND.
func FormsStrict(r *engine.Run) error {
	f := r.Form("addition", true)
	f.NumberInput("a", engine.Key("valA"))
	f.SubmitButton("add")
	r.Textf("%v", r.State().Number("valA"))
	return nil
}
