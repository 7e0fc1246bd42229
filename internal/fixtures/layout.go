package fixtures

import "github.com/roach88/jeamlit/internal/engine"

// Layout nests columns and containers.
func Layout(r *engine.Run) error {
	r.Title("Layout")
	cols := r.Columns(1, 1)
	left, right := cols[0], cols[1]
	left.Markdown("**left**")
	n := left.NumberInput("Count", engine.Key("count"), engine.Min(0), engine.Max(10))
	right.Textf("Count is %v", n)

	box := r.Container("details")
	box.Checkbox("Verbose", engine.Key("verbose"))
	if r.State().Bool("verbose") {
		box.Text("verbose on")
	}
	name := box.TextInput("Name", engine.Key("name"), engine.Default("world"))
	box.Textf("Hello, %s!", name)
	return nil
}

// Callbacks writes from a button callback before the script body.
func Callbacks(r *engine.Run) error {
	r.Text("Written first ?")
	clicked := r.Button("Click Me!", engine.Key("buttonKey"), engine.OnChange(func(r *engine.Run) {
		r.Text("Written before, because executed by a callback, before everything else.")
		r.Textf("New button value: %v", r.State().Bool("buttonKey"))
	}))
	if clicked {
		r.Text("The button was clicked")
	}
	return nil
}

// Persistence hides three text inputs behind a checkbox. Only the keyed,
// persisted one keeps its value while hidden.
func Persistence(r *engine.Run) error {
	if r.Checkbox("Show view 2", engine.Key("view2")) {
		r.Text("Now go back to view 1 and see if your text is still there")
		return nil
	}
	r.TextInput("Not persisted: no key")
	r.TextInput("Persisted: keyed", engine.Key("text1"))
	r.TextInput("Not persisted: keyed with NoPersist", engine.Key("text3"), engine.NoPersist())
	return nil
}
