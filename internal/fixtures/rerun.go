package fixtures

import "github.com/roach88/jeamlit/internal/engine"

// Rerun renames its own title. The button restarts the script so the new
// title shows on the same click.
func Rerun(r *engine.Run) error {
	r.State().SetDefault("value", "Title")
	r.Title(r.State().String("value"))
	if r.Button("Foo") {
		r.State().Set("value", "Foo")
		r.Rerun()
	}
	return nil
}

// SharedData counts visits across every session of the app.
func SharedData(r *engine.Run) error {
	r.Cache().SetDefault("counter", 0)
	r.Textf("Total app visits: %v", r.Cache().Add("counter", 1))
	return nil
}
