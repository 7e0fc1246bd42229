package fixtures

import "github.com/roach88/jeamlit/internal/engine"

// AgeCategory buckets an age.
func AgeCategory(age float64) string {
	switch {
	case age < 18:
		return "Minor"
	case age < 65:
		return "Adult"
	default:
		return "Senior"
	}
}

// Demo is the age/clicks demo app.
func Demo(r *engine.Run) error {
	st := r.State()
	st.SetDefault("clicks", 0)
	st.SetDefault("details_shown", 0)

	r.Title("Jeamlit Demo App")
	r.Text("Welcome to Jeamlit - Streamlit for Go!")
	r.Text("This demo shows basic components and state management.")

	age := r.Slider("Select your age", 0, 100, 30)
	r.Textf("You selected age: %v", age)
	r.Textf("Age category: %s", AgeCategory(age))

	if r.Button("Click me!") {
		st.Set("clicks", st.Number("clicks")+1)
		r.Text("Button was clicked!")
		r.Textf("Button clicked %v times", st.Number("clicks"))
	}

	if r.Button("Show details") {
		r.Text("🎯 This is a detailed view!")
		r.Textf("Current run: %d", r.Seq())
		st.Set("details_shown", st.Number("details_shown")+1)
		r.Textf("Details shown %v times", st.Number("details_shown"))
	}

	r.Text("---")
	r.Text("💡 Try changing values and see the app update in real-time!")
	return nil
}

// SliderTest shows a slider value on demand.
func SliderTest(r *engine.Run) error {
	r.Title("Slider Test")
	value := r.Slider("Test Slider", 0, 100, 50)
	r.Textf("Current value: %v", value)
	if r.Button("Show Value") {
		r.Textf("Selected: %v", value)
	}
	return nil
}

// KeyCollision declares widgets that share labels without colliding.
func KeyCollision(r *engine.Run) error {
	r.Title("Key Collision Test")

	r.Text("Buttons with explicit unique keys")
	privacy := r.Button("OK", engine.Key("privacy"))
	terms := r.Button("OK", engine.Key("terms"))
	if privacy {
		r.Text("Privacy button clicked!")
	}
	if terms {
		r.Text("Terms button clicked!")
	}

	r.Text("Sliders with the same label")
	s1 := r.Slider("Value", 0, 100, 50)
	s2 := r.Slider("Value", 0, 50, 25)
	r.Textf("Slider 1 value: %v", s1)
	r.Textf("Slider 2 value: %v", s2)
	return nil
}
