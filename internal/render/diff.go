package render

// Delta is the change between two outputs of the same session.
// Elements from index From onward are replaced by Elements; anything the
// previous output held past that point is cleared.
type Delta struct {
	From     int       `json:"from"`
	Elements []Element `json:"elements"`
	// Clear is the number of previous elements at or after From that the
	// receiver must drop before appending Elements.
	Clear int `json:"clear"`
}

// Empty reports whether the delta changes nothing.
func (d Delta) Empty() bool {
	return len(d.Elements) == 0 && d.Clear == 0
}

// Diff computes the point-of-difference delta from prev to cur: the
// longest common prefix is kept and the rest of cur is resent.
func Diff(prev, cur Output) Delta {
	n := 0
	for n < len(prev.Elements) && n < len(cur.Elements) && elementEqual(prev.Elements[n], cur.Elements[n]) {
		n++
	}
	return Delta{
		From:     n,
		Elements: cur.Elements[n:],
		Clear:    len(prev.Elements) - n,
	}
}

// Apply returns prev with d applied.
func (d Delta) Apply(prev Output) Output {
	from := min(d.From, len(prev.Elements))
	out := make([]Element, 0, from+len(d.Elements))
	out = append(out, prev.Elements[:from]...)
	out = append(out, d.Elements...)
	return Output{Elements: out}
}
