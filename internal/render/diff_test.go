package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDiff_Identical(t *testing.T) {
	d := Diff(sampleOutput(30), sampleOutput(30))
	assert.True(t, d.Empty())
	assert.Equal(t, 7, d.From)
}

func TestDiff_PointOfDifference(t *testing.T) {
	prev, cur := sampleOutput(30), sampleOutput(10)

	d := Diff(prev, cur)
	assert.Equal(t, 1, d.From, "title is shared, slider value differs")
	assert.Len(t, d.Elements, 6)
	assert.Equal(t, 6, d.Clear)
	assert.True(t, d.Apply(prev).Equal(cur))
}

func TestDiff_ShorterOutput(t *testing.T) {
	prev := sampleOutput(30)
	cur := Output{Elements: prev.Elements[:2]}

	d := Diff(prev, cur)
	assert.Equal(t, 2, d.From)
	assert.Empty(t, d.Elements)
	assert.Equal(t, 5, d.Clear)
	assert.False(t, d.Empty())
	assert.True(t, d.Apply(prev).Equal(cur))
}

func TestDiff_FromEmpty(t *testing.T) {
	cur := sampleOutput(30)
	d := Diff(Output{}, cur)
	assert.Equal(t, 0, d.From)
	assert.Equal(t, 0, d.Clear)
	assert.True(t, d.Apply(Output{}).Equal(cur))
}
