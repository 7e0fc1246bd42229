package form

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/jeamlit/internal/ir"
)

func TestCoordinator_NonSubmitRun(t *testing.T) {
	b := NewBuffer()
	b.Put("f", "valA", ir.Number(7))

	c := NewCoordinator(b, "")
	ctx, err := c.Open("f", true)
	require.NoError(t, err)
	require.NoError(t, c.RegisterMember("f", "valA"))

	submitted, err := c.RegisterSubmit("f")
	require.NoError(t, err)
	assert.False(t, submitted)
	assert.False(t, c.Submit("f"))
	assert.False(t, ctx.Submitted())
	assert.Empty(t, c.Commits())
	assert.Empty(t, c.ToReset())

	v, ok := c.Pending("f", "valA")
	require.True(t, ok, "unsubmitted edits stay pending")
	assert.Equal(t, ir.Number(7), v)

	c.Finish()
	assert.Equal(t, 1, b.Len())
}

func TestCoordinator_SubmitRun(t *testing.T) {
	b := NewBuffer()
	b.Put("f", "valA", ir.Number(7))

	c := NewCoordinator(b, "f")
	assert.Equal(t, []Edit{{WidgetID: "valA", Value: ir.Number(7)}}, c.Commits())

	_, err := c.Open("f", true)
	require.NoError(t, err)
	require.NoError(t, c.RegisterMember("f", "valA"))

	submitted, err := c.RegisterSubmit("f")
	require.NoError(t, err)
	assert.True(t, submitted)
	assert.True(t, c.Cleared("f"))
	assert.Equal(t, []string{"valA"}, c.ToReset())

	_, ok := c.Pending("f", "valA")
	assert.False(t, ok, "edits being committed are no longer pending")

	assert.Equal(t, 1, b.Len(), "buffer untouched until Finish")
	c.Finish()
	assert.Equal(t, 0, b.Len())
}

func TestCoordinator_SubmitWithoutClear(t *testing.T) {
	c := NewCoordinator(NewBuffer(), "f")
	_, err := c.Open("f", false)
	require.NoError(t, err)
	require.NoError(t, c.RegisterMember("f", "valA"))

	assert.True(t, c.Submit("f"))
	assert.False(t, c.Cleared("f"))
	assert.Empty(t, c.ToReset())
}

func TestCoordinator_FinishDropsEditsOfVanishedMembers(t *testing.T) {
	b := NewBuffer()
	b.Put("f", "gone", ir.Number(1))
	b.Put("f", "kept", ir.Number(2))
	b.Put("vanished", "x", ir.Number(3))

	c := NewCoordinator(b, "")
	_, err := c.Open("f", false)
	require.NoError(t, err)
	require.NoError(t, c.RegisterMember("f", "kept"))
	c.Finish()

	assert.Equal(t, []Edit{{WidgetID: "kept", Value: ir.Number(2)}}, b.Edits("f"))
	assert.Equal(t, 1, b.Len())
}

func TestCoordinator_FinishHaltedKeepsUnreachedForms(t *testing.T) {
	b := NewBuffer()
	b.Put("f", "valA", ir.Number(1))
	b.Put("later", "x", ir.Number(3))

	c := NewCoordinator(b, "f")
	assert.Len(t, c.Commits(), 1)
	c.FinishHalted()

	assert.Empty(t, b.Edits("f"))
	assert.Equal(t, []Edit{{WidgetID: "x", Value: ir.Number(3)}}, b.Edits("later"))
}

func TestCoordinator_UsageErrors(t *testing.T) {
	c := NewCoordinator(NewBuffer(), "")

	_, err := c.RegisterSubmit("")
	assert.True(t, IsUsageError(err))
	assert.Contains(t, err.Error(), "must be declared inside a form")

	_, err = c.Open("", false)
	assert.True(t, IsUsageError(err))

	_, err = c.Open("f", false)
	require.NoError(t, err)
	_, err = c.Open("f", false)
	var dup *DuplicateFormError
	assert.ErrorAs(t, err, &dup)

	_, err = c.RegisterSubmit("f")
	require.NoError(t, err)
	_, err = c.RegisterSubmit("f")
	assert.True(t, IsUsageError(err))

	assert.True(t, IsUsageError(c.RegisterMember("nope", "w")))
}

func TestCoordinator_MembersInOrder(t *testing.T) {
	c := NewCoordinator(NewBuffer(), "")
	ctx, err := c.Open("f", false)
	require.NoError(t, err)
	require.NoError(t, c.RegisterMember("f", "b"))
	require.NoError(t, c.RegisterMember("f", "a"))
	require.NoError(t, c.RegisterMember("f", "b"))

	assert.Equal(t, []string{"b", "a"}, ctx.Members())
	assert.Len(t, c.Forms(), 1)
}
