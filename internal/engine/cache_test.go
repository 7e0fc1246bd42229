package engine

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/jeamlit/internal/ir"
	"github.com/roach88/jeamlit/internal/state"
)

func TestCache_Add(t *testing.T) {
	c := NewCache()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Add("hits", 1)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	v, err := c.Get("hits")
	require.NoError(t, err)
	assert.Equal(t, ir.Number(50), v)

	require.NoError(t, c.Set("name", ir.String("x")))
	_, err = c.Add("name", 1)
	assert.True(t, state.IsTypeMismatch(err))
}

func TestCache_SetDefaultAndClear(t *testing.T) {
	c := NewCache()

	stored, err := c.SetDefault("k", ir.Number(1))
	require.NoError(t, err)
	assert.True(t, stored)
	stored, err = c.SetDefault("k", ir.Number(2))
	require.NoError(t, err)
	assert.False(t, stored)

	v, ok := c.Lookup("k")
	require.True(t, ok)
	assert.Equal(t, ir.Number(1), v)

	c.Clear()
	assert.Equal(t, 0, c.Len())
	_, err = c.Get("k")
	assert.True(t, state.IsKeyNotFound(err))
}

func TestEngine_CacheIsSharedBySessions(t *testing.T) {
	ctx := context.Background()
	e := New(func(r *Run) error {
		r.Cache().SetDefault("counter", 0)
		r.Textf("Total app visits: %v", r.Cache().Add("counter", 1))
		return nil
	})

	res, err := e.Load(ctx, NewSession("a"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Total app visits: 1"}, res.Output.Texts())

	res, err = e.Load(ctx, NewSession("b"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Total app visits: 2"}, res.Output.Texts())
}

func TestEngine_CacheWritesSurviveFailedRuns(t *testing.T) {
	shared := NewCache()
	e := New(func(r *Run) error {
		r.Cache().Set("seen", true)
		r.State().Set("seen", true)
		return errors.New("boom")
	}, WithCache(shared))
	sess := NewSession("s1")

	_, err := e.Load(context.Background(), sess)
	require.Error(t, err)
	assert.Same(t, shared, e.Cache())
	assert.Equal(t, 1, e.Cache().Len(), "cache writes are not rolled back")
	assert.False(t, sess.Store.Has("seen"), "session state rolls back")
}

func TestAppCache_Errors(t *testing.T) {
	tests := []struct {
		name   string
		script Script
		code   RunErrorCode
	}{
		{
			name:   "missing key",
			script: func(r *Run) error { r.Cache().Get("nope"); return nil },
			code:   ErrCodeKeyNotFound,
		},
		{
			name: "kind change",
			script: func(r *Run) error {
				r.Cache().Set("k", 1)
				r.Cache().Set("k", "one")
				return nil
			},
			code: ErrCodeTypeMismatch,
		},
		{
			name: "non-numeric read",
			script: func(r *Run) error {
				r.Cache().Set("s", "text")
				r.Cache().Number("s")
				return nil
			},
			code: ErrCodeTypeMismatch,
		},
		{
			name:   "unsupported value",
			script: func(r *Run) error { r.Cache().Set("k", []int{1}); return nil },
			code:   ErrCodeScript,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.script).Load(context.Background(), NewSession("s1"))
			assert.Equal(t, tt.code, CodeOf(err), "%v", err)
		})
	}
}
