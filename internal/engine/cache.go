package engine

import (
	"fmt"
	"sync"

	"github.com/roach88/jeamlit/internal/ir"
	"github.com/roach88/jeamlit/internal/state"
)

// Cache is a value store shared by every session of an Engine.
//
// Unlike session state, cache writes take effect immediately and are not
// rolled back when a run fails. A key's kind is fixed by its first write.
type Cache struct {
	mu     sync.Mutex
	values *state.Store
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{values: state.NewStore()}
}

// Get returns the value of key or a KeyNotFoundError.
func (c *Cache) Get(key string) (ir.Value, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.values.Get(key)
}

// Lookup returns the value of key and whether it is set.
func (c *Cache) Lookup(key string) (ir.Value, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.values.Lookup(key)
}

// Set overwrites key.
func (c *Cache) Set(key string, v ir.Value) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.values.Set(key, v)
}

// SetDefault stores v only if key is absent and reports whether it did.
func (c *Cache) SetDefault(key string, v ir.Value) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.values.SetDefault(key, v)
}

// Add atomically adds delta to the number held by key and returns the
// result. An absent key counts as zero.
func (c *Cache) Add(key string, delta float64) (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sum := ir.Number(delta)
	if v, ok := c.values.Lookup(key); ok {
		n, isNum := v.(ir.Number)
		if !isNum {
			return 0, &state.TypeMismatchError{Key: key, Have: v.Kind(), Want: ir.KindNumber}
		}
		sum += n
	}
	if _, err := ir.FromAny(float64(sum)); err != nil {
		return 0, fmt.Errorf("cache %q: %w", key, err)
	}
	if err := c.values.Set(key, sum); err != nil {
		return 0, err
	}
	return float64(sum), nil
}

// Delete removes key.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values.Delete(key)
}

// Clear removes every key.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values = state.NewStore()
}

// Len returns the number of keys.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.values.Len()
}

// AppCache is the script's view of the engine's Cache.
//
// Errors abort the run like session state errors do, but writes already
// made stay in the cache.
type AppCache struct {
	run *Run
}

// Get returns the value of key. An absent key aborts the run with
// KEY_NOT_FOUND.
func (a *AppCache) Get(key string) ir.Value {
	r := a.run
	if !r.ok() {
		return nil
	}
	v, err := r.cache.Get(key)
	if err != nil {
		r.Fail(err)
		return nil
	}
	return v
}

// Lookup returns the value of key and whether it is set.
func (a *AppCache) Lookup(key string) (ir.Value, bool) {
	if a.run.err != nil {
		return nil, false
	}
	return a.run.cache.Lookup(key)
}

// Has reports whether key is set.
func (a *AppCache) Has(key string) bool {
	_, ok := a.Lookup(key)
	return ok
}

// Number returns the numeric value of key.
func (a *AppCache) Number(key string) float64 {
	v := a.Get(key)
	if v == nil {
		return 0
	}
	n, ok := v.(ir.Number)
	if !ok {
		a.run.Fail(&state.TypeMismatchError{Key: key, Have: v.Kind(), Want: ir.KindNumber})
		return 0
	}
	return float64(n)
}

// Set overwrites key.
func (a *AppCache) Set(key string, v any) {
	r := a.run
	if !r.ok() {
		return
	}
	val, err := ir.FromAny(v)
	if err != nil {
		r.Fail(fmt.Errorf("cache %q: %w", key, err))
		return
	}
	if err := r.cache.Set(key, val); err != nil {
		r.Fail(err)
	}
}

// SetDefault sets key only if it is absent.
func (a *AppCache) SetDefault(key string, v any) {
	r := a.run
	if !r.ok() {
		return
	}
	val, err := ir.FromAny(v)
	if err != nil {
		r.Fail(fmt.Errorf("cache %q: %w", key, err))
		return
	}
	if _, err := r.cache.SetDefault(key, val); err != nil {
		r.Fail(err)
	}
}

// Add adds delta to the number held by key and returns the result.
func (a *AppCache) Add(key string, delta float64) float64 {
	r := a.run
	if !r.ok() {
		return 0
	}
	n, err := r.cache.Add(key, delta)
	if err != nil {
		r.Fail(err)
		return 0
	}
	return n
}

// Delete removes key.
func (a *AppCache) Delete(key string) {
	if !a.run.ok() {
		return
	}
	a.run.cache.Delete(key)
}
