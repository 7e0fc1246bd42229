package fixtures

import (
	"fmt"
	"sort"

	"github.com/roach88/jeamlit/internal/engine"
)

var registry = map[string]engine.Script{
	"demo":          Demo,
	"forms":         Forms,
	"forms_strict":  FormsStrict,
	"key_collision": KeyCollision,
	"slider_test":   SliderTest,
	"layout":        Layout,
	"callbacks":     Callbacks,
	"persistence":   Persistence,
	"rerun":         Rerun,
	"shared_data":   SharedData,
}

// Lookup returns the fixture script with the given name.
func Lookup(name string) (engine.Script, error) {
	s, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown fixture %q (have %v)", name, Names())
	}
	return s, nil
}

// Names returns the fixture names in order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
