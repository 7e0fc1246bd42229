package cli

import (
	"fmt"
	"path/filepath"

	"github.com/roach88/jeamlit/internal/engine"
	"github.com/roach88/jeamlit/internal/fixtures"
	"github.com/roach88/jeamlit/internal/jsscript"
)

// resolveApp maps an app argument to a script: a built-in fixture name or
// a path to a JavaScript app.
func resolveApp(arg string) (engine.Script, error) {
	if s, err := fixtures.Lookup(arg); err == nil {
		return s, nil
	}
	if filepath.Ext(arg) != ".js" {
		return nil, fmt.Errorf("unknown app %q: not a fixture (%v) and not a .js file", arg, fixtures.Names())
	}
	return jsscript.Load(arg)
}

// isScriptFile reports whether the app argument names a file to watch.
func isScriptFile(arg string) bool {
	_, err := fixtures.Lookup(arg)
	return err != nil && filepath.Ext(arg) == ".js"
}
