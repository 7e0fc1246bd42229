package jsscript

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dop251/goja"

	"github.com/roach88/jeamlit/internal/engine"
)

// CompileError is a JavaScript syntax error.
type CompileError struct {
	Name string
	err  error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("compile %s: %v", e.Name, e.err)
}

func (e *CompileError) Unwrap() error {
	return e.err
}

// IsCompileError reports whether err is a CompileError.
func IsCompileError(err error) bool {
	var ce *CompileError
	return errors.As(err, &ce)
}

// Program is a compiled JavaScript app.
type Program struct {
	name string
	prg  *goja.Program
}

// Compile compiles app source. name appears in error positions.
func Compile(name, src string) (*Program, error) {
	prg, err := goja.Compile(name, src, true)
	if err != nil {
		return nil, &CompileError{Name: name, err: err}
	}
	return &Program{name: name, prg: prg}, nil
}

// Load reads and compiles the app at path and returns its script.
func Load(path string) (engine.Script, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script %s: %w", path, err)
	}
	p, err := Compile(filepath.Base(path), string(src))
	if err != nil {
		return nil, err
	}
	return p.Script(), nil
}

// Name returns the program's name.
func (p *Program) Name() string {
	return p.name
}

// Script returns an engine script that evaluates the program once per run.
func (p *Program) Script() engine.Script {
	return func(r *engine.Run) error {
		vm := goja.New()
		b := &binding{vm: vm, run: r}
		if err := vm.Set("jt", b.jt()); err != nil {
			return fmt.Errorf("%s: install jt: %w", p.name, err)
		}
		if b.err != nil {
			return fmt.Errorf("%s: %w", p.name, b.err)
		}

		stop := interruptOnDone(r.Context(), vm)
		_, err := vm.RunProgram(p.prg)
		stop()

		if b.err != nil {
			return fmt.Errorf("%s: %w", p.name, b.err)
		}
		if err == nil {
			return nil
		}
		if ctxErr := r.Context().Err(); ctxErr != nil {
			return ctxErr
		}
		if b.halted(err) {
			return nil
		}
		return fmt.Errorf("%s: %w", p.name, err)
	}
}

// interruptOnDone interrupts vm when ctx is done. The returned func stops
// watching and clears a pending interrupt.
func interruptOnDone(ctx context.Context, vm *goja.Runtime) func() {
	done := make(chan struct{})
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		select {
		case <-ctx.Done():
			// Safe to call from another goroutine.
			vm.Interrupt(ctx.Err())
		case <-done:
		}
	}()
	return func() {
		close(done)
		<-exited
		vm.ClearInterrupt()
	}
}
