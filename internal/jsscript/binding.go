package jsscript

import (
	"errors"
	"fmt"

	"github.com/dop251/goja"

	"github.com/roach88/jeamlit/internal/engine"
	"github.com/roach88/jeamlit/internal/ir"
)

// binding ties one goja runtime to the run it currently serves. A
// callback registered in an earlier run executes in its own runtime, so
// run is swapped to the triggering run before the callback is called.
type binding struct {
	vm  *goja.Runtime
	run *engine.Run
	err error
}

// errRerun interrupts the runtime once the script calls jt.rerun.
var errRerun = errors.New("rerun requested")

// jt builds the global object. Its block methods always act on the
// current run's root block.
func (b *binding) jt() *goja.Object {
	obj := b.block(func() *engine.Block { return b.run.Block })

	b.set(obj, "sessionState", b.sessionState())
	b.set(obj, "cache", b.cache())
	b.set(obj, "seq", func() int64 { return b.run.Seq() })
	b.set(obj, "fail", func(msg string) { b.run.Fail(fmt.Errorf("%s", msg)) })
	b.set(obj, "rerun", func() {
		b.run.Rerun()
		if b.run.Halted() {
			b.vm.Interrupt(errRerun)
		}
	})
	return obj
}

// set installs a property and keeps the first failure for the run to
// report.
func (b *binding) set(obj *goja.Object, name string, v any) {
	if err := obj.Set(name, v); err != nil && b.err == nil {
		b.err = fmt.Errorf("install %s: %w", name, err)
	}
}

// halted reports whether err is the interrupt raised by jt.rerun.
func (b *binding) halted(err error) bool {
	var ie *goja.InterruptedError
	return b.run.Halted() && errors.As(err, &ie) && ie.Value() == errRerun
}

// block builds the object exposing output and widget primitives on the
// block returned by get.
func (b *binding) block(get func() *engine.Block) *goja.Object {
	vm := b.vm
	obj := vm.NewObject()

	b.set(obj, "title", func(text string) { get().Title(text) })
	b.set(obj, "text", func(text string) { get().Text(text) })
	b.set(obj, "markdown", func(text string) { get().Markdown(text) })

	b.set(obj, "slider", func(call goja.FunctionCall) goja.Value {
		label := call.Argument(0).String()
		lo := call.Argument(1).ToFloat()
		hi := call.Argument(2).ToFloat()
		value := lo
		if v := call.Argument(3); !goja.IsUndefined(v) && !goja.IsNull(v) {
			value = v.ToFloat()
		}
		return vm.ToValue(get().Slider(label, lo, hi, value, b.options(call.Argument(4))...))
	})
	b.set(obj, "button", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(get().Button(call.Argument(0).String(), b.options(call.Argument(1))...))
	})
	b.set(obj, "numberInput", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(get().NumberInput(call.Argument(0).String(), b.options(call.Argument(1))...))
	})
	b.set(obj, "textInput", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(get().TextInput(call.Argument(0).String(), b.options(call.Argument(1))...))
	})
	b.set(obj, "checkbox", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(get().Checkbox(call.Argument(0).String(), b.options(call.Argument(1))...))
	})
	b.set(obj, "formSubmitButton", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(get().FormSubmitButton(call.Argument(0).String(), b.options(call.Argument(1))...))
	})

	b.set(obj, "columns", func(call goja.FunctionCall) goja.Value {
		var weights []float64
		if err := vm.ExportTo(call.Argument(0), &weights); err != nil {
			panic(vm.NewTypeError("columns: weights must be an array of numbers"))
		}
		cols := get().Columns(weights...)
		out := make([]any, len(cols))
		for i, c := range cols {
			out[i] = b.fixed(c)
		}
		return vm.ToValue(out)
	})
	b.set(obj, "container", func(call goja.FunctionCall) goja.Value {
		key := ""
		if v := call.Argument(0); !goja.IsUndefined(v) && !goja.IsNull(v) {
			key = v.String()
		}
		return b.fixed(get().Container(key))
	})
	b.set(obj, "form", func(call goja.FunctionCall) goja.Value {
		f := get().Form(call.Argument(0).String(), call.Argument(1).ToBoolean())
		fobj := b.fixed(f.Block)
		b.set(fobj, "submitButton", func(call goja.FunctionCall) goja.Value {
			return vm.ToValue(f.SubmitButton(call.Argument(0).String(), b.options(call.Argument(1))...))
		})
		b.set(fobj, "submitted", f.Submitted)
		b.set(fobj, "id", f.ID())
		return fobj
	})
	return obj
}

func (b *binding) fixed(blk *engine.Block) *goja.Object {
	return b.block(func() *engine.Block { return blk })
}

// options converts a trailing options object into widget options.
func (b *binding) options(v goja.Value) []engine.WidgetOption {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil
	}
	obj := v.ToObject(b.vm)

	var opts []engine.WidgetOption
	if k := obj.Get("key"); present(k) {
		opts = append(opts, engine.Key(k.String()))
	}
	if d := obj.Get("default"); present(d) {
		opts = append(opts, engine.Default(d.Export()))
	}
	if m := obj.Get("min"); present(m) {
		opts = append(opts, engine.Min(m.ToFloat()))
	}
	if m := obj.Get("max"); present(m) {
		opts = append(opts, engine.Max(m.ToFloat()))
	}
	if s := obj.Get("step"); present(s) {
		opts = append(opts, engine.Step(s.ToFloat()))
	}
	if np := obj.Get("noPersist"); present(np) && np.ToBoolean() {
		opts = append(opts, engine.NoPersist())
	}
	if cb := obj.Get("onChange"); present(cb) {
		fn, ok := goja.AssertFunction(cb)
		if !ok {
			panic(b.vm.NewTypeError("onChange must be a function"))
		}
		opts = append(opts, engine.OnChange(b.callback(fn)))
	}
	return opts
}

// callback adapts a JavaScript function to an engine callback.
func (b *binding) callback(fn goja.Callable) engine.Callback {
	return func(r *engine.Run) {
		b.run = r
		stop := interruptOnDone(r.Context(), b.vm)
		_, err := fn(goja.Undefined())
		stop()
		if b.err != nil {
			r.Fail(b.err)
			return
		}
		if err != nil {
			if ctxErr := r.Context().Err(); ctxErr != nil {
				r.Fail(ctxErr)
				return
			}
			if b.halted(err) {
				return
			}
			r.Fail(fmt.Errorf("callback: %w", err))
		}
	}
}

func (b *binding) sessionState() *goja.Object {
	vm := b.vm
	obj := vm.NewObject()

	b.set(obj, "get", func(key string) any {
		return ir.Native(b.run.State().Get(key))
	})
	b.set(obj, "getOr", func(key string, def goja.Value) any {
		return ir.Native(b.run.State().GetOr(key, def.Export()))
	})
	b.set(obj, "has", func(key string) bool {
		return b.run.State().Has(key)
	})
	b.set(obj, "set", func(key string, v goja.Value) {
		b.run.State().Set(key, v.Export())
	})
	b.set(obj, "setDefault", func(key string, v goja.Value) {
		b.run.State().SetDefault(key, v.Export())
	})
	b.set(obj, "delete", func(key string) {
		b.run.State().Delete(key)
	})
	return obj
}

func (b *binding) cache() *goja.Object {
	obj := b.vm.NewObject()

	b.set(obj, "get", func(key string) any {
		return ir.Native(b.run.Cache().Get(key))
	})
	b.set(obj, "getOr", func(key string, def goja.Value) any {
		if v, ok := b.run.Cache().Lookup(key); ok {
			return ir.Native(v)
		}
		return def.Export()
	})
	b.set(obj, "has", func(key string) bool {
		return b.run.Cache().Has(key)
	})
	b.set(obj, "set", func(key string, v goja.Value) {
		b.run.Cache().Set(key, v.Export())
	})
	b.set(obj, "setDefault", func(key string, v goja.Value) {
		b.run.Cache().SetDefault(key, v.Export())
	})
	b.set(obj, "add", func(key string, delta float64) float64 {
		return b.run.Cache().Add(key, delta)
	})
	b.set(obj, "delete", func(key string) {
		b.run.Cache().Delete(key)
	})
	return obj
}

func present(v goja.Value) bool {
	return v != nil && !goja.IsUndefined(v) && !goja.IsNull(v)
}
