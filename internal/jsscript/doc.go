// Package jsscript runs JavaScript apps on the engine.
//
// A JavaScript app is a plain script evaluated top to bottom on every run,
// with one global, jt, bound to the run:
//
//	jt.sessionState.setDefault("clicks", 0);
//	const age = jt.slider("Select your age", 0, 100, 30);
//	jt.text(`You selected age: ${age}`);
//	if (jt.button("Click me!")) {
//	  jt.sessionState.set("clicks", jt.sessionState.get("clicks") + 1);
//	}
//
// Each run evaluates the compiled program in a fresh goja runtime, so
// JavaScript globals never carry over between runs; session state is the
// only memory. Widget options are passed as a trailing object:
// {key, default, min, max, step, noPersist, onChange}.
//
// Primitives never throw for run errors. Like their Go counterparts they
// record the first error on the run and return zero values afterwards.
package jsscript
