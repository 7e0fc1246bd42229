// Package session implements the session manager.
//
// Each session owns an engine.Session (State Store, form buffer, last
// widget registry and output) and a FIFO request queue drained by exactly
// one worker goroutine. Requests for one session therefore run strictly in
// arrival order, one at a time; different sessions run in parallel.
//
// Callers never touch an engine.Session directly. HandleEvent, Rerun and
// Inspect enqueue a request and wait for the worker's reply.
package session
