// Package fixtures holds the reference apps as Go scripts.
//
// The scenario tests, the CLI (`jeamlit run demo`) and the websocket
// server all address them by name through Lookup.
package fixtures
