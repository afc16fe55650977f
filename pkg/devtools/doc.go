// Package devtools exposes a development inspector over HTTP: a JSON view
// of the path store, a Prometheus metrics endpoint, and a WebSocket stream
// of live mutation and flush activity.
//
// The inspector is meant for development and staging. It reads engine
// state through the public API only and never mutates it.
package devtools
