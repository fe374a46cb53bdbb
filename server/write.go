package server

import (
	"net/http"
	"sync/atomic"
)

// onceWriter is the one-shot response-write guard. Cancellation and handler
// completion can race; whichever side writes first wins, the other becomes a
// no-op. This is the HTTP analogue of serializing frame writes on a shared
// connection: at most one response per call is a hard invariant.
type onceWriter struct {
	w     http.ResponseWriter
	wrote atomic.Bool
}

func newOnceWriter(w http.ResponseWriter) *onceWriter {
	return &onceWriter{w: w}
}

// write sends status, Content-Type and body, exactly once. The second and
// later calls report false and touch nothing.
func (rw *onceWriter) write(status int, contentType string, body []byte) bool {
	if !rw.wrote.CompareAndSwap(false, true) {
		return false
	}
	rw.w.Header().Set("Content-Type", contentType)
	rw.w.WriteHeader(status)
	_, _ = rw.w.Write(body)
	return true
}
