// Package sse renders a pipeline's workflow.Outcome as either
// OpenAI-chunk or Anthropic-messages server-sent events, with heartbeats
// that keep slow upstreams from tripping idle client timeouts.
package sse

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"
)

// writeEvent writes one SSE frame: an optional "event: <name>" line
// followed by "data: <json>\n\n", flushed immediately.
func writeEvent(w http.ResponseWriter, flusher http.Flusher, event string, payload any) error {
	if event != "" {
		if _, err := w.Write([]byte("event: " + event + "\n")); err != nil {
			return err
		}
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := w.Write(append(append([]byte("data: "), b...), '\n', '\n')); err != nil {
		return err
	}
	if flusher != nil {
		flusher.Flush()
	}
	return nil
}

// writeComment writes a bare SSE comment line (heartbeats, pings).
func writeComment(w http.ResponseWriter, flusher http.Flusher, text string) error {
	if _, err := w.Write([]byte(": " + text + "\n\n")); err != nil {
		return err
	}
	if flusher != nil {
		flusher.Flush()
	}
	return nil
}

// writeDone writes the terminal "data: [DONE]" marker shared by both
// protocol flavors.
func writeDone(w http.ResponseWriter, flusher http.Flusher) error {
	if _, err := w.Write([]byte("data: [DONE]\n\n")); err != nil {
		return err
	}
	if flusher != nil {
		flusher.Flush()
	}
	return nil
}

// SetHeaders sets the three response headers every SSE stream requires.
func SetHeaders(h http.Header) {
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Transfer-Encoding", "chunked")
}

var chunkSeq uint64

func nextChunkID() string {
	n := atomic.AddUint64(&chunkSeq, 1)
	return "chatcmpl-" + strconv.FormatInt(time.Now().Unix(), 10) + "-" + strconv.FormatUint(n, 10)
}
