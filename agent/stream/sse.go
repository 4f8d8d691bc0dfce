// Package stream serializes orchestrator events into the outbound SSE wire
// protocol. One emitter serves exactly one request; the stream is
// append-only and never reused.
package stream

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/prepforge/interview-agent/agent/contract"
)

// Emitter writes SSE frames. After the first write failure (consumer gone)
// further events are silently discarded: in-flight tool work may still
// complete and persist, only delivery stops.
type Emitter struct {
	w       io.Writer
	flusher http.Flusher
	failed  bool
}

var _ contractx.EventSink = (*Emitter)(nil)

func NewEmitter(w io.Writer) *Emitter {
	e := &Emitter{w: w}
	if f, ok := w.(http.Flusher); ok {
		e.flusher = f
	}
	return e
}

type tokenPayload struct {
	Text string `json:"text"`
}

type toolCallPayload struct {
	Name string `json:"name"`
	Args string `json:"args"`
}

type pdfGeneratedPayload struct {
	URL string `json:"url"`
}

type prepListPayload struct {
	Preps []prepEntry `json:"preps"`
}

type prepEntry struct {
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
	URL       string `json:"url"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// Emit serializes one event. The switch is exhaustive over the closed event
// union; an unknown type is a programming error.
func (e *Emitter) Emit(ev contractx.Event) error {
	if e.failed {
		return nil
	}

	var payload any
	switch ev.Type {
	case contractx.EventToken:
		payload = tokenPayload{Text: ev.Text}
	case contractx.EventToolCall:
		payload = toolCallPayload{Name: ev.Name, Args: ev.Args}
	case contractx.EventPDFGenerated:
		payload = pdfGeneratedPayload{URL: ev.URL}
	case contractx.EventPrepList:
		entries := make([]prepEntry, 0, len(ev.Preps))
		for _, p := range ev.Preps {
			entries = append(entries, prepEntry{
				Name:      p.Name,
				CreatedAt: p.CreatedAt.Format(time.RFC3339),
				URL:       p.URL,
			})
		}
		payload = prepListPayload{Preps: entries}
	case contractx.EventError:
		payload = errorPayload{Message: ev.Message}
	default:
		return fmt.Errorf("unknown event type %q", ev.Type)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", ev.Type, err)
	}

	if _, err := fmt.Fprintf(e.w, "event: %s\ndata: %s\n\n", ev.Type, data); err != nil {
		e.failed = true
		log.Warn().Err(err).Str("event", string(ev.Type)).Msg("event stream consumer gone, discarding further events")
		return nil
	}
	if e.flusher != nil {
		e.flusher.Flush()
	}
	return nil
}
