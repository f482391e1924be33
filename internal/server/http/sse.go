package httpserver

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// The stream speaks the OpenAI chat-completion-chunk dialect so any
// chat-style client can render it: each data frame carries a delta
// with a content fragment, and the stream ends with a [DONE] sentinel.

// chunkPayload is the body of one SSE data frame.
type chunkPayload struct {
	Object  string        `json:"object"`
	Choices []chunkChoice `json:"choices"`
}

type chunkChoice struct {
	Delta chunkDelta `json:"delta"`
}

type chunkDelta struct {
	Content string `json:"content"`
}

const doneFrame = "data: [DONE]\n\n"

// sseWriter encodes content fragments as SSE data frames.
type sseWriter struct {
	w       io.Writer
	flusher http.Flusher
}

func newSSEWriter(w http.ResponseWriter) (*sseWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support streaming")
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	// Disable nginx response buffering; heartbeats must reach the
	// client immediately.
	h.Set("X-Accel-Buffering", "no")

	return &sseWriter{w: w, flusher: flusher}, nil
}

// writeContent streams content as a sequence of single-rune delta
// frames and flushes once afterwards.
func (s *sseWriter) writeContent(content string) error {
	for _, r := range content {
		if err := s.writeFrame(string(r)); err != nil {
			return err
		}
	}
	s.flusher.Flush()
	return nil
}

// writeHeartbeat sends one frame carrying the content verbatim, used
// for the single-space keepalive.
func (s *sseWriter) writeHeartbeat(content string) error {
	if err := s.writeFrame(content); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// writeDone terminates the stream with the [DONE] sentinel.
func (s *sseWriter) writeDone() error {
	if _, err := io.WriteString(s.w, doneFrame); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

func (s *sseWriter) writeFrame(content string) error {
	payload, err := json.Marshal(chunkPayload{
		Object: "chat.completion.chunk",
		Choices: []chunkChoice{
			{Delta: chunkDelta{Content: content}},
		},
	})
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", payload); err != nil {
		return err
	}
	return nil
}
