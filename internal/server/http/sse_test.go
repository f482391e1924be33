package httpserver

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// decodeFrames splits an SSE body into its data payloads.
func decodeFrames(t *testing.T, body string) []string {
	t.Helper()
	var frames []string
	for _, block := range strings.Split(body, "\n\n") {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		require.True(t, strings.HasPrefix(block, "data: "), "unexpected SSE block: %q", block)
		frames = append(frames, strings.TrimPrefix(block, "data: "))
	}
	return frames
}

// decodeContent reassembles the delta contents of all chunk frames.
func decodeContent(t *testing.T, frames []string) string {
	t.Helper()
	var sb strings.Builder
	for _, frame := range frames {
		if frame == "[DONE]" {
			continue
		}
		var chunk chunkPayload
		require.NoError(t, json.Unmarshal([]byte(frame), &chunk))
		require.Len(t, chunk.Choices, 1)
		sb.WriteString(chunk.Choices[0].Delta.Content)
	}
	return sb.String()
}

func TestSSEWriter(t *testing.T) {
	t.Run("sets streaming headers", func(t *testing.T) {
		rec := httptest.NewRecorder()
		_, err := newSSEWriter(rec)
		require.NoError(t, err)

		assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
		assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
		assert.Equal(t, "no", rec.Header().Get("X-Accel-Buffering"))
	})

	t.Run("frames follow the chat chunk format", func(t *testing.T) {
		rec := httptest.NewRecorder()
		sse, err := newSSEWriter(rec)
		require.NoError(t, err)

		require.NoError(t, sse.writeHeartbeat(" "))
		assert.Equal(t,
			"data: {\"object\":\"chat.completion.chunk\",\"choices\":[{\"delta\":{\"content\":\" \"}}]}\n\n",
			rec.Body.String())
	})

	t.Run("content streams rune by rune", func(t *testing.T) {
		rec := httptest.NewRecorder()
		sse, err := newSSEWriter(rec)
		require.NoError(t, err)

		require.NoError(t, sse.writeContent("文献ab"))

		frames := decodeFrames(t, rec.Body.String())
		assert.Len(t, frames, 4)
		assert.Equal(t, "文献ab", decodeContent(t, frames))
	})

	t.Run("done sentinel is plain", func(t *testing.T) {
		rec := httptest.NewRecorder()
		sse, err := newSSEWriter(rec)
		require.NoError(t, err)

		require.NoError(t, sse.writeDone())
		assert.Equal(t, "data: [DONE]\n\n", rec.Body.String())
	})
}
