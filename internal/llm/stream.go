package llm

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// doneSentinel terminates an OpenAI-style event stream.
const doneSentinel = "[DONE]"

// maxLineSize bounds a single SSE line. Completion chunks are small, but
// some servers batch large deltas.
const maxLineSize = 1 << 20

// Chunk is one decoded chat.completion.chunk event.
type Chunk struct {
	Choices []ChunkChoice `json:"choices"`

	// Done is set for the terminating [DONE] event.
	Done bool `json:"-"`

	// Err is set if the event payload could not be decoded or the stream
	// broke mid-read.
	Err error `json:"-"`
}

// ChunkChoice carries the incremental delta for one choice.
type ChunkChoice struct {
	Index        int        `json:"index"`
	Delta        ChunkDelta `json:"delta"`
	FinishReason *string    `json:"finish_reason"`
}

// ChunkDelta is the incremental message content.
type ChunkDelta struct {
	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
}

// ReadChunks reads Server-Sent Events from body and delivers decoded chunks on
// the returned channel. The channel is closed when the body is exhausted, a
// read error occurs, or ctx is cancelled. The body is closed when reading
// finishes.
//
//   - "data:" lines carry the payload; multiple lines in one event are joined.
//   - Lines starting with ":" are comments.
//   - An empty line ends an event.
//   - Malformed JSON yields a Chunk with Err set; reading continues.
func ReadChunks(ctx context.Context, body io.ReadCloser) <-chan Chunk {
	ch := make(chan Chunk)
	go func() {
		defer close(ch)
		defer body.Close()

		scanner := bufio.NewScanner(body)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
		var dataBuf strings.Builder

		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			if !scanner.Scan() {
				if dataBuf.Len() > 0 {
					emit(ctx, ch, dataBuf.String())
					dataBuf.Reset()
				}
				if err := scanner.Err(); err != nil {
					send(ctx, ch, Chunk{Err: fmt.Errorf("llm: read stream: %w", err)})
				}
				return
			}

			line := scanner.Text()

			switch {
			case line == "":
				if dataBuf.Len() > 0 {
					emit(ctx, ch, dataBuf.String())
					dataBuf.Reset()
				}

			case strings.HasPrefix(line, ":"):

			case strings.HasPrefix(line, "data:"):
				payload := strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " ")
				if dataBuf.Len() > 0 {
					dataBuf.WriteByte('\n')
				}
				dataBuf.WriteString(payload)

			default:
				// event:, id:, retry: and unknown fields are ignored.
			}
		}
	}()
	return ch
}

// emit decodes raw into a Chunk and sends it on ch.
func emit(ctx context.Context, ch chan<- Chunk, raw string) {
	if strings.TrimSpace(raw) == doneSentinel {
		send(ctx, ch, Chunk{Done: true})
		return
	}
	var c Chunk
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		c = Chunk{Err: fmt.Errorf("llm: decode chunk: %w", err)}
	}
	send(ctx, ch, c)
}

func send(ctx context.Context, ch chan<- Chunk, c Chunk) {
	select {
	case ch <- c:
	case <-ctx.Done():
	}
}
