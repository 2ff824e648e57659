package completion

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGateway(t *testing.T, handler http.HandlerFunc) *Gateway {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = srv.URL + "/v1"
	client := openai.NewClientWithConfig(cfg)

	return NewGateway(client, "gpt-4o-mini", DefaultSystemPrompt)
}

func completionResponse(content string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		ID:     "chatcmpl-test",
		Object: "chat.completion",
		Model:  "gpt-4o-mini",
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleAssistant,
				Content: content,
			}},
		},
	}
}

func TestCompleteReturnsAnswer(t *testing.T) {
	var gotReq openai.ChatCompletionRequest
	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(completionResponse("  Buy low, sell high.  "))
	})

	answer, err := gw.Complete(context.Background(), "Should I buy?")
	require.NoError(t, err)
	assert.Equal(t, "Buy low, sell high.", answer, "answer is trimmed")

	require.Len(t, gotReq.Messages, 2)
	assert.Equal(t, openai.ChatMessageRoleSystem, gotReq.Messages[0].Role)
	assert.Equal(t, DefaultSystemPrompt, gotReq.Messages[0].Content)
	assert.Equal(t, "Should I buy?", gotReq.Messages[1].Content)
	assert.InDelta(t, 0.4, gotReq.Temperature, 0.001)
}

func TestCompleteEmptyChoices(t *testing.T) {
	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(openai.ChatCompletionResponse{ID: "chatcmpl-test"})
	})

	answer, err := gw.Complete(context.Background(), "hello")
	require.NoError(t, err)
	assert.Empty(t, answer)
}

func TestCompleteWrapsProviderFailure(t *testing.T) {
	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"rate limited"}}`, http.StatusTooManyRequests)
	})

	_, err := gw.Complete(context.Background(), "hello")
	var pe *ProviderError
	assert.ErrorAs(t, err, &pe)
}

func TestCompleteHonorsContext(t *testing.T) {
	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := gw.Complete(ctx, "hello")
	assert.Error(t, err)
}

func TestStreamEmitsChunks(t *testing.T) {
	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, chunk := range []string{"Buy ", "low.", ""} {
			resp := openai.ChatCompletionStreamResponse{
				ID:     "chatcmpl-test",
				Object: "chat.completion.chunk",
				Choices: []openai.ChatCompletionStreamChoice{
					{Delta: openai.ChatCompletionStreamChoiceDelta{Content: chunk}},
				},
			}
			data, err := json.Marshal(resp)
			require.NoError(t, err)
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	})

	var got strings.Builder
	err := gw.Stream(context.Background(), "Should I buy?", func(chunk string) error {
		got.WriteString(chunk)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "Buy low.", got.String(), "empty chunks are skipped")
}

func TestStreamStopsWhenEmitFails(t *testing.T) {
	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for i := 0; i < 100; i++ {
			resp := openai.ChatCompletionStreamResponse{
				Choices: []openai.ChatCompletionStreamChoice{
					{Delta: openai.ChatCompletionStreamChoiceDelta{Content: "x"}},
				},
			}
			data, _ := json.Marshal(resp)
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	})

	sentinel := fmt.Errorf("client went away")
	calls := 0
	err := gw.Stream(context.Background(), "hello", func(chunk string) error {
		calls++
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, 1, calls)
}

func TestLoadSystemPrompt(t *testing.T) {
	t.Run("empty path uses default", func(t *testing.T) {
		prompt, err := LoadSystemPrompt("")
		require.NoError(t, err)
		assert.Equal(t, DefaultSystemPrompt, prompt)
	})

	t.Run("missing file errors", func(t *testing.T) {
		_, err := LoadSystemPrompt("/nonexistent/prompt.txt")
		assert.Error(t, err)
	})

	t.Run("file contents override default", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "prompt.txt")
		require.NoError(t, os.WriteFile(path, []byte("You are a test bot.\n"), 0o600))

		prompt, err := LoadSystemPrompt(path)
		require.NoError(t, err)
		assert.Equal(t, "You are a test bot.", prompt)
	})
}
