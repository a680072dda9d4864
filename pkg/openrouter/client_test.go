package openrouter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/image-captioner/pkg/client"
)

func chatReply(text string) string {
	resp := chatResponse{Choices: []choice{{Message: responseMessage{Role: "assistant", Content: text}}}}
	out, _ := json.Marshal(resp)
	return string(out)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClientWithBaseURL("test-key", srv.URL)
	require.NoError(t, err)
	c.retryDelay = time.Millisecond
	return c
}

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient("")
	var clientErr *client.Error
	require.ErrorAs(t, err, &clientErr)
	assert.Equal(t, client.KindAuth, clientErr.Kind)
}

func TestChat(t *testing.T) {
	var gotAuth string
	var gotReq chatRequest

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		assert.Equal(t, "/chat/completions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.Write([]byte(chatReply("hello")))
	})

	out, err := c.Chat(context.Background(), "test-model", "be brief", "say hi")
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
	assert.Equal(t, "Bearer test-key", gotAuth)

	require.Len(t, gotReq.Messages, 2)
	assert.Equal(t, "system", gotReq.Messages[0].Role)
	assert.Equal(t, "test-model", gotReq.Model)
}

func TestAnalyzeImageSendsDataURL(t *testing.T) {
	var body map[string]any

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Write([]byte(chatReply("a cat")))
	})

	out, err := c.AnalyzeImage(context.Background(), "vlm", "", "describe", "aW1hZ2U=")
	require.NoError(t, err)
	assert.Equal(t, "a cat", out)

	messages := body["messages"].([]any)
	require.Len(t, messages, 1)
	content := messages[0].(map[string]any)["content"].([]any)
	require.Len(t, content, 2)
	img := content[1].(map[string]any)["image_url"].(map[string]any)
	assert.Equal(t, "data:image/jpeg;base64,aW1hZ2U=", img["url"])
}

func TestUnauthorizedMapsToAuthError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := c.Chat(context.Background(), "m", "", "p")
	var clientErr *client.Error
	require.ErrorAs(t, err, &clientErr)
	assert.Equal(t, client.KindAuth, clientErr.Kind)
	assert.Equal(t, "m", clientErr.Model)
}

func TestRateLimitRetries(t *testing.T) {
	attempts := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(chatReply("finally")))
	})

	out, err := c.Chat(context.Background(), "m", "", "p")
	require.NoError(t, err)
	assert.Equal(t, "finally", out)
	assert.Equal(t, 3, attempts)
}

func TestRateLimitExhaustsRetries(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := c.Chat(context.Background(), "m", "", "p")
	var clientErr *client.Error
	require.ErrorAs(t, err, &clientErr)
	assert.Equal(t, client.KindUnavailable, clientErr.Kind)
}

func TestServerErrorMapsToResponseError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := c.Chat(context.Background(), "m", "", "p")
	var clientErr *client.Error
	require.ErrorAs(t, err, &clientErr)
	assert.Equal(t, client.KindResponse, clientErr.Kind)
}

func TestEmptyChoicesRejected(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices": []}`))
	})

	_, err := c.Chat(context.Background(), "m", "", "p")
	var clientErr *client.Error
	require.ErrorAs(t, err, &clientErr)
	assert.Equal(t, client.KindResponse, clientErr.Kind)
}

func TestContentPartArrayResponse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices": [{"message": {"role": "assistant", "content": [{"type": "text", "text": "from parts"}]}}]}`))
	})

	out, err := c.Chat(context.Background(), "m", "", "p")
	require.NoError(t, err)
	assert.Equal(t, "from parts", out)
}
