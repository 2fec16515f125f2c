package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nvelasco/homeline/internal/config"
	"github.com/nvelasco/homeline/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func cannedCompletion(content string) string {
	payload := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	}
	b, _ := json.Marshal(payload)
	return string(b)
}

func testParser(t *testing.T, handler http.HandlerFunc) (*GroqParser, *httptest.Server) {
	server := httptest.NewServer(handler)

	cfg := util.LoadTestConfig()
	registry, err := cfg.Registry()
	require.NoError(t, err)

	parser := NewGroqParser(config.LLMConfig{
		APIKey:  "test-key",
		BaseURL: server.URL,
	}, registry, zap.NewNop())

	return parser, server
}

func TestGroqParserParse(t *testing.T) {

	var gotPath, gotAuth string
	parser, server := testParser(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(cannedCompletion(`{"device_states":{"kitchen light":"on"},"light_intensity":{"room 2 light":80},"chatbot_message":"Done","delay_seconds":0}`)))
	})
	defer server.Close()

	doc, err := parser.Parse(context.Background(), "turn on the kitchen light and set room 2 to 80 percent")
	require.NoError(t, err)

	assert.Equal(t, "/chat/completions", gotPath)
	assert.Equal(t, "Bearer test-key", gotAuth)

	assert.Equal(t, "on", doc.DeviceStates["kitchen light"])
	assert.Equal(t, float64(80), doc.LightIntensity["room 2 light"])
	assert.Equal(t, "Done", doc.ChatbotMessage)
}

func TestGroqParserUnwrapsFencedOutput(t *testing.T) {

	parser, server := testParser(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(cannedCompletion("Here you go:\n```json\n{\"device_states\":{\"TV\":\"off\"}}\n```")))
	})
	defer server.Close()

	doc, err := parser.Parse(context.Background(), "turn off the tv")
	require.NoError(t, err)

	assert.Equal(t, "off", doc.DeviceStates["TV"])
}

func TestGroqParserAPIError(t *testing.T) {

	parser, server := testParser(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	})
	defer server.Close()

	_, err := parser.Parse(context.Background(), "turn on the tv")
	assert.Error(t, err)
}

func TestGroqParserGarbageOutput(t *testing.T) {

	parser, server := testParser(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(cannedCompletion("sorry, I cannot help with that")))
	})
	defer server.Close()

	_, err := parser.Parse(context.Background(), "do something")
	assert.Error(t, err)
}

func TestExtractJSON(t *testing.T) {

	assert.Equal(t, `{"a":1}`, extractJSON("prose {\"a\":1} more prose"))
	assert.Equal(t, "no json here", extractJSON("no json here"))
}
