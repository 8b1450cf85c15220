package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func newTestClient(t *testing.T, baseURL string) Client {
	t.Helper()
	c, err := NewClient(context.Background(), "test-key", WithBaseURL(baseURL))
	require.NoError(t, err)
	return c
}

func TestGenerate_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.URL.Path, "gemini-2.5-flash:generateContent")

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Contains(t, body, "systemInstruction")

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"candidates": [{"content": {"role": "model", "parts": [{"text": "[{\"place_id\":\"a\",\"gf_status\":\"Offers GF\"}]"}]}}],
			"usageMetadata": {"promptTokenCount": 40, "candidatesTokenCount": 12, "totalTokenCount": 52}
		}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	resp, err := client.Generate(context.Background(), GenerateRequest{
		Model:       "gemini-2.5-flash",
		System:      "classify",
		Prompt:      "places",
		Temperature: genai.Ptr(float32(0.2)),
	})
	require.NoError(t, err)
	assert.Equal(t, `[{"place_id":"a","gf_status":"Offers GF"}]`, resp.Text)
	assert.Equal(t, int32(40), resp.Usage.PromptTokens)
	assert.Equal(t, int32(52), resp.Usage.TotalTokens)
}

func TestGenerate_EmptyCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates": []}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	_, err := client.Generate(context.Background(), GenerateRequest{Model: "gemini-2.5-flash", Prompt: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty response")
}

func TestGenerate_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": {"code": 400, "message": "API key not valid", "status": "INVALID_ARGUMENT"}}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	_, err := client.Generate(context.Background(), GenerateRequest{Model: "gemini-2.5-flash", Prompt: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gemini: generate content")
}

func TestFirstText(t *testing.T) {
	assert.Empty(t, firstText(nil))

	resp := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{
		{Content: nil},
		{Content: &genai.Content{Parts: []*genai.Part{{Text: ""}}}},
		{Content: &genai.Content{Parts: []*genai.Part{{Text: "one "}, {Text: "two"}}}},
		{Content: &genai.Content{Parts: []*genai.Part{{Text: "ignored"}}}},
	}}
	assert.Equal(t, "one two", firstText(resp))
}
