package providers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGeminiGenerateSendsInlinePDF(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasSuffix(r.URL.Path, "/models/gemini-2.0-flash:generateContent"))
		require.Equal(t, "test-key", r.URL.Query().Get("key"))
		b, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(b, &captured))
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"{\"grade\":"},{"text":"\"A\"}"}]}}]}`))
	}))
	defer srv.Close()

	t.Setenv("GEMINI_API_KEY", "test-key")
	g := NewGeminiProvider("", "gemini-2.0-flash")
	g.baseURL = srv.URL

	resp, info, err := g.Generate(context.Background(), GenerateRequest{
		Operation:   OpGrade,
		Prompt:      "grade this",
		Attachments: []Attachment{{MimeType: "application/pdf", Data: []byte("%PDF-1.4")}},
		JSON:        true,
		Temperature: 0.3,
	})
	require.NoError(t, err)
	require.Equal(t, `{"grade":"A"}`, resp.Text)
	require.Equal(t, "gemini", info.Name)

	contents := captured["contents"].([]any)
	parts := contents[len(contents)-1].(map[string]any)["parts"].([]any)
	require.Len(t, parts, 2)
	inline := parts[1].(map[string]any)["inline_data"].(map[string]any)
	require.Equal(t, "application/pdf", inline["mime_type"])
	require.Equal(t, "JVBERi0xLjQ=", inline["data"])
	genCfg := captured["generationConfig"].(map[string]any)
	require.Equal(t, "application/json", genCfg["responseMimeType"])
}

func TestGeminiGenerateErrorIsClassified(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"status":"RESOURCE_EXHAUSTED"}}`))
	}))
	defer srv.Close()

	t.Setenv("GEMINI_API_KEY", "k")
	g := NewGeminiProvider("", "")
	g.baseURL = srv.URL
	_, _, err := g.Generate(context.Background(), GenerateRequest{Prompt: "hi"})
	require.Error(t, err)
	require.Equal(t, ErrorQuota, ClassifyError(err))
}

func TestGeminiMissingKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")
	_, _, err := NewGeminiProvider("school", "").Generate(context.Background(), GenerateRequest{Prompt: "x"})
	require.ErrorContains(t, err, "gemini key missing")
}
