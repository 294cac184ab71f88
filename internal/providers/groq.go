package providers

import (
	"context"
	"net/http"
	"os"
	"strings"
	"time"
)

// GroqProvider supports text generation via Groq's OpenAI-compatible API.
type GroqProvider struct {
	keyName string
	apiKey  string
	model   string
	client  *http.Client
}

func NewGroqProvider(keyName string) *GroqProvider {
	model := strings.TrimSpace(os.Getenv("EDUAI_GROQ_MODEL"))
	if model == "" {
		model = "llama-3.1-8b-instant"
	}
	return &GroqProvider{
		keyName: keyName,
		apiKey:  resolveKey("GROQ", keyName),
		model:   model,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

func (g *GroqProvider) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, ProviderInfo, error) {
	info := ProviderInfo{Name: "groq", Key: g.keyName, Model: g.model}
	if g.apiKey == "" {
		return GenerateResponse{}, info, errKeyMissing("groq", g.keyName)
	}
	if len(req.Attachments) > 0 {
		return GenerateResponse{}, info, ErrAttachmentsUnsupported
	}
	text, err := chatCompletion(ctx, g.client, "groq", "https://api.groq.com/openai/v1/chat/completions", g.apiKey, g.model, req)
	return GenerateResponse{Text: text}, info, err
}
