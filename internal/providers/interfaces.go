package providers

import (
	"context"
	"strings"
)

type ProviderInfo struct {
	Name  string `json:"name"`
	Model string `json:"model"`
	Key   string `json:"key"`
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Attachment is a binary document passed to providers that accept inline files.
type Attachment struct {
	MimeType string `json:"mime_type"`
	Data     []byte `json:"data"`
}

type GenerateRequest struct {
	Operation   string       `json:"operation"`
	System      string       `json:"system,omitempty"`
	Prompt      string       `json:"prompt"`
	Context     []string     `json:"context,omitempty"`
	History     []Message    `json:"history,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
	JSON        bool         `json:"json,omitempty"`
	Temperature float64      `json:"temperature,omitempty"`
	MaxTokens   int          `json:"max_tokens,omitempty"`
}

type GenerateResponse struct {
	Text string `json:"text"`
}

type LLMProvider interface {
	Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, ProviderInfo, error)
}

const defaultSystemPrompt = "You are an expert teaching assistant. Be accurate, practical and concise."

func systemPrompt(req GenerateRequest) string {
	if req.System != "" {
		return req.System
	}
	return defaultSystemPrompt
}

// userPrompt folds Context into the prompt for providers without a separate context slot.
func userPrompt(req GenerateRequest) string {
	prompt := req.Prompt
	if len(req.Context) > 0 {
		prompt += "\n\nContext:\n" + strings.Join(req.Context, "\n\n")
	}
	return prompt
}

// chatMessages renders system, history and user turns in OpenAI chat format.
func chatMessages(req GenerateRequest) []map[string]string {
	msgs := make([]map[string]string, 0, len(req.History)+2)
	msgs = append(msgs, map[string]string{"role": "system", "content": systemPrompt(req)})
	for _, m := range req.History {
		role := m.Role
		if role != "assistant" {
			role = "user"
		}
		msgs = append(msgs, map[string]string{"role": role, "content": m.Content})
	}
	msgs = append(msgs, map[string]string{"role": "user", "content": userPrompt(req)})
	return msgs
}
