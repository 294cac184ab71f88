package providers

import (
	"context"
	"errors"
	"testing"
)

func TestGroqMissingKeyIsPermanent(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "")
	t.Setenv("EDUAI_GROQ_KEY_ALIAS1", "")
	p := NewGroqProvider("alias1")
	_, info, err := p.Generate(context.Background(), GenerateRequest{Operation: OpChat, Prompt: "hi"})
	if err == nil {
		t.Fatalf("expected missing key error")
	}
	if info.Name != "groq" || ClassifyError(err) != ErrorPermanent {
		t.Fatalf("unexpected info %+v / class %s", info, ClassifyError(err))
	}
}

func TestGroqRejectsAttachments(t *testing.T) {
	p := NewGroqProvider("")
	p.apiKey = "test"
	_, _, err := p.Generate(context.Background(), GenerateRequest{
		Operation:   OpGrade,
		Attachments: []Attachment{{MimeType: "application/pdf", Data: []byte("%PDF-")}},
	})
	if !errors.Is(err, ErrAttachmentsUnsupported) {
		t.Fatalf("expected ErrAttachmentsUnsupported, got %v", err)
	}
	if SupportsAttachments(p) {
		t.Fatalf("groq must not advertise attachment support")
	}
}
