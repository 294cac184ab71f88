package providers

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// AttachmentCapable is implemented by providers that can read inline documents.
type AttachmentCapable interface {
	SupportsAttachments() bool
}

// SupportsAttachments reports whether p accepts GenerateRequest.Attachments.
func SupportsAttachments(p LLMProvider) bool {
	if c, ok := p.(AttachmentCapable); ok {
		return c.SupportsAttachments()
	}
	return false
}

// RateLimited spaces calls to a provider so one key stays under its per-minute quota.
type RateLimited struct {
	inner   LLMProvider
	limiter *rate.Limiter
}

func NewRateLimited(inner LLMProvider, perMinute int) LLMProvider {
	if perMinute <= 0 {
		return inner
	}
	return &RateLimited{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1),
	}
}

func (r *RateLimited) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, ProviderInfo, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return GenerateResponse{}, ProviderInfo{}, err
	}
	return r.inner.Generate(ctx, req)
}

func (r *RateLimited) SupportsAttachments() bool {
	return SupportsAttachments(r.inner)
}
