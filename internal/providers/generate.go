package providers

import (
	"context"
	"errors"
	"fmt"

	"eduai/internal/metrics"
)

// Generate runs req against each provider in preferred order until one succeeds.
// Providers that cannot read attachments are skipped when req carries any.
// It serves the synchronous API paths; workflows use their own failover loop
// with cooldowns and audit rows.
func Generate(ctx context.Context, m *Manager, req GenerateRequest) (GenerateResponse, ProviderInfo, error) {
	var errs []error
	for _, idx := range m.PreferredLLMOrder() {
		p, ref := m.LLMProviderByIndex(idx)
		if len(req.Attachments) > 0 && !SupportsAttachments(p) {
			continue
		}
		resp, info, err := p.Generate(ctx, req)
		if err == nil {
			metrics.LLMCalls.WithLabelValues(ref.Name, req.Operation, "ok").Inc()
			return resp, info, nil
		}
		metrics.LLMCalls.WithLabelValues(ref.Name, req.Operation, string(ClassifyError(err))).Inc()
		errs = append(errs, fmt.Errorf("%s: %w", ref.Raw, err))
		if ctx.Err() != nil {
			break
		}
	}
	if len(errs) == 0 {
		return GenerateResponse{}, ProviderInfo{}, fmt.Errorf("no provider can serve %s", req.Operation)
	}
	return GenerateResponse{}, ProviderInfo{}, errors.Join(errs...)
}
