package providers

import "strings"

// ProviderRef is one entry of EDUAI_LLM_PROVIDERS: a provider name with an
// optional key alias, e.g. "gemini:school".
type ProviderRef struct {
	Raw      string
	Name     string
	KeyAlias string
}

func (r ProviderRef) String() string {
	if r.KeyAlias == "" {
		return r.Name
	}
	return r.Name + ":" + r.KeyAlias
}

var defaultProviderRef = ProviderRef{Raw: "mock", Name: "mock"}

// ParseProviderList splits a "|" or "," separated provider list in preference
// order. Names are lower-cased and repeated name:alias pairs are kept once.
// An empty list falls back to the mock provider.
func ParseProviderList(raw string) []ProviderRef {
	parts := strings.FieldsFunc(raw, func(r rune) bool { return r == '|' || r == ',' })
	out := make([]ProviderRef, 0, len(parts))
	seen := make(map[string]bool, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		name, alias, _ := strings.Cut(p, ":")
		ref := ProviderRef{
			Raw:      p,
			Name:     strings.ToLower(strings.TrimSpace(name)),
			KeyAlias: strings.TrimSpace(alias),
		}
		if ref.Name == "" || seen[ref.String()] {
			continue
		}
		seen[ref.String()] = true
		out = append(out, ref)
	}
	if len(out) == 0 {
		out = append(out, defaultProviderRef)
	}
	return out
}
