package providers

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseProviderList(t *testing.T) {
	refs := ParseProviderList("gemini|gemini:school|mock")
	require.Len(t, refs, 3)
	require.Equal(t, "gemini", refs[1].Name)
	require.Equal(t, "school", refs[1].KeyAlias)
	require.Equal(t, "gemini:school", refs[1].String())
}

func TestParseProviderListNormalizes(t *testing.T) {
	refs := ParseProviderList(" Groq : alt , GEMINI| groq:alt ||:orphan|gemini")
	require.Equal(t, []ProviderRef{
		{Raw: "Groq : alt", Name: "groq", KeyAlias: "alt"},
		{Raw: "GEMINI", Name: "gemini"},
	}, refs)
}

func TestParseProviderListFallsBackToMock(t *testing.T) {
	for _, raw := range []string{"", "  ", "|,|", ":alias"} {
		got := ParseProviderList(raw)
		require.Equal(t, []ProviderRef{{Raw: "mock", Name: "mock"}}, got, "input %q", raw)
	}
}
