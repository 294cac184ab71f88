package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("EDUAI_RESULT_STORES", "")
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.APIAddr)
	require.Equal(t, ":9091", cfg.WorkerMetricsAddr)
	require.Equal(t, "eduai", cfg.TemporalTaskQueue)
	require.Equal(t, "mock", cfg.LLMProviders)
	require.Equal(t, 900, cfg.ProviderCooldownSecs)
	require.Equal(t, "Asia/Kolkata", cfg.CalendarTimezone)
	require.True(t, cfg.HasResultStore("postgres"))
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("EDUAI_API_ADDR", ":9090")
	t.Setenv("EDUAI_LLM_PROVIDERS", "gemini|groq:alt")
	t.Setenv("EDUAI_CHAT_HISTORY_LIMIT", "5")
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.APIAddr)
	require.Equal(t, "gemini|groq:alt", cfg.LLMProviders)
	require.Equal(t, 5, cfg.ChatHistoryLimit)
}

func TestLoadInvalidNumberFallsBack(t *testing.T) {
	t.Setenv("EDUAI_BATCH_MAX_CHILDREN", "lots")
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 3, cfg.BatchMaxChildren)
}

func TestLoadSheetsRequiresSpreadsheet(t *testing.T) {
	t.Setenv("EDUAI_RESULT_STORES", "postgres|sheets")
	t.Setenv("EDUAI_SHEETS_SPREADSHEET_ID", "")
	t.Setenv("GOOGLE_SHEET_ID", "")
	_, err := Load()
	require.Error(t, err)

	t.Setenv("EDUAI_SHEETS_SPREADSHEET_ID", "sheet-123")
	cfg, err := Load()
	require.NoError(t, err)
	require.True(t, cfg.HasResultStore("sheets"))
	require.Equal(t, "sheet-123", cfg.SpreadsheetID)
}

func TestSplitList(t *testing.T) {
	require.Equal(t, []string{"a", "b", "c"}, SplitList(" a| b ,c||"))
	require.Empty(t, SplitList(""))
}
