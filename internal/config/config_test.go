package config

import (
	"bytes"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("BRIGHTDATA_API_TOKEN", "")
	t.Setenv("SERPAPI_KEY", "")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "8080", cfg.Port)
	require.Equal(t, "whattobuild", cfg.BrightDataZone)
	require.Equal(t, "whatobuild2", cfg.BrightDataUnlockerZone)
	require.Equal(t, "gemini-3-flash-preview", cfg.GeminiModel)
	require.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	require.Equal(t, "0 9 * * 1", cfg.MonitorSchedule)
	require.False(t, cfg.HasProxy())
	require.False(t, cfg.HasKeywordAPI())
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("BRIGHTDATA_API_TOKEN", "tok")
	t.Setenv("SERPAPI_KEY", "serp")
	t.Setenv("STALE_AFTER", "45m")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example,")

	cfg, err := Load()
	require.NoError(t, err)
	require.True(t, cfg.HasProxy())
	require.True(t, cfg.HasKeywordAPI())
	require.Equal(t, 45*time.Minute, cfg.StaleAfter)
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Origins())
}

func TestLogSummary_UsesGivenLogger(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "secret-key")
	t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_x")

	cfg, err := Load()
	require.NoError(t, err)

	var buf bytes.Buffer
	cfg.LogSummary(zerolog.New(&buf).With().Str("service", "whattobuild").Logger())

	out := buf.String()
	require.Contains(t, out, `"service":"whattobuild"`)
	require.Contains(t, out, `"message":"configuration loaded"`)
	require.Contains(t, out, `"gemini":true`)
	require.Contains(t, out, `"stripe_webhook":true`)
	require.NotContains(t, out, "secret-key")
	require.NotContains(t, out, "whsec_x")
}
