package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"CHAT_BASE_URL", "CALL_BASE_URL", "LANGUAGE_CODE", "TTS_SPEAKER",
		"COUNTRY_CODE", "TTS_PROVIDER", "CALL_PROVIDER", "STATE_DIR",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.ChatBaseURL == "" {
		t.Error("expected default chat base URL")
	}
	if cfg.LanguageCode != "en-IN" {
		t.Errorf("language = %q, want en-IN", cfg.LanguageCode)
	}
	if cfg.Speaker != "anushka" {
		t.Errorf("speaker = %q, want anushka", cfg.Speaker)
	}
	if cfg.CountryCode != "+91" {
		t.Errorf("country code = %q, want +91", cfg.CountryCode)
	}
	if cfg.TTSProvider != "backend" || cfg.CallProvider != "backend" {
		t.Errorf("providers = %q/%q, want backend/backend", cfg.TTSProvider, cfg.CallProvider)
	}
	if cfg.StateDir == "" {
		t.Error("expected a state dir")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("CHAT_BASE_URL", "http://localhost:9000")
	t.Setenv("LANGUAGE_CODE", "hi-IN")
	t.Setenv("COUNTRY_CODE", "+1")
	t.Setenv("STATE_DIR", "/tmp/state")

	cfg := Load()
	if cfg.ChatBaseURL != "http://localhost:9000" {
		t.Errorf("chat base = %q", cfg.ChatBaseURL)
	}
	if cfg.LanguageCode != "hi-IN" {
		t.Errorf("language = %q", cfg.LanguageCode)
	}
	if cfg.CountryCode != "+1" {
		t.Errorf("country code = %q", cfg.CountryCode)
	}
	if cfg.StateDir != "/tmp/state" {
		t.Errorf("state dir = %q", cfg.StateDir)
	}
}
