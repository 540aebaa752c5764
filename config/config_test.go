package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{
		"LOG_LEVEL", "DIT_API_URL", "LLM_API_URL", "ENGINE_TIMEOUT",
		"LABEL_TEMPERATURE", "LABEL_CONSTRAINED", "MAX_DURATION",
		"TARGET_SAMPLE_RATE", "TEXT_MAX_LENGTH", "LYRIC_MAX_LENGTH",
		"CODES_CACHE_TTL", "SERVER_PORT", "MINIO_USE_SSL",
	} {
		os.Unsetenv(k)
	}

	cfg := Load()

	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
	if cfg.DiTAPIURL != "http://127.0.0.1:8001" {
		t.Errorf("DiTAPIURL = %q, want default", cfg.DiTAPIURL)
	}
	if cfg.EngineTimeout != 5*time.Minute {
		t.Errorf("EngineTimeout = %v, want 5m", cfg.EngineTimeout)
	}
	if cfg.LabelTemperature != 0.7 {
		t.Errorf("LabelTemperature = %v, want 0.7", cfg.LabelTemperature)
	}
	if !cfg.LabelConstrained {
		t.Error("LabelConstrained should default to true")
	}
	if cfg.MaxDuration != 240 {
		t.Errorf("MaxDuration = %v, want 240", cfg.MaxDuration)
	}
	if cfg.TargetSampleRate != 48000 {
		t.Errorf("TargetSampleRate = %d, want 48000", cfg.TargetSampleRate)
	}
	if cfg.TextMaxLength != 256 || cfg.LyricMaxLength != 512 {
		t.Errorf("token lengths = %d/%d, want 256/512", cfg.TextMaxLength, cfg.LyricMaxLength)
	}
	if cfg.CodesCacheTTL != 7*24*time.Hour {
		t.Errorf("CodesCacheTTL = %v", cfg.CodesCacheTTL)
	}
	if cfg.ServerPort != 8080 {
		t.Errorf("ServerPort = %d, want 8080", cfg.ServerPort)
	}
	if cfg.MinioUseSSL {
		t.Error("MinioUseSSL should default to false")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("DIT_API_URL", "http://dit:9000")
	t.Setenv("ENGINE_TIMEOUT", "90s")
	t.Setenv("LABEL_TEMPERATURE", "0.2")
	t.Setenv("LABEL_CONSTRAINED", "false")
	t.Setenv("MAX_DURATION", "30.5")
	t.Setenv("SERVER_PORT", "3000")
	t.Setenv("MINIO_USE_SSL", "true")

	cfg := Load()

	if cfg.DiTAPIURL != "http://dit:9000" {
		t.Errorf("DiTAPIURL = %q", cfg.DiTAPIURL)
	}
	if cfg.EngineTimeout != 90*time.Second {
		t.Errorf("EngineTimeout = %v, want 90s", cfg.EngineTimeout)
	}
	if cfg.LabelTemperature != 0.2 {
		t.Errorf("LabelTemperature = %v, want 0.2", cfg.LabelTemperature)
	}
	if cfg.LabelConstrained {
		t.Error("LabelConstrained should be false")
	}
	if cfg.MaxDuration != 30.5 {
		t.Errorf("MaxDuration = %v, want 30.5", cfg.MaxDuration)
	}
	if cfg.ServerPort != 3000 {
		t.Errorf("ServerPort = %d, want 3000", cfg.ServerPort)
	}
	if !cfg.MinioUseSSL {
		t.Error("MinioUseSSL should be true")
	}
}

func TestInvalidValuesFallBack(t *testing.T) {
	t.Setenv("SERVER_PORT", "not-a-number")
	t.Setenv("ENGINE_TIMEOUT", "soon")
	t.Setenv("LABEL_CONSTRAINED", "maybe")

	cfg := Load()
	if cfg.ServerPort != 8080 {
		t.Errorf("ServerPort = %d, want fallback 8080", cfg.ServerPort)
	}
	if cfg.EngineTimeout != 5*time.Minute {
		t.Errorf("EngineTimeout = %v, want fallback", cfg.EngineTimeout)
	}
	if !cfg.LabelConstrained {
		t.Error("LabelConstrained should fall back to true")
	}
}
