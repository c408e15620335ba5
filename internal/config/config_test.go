package config

import (
	"os"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	os.Unsetenv("REWILDID_EXTRACTOR_URL")
	os.Unsetenv("REWILDID_BATCH_SIZE")
	os.Unsetenv("REWILDID_ADAPTER_SOURCE")

	cfg := Load()

	if cfg.Extractor.BatchSize != 4 {
		t.Errorf("expected default batch size 4, got %d", cfg.Extractor.BatchSize)
	}
	if cfg.Variants.Raw != "dinov3_raw" {
		t.Errorf("expected raw variant dinov3_raw, got %q", cfg.Variants.Raw)
	}
	if cfg.Variants.ReidPrefix != "dinov3_reid_" {
		t.Errorf("expected reid prefix dinov3_reid_, got %q", cfg.Variants.ReidPrefix)
	}
	if cfg.Variants.AdapterSource != "dinov3_raw" {
		t.Errorf("expected adapter source dinov3_raw, got %q", cfg.Variants.AdapterSource)
	}
	if cfg.Variants.Dim != 1280 {
		t.Errorf("expected dim 1280, got %d", cfg.Variants.Dim)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("REWILDID_BATCH_SIZE", "16")
	t.Setenv("REWILDID_ADAPTER_SOURCE", "dinov3_raw_disabled")
	t.Setenv("REWILDID_CACHE_PATH", "/tmp/care.db")

	cfg := Load()

	if cfg.Extractor.BatchSize != 16 {
		t.Errorf("expected batch size 16, got %d", cfg.Extractor.BatchSize)
	}
	if cfg.Variants.AdapterSource != "dinov3_raw_disabled" {
		t.Errorf("expected overridden adapter source, got %q", cfg.Variants.AdapterSource)
	}
	if cfg.Cache.Path != "/tmp/care.db" {
		t.Errorf("expected cache path override, got %q", cfg.Cache.Path)
	}
}

func TestLoadInvalidBatchSize(t *testing.T) {
	t.Setenv("REWILDID_BATCH_SIZE", "not-a-number")

	cfg := Load()

	if cfg.Extractor.BatchSize != 4 {
		t.Errorf("expected fallback batch size 4, got %d", cfg.Extractor.BatchSize)
	}
}

func TestEpsilonFor(t *testing.T) {
	variants := VariantsConfig{
		Epsilon: map[string]float64{
			"default":        0.00065,
			"dinov3_reid_":   0.00065,
			"dinov3_distill": 0.01,
		},
	}

	tests := []struct {
		name     string
		variant  string
		expected float64
	}{
		{
			name:     "exact match",
			variant:  "dinov3_distill",
			expected: 0.01,
		},
		{
			name:     "prefix match for species variant",
			variant:  "dinov3_reid_stoat",
			expected: 0.00065,
		},
		{
			name:     "unknown variant falls back to default",
			variant:  "some_other_model",
			expected: 0.00065,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := variants.EpsilonFor(tt.variant); got != tt.expected {
				t.Errorf("EpsilonFor(%q) = %v, want %v", tt.variant, got, tt.expected)
			}
		})
	}
}
