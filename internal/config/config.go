package config

import (
	_ "embed"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed variants.yaml
var variantsYAML []byte

type Config struct {
	Cache     CacheConfig
	Extractor ExtractorConfig
	Detector  DetectorConfig
	Log       LogConfig
	Variants  VariantsConfig
}

type CacheConfig struct {
	Path string // SQLite database file; empty disables the cache
}

type ExtractorConfig struct {
	URL       string // inference server base URL (defaults to http://localhost:8093)
	BatchSize int    // crops per forward pass (defaults to 4)
}

type DetectorConfig struct {
	URL           string  // detector server base URL (defaults to http://localhost:8094)
	MinConfidence float64 // boxes below this confidence are discarded
	IoUThreshold  float64 // overlap suppression threshold
}

type LogConfig struct {
	Dir   string // run log directory (defaults to ~/.rewildid/logs)
	Level string // slog level name (defaults to info)
}

// VariantsConfig names the embedding flavors stored in the cache. Detection
// writes the raw variant; reid reads it back through the adapter tier and
// writes the species-specific final variant.
type VariantsConfig struct {
	Raw           string             `yaml:"raw"`
	ReidPrefix    string             `yaml:"reid_prefix"`
	AdapterSource string             `yaml:"adapter_source"`
	Dim           int                `yaml:"dim"`
	Epsilon       map[string]float64 `yaml:"epsilon"`
}

// EpsilonFor returns the clustering tolerance band for a variant. Exact
// entries win over prefix entries; "default" is the fallback.
func (v *VariantsConfig) EpsilonFor(variant string) float64 {
	if eps, ok := v.Epsilon[variant]; ok {
		return eps
	}
	for key, eps := range v.Epsilon {
		if key != "default" && strings.HasPrefix(variant, key) {
			return eps
		}
	}
	return v.Epsilon["default"]
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func defaultLogDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "logs"
	}
	return filepath.Join(home, ".rewildid", "logs")
}

func Load() *Config {
	var variants VariantsConfig
	if err := yaml.Unmarshal(variantsYAML, &variants); err != nil {
		// Embedded file, so this can only fail if the file is broken at build time.
		panic("failed to unmarshal embedded variants.yaml: " + err.Error())
	}

	if src := os.Getenv("REWILDID_ADAPTER_SOURCE"); src != "" {
		variants.AdapterSource = src
	}

	return &Config{
		Cache: CacheConfig{
			Path: os.Getenv("REWILDID_CACHE_PATH"),
		},
		Extractor: ExtractorConfig{
			URL:       envString("REWILDID_EXTRACTOR_URL", "http://localhost:8093"),
			BatchSize: envInt("REWILDID_BATCH_SIZE", 4),
		},
		Detector: DetectorConfig{
			URL:           envString("REWILDID_DETECTOR_URL", "http://localhost:8094"),
			MinConfidence: envFloat("REWILDID_DETECTOR_MIN_CONFIDENCE", 0.3),
			IoUThreshold:  envFloat("REWILDID_DETECTOR_IOU_THRESHOLD", 0.3),
		},
		Log: LogConfig{
			Dir:   envString("REWILDID_LOG_DIR", defaultLogDir()),
			Level: envString("REWILDID_LOG_LEVEL", "info"),
		},
		Variants: variants,
	}
}
