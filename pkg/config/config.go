package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultConfigPath      = "config.yaml"
	defaultModel           = "gemini-2.5-flash"
	defaultIntervalSeconds = 2
	defaultMinStories      = 3
	defaultMaxStories      = 5
	defaultOutputDir       = "results"
	defaultCacheDir        = ".cache"
	defaultGCSPrefix       = "results"

	apiKeySecretName = "GEMINI_API_KEY"
)

type Config struct {
	GeminiAPIKey string
	GCPProject   string
	GCSBucket    string

	Gemini  GeminiConfig  `yaml:"gemini"`
	Batch   BatchConfig   `yaml:"batch"`
	Content ContentConfig `yaml:"content"`
	Output  OutputConfig  `yaml:"output"`
	GCS     GCSConfig     `yaml:"gcs"`
}

type GeminiConfig struct {
	Model string `yaml:"model"`
}

type BatchConfig struct {
	IntervalSeconds int `yaml:"interval_seconds"`
}

type ContentConfig struct {
	MinStories int `yaml:"min_stories"`
	MaxStories int `yaml:"max_stories"`
}

type OutputConfig struct {
	Dir      string `yaml:"dir"`
	CacheDir string `yaml:"cache_dir"`
}

type GCSConfig struct {
	Prefix string `yaml:"prefix"`
}

// Load reads .env, environment variables and the optional config.yaml.
// When GEMINI_API_KEY is absent from the environment and a GCP project is
// configured, the key is fetched from Secret Manager.
func Load(ctx context.Context) *Config {
	if err := godotenv.Load(); err != nil {
		slog.Warn("No .env file found, relying on environment variables")
	}

	cfg := &Config{
		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		GCPProject:   os.Getenv("GOOGLE_CLOUD_PROJECT"),
		GCSBucket:    os.Getenv("GCS_BUCKET"),
	}

	loadYAMLConfig(cfg)
	applyDefaults(cfg)

	if cfg.GeminiAPIKey == "" && cfg.GCPProject != "" {
		key, err := fetchSecret(ctx, cfg.GCPProject, apiKeySecretName)
		if err != nil {
			slog.Warn("Could not fetch API key from Secret Manager", "error", err)
		} else {
			cfg.GeminiAPIKey = key
		}
	}

	return cfg
}

func loadYAMLConfig(cfg *Config) {
	data, err := os.ReadFile(defaultConfigPath)
	if err != nil {
		slog.Debug("No config.yaml found, using defaults")
		return
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		slog.Error("Failed to parse config.yaml", "error", err)
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Gemini.Model == "" {
		cfg.Gemini.Model = defaultModel
	}
	if cfg.Batch.IntervalSeconds == 0 {
		cfg.Batch.IntervalSeconds = defaultIntervalSeconds
	}
	if cfg.Content.MinStories == 0 {
		cfg.Content.MinStories = defaultMinStories
	}
	if cfg.Content.MaxStories == 0 {
		cfg.Content.MaxStories = defaultMaxStories
	}
	if cfg.Output.Dir == "" {
		cfg.Output.Dir = defaultOutputDir
	}
	if cfg.Output.CacheDir == "" {
		cfg.Output.CacheDir = defaultCacheDir
	}
	if cfg.GCS.Prefix == "" {
		cfg.GCS.Prefix = defaultGCSPrefix
	}
}

func fetchSecret(ctx context.Context, project, name string) (string, error) {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return "", fmt.Errorf("create secret manager client: %w", err)
	}
	defer func() { _ = client.Close() }()

	resp, err := client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: fmt.Sprintf("projects/%s/secrets/%s/versions/latest", project, name),
	})
	if err != nil {
		return "", fmt.Errorf("access secret %s: %w", name, err)
	}

	return string(resp.Payload.Data), nil
}
