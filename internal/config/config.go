package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type LookupFunc func(string) (string, bool)

type Profile string

const (
	ProfileDev  Profile = "dev"
	ProfileTest Profile = "test"
	ProfileProd Profile = "prod"
)

type Config struct {
	Profile       Profile
	Service       ServiceConfig
	HTTP          HTTPConfig
	VectorStore   VectorStoreConfig
	Warehouse     WarehouseConfig
	AI            AIConfig
	Embedding     EmbeddingConfig
	Retrieval     RetrievalConfig
	Chat          ChatConfig
	Artifacts     ArtifactsConfig
	ObjectStore   ObjectStoreConfig
	Observability ObservabilityConfig
	Auth          AuthConfig
}

type ServiceConfig struct {
	Name string
}

type HTTPConfig struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// VectorStoreConfig points at the Postgres database holding the embedded
// schema documents. An empty DSN selects the in-memory collection.
type VectorStoreConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration
}

type WarehouseConfig struct {
	DataDir             string
	RequireTenantFilter bool
	QueryTimeout        time.Duration
}

type AIConfig struct {
	BaseURL               string
	APIKey                string
	Model                 string
	MaxOutputTokens       int
	SQLTemperature        float64
	ExplainTemperature    float64
	SQLExplainTemperature float64
	Timeout               time.Duration
}

type EmbeddingConfig struct {
	Model       string
	OllamaHost  string
	OllamaModel string
	Timeout     time.Duration
}

type RetrievalConfig struct {
	TopK int
}

type ChatConfig struct {
	DefaultTenantID string
}

type ArtifactsConfig struct {
	Dir            string
	UseObjectStore bool
}

type ObjectStoreConfig struct {
	Endpoint         string
	Region           string
	Bucket           string
	AccessKeyID      string
	SecretAccessKey  string
	UseSSL           bool
	Prefix           string
	AutoCreateBucket bool
}

type ObservabilityConfig struct {
	LogLevel slog.Level
	LogJSON  bool
}

type AuthConfig struct {
	Required   bool
	StaticKeys string
}

func LoadFromEnv(serviceName string) (Config, error) {
	_ = godotenv.Load()
	return Load(serviceName, os.LookupEnv)
}

func Load(serviceName string, lookup LookupFunc) (Config, error) {
	if lookup == nil {
		return Config{}, fmt.Errorf("lookup function is required")
	}

	profile := ProfileDev
	if raw, ok := lookup("QUERYCHAT_PROFILE"); ok {
		profile = Profile(strings.ToLower(strings.TrimSpace(raw)))
	}
	if !isValidProfile(profile) {
		return Config{}, fmt.Errorf("invalid QUERYCHAT_PROFILE: %q", profile)
	}

	cfg := defaultsForProfile(profile)
	if serviceName != "" {
		cfg.Service.Name = serviceName
	}

	if err := applyString(lookup, "QUERYCHAT_SERVICE_NAME", &cfg.Service.Name); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "QUERYCHAT_HTTP_ADDR", &cfg.HTTP.Address); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "QUERYCHAT_HTTP_READ_TIMEOUT", &cfg.HTTP.ReadTimeout); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "QUERYCHAT_HTTP_WRITE_TIMEOUT", &cfg.HTTP.WriteTimeout); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "QUERYCHAT_HTTP_IDLE_TIMEOUT", &cfg.HTTP.IdleTimeout); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "QUERYCHAT_VECTORSTORE_DSN", &cfg.VectorStore.DSN); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "QUERYCHAT_VECTORSTORE_MAX_OPEN_CONNS", &cfg.VectorStore.MaxOpenConns); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "QUERYCHAT_VECTORSTORE_MAX_IDLE_CONNS", &cfg.VectorStore.MaxIdleConns); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "QUERYCHAT_VECTORSTORE_CONN_MAX_IDLE_TIME", &cfg.VectorStore.ConnMaxIdleTime); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "QUERYCHAT_VECTORSTORE_CONN_MAX_LIFETIME", &cfg.VectorStore.ConnMaxLifetime); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "QUERYCHAT_WAREHOUSE_DATA_DIR", &cfg.Warehouse.DataDir); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "QUERYCHAT_WAREHOUSE_REQUIRE_TENANT_FILTER", &cfg.Warehouse.RequireTenantFilter); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "QUERYCHAT_WAREHOUSE_QUERY_TIMEOUT", &cfg.Warehouse.QueryTimeout); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "QUERYCHAT_AI_BASE_URL", &cfg.AI.BaseURL); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "QUERYCHAT_AI_API_KEY", &cfg.AI.APIKey); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "QUERYCHAT_AI_MODEL", &cfg.AI.Model); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "QUERYCHAT_AI_MAX_OUTPUT_TOKENS", &cfg.AI.MaxOutputTokens); err != nil {
		return Config{}, err
	}
	if err := applyFloat(lookup, "QUERYCHAT_AI_SQL_TEMPERATURE", &cfg.AI.SQLTemperature); err != nil {
		return Config{}, err
	}
	if err := applyFloat(lookup, "QUERYCHAT_AI_EXPLAIN_TEMPERATURE", &cfg.AI.ExplainTemperature); err != nil {
		return Config{}, err
	}
	if err := applyFloat(lookup, "QUERYCHAT_AI_SQL_EXPLAIN_TEMPERATURE", &cfg.AI.SQLExplainTemperature); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "QUERYCHAT_AI_TIMEOUT", &cfg.AI.Timeout); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "QUERYCHAT_EMBED_MODEL", &cfg.Embedding.Model); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "QUERYCHAT_EMBED_OLLAMA_HOST", &cfg.Embedding.OllamaHost); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "QUERYCHAT_EMBED_OLLAMA_MODEL", &cfg.Embedding.OllamaModel); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "QUERYCHAT_EMBED_TIMEOUT", &cfg.Embedding.Timeout); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "QUERYCHAT_RETRIEVAL_TOP_K", &cfg.Retrieval.TopK); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "QUERYCHAT_CHAT_DEFAULT_TENANT", &cfg.Chat.DefaultTenantID); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "QUERYCHAT_ARTIFACTS_DIR", &cfg.Artifacts.Dir); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "QUERYCHAT_ARTIFACTS_USE_OBJECT_STORE", &cfg.Artifacts.UseObjectStore); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "QUERYCHAT_OBJECTSTORE_ENDPOINT", &cfg.ObjectStore.Endpoint); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "QUERYCHAT_OBJECTSTORE_REGION", &cfg.ObjectStore.Region); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "QUERYCHAT_OBJECTSTORE_BUCKET", &cfg.ObjectStore.Bucket); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "QUERYCHAT_OBJECTSTORE_ACCESS_KEY", &cfg.ObjectStore.AccessKeyID); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "QUERYCHAT_OBJECTSTORE_SECRET_KEY", &cfg.ObjectStore.SecretAccessKey); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "QUERYCHAT_OBJECTSTORE_USE_SSL", &cfg.ObjectStore.UseSSL); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "QUERYCHAT_OBJECTSTORE_PREFIX", &cfg.ObjectStore.Prefix); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "QUERYCHAT_OBJECTSTORE_AUTO_CREATE_BUCKET", &cfg.ObjectStore.AutoCreateBucket); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "QUERYCHAT_LOG_JSON", &cfg.Observability.LogJSON); err != nil {
		return Config{}, err
	}
	if err := applyLogLevel(lookup, "QUERYCHAT_LOG_LEVEL", &cfg.Observability.LogLevel); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "QUERYCHAT_AUTH_REQUIRED", &cfg.Auth.Required); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "QUERYCHAT_AUTH_STATIC_KEYS", &cfg.Auth.StaticKeys); err != nil {
		return Config{}, err
	}

	if cfg.Service.Name == "" {
		return Config{}, fmt.Errorf("service name is required")
	}
	if cfg.HTTP.Address == "" {
		return Config{}, fmt.Errorf("http address is required")
	}
	if cfg.Retrieval.TopK <= 0 {
		return Config{}, fmt.Errorf("retrieval top k must be positive")
	}
	if cfg.Chat.DefaultTenantID == "" {
		return Config{}, fmt.Errorf("default tenant id is required")
	}
	return cfg, nil
}

func defaultsForProfile(profile Profile) Config {
	cfg := Config{
		Profile: profile,
		Service: ServiceConfig{Name: "querychat-api"},
		HTTP: HTTPConfig{
			Address:      ":8080",
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		VectorStore: VectorStoreConfig{
			DSN:             "",
			MaxOpenConns:    10,
			MaxIdleConns:    10,
			ConnMaxIdleTime: 5 * time.Minute,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Warehouse: WarehouseConfig{
			DataDir:             "",
			RequireTenantFilter: false,
			QueryTimeout:        30 * time.Second,
		},
		AI: AIConfig{
			BaseURL:               "https://api.openai.com",
			Model:                 "gpt-4o",
			MaxOutputTokens:       2048,
			SQLTemperature:        0,
			ExplainTemperature:    0.7,
			SQLExplainTemperature: 0.3,
			Timeout:               30 * time.Second,
		},
		Embedding: EmbeddingConfig{
			Model:       "text-embedding-3-small",
			OllamaHost:  "http://localhost:11434",
			OllamaModel: "nomic-embed-text",
			Timeout:     60 * time.Second,
		},
		Retrieval: RetrievalConfig{TopK: 7},
		Chat:      ChatConfig{DefaultTenantID: "test_org_123"},
		Artifacts: ArtifactsConfig{
			Dir:            "static",
			UseObjectStore: false,
		},
		ObjectStore: ObjectStoreConfig{
			Endpoint:         "localhost:9000",
			Region:           "us-east-1",
			Bucket:           "querychat-charts",
			AccessKeyID:      "minio",
			SecretAccessKey:  "miniostorage",
			UseSSL:           false,
			Prefix:           "",
			AutoCreateBucket: true,
		},
		Observability: ObservabilityConfig{
			LogLevel: slog.LevelDebug,
			LogJSON:  true,
		},
		Auth: AuthConfig{
			Required:   false,
			StaticKeys: "",
		},
	}

	switch profile {
	case ProfileTest:
		cfg.HTTP.Address = ":18080"
		cfg.Observability.LogLevel = slog.LevelWarn
	case ProfileProd:
		cfg.Observability.LogLevel = slog.LevelInfo
		cfg.Warehouse.RequireTenantFilter = true
		cfg.ObjectStore.UseSSL = true
		cfg.ObjectStore.AutoCreateBucket = false
	}

	return cfg
}

func isValidProfile(profile Profile) bool {
	switch profile {
	case ProfileDev, ProfileTest, ProfileProd:
		return true
	default:
		return false
	}
}

func applyString(lookup LookupFunc, key string, dst *string) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	*dst = strings.TrimSpace(raw)
	return nil
}

func applyDuration(lookup LookupFunc, key string, dst *time.Duration) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyBool(lookup LookupFunc, key string, dst *bool) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyInt(lookup LookupFunc, key string, dst *int) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyFloat(lookup LookupFunc, key string, dst *float64) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyLogLevel(lookup LookupFunc, key string, dst *slog.Level) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	level := strings.ToLower(strings.TrimSpace(raw))
	switch level {
	case "debug":
		*dst = slog.LevelDebug
	case "info":
		*dst = slog.LevelInfo
	case "warn", "warning":
		*dst = slog.LevelWarn
	case "error":
		*dst = slog.LevelError
	default:
		return fmt.Errorf("invalid %s: %q", key, raw)
	}
	return nil
}
