package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendInMemory = "inmemory"
	BackendDynamo   = "dynamo"
)

type Config struct {
	App   AppConfig
	Auth  AuthConfig
	Store StoreConfig
	Otel  OtelConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	EventsTopic        string
}

type AuthConfig struct {
	JWTSecret string
}

type StoreConfig struct {
	Backend        string // "inmemory", "dynamo" or "dynamodb"
	DynamoTable    string
	AWSRegion      string
	DynamoEndpoint string // custom endpoint, e.g. DynamoDB Local
	DynamoTimeout  time.Duration
}

type OtelConfig struct {
	Enabled  bool
	Endpoint string
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// MissingDynamoSettings lists the settings the DynamoDB backend cannot start
// without.
func (s StoreConfig) MissingDynamoSettings() []string {
	var missing []string
	if s.DynamoTable == "" {
		missing = append(missing, "DYNAMO_TABLE_NAME")
	}
	if s.AWSRegion == "" {
		missing = append(missing, "AWS_REGION")
	}
	return missing
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}
	return FromEnv()
}

// FromEnv builds the config from the process environment only.
func FromEnv() *Config {
	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
			NatsURL:            getEnv("NATS_URL", ""),
			EventsTopic:        getEnv("NOTE_EVENTS_TOPIC", "notes.events"),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		Store: StoreConfig{
			Backend:        strings.ToLower(firstNonEmpty(os.Getenv("STORE_BACKEND"), os.Getenv("DAL"), BackendInMemory)),
			DynamoTable:    getEnv("DYNAMO_TABLE_NAME", ""),
			AWSRegion:      getEnv("AWS_REGION", ""),
			DynamoEndpoint: getEnv("DYNAMO_ENDPOINT", ""),
			DynamoTimeout:  time.Duration(getEnvAsInt("DYNAMO_TIMEOUT_MS", 5000)) * time.Millisecond,
		},
		Otel: OtelConfig{
			Enabled:  getEnvAsBool("OTEL_ENABLED", false),
			Endpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}
