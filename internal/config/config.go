package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Keys     APIKeys
	Ai       AIConfig
	Analysis AnalysisConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	UploadDir          string
	NatsURL            string // empty disables the external event bus
	RedisURL           string // empty disables cross-instance websocket fan-out
}

type DatabaseConfig struct {
	Connection string // empty runs on the in-memory backend only
}

type APIKeys struct {
	GoogleGemini string
}

type AIConfig struct {
	LLMProvider   string // "gemini" or "ollama"
	LLMModel      string
	OllamaBaseURL string
	RatePerSecond float64
	MockLatency   time.Duration
}

type AnalysisConfig struct {
	RerunPolicy string // "reject" or "replace"
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "8000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log.csv"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
			UploadDir:          getEnv("UPLOAD_DIR", "uploads"),
			NatsURL:            getEnv("NATS_URL", ""),
			RedisURL:           getEnv("REDIS_URL", ""),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Keys: APIKeys{
			GoogleGemini: getEnv("GOOGLE_GEMINI_API_KEY", ""),
		},
		Ai: AIConfig{
			LLMProvider:   getEnv("LLM_PROVIDER", "gemini"),
			LLMModel:      getEnv("LLM_MODEL", ""),
			OllamaBaseURL: getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			RatePerSecond: getEnvAsFloat("LLM_RATE_PER_SECOND", 2),
			MockLatency:   time.Duration(getEnvAsInt("MOCK_LATENCY_MS", 2000)) * time.Millisecond,
		},
		Analysis: AnalysisConfig{
			RerunPolicy: getEnv("ANALYSIS_RERUN_POLICY", "reject"),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}
