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
	StreamLogFilePath  string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	JwtSecret          string
}

type DatabaseConfig struct {
	Connection string
}

type APIKeys struct {
	HuggingFace string
}

type AIConfig struct {
	LLMProvider   string // "ollama" or "huggingface"
	LLMModel      string
	OllamaBaseURL string
	LLMBaseURL    string // override for the huggingface router
}

type AnalysisConfig struct {
	FastTimeout            time.Duration
	FastStragglerGrace     time.Duration // negative waits for every fast worker
	ResearchTimeout        time.Duration
	ResearchStragglerGrace time.Duration // 0 discards research stragglers at the timeout
	MaxFastWorkers         int
	MaxResearchWorkers     int
	SessionGrace           time.Duration
	ReAnchorThreshold      float64
	MaxSentenceWords       int
	SnapshotStore          string // "memory" or "redis"
	SnapshotTTL            time.Duration
	StreamTopic            string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			StreamLogFilePath:  getEnv("STREAM_LOG_FILE_PATH", "logs/stream.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			JwtSecret:          getEnv("JWT_SECRET", ""),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Keys: APIKeys{
			HuggingFace: getEnv("HUGGINGFACE_API_KEY", ""),
		},
		Ai: AIConfig{
			LLMProvider:   getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:      getEnv("LLM_MODEL", "llama3"),
			OllamaBaseURL: getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			LLMBaseURL:    getEnv("LLM_BASE_URL", ""),
		},
		Analysis: AnalysisConfig{
			FastTimeout:            getEnvAsDuration("ANALYSIS_FAST_TIMEOUT", 3*time.Second),
			FastStragglerGrace:     getEnvAsDuration("ANALYSIS_FAST_STRAGGLER_GRACE", -1),
			ResearchTimeout:        getEnvAsDuration("ANALYSIS_RESEARCH_TIMEOUT", 60*time.Second),
			ResearchStragglerGrace: getEnvAsDuration("ANALYSIS_RESEARCH_STRAGGLER_GRACE", 0),
			MaxFastWorkers:         getEnvAsInt("ANALYSIS_MAX_FAST_WORKERS", 3),
			MaxResearchWorkers:     getEnvAsInt("ANALYSIS_MAX_RESEARCH_WORKERS", 2),
			SessionGrace:           getEnvAsDuration("ANALYSIS_SESSION_GRACE", 5*time.Second),
			ReAnchorThreshold:      getEnvAsFloat("ANALYSIS_REANCHOR_THRESHOLD", 0.8),
			MaxSentenceWords:       getEnvAsInt("ANALYSIS_MAX_SENTENCE_WORDS", 35),
			SnapshotStore:          getEnv("ANALYSIS_SNAPSHOT_STORE", "memory"),
			SnapshotTTL:            getEnvAsDuration("ANALYSIS_SNAPSHOT_TTL", 24*time.Hour),
			StreamTopic:            getEnv("ANALYSIS_STREAM_TOPIC", "ANALYSIS_STREAM"),
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

// getEnvAsDuration accepts Go durations ("1500ms", "3s") or plain milliseconds.
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if strValue == "" {
		return fallback
	}
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	if ms, err := strconv.Atoi(strValue); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return fallback
}
