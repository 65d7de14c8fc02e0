package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Ai       AIConfig
	Health   HealthConfig
	Weather  WeatherConfig
	Rag      RagConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
}

type DatabaseConfig struct {
	Connection string
}

type AIConfig struct {
	OllamaBaseURL    string
	LLMModel         string
	ModelTemperature float64
	EmbeddingModel   string
}

// HealthConfig holds the vitals classification thresholds. Pipeline stages read
// these instead of hardcoding ranges per call.
type HealthConfig struct {
	HeartRateMin      float64
	HeartRateMax      float64
	SleepOptimalMin   float64
	SleepOptimalMax   float64
	ActivityThreshold int
}

type WeatherConfig struct {
	BaseURL          string
	Timezone         string
	TimeoutSeconds   int
	DefaultLatitude  float64
	DefaultLongitude float64
}

type RagConfig struct {
	IndexBackend string // "local" or "postgres"
	IndexPath    string
	ChunkSize    int
	ChunkOverlap int
	SimilarityK  int
	IngestTopic  string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Ai: AIConfig{
			OllamaBaseURL:    getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			LLMModel:         getEnv("LLM_MODEL", "qwen3:4b"),
			ModelTemperature: getEnvAsFloat("MODEL_TEMPERATURE", 0.2),
			EmbeddingModel:   getEnv("EMBEDDING_MODEL", "nomic-embed-text"),
		},
		Health: HealthConfig{
			HeartRateMin:      getEnvAsFloat("HEART_RATE_MIN", 60),
			HeartRateMax:      getEnvAsFloat("HEART_RATE_MAX", 100),
			SleepOptimalMin:   getEnvAsFloat("SLEEP_OPTIMAL_MIN", 7),
			SleepOptimalMax:   getEnvAsFloat("SLEEP_OPTIMAL_MAX", 9),
			ActivityThreshold: getEnvAsInt("ACTIVITY_THRESHOLD", 10000),
		},
		Weather: WeatherConfig{
			BaseURL:          getEnv("WEATHER_BASE_URL", "https://api.open-meteo.com"),
			Timezone:         getEnv("WEATHER_TIMEZONE", "America/Los_Angeles"),
			TimeoutSeconds:   getEnvAsInt("WEATHER_TIMEOUT_SECONDS", 10),
			DefaultLatitude:  getEnvAsFloat("DEFAULT_LATITUDE", 36.1699),
			DefaultLongitude: getEnvAsFloat("DEFAULT_LONGITUDE", -115.1398),
		},
		Rag: RagConfig{
			IndexBackend: getEnv("INDEX_BACKEND", "local"),
			IndexPath:    getEnv("INDEX_PATH", "health_index.json"),
			ChunkSize:    getEnvAsInt("CHUNK_SIZE", 1000),
			ChunkOverlap: getEnvAsInt("CHUNK_OVERLAP", 100),
			SimilarityK:  getEnvAsInt("SIMILARITY_SEARCH_K", 3),
			IngestTopic:  getEnv("INGEST_DOCUMENT_TOPIC_NAME", "INGEST_HEALTH_DOCUMENT"),
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
