package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config — конфигурация клиента.
type Config struct {
	BackendURL string
	Token      string

	// StoreBackend — бэкенд локального хранилища: sqlite, postgres, memory.
	StoreBackend string
	DataDir      string
	PostgresDSN  string

	LogLevel string

	// Пороги эвристики проверки свободного текста (см. пакет grading).
	KeywordThreshold float64
	MinKeywordLen    int
}

// Load читает конфигурацию из переменных окружения.
// .env подхватывается, если есть, его отсутствие — не ошибка.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		BackendURL:       getEnv("QUIZ_BACKEND_URL", "http://localhost:8080"),
		Token:            getEnv("QUIZ_TOKEN", ""),
		StoreBackend:     getEnv("QUIZ_STORE", "sqlite"),
		DataDir:          getEnv("QUIZ_DATA_DIR", "data"),
		PostgresDSN:      getEnv("QUIZ_POSTGRES_DSN", ""),
		LogLevel:         getEnv("QUIZ_LOG_LEVEL", "info"),
		KeywordThreshold: getEnvFloat("QUIZ_KEYWORD_THRESHOLD", 0.60),
		MinKeywordLen:    getEnvInt("QUIZ_MIN_KEYWORD_LEN", 3),
	}
}

func getEnv(key string, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}

	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}

	return f
}
