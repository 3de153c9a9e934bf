package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DBPath    string
	OutputDir string

	HTTPAddr string
	LogLevel string

	MatchScoreThreshold int
	MatchPhraseBonus    int

	AIBaseURL        string
	AIAPIKey         string
	AIModel          string
	AITemperature    float64
	AITimeoutMs      int
	AIMaxAttempts    int
	AIRequestsPerMin int
	AIFallbackLocal  bool
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		DBPath:    getEnv("DB_PATH", filepath.Join(cwd, "data", "orderdesk.db")),
		OutputDir: getEnv("OUTPUT_DIR", filepath.Join(cwd, "out")),

		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		MatchScoreThreshold: getEnvInt("MATCH_SCORE_THRESHOLD", 1),
		MatchPhraseBonus:    getEnvInt("MATCH_PHRASE_BONUS", 2),

		AIBaseURL:        getEnv("AI_BASE_URL", "https://api.openai.com/v1"),
		AIAPIKey:         getEnv("AI_API_KEY", ""),
		AIModel:          getEnv("AI_MODEL", "gpt-4o-mini"),
		AITemperature:    getEnvFloat("AI_TEMPERATURE", 0),
		AITimeoutMs:      getEnvInt("AI_TIMEOUT_MS", 30000),
		AIMaxAttempts:    getEnvInt("AI_MAX_ATTEMPTS", 3),
		AIRequestsPerMin: getEnvInt("AI_REQUESTS_PER_MIN", 30),
		AIFallbackLocal:  getEnvBool("AI_FALLBACK_LOCAL", true),
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(key, "")))
	if value == "" {
		return fallback
	}
	if value == "1" || value == "true" || value == "yes" || value == "on" {
		return true
	}
	if value == "0" || value == "false" || value == "no" || value == "off" {
		return false
	}
	return fallback
}
