package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment  string
	HTTPPort     string
	DatabaseURL  string
	LogLevel     string
	JWTSecret    string
	GeminiAPIKey string
	GeminiModel  string

	RAGRetrieveURL    string
	RAGChatbotDevURL  string
	RAGChatbotProdURL string

	CORSAllowedOrigins []string
	MaxUploadBytes     int64

	AdminUsername string
	AdminEmail    string
	AdminPassword string
}

// Load reads .env (if any) and the process environment. The returned Config
// is the only place process-wide settings live; it is passed to whatever
// needs it.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	cfg := &Config{
		Environment:  getEnv("APP_ENV", "production"),
		HTTPPort:     getEnv("HTTP_PORT", "3001"),
		DatabaseURL:  getEnv("DATABASE_URL", "knsystem.db"),
		LogLevel:     getEnv("LOG_LEVEL", "INFO"),
		JWTSecret:    getEnv("JWT_SECRET", ""),
		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.0-flash"),

		RAGRetrieveURL:    getEnv("RAG_API_URL", "http://localhost:8686/rag/retrieve/"),
		RAGChatbotDevURL:  getEnv("RAG_CHATBOT_DEV_URL", "http://localhost:8686/rag/chatbot/"),
		RAGChatbotProdURL: getEnv("RAG_CHATBOT_PROD_URL", "http://localhost:8687/rag/chatbot/"),

		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000")),
		MaxUploadBytes:     int64(getEnvAsInt("MAX_UPLOAD_MB", 10)) << 20,

		AdminUsername: getEnv("ADMIN_USERNAME", "admin"),
		AdminEmail:    getEnv("ADMIN_EMAIL", "admin@example.com"),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),
	}

	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET environment variable is required")
	}
	return cfg, nil
}

// IsDevelopment reports whether error details may be echoed to clients.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Environment, "development")
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil && value > 0 {
		return value
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
