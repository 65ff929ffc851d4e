package config

import (
	"log"
	"os"
	"strconv"
	"strings"
)

// Config holds runtime configuration values.
type Config struct {
	Port        string
	DatabaseURL string
	Auth        AuthConfig
	Media       MediaConfig
	AI          AIConfig
}

// AuthConfig describes session signing and cookie behaviour.
type AuthConfig struct {
	Secret       string
	CookieName   string
	SecureCookie bool
}

// MediaConfig describes S3/media related configuration.
type MediaConfig struct {
	Bucket         string
	Region         string
	Endpoint       string
	PublicURL      string
	KeyPrefix      string
	ForcePathStyle bool
}

// AIConfig selects and configures the image capability backend.
type AIConfig struct {
	Provider       string // "gemini" or "canned"
	GeminiAPIKey   string
	ImageModel     string
	AnalysisModel  string
	TimeoutSeconds int
	Imagen         ImagenConfig
}

// ImagenConfig describes the optional Vertex AI Imagen edit backend.
type ImagenConfig struct {
	ProjectID          string
	Location           string
	Model              string
	APIKey             string
	ServiceAccount     string
	ServiceAccountJSON string
}

// FromEnv loads configuration from environment variables and applies defaults.
func FromEnv() Config {
	cfg := Config{
		Port:        getenv("APP_PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		Auth: AuthConfig{
			Secret:       os.Getenv("AUTH_SECRET"),
			CookieName:   getenv("AUTH_COOKIE_NAME", "xelda_session"),
			SecureCookie: getenvBool("AUTH_SECURE_COOKIE", false),
		},
		Media: MediaConfig{
			Bucket:         os.Getenv("S3_BUCKET"),
			Region:         os.Getenv("S3_REGION"),
			Endpoint:       os.Getenv("S3_ENDPOINT"),
			PublicURL:      os.Getenv("S3_PUBLIC_URL"),
			KeyPrefix:      strings.Trim(os.Getenv("S3_KEY_PREFIX"), "/"),
			ForcePathStyle: getenvBool("S3_FORCE_PATH_STYLE", false),
		},
		AI: AIConfig{
			Provider:       getenv("AI_PROVIDER", "gemini"),
			GeminiAPIKey:   os.Getenv("GEMINI_API_KEY"),
			ImageModel:     getenv("GEMINI_IMAGE_MODEL", "gemini-2.5-flash-image"),
			AnalysisModel:  getenv("GEMINI_ANALYSIS_MODEL", "gemini-2.5-flash"),
			TimeoutSeconds: getenvInt("AI_TIMEOUT_SECONDS", 90),
			Imagen: ImagenConfig{
				ProjectID:          os.Getenv("IMAGEN_PROJECT_ID"),
				Location:           getenv("IMAGEN_LOCATION", "us-central1"),
				Model:              os.Getenv("IMAGEN_MODEL"),
				APIKey:             os.Getenv("IMAGEN_API_KEY"),
				ServiceAccount:     os.Getenv("IMAGEN_SERVICE_ACCOUNT"),
				ServiceAccountJSON: os.Getenv("IMAGEN_SERVICE_ACCOUNT_JSON"),
			},
		},
	}

	if cfg.Port == "" {
		log.Fatal("APP_PORT cannot be empty")
	}

	return cfg
}

func getenv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return fallback
}

func getenvBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}

	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}

	return parsed
}

func getenvInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}

	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}

	return parsed
}
