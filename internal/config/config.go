package config

import (
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	ServerPort   string
	DatabaseType string
	DatabaseURL  string
	DatabasePath string

	SessionDuration    time.Duration
	KidSessionDuration time.Duration
	KidSessionSecret   string

	CORSAllowedOrigins []string
	LogLevel           string
	LogFormat          string

	// Email (Amazon SES). An empty SESFromEmail disables sending.
	AWSRegion    string
	SESFromEmail string
	SESFromName  string
	AppBaseURL   string
	EmailDebug   bool

	GoogleClientID       string
	GoogleClientSecret   string
	OAuthRedirectBaseURL string

	Moons MoonRules
}

// MoonRules controls how many moons each activity grants
type MoonRules struct {
	PerActivity         int
	Journal             int
	DailyBonus          int
	DailyBonusThreshold int
	ShopRefundOnFailure bool
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file in the working directory is loaded first when present.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env file", "error", err)
	}

	return &Config{
		ServerPort:   getEnv("PORT", "8080"),
		DatabaseType: getEnv("DATABASE_TYPE", "sqlite"),
		DatabaseURL:  getEnv("DATABASE_URL", ""),
		DatabasePath: getEnv("DB_PATH", "./lunara.db"),

		SessionDuration:    getDuration("SESSION_DURATION", 24*time.Hour),
		KidSessionDuration: getDuration("KID_SESSION_DURATION", 12*time.Hour),
		KidSessionSecret:   kidSessionSecret(),

		CORSAllowedOrigins: getList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000", "http://localhost:8080"}),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFormat:          getEnv("LOG_FORMAT", "text"),

		AWSRegion:    getEnv("AWS_REGION", "us-east-1"),
		SESFromEmail: getEnv("SES_FROM_EMAIL", ""),
		SESFromName:  getEnv("SES_FROM_NAME", "Lunara Quest"),
		AppBaseURL:   getEnv("APP_BASE_URL", "http://localhost:8080"),
		EmailDebug:   getBool("EMAIL_DEBUG", false),

		GoogleClientID:       getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret:   getEnv("GOOGLE_CLIENT_SECRET", ""),
		OAuthRedirectBaseURL: getEnv("OAUTH_REDIRECT_BASE_URL", "http://localhost:8080"),

		Moons: MoonRules{
			PerActivity:         getInt("MOONS_PER_ACTIVITY", 1),
			Journal:             getInt("JOURNAL_MOONS", 1),
			DailyBonus:          getInt("DAILY_BONUS_MOONS", 2),
			DailyBonusThreshold: getInt("DAILY_BONUS_THRESHOLD", 3),
			ShopRefundOnFailure: getBool("SHOP_REFUND_ON_FAILURE", true),
		},
	}
}

// DefaultMoonRules returns the rules used when nothing is configured
func DefaultMoonRules() MoonRules {
	return MoonRules{
		PerActivity:         1,
		Journal:             1,
		DailyBonus:          2,
		DailyBonusThreshold: 3,
		ShopRefundOnFailure: true,
	}
}

// kidSessionSecret returns KID_SESSION_SECRET, or a random secret for this
// process when it is unset. Kid sessions then end when the process restarts.
func kidSessionSecret() string {
	if secret := os.Getenv("KID_SESSION_SECRET"); secret != "" {
		return secret
	}
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic("config: failed to generate kid session secret: " + err.Error())
	}
	slog.Warn("KID_SESSION_SECRET not set, using a random secret; kid sessions will not survive a restart")
	return hex.EncodeToString(buf)
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		slog.Warn("invalid integer in environment, using default", "key", key, "value", value)
		return defaultValue
	}
	return n
}

func getBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		slog.Warn("invalid boolean in environment, using default", "key", key, "value", value)
		return defaultValue
	}
	return b
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		slog.Warn("invalid duration in environment, using default", "key", key, "value", value)
		return defaultValue
	}
	return d
}

// getList splits a comma separated variable, dropping blanks
func getList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
