package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port               string
	Env                string
	PublicBaseURL      string
	LogLevel           string
	CORSAllowedOrigins []string

	// Lead submission gateway
	LeadGateway       string
	LeadRelayURL      string
	LeadRecipient     string
	LeadRelayTimeout  time.Duration
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string
	SESFromEmail      string

	// AWS (SES relay)
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	// Lead archive + form throttling
	DatabaseURL            string
	RedisAddr              string
	RedisPassword          string
	RedisTLS               bool
	FormRateLimitPerMinute int
	AdminJWTSecret         string

	// Chat widget behaviour
	ChatPacing             bool
	ChatOptimisticAck      bool
	ChatSessionIdleTimeout time.Duration
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "8080"),
		Env:                getEnv("ENV", "development"),
		PublicBaseURL:      getEnv("PUBLIC_BASE_URL", ""),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", nil),

		LeadGateway:       strings.ToLower(strings.TrimSpace(getEnv("LEAD_GATEWAY", "formrelay"))),
		LeadRelayURL:      getEnv("LEAD_RELAY_URL", "https://formsubmit.co/ajax"),
		LeadRecipient:     getEnv("LEAD_RECIPIENT", ""),
		LeadRelayTimeout:  getEnvAsDuration("LEAD_RELAY_TIMEOUT", 15*time.Second),
		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "OptimumSoft Website"),
		SESFromEmail:      getEnv("SES_FROM_EMAIL", ""),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		DatabaseURL:            getEnv("DATABASE_URL", ""),
		RedisAddr:              getEnv("REDIS_ADDR", ""),
		RedisPassword:          getEnv("REDIS_PASSWORD", ""),
		RedisTLS:               getEnvAsBool("REDIS_TLS", false),
		FormRateLimitPerMinute: getEnvAsInt("FORM_RATE_LIMIT_PER_MINUTE", 10),
		AdminJWTSecret:         getEnv("ADMIN_JWT_SECRET", ""),

		ChatPacing:             getEnvAsBool("CHAT_PACING", true),
		ChatOptimisticAck:      getEnvAsBool("CHAT_OPTIMISTIC_ACK", false),
		ChatSessionIdleTimeout: getEnvAsDuration("CHAT_SESSION_IDLE_TIMEOUT", 30*time.Minute),
	}
}

// IsProduction reports whether ENV names a production deployment.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production") || strings.EqualFold(c.Env, "prod")
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma separated variable, dropping blank items.
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(valueStr, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
