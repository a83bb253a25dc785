// Package config loads and validates environment variables at startup.
// Integrations with missing credentials are left disabled instead of failing.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/robfig/cron/v3"

	// Load .env file to environments
	_ "github.com/joho/godotenv/autoload"
)

// AI provider names
const (
	AIProviderOpenAI = "openai"
	AIProviderVertex = "vertex"
	AIProviderNone   = "none"
)

// Config holds all runtime configuration of the API server and worker.
type Config struct {
	Port               string
	SecretKey          string
	AllowOrigins       []string
	LogLevel           string
	LogFormat          string
	AuthLogEnabled     bool
	AuthLogFile        string
	RateLimitPerSecond uint
	BypassVerification bool

	RedisURL    string
	RabbitMQURL string
	GCSBucket   string

	Google GoogleConfig
	AI     AIConfig
	Email  EmailConfig

	WhatsAppAPIURL  string
	WhatsAppToken   string
	WhatsAppPhoneID string

	YouTubeAPIKey string
	GeoAPIURL     string
	PDFRenderURL  string

	Payment PaymentConfig

	// QuotaResetSpec only schedules the sweep that moves stale counters into the current
	// billing period. Periods are calendar months whatever the schedule is.
	QuotaResetSpec string
	AdminUsername  string
	AdminPassword  string
}

// GoogleConfig is OAuth client of google login
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// AIConfig select and configure text generation backend
type AIConfig struct {
	Provider       string
	OpenAIKey      string
	OpenAIModel    string
	OpenAIBaseURL  string
	VertexProject  string
	VertexLocation string
	VertexModel    string
}

// EmailConfig is transactional email API
type EmailConfig struct {
	APIURL       string
	APIKey       string
	From         string
	ContactInbox string
}

// PaymentConfig is Razorpay compatible payment gateway
type PaymentConfig struct {
	APIURL    string
	KeyID     string
	KeySecret string
	Currency  string
}

// Enabled tell whether gateway has credentials
func (p PaymentConfig) Enabled() bool {
	return p.APIURL != "" && p.KeyID != "" && p.KeySecret != ""
}

// Load reads environment variables and returns a validated Config.
func Load() (*Config, error) {
	rate, err := uintEnv("RATE_LIMIT_REQUESTS_PER_SECOND", 5)
	if err != nil {
		return nil, err
	}
	authLog, err := boolEnv("LOGGING", false)
	if err != nil {
		return nil, err
	}
	bypass, err := boolEnv("BYPASS_VERIFICATION", false)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:               env("PORT", "8080"),
		SecretKey:          os.Getenv("SECRET_KEY"),
		AllowOrigins:       splitList(env("ALLOW_ORIGIN", "*")),
		LogLevel:           env("LOG_LEVEL", "info"),
		LogFormat:          env("LOG_FORMAT", "text"),
		AuthLogEnabled:     authLog,
		AuthLogFile:        env("AUTH_LOG_FILE", "log/auth.log"),
		RateLimitPerSecond: rate,
		BypassVerification: bypass,

		RedisURL:    os.Getenv("REDIS_URL"),
		RabbitMQURL: os.Getenv("RABBITMQ_URL"),
		GCSBucket:   os.Getenv("GCS_BUCKET"),

		Google: GoogleConfig{
			ClientID:     os.Getenv("GOOGLE_AUTH_CLIENT"),
			ClientSecret: os.Getenv("GOOGLE_AUTH_SECRET"),
			RedirectURL:  env("OAUTH_REDIRECT_URL", "postmessage"),
		},
		AI: AIConfig{
			Provider:       strings.ToLower(env("AI_PROVIDER", AIProviderOpenAI)),
			OpenAIKey:      os.Getenv("OPENAI_API_KEY"),
			OpenAIModel:    env("OPENAI_MODEL", "gpt-4o-mini"),
			OpenAIBaseURL:  env("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			VertexProject:  os.Getenv("VERTEX_PROJECT"),
			VertexLocation: env("VERTEX_LOCATION", "us-central1"),
			VertexModel:    env("VERTEX_MODEL", "gemini-1.5-flash"),
		},
		Email: EmailConfig{
			APIURL:       os.Getenv("EMAIL_API_URL"),
			APIKey:       os.Getenv("EMAIL_API_KEY"),
			From:         env("EMAIL_FROM", "no-reply@talentpool.local"),
			ContactInbox: os.Getenv("CONTACT_INBOX"),
		},

		WhatsAppAPIURL:  env("WHATSAPP_API_URL", "https://graph.facebook.com/v19.0"),
		WhatsAppToken:   os.Getenv("WHATSAPP_TOKEN"),
		WhatsAppPhoneID: os.Getenv("WHATSAPP_PHONE_ID"),

		YouTubeAPIKey: os.Getenv("YOUTUBE_API_KEY"),
		GeoAPIURL:     os.Getenv("GEO_API_URL"),
		PDFRenderURL:  os.Getenv("PDF_RENDER_URL"),

		Payment: PaymentConfig{
			APIURL:    env("PAYMENT_API_URL", "https://api.razorpay.com/v1"),
			KeyID:     os.Getenv("PAYMENT_KEY_ID"),
			KeySecret: os.Getenv("PAYMENT_KEY_SECRET"),
			Currency:  env("PAYMENT_CURRENCY", "INR"),
		},

		QuotaResetSpec: env("QUOTA_RESET_SPEC", "@monthly"),
		AdminUsername:  os.Getenv("ADMIN_USERNAME"),
		AdminPassword:  os.Getenv("ADMIN_PASSWORD"),
	}

	if cfg.SecretKey == "" {
		return nil, fmt.Errorf("SECRET_KEY is required")
	}

	if _, err := cron.ParseStandard(cfg.QuotaResetSpec); err != nil {
		return nil, fmt.Errorf("QUOTA_RESET_SPEC is not a valid cron schedule: %w", err)
	}

	switch cfg.AI.Provider {
	case AIProviderOpenAI, AIProviderVertex, AIProviderNone:
	default:
		return nil, fmt.Errorf("AI_PROVIDER must be one of openai, vertex, none: got %q", cfg.AI.Provider)
	}

	return cfg, nil
}

func env(key string, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func boolEnv(key string, def bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean: %w", key, err)
	}
	return v, nil
}

func uintEnv(key string, def uint) (uint, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	if v <= 0 {
		return def, nil
	}
	return uint(v), nil
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
