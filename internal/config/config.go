package config

import (
	"os"
	"strconv"
)

type Config struct {
	Env  string
	Port string

	// Ada conversations API
	AdaBaseURL     string
	AdaAPIKey      string
	AdaChannelID   string
	AdaInsecureTLS bool

	// Webhook signing secret (svix, "whsec_...")
	WebhookSecret string

	// Secret for the signed browser identity cookie
	SessionSecret string

	// Optional transcript archive. Empty = in-memory only.
	DatabaseURL       string
	ChatRetentionDays int

	// Zendesk ticket creation on conversation end
	ZendeskEnabled   bool
	ZendeskSubdomain string
	ZendeskEmail     string
	ZendeskAPIToken  string
	ZendeskTag       string
	ZendeskPriority  string
	ZendeskType      string

	// Discord ops notifications
	DiscordWebhookOps string
}

func Load() *Config {
	return &Config{
		Env:  getEnv("ENV", "development"),
		Port: getEnv("PORT", "8080"),

		AdaBaseURL:     getEnv("ADA_BASE_URL", ""),
		AdaAPIKey:      getEnv("ADA_API_KEY", ""),
		AdaChannelID:   getEnv("ADA_CHANNEL_ID", ""),
		AdaInsecureTLS: getEnvBool("ADA_INSECURE_TLS", false),

		WebhookSecret: getEnv("WEBHOOK_SECRET", ""),
		SessionSecret: getEnv("SESSION_SECRET", "dev-session-secret-not-for-production-use"),

		DatabaseURL:       getEnv("DATABASE_URL", ""),
		ChatRetentionDays: getEnvInt("CHAT_RETENTION_DAYS", 30),

		ZendeskEnabled:   getEnvBool("ZENDESK_AUTO_TICKET_ENABLED", false),
		ZendeskSubdomain: getEnv("ZENDESK_SUBDOMAIN", ""),
		ZendeskEmail:     getEnv("ZENDESK_EMAIL", ""),
		ZendeskAPIToken:  getEnv("ZENDESK_API_TOKEN", ""),
		ZendeskTag:       getEnv("ZENDESK_AUTO_TICKET_TAG", "ada-bot-conversation"),
		ZendeskPriority:  getEnv("ZENDESK_TICKET_PRIORITY", "normal"),
		ZendeskType:      getEnv("ZENDESK_TICKET_TYPE", "question"),

		DiscordWebhookOps: getEnv("DISCORD_WEBHOOK_OPS", ""),
	}
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// ArchiveEnabled reports whether transcripts should be written through to Postgres.
func (c *Config) ArchiveEnabled() bool {
	return c.DatabaseURL != ""
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "1" || v == "true" || v == "TRUE"
	}
	return fallback
}
