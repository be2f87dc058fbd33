package config

import "time"

// Config holds all configuration for the application.
type Config struct {
	DBName        string
	MigrationsDir string
	Port          string
	Turso         TursoConfig
	Auth          AuthConfig
	Slack         SlackConfig
	Redis         RedisConfig
	ProjectID     string
	PubSubTopic   string
	// PushToken must accompany pushed changes. Empty rejects every push.
	PushToken     string
	Ledger        LedgerConfig
}
type TursoConfig struct {
	PrimaryURL string
	AuthToken  string
}
type AuthConfig struct {
	JWTSecret string
	// APIKey grants read-only access without a session. Empty disables it.
	APIKey string
}
type SlackConfig struct {
	Token         string
	ChannelID     string
	SigningSecret string
}
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}
type LedgerConfig struct {
	ReconcileInterval time.Duration
	MaxAttempts       int
}
