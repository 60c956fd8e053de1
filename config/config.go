package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Token     TokenConfig
	Mail      MailConfig
	OAuth2    OAuth2Config
	FCM       FCMConfig
	RateLimit RateLimitConfig
	Cleanup   CleanupConfig
}

type AppConfig struct {
	Name        string
	Environment string
	Debug       bool
	Timeout     time.Duration
	Port        string
	BaseURL     string
	FrontendURL string
}

type DatabaseConfig struct {
	Host            string
	Port            int
	Name            string
	User            string
	Password        string
	SSLMode         string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

type RedisConfig struct {
	Host         string
	Port         int
	Password     string
	Database     int
	Enabled      bool
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type JWTConfig struct {
	Secret    string
	AccessTTL time.Duration
}

// TokenConfig holds lifetimes for the opaque tokens the service hands out:
// refresh tokens plus the single-use email verification and password reset
// tokens embedded on the user row.
type TokenConfig struct {
	RefreshTTL      time.Duration
	VerificationTTL time.Duration
	ResetTTL        time.Duration
}

type MailConfig struct {
	Enabled     bool
	Domain      string
	APIKey      string
	APIBase     string
	Sender      string
	SenderName  string
	SendTimeout time.Duration
}

type OAuth2Config struct {
	Google   OAuth2Provider
	GitHub   OAuth2Provider
	Facebook OAuth2Provider
}

type OAuth2Provider struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

type FCMConfig struct {
	Enabled         bool
	ProjectID       string
	CredentialsPath string
}

type RateLimitConfig struct {
	Request  int
	Duration int
}

type CleanupConfig struct {
	TokenSweepInterval time.Duration
	FCMSweepInterval   time.Duration
	FCMStaleAfter      time.Duration
}

func LoadConfig() (*Config, error) {
	// Missing .env is fine, real deployments use the environment directly
	_ = godotenv.Load()

	config := &Config{
		App: AppConfig{
			Name:        getEnv("APP_NAME", "auth-service"),
			Environment: getEnv("APP_ENV", "development"),
			Port:        getEnv("APP_PORT", "8080"),
			Debug:       getEnvAsBool("APP_DEBUG", true),
			Timeout:     getEnvAsDuration("APP_TIMEOUT", 30*time.Second),
			BaseURL:     getEnv("APP_BASE_URL", "http://localhost:8080"),
			FrontendURL: getEnv("APP_FRONTEND_URL", "http://localhost:3000"),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvAsInt("DB_PORT", 5432),
			Name:            getEnv("DB_NAME", "auth_db"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 100),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", time.Hour),
			ConnMaxIdleTime: getEnvAsDuration("DB_CONN_MAX_IDLE_TIME", 10*time.Minute),
		},
		Redis: RedisConfig{
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnvAsInt("REDIS_PORT", 6379),
			Password:     getEnv("REDIS_PASSWORD", ""),
			Database:     getEnvAsInt("REDIS_DB", 0),
			Enabled:      getEnvAsBool("REDIS_ENABLED", true),
			PoolSize:     getEnvAsInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvAsInt("REDIS_MIN_IDLE_CONNS", 5),
			DialTimeout:  getEnvAsDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getEnvAsDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getEnvAsDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		JWT: JWTConfig{
			Secret:    getEnv("JWT_SECRET", "default_secret_key_change_in_production"),
			AccessTTL: getEnvAsDuration("JWT_ACCESS_TTL", 15*time.Minute),
		},
		Token: TokenConfig{
			RefreshTTL:      getEnvAsDuration("TOKEN_REFRESH_TTL", 7*24*time.Hour),
			VerificationTTL: getEnvAsDuration("TOKEN_VERIFICATION_TTL", 24*time.Hour),
			ResetTTL:        getEnvAsDuration("TOKEN_RESET_TTL", time.Hour),
		},
		Mail: MailConfig{
			Enabled:     getEnvAsBool("MAIL_ENABLED", false),
			Domain:      getEnv("MAILGUN_DOMAIN", ""),
			APIKey:      getEnv("MAILGUN_API_KEY", ""),
			APIBase:     getEnv("MAILGUN_API_BASE", "https://api.mailgun.net/v3"),
			Sender:      getEnv("MAIL_SENDER", "no-reply@localhost"),
			SenderName:  getEnv("MAIL_SENDER_NAME", "Auth Service"),
			SendTimeout: getEnvAsDuration("MAIL_SEND_TIMEOUT", 10*time.Second),
		},
		OAuth2: OAuth2Config{
			Google: OAuth2Provider{
				ClientID:     getEnv("OAUTH2_GOOGLE_CLIENT_ID", ""),
				ClientSecret: getEnv("OAUTH2_GOOGLE_CLIENT_SECRET", ""),
				RedirectURL:  getEnv("OAUTH2_GOOGLE_REDIRECT_URL", ""),
			},
			GitHub: OAuth2Provider{
				ClientID:     getEnv("OAUTH2_GITHUB_CLIENT_ID", ""),
				ClientSecret: getEnv("OAUTH2_GITHUB_CLIENT_SECRET", ""),
				RedirectURL:  getEnv("OAUTH2_GITHUB_REDIRECT_URL", ""),
			},
			Facebook: OAuth2Provider{
				ClientID:     getEnv("OAUTH2_FACEBOOK_CLIENT_ID", ""),
				ClientSecret: getEnv("OAUTH2_FACEBOOK_CLIENT_SECRET", ""),
				RedirectURL:  getEnv("OAUTH2_FACEBOOK_REDIRECT_URL", ""),
			},
		},
		FCM: FCMConfig{
			Enabled:         getEnvAsBool("FCM_ENABLED", false),
			ProjectID:       getEnv("FCM_PROJECT_ID", ""),
			CredentialsPath: getEnv("FCM_CREDENTIALS_PATH", ""),
		},
		RateLimit: RateLimitConfig{
			Request:  getEnvAsInt("RATE_LIMIT_MAX_REQUEST", 10),
			Duration: getEnvAsInt("RATE_LIMIT_DURATION", 60),
		},
		Cleanup: CleanupConfig{
			TokenSweepInterval: getEnvAsDuration("CLEANUP_TOKEN_SWEEP_INTERVAL", 24*time.Hour),
			FCMSweepInterval:   getEnvAsDuration("CLEANUP_FCM_SWEEP_INTERVAL", 24*time.Hour),
			FCMStaleAfter:      getEnvAsDuration("CLEANUP_FCM_STALE_AFTER", 30*24*time.Hour),
		},
	}

	return config, nil
}

func (c *Config) DatabaseConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

func (c *Config) RedisAddress() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
