package config

import (
	"log"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	DatabaseURL       string `mapstructure:"DATABASE_URL"`
	Env               string `mapstructure:"ENV"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`

	// Redis configuration.
	RedisAddr        string `mapstructure:"REDIS_ADDR"`
	RedisPassword    string `mapstructure:"REDIS_PASSWORD"`
	RedisCacheDB     int    `mapstructure:"REDIS_CACHE_DB"`
	RedisMailQueueDB int    `mapstructure:"REDIS_MAIL_QUEUE_DB"`

	// Booking coordination.
	BookIntervalMs          int    `mapstructure:"BOOK_INTERVAL_MS"`
	PriorityUsersEmails     string `mapstructure:"PRIORITY_USERS_EMAILS"`
	BookingWhitelistEmails  string `mapstructure:"BOOKING_WHITELIST_EMAILS"`

	// Web push (VAPID).
	VapidPublicKey  string `mapstructure:"VAPID_PUBLIC_KEY"`
	VapidPrivateKey string `mapstructure:"VAPID_PRIVATE_KEY"`
	VapidClaimEmail string `mapstructure:"VAPID_CLAIM_EMAIL"`

	// Mail transport.
	EmailSender   string `mapstructure:"EMAIL_SENDER"`
	EmailUser     string `mapstructure:"EMAIL_USER"`
	EmailPassword string `mapstructure:"EMAIL_PASSWORD"`
	EmailHost     string `mapstructure:"EMAIL_HOST"`
	EmailPort     int    `mapstructure:"EMAIL_PORT"`
	WodbookerHost string `mapstructure:"WODBOOKER_HOST"`
}

var AppConfig Config

func LoadConfig() {
	// .env is optional; real deployments configure via the environment.
	_ = godotenv.Load()

	// Look for a config file named "config.yaml" in the current and "config" directory.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	// Automatically use environment variables where available.
	viper.AutomaticEnv()

	// Set default values.
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("MAX_REQUESTS_PER_MIN", 100)
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_CACHE_DB", 0)
	viper.SetDefault("REDIS_MAIL_QUEUE_DB", 3)
	viper.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	viper.SetDefault("BOOK_INTERVAL_MS", 500)
	viper.SetDefault("PRIORITY_USERS_EMAILS", "")
	viper.SetDefault("BOOKING_WHITELIST_EMAILS", "")
	viper.SetDefault("VAPID_CLAIM_EMAIL", "mailto:admin@example.com")
	viper.SetDefault("EMAIL_HOST", "email-smtp.eu-west-1.amazonaws.com")
	viper.SetDefault("EMAIL_PORT", 587)
	viper.SetDefault("WODBOOKER_HOST", "localhost:8080")

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}

// PriorityUsers returns the set of emails exempt from the pre-book delay.
func PriorityUsers() map[string]bool {
	return splitEmailSet(AppConfig.PriorityUsersEmails)
}

// BookingWhitelist returns the set of emails allowed to run workers.
// An empty set means every user is allowed.
func BookingWhitelist() map[string]bool {
	return splitEmailSet(AppConfig.BookingWhitelistEmails)
}

func splitEmailSet(raw string) map[string]bool {
	set := make(map[string]bool)
	for _, email := range strings.Fields(raw) {
		set[strings.ToLower(email)] = true
	}
	return set
}
