package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	Mongo        MongoConfig
	JWT          JWTConfig
	Notification NotificationConfig
	CORS         CORSConfig
	Security     SecurityConfig
	Cron         CronConfig

	// FrontendURL is the base of the public emergency page encoded in QR codes
	FrontendURL string
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port        string
	Environment string // development, staging, production
	LogLevel    string // debug, info, warn, error
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	URL                string
	MaxConnections     int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
	ConnectTimeout     time.Duration
}

// MongoConfig holds the optional delivery-log store configuration.
// An empty URI disables the store.
type MongoConfig struct {
	URI      string
	Database string
}

// JWTConfig holds JWT-related configuration
type JWTConfig struct {
	Secret      string
	TokenExpiry time.Duration
}

// NotificationConfig holds SOS channel provider configuration
type NotificationConfig struct {
	Mode           string // "dev" logs messages, "production" sends them
	SMSProvider    string // "twilio" or "dialog"
	AttemptTimeout time.Duration

	TwilioAPIURL       string
	TwilioAccountSID   string
	TwilioAuthToken    string
	TwilioPhoneNumber  string
	TwilioWhatsAppFrom string

	DialogAPIURL   string
	DialogUsername string
	DialogPassword string
	DialogMask     string
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	BcryptCost       int
	EnableRequestLog bool
	EnableAuditLog   bool

	// Failed login throttling
	LoginMaxEmailFailures int
	LoginEmailWindow      time.Duration
	LoginMaxIPFailures    int
	LoginIPWindow         time.Duration
}

// CronConfig holds background job configuration
type CronConfig struct {
	ReconcileSchedule string
	ReconcileAfter    time.Duration
	AuditRetention    time.Duration
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "5000"),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			URL:                getEnv("DATABASE_URL", ""),
			MaxConnections:     getEnvAsInt("DATABASE_MAX_CONNECTIONS", 10),
			MaxIdleConnections: getEnvAsInt("DATABASE_MAX_IDLE_CONNECTIONS", 5),
			ConnMaxLifetime:    time.Duration(getEnvAsInt("DATABASE_CONN_MAX_LIFETIME", 300)) * time.Second,
			ConnectTimeout:     time.Duration(getEnvAsInt("DATABASE_CONNECT_TIMEOUT", 30)) * time.Second,
		},
		Mongo: MongoConfig{
			URI:      getEnv("MONGO_URI", ""),
			Database: getEnv("MONGO_DATABASE", "employee_safety"),
		},
		JWT: JWTConfig{
			Secret:      getEnv("JWT_SECRET", ""),
			TokenExpiry: time.Duration(getEnvAsInt("JWT_EXPIRY_HOURS", 720)) * time.Hour,
		},
		Notification: NotificationConfig{
			Mode:               getEnv("NOTIFY_MODE", "dev"),
			SMSProvider:        getEnv("SMS_PROVIDER", "twilio"),
			AttemptTimeout:     time.Duration(getEnvAsInt("NOTIFY_ATTEMPT_TIMEOUT_SECONDS", 10)) * time.Second,
			TwilioAPIURL:       getEnv("TWILIO_API_URL", "https://api.twilio.com"),
			TwilioAccountSID:   getEnv("TWILIO_ACCOUNT_SID", ""),
			TwilioAuthToken:    getEnv("TWILIO_AUTH_TOKEN", ""),
			TwilioPhoneNumber:  getEnv("TWILIO_PHONE_NUMBER", ""),
			TwilioWhatsAppFrom: getEnv("TWILIO_WHATSAPP_FROM", "+14155238886"),
			DialogAPIURL:       getEnv("DIALOG_SMS_API_URL", "https://e-sms.dialog.lk/api/v2"),
			DialogUsername:     getEnv("DIALOG_SMS_USERNAME", ""),
			DialogPassword:     getEnv("DIALOG_SMS_PASSWORD", ""),
			DialogMask:         getEnv("DIALOG_SMS_MASK", ""),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods: getEnvAsSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
			AllowedHeaders: getEnvAsSlice("CORS_ALLOWED_HEADERS", []string{"Content-Type", "Authorization"}),
		},
		Security: SecurityConfig{
			BcryptCost:       getEnvAsInt("BCRYPT_COST", 10),
			EnableRequestLog: getEnvAsBool("ENABLE_REQUEST_LOGGING", true),
			EnableAuditLog:   getEnvAsBool("ENABLE_AUDIT_LOGGING", true),

			LoginMaxEmailFailures: getEnvAsInt("LOGIN_MAX_EMAIL_FAILURES", 5),
			LoginEmailWindow:      time.Duration(getEnvAsInt("LOGIN_EMAIL_WINDOW_MINUTES", 15)) * time.Minute,
			LoginMaxIPFailures:    getEnvAsInt("LOGIN_MAX_IP_FAILURES", 20),
			LoginIPWindow:         time.Duration(getEnvAsInt("LOGIN_IP_WINDOW_MINUTES", 60)) * time.Minute,
		},
		Cron: CronConfig{
			ReconcileSchedule: getEnv("INCIDENT_RECONCILE_SCHEDULE", "0 */5 * * * *"),
			ReconcileAfter:    time.Duration(getEnvAsInt("INCIDENT_RECONCILE_AFTER_MINUTES", 15)) * time.Minute,
			AuditRetention:    time.Duration(getEnvAsInt("AUDIT_LOG_RETENTION_DAYS", 180)) * 24 * time.Hour,
		},
		FrontendURL: strings.TrimRight(getEnv("FRONTEND_URL", "http://localhost:3000"), "/"),
	}

	// Validate required configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if c.Notification.AttemptTimeout <= 0 {
		return fmt.Errorf("NOTIFY_ATTEMPT_TIMEOUT_SECONDS must be positive")
	}

	// Provider credentials are only checked when messages are actually sent
	if c.Notification.Mode != "production" {
		return nil
	}

	if c.Notification.TwilioAccountSID == "" || c.Notification.TwilioAuthToken == "" {
		return fmt.Errorf("TWILIO_ACCOUNT_SID and TWILIO_AUTH_TOKEN are required in production mode")
	}

	switch c.Notification.SMSProvider {
	case "twilio":
		if c.Notification.TwilioPhoneNumber == "" {
			return fmt.Errorf("TWILIO_PHONE_NUMBER is required for the twilio SMS provider")
		}
	case "dialog":
		if c.Notification.DialogUsername == "" || c.Notification.DialogPassword == "" {
			return fmt.Errorf("DIALOG_SMS_USERNAME and DIALOG_SMS_PASSWORD are required for the dialog SMS provider")
		}
	default:
		return fmt.Errorf("invalid SMS provider: %s (must be 'twilio' or 'dialog')", c.Notification.SMSProvider)
	}

	return nil
}

// Helper functions to get environment variables

func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid integer value for %s, using default: %d", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Invalid boolean value for %s, using default: %t", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var result []string
	for _, v := range strings.Split(valueStr, ",") {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
