package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server  ServerConfig
	Auth    AuthConfig
	Storage StorageConfig
	Redis   RedisConfig
	Kafka   KafkaConfig
	Scanner ScannerConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type AuthConfig struct {
	JWTSecret       string
	TokenTTL        time.Duration
	AdminUser       string
	AdminPassword   string
	ScannerUser     string
	ScannerPassword string
}

type StorageConfig struct {
	SQLitePath string
	UploadDir  string
	ExportDir  string
	// LockTimeout bounds how long a scan waits for exclusive ledger access
	// before it is reported back as retryable.
	LockTimeout time.Duration
}

type RedisConfig struct {
	Addr    string
	Enabled bool
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
	Enabled bool
}

type ScannerConfig struct {
	// HeartbeatTTL is how long a scanner stays "online" after its last
	// heartbeat before it is reported offline.
	HeartbeatTTL time.Duration
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", ":8080"),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Auth: AuthConfig{
			JWTSecret:       getEnv("JWT_SECRET", "ticket-manager-dev-secret"),
			TokenTTL:        time.Duration(getEnvInt("TOKEN_TTL_HOURS", 12)) * time.Hour,
			AdminUser:       getEnv("ADMIN_USERNAME", "admin"),
			AdminPassword:   getEnv("ADMIN_PASSWORD", "admin"),
			ScannerUser:     getEnv("SCANNER_USERNAME", "scanner"),
			ScannerPassword: getEnv("SCANNER_PASSWORD", "scanner"),
		},
		Storage: StorageConfig{
			SQLitePath:  getEnv("LEDGER_DB_PATH", "data/ledger.db"),
			UploadDir:   getEnv("UPLOAD_DIR", "uploads"),
			ExportDir:   getEnv("EXPORT_DIR", "exports"),
			LockTimeout: time.Duration(getEnvInt("LEDGER_LOCK_TIMEOUT_SECONDS", 5)) * time.Second,
		},
		Redis: RedisConfig{
			Addr:    getEnv("REDIS_ADDR", "localhost:6379"),
			Enabled: getEnvBool("REDIS_ENABLED", false),
		},
		Kafka: KafkaConfig{
			Brokers: []string{getEnv("KAFKA_BROKERS", "localhost:9092")},
			Topic:   getEnv("KAFKA_TOPIC_SCANS", "ticket-manager.scans"),
			Enabled: getEnvBool("KAFKA_ENABLED", false),
		},
		Scanner: ScannerConfig{
			HeartbeatTTL: time.Duration(getEnvInt("SCANNER_HEARTBEAT_TTL_SECONDS", 60)) * time.Second,
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
