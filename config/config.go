package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort int
	SecretKey  string
	LogLevel   string
	Database   DatabaseConfig
	Session    SessionConfig
}

type DatabaseConfig struct {
	// Path is the location of the SQLite database file.
	Path string
	// BusyTimeout is how long SQLite waits on a locked database, in milliseconds.
	BusyTimeout int
}

type SessionConfig struct {
	CookieName string
	TTL        time.Duration
	Secure     bool
}

// DSN returns the go-sqlite3 connection string for the database file.
// The path is percent-encoded so characters such as '?' and '#' stay part
// of the file name; SQLite decodes them when it opens the URI.
func (c DatabaseConfig) DSN() string {
	path := (&url.URL{Path: c.Path}).EscapedPath()
	return fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=%d", path, c.BusyTimeout)
}

func LoadConfig() Config {
	if os.Getenv("ENV") == "dev" {
		godotenv.Load()
	}

	dbConfig := DatabaseConfig{
		Path:        getEnv("DATABASE", "instance/flaskr.sqlite"),
		BusyTimeout: getEnvInt("DB_BUSY_TIMEOUT_MS", 5000),
	}

	sessionConfig := SessionConfig{
		CookieName: getEnv("SESSION_COOKIE", "session"),
		TTL:        getEnvDuration("SESSION_TTL", 31*24*time.Hour),
		Secure:     getEnvBool("SESSION_SECURE", false),
	}

	return Config{
		ServerPort: getEnvInt("SERVER_PORT", 5000),
		SecretKey:  getEnv("SECRET_KEY", "dev"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		Database:   dbConfig,
		Session:    sessionConfig,
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if valueStr, exists := os.LookupEnv(key); exists {
		var value int
		fmt.Sscanf(valueStr, "%d", &value)
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if valueStr, exists := os.LookupEnv(key); exists {
		value, err := strconv.ParseBool(strings.TrimSpace(valueStr))
		if err != nil {
			return defaultValue
		}
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if valueStr, exists := os.LookupEnv(key); exists {
		value, err := time.ParseDuration(strings.TrimSpace(valueStr))
		if err != nil {
			return defaultValue
		}
		return value
	}
	return defaultValue
}
