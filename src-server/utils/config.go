package utils

import (
	"log/slog"
	"os"
	"time"
)

type Config struct {
	port       string
	sqlitePath string

	sessionExpire time.Duration
	location      *time.Location
	devMode       bool

	metricCollectionInterval time.Duration
}

func NewConfig() *Config {
	return &Config{
		port: func() string {
			port := os.Getenv("PORT")
			if port == "" {
				port = "8080"
			}
			slog.Debug("env", "PORT", port)
			return port
		}(),
		sqlitePath: func() string {
			sqlitePath := os.Getenv("SQLITE_PATH")
			if sqlitePath == "" {
				sqlitePath = "./sqlite.db"
			}
			slog.Debug("env", "SQLITE_PATH", sqlitePath)
			return sqlitePath
		}(),

		sessionExpire: func() time.Duration {
			sessionExpire := os.Getenv("SESSION_EXPIRE")
			if sessionExpire == "" {
				slog.Warn("SESSION_EXPIRE is not set")
				sessionExpire = "168h" // 1 week
			}
			duration, err := time.ParseDuration(sessionExpire)
			if err != nil {
				slog.Error("invalid SESSION_EXPIRE", "error", err)
				os.Exit(1)
			}
			slog.Debug("env", "SESSION_EXPIRE", sessionExpire, "duration", duration)
			return duration
		}(),
		location: func() *time.Location {
			timezoneStr := os.Getenv("TIMEZONE")
			var loc *time.Location
			var err error
			switch timezoneStr {
			case "":
				slog.Warn("TIMEZONE is not set, using local timezone", "timezone", time.Local)
				loc = time.Local
			case "UTC":
				loc = time.UTC
			default:
				loc, err = time.LoadLocation(timezoneStr)
				if err != nil {
					slog.Error("invalid timezone", "timezone", timezoneStr, "error", err)
					os.Exit(1)
				}
			}
			slog.Debug("env", "TIMEZONE", timezoneStr)
			return loc
		}(),
		devMode: func() bool {
			devMode := os.Getenv("DEV_MODE") == "true"
			slog.Debug("env", "DEV_MODE", devMode)
			return devMode
		}(),

		metricCollectionInterval: func() time.Duration {
			intervalStr := os.Getenv("METRIC_COLLECTION_INTERVAL")
			if intervalStr == "" {
				intervalStr = "15s"
			}
			duration, err := time.ParseDuration(intervalStr)
			if err != nil {
				slog.Error("invalid METRIC_COLLECTION_INTERVAL", "error", err)
				os.Exit(1)
			}
			slog.Debug("env", "METRIC_COLLECTION_INTERVAL", intervalStr, "duration", duration)
			return duration
		}(),
	}
}

// Get PORT env, default to 8080
func (c *Config) GetPort() string {
	return c.port
}

// Get SQLITE_PATH env, default to ./sqlite.db
func (c *Config) GetSqlitePath() string {
	return c.sqlitePath
}

// Get SESSION_EXPIRE env, default to one week
func (c *Config) GetSessionExpire() time.Duration {
	return c.sessionExpire
}

// Get TIMEZONE env
func (c *Config) GetLocation() *time.Location {
	return c.location
}

// Get DEV_MODE env
func (c *Config) GetDevMode() bool {
	return c.devMode
}

// Get METRIC_COLLECTION_INTERVAL env, default to 15s
func (c *Config) GetMetricCollectionInterval() time.Duration {
	return c.metricCollectionInterval
}
