// Audience Insights - Media Engagement Analytics and Nielsen Ratings Reporting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/audience-insights

// Package config loads service configuration from defaults, an optional .env
// file, an optional YAML file and environment variables, in that order of
// increasing priority. See Load.
package config

import (
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// Config is the complete service configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Security SecurityConfig `koanf:"security"`
	AWS      AWSConfig      `koanf:"aws"`
	Nielsen  NielsenConfig  `koanf:"nielsen"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
//
// Environment Variables:
//   - HTTP_HOST, HTTP_PORT
//   - HTTP_READ_TIMEOUT, HTTP_WRITE_TIMEOUT, HTTP_SHUTDOWN_TIMEOUT
//   - CORS_ORIGINS: comma-separated list
//   - AUTH_RATE_LIMIT: requests per minute per IP on /api/auth
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	AuthRateLimit   int           `koanf:"auth_rate_limit"`
	MaxUploadMB     int64         `koanf:"max_upload_mb"`
}

// Addr returns host:port for the listener.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig holds the engagement store connection.
//
// Driver "postgres" connects to RDS_URL:RDS_PORT with RDS_USERNAME and
// RDS_PASSWORD; with IAMAuth the password is replaced by an RDS IAM token.
// Driver "duckdb" opens Path, or an in-memory database when Path is empty.
// The embedded schema is always applied to DuckDB and to Postgres only with
// ApplySchema, since production roles usually lack DDL rights.
type DatabaseConfig struct {
	Driver          string        `koanf:"driver"`
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	User            string        `koanf:"user"`
	Password        string        `koanf:"password"`
	Name            string        `koanf:"name"`
	SSLMode         string        `koanf:"sslmode"`
	IAMAuth         bool          `koanf:"iam_auth"`
	ApplySchema     bool          `koanf:"apply_schema"`
	Path            string        `koanf:"path"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	QueryTimeout    time.Duration `koanf:"query_timeout"`
}

// Endpoint returns host:port of the Postgres server.
func (d DatabaseConfig) Endpoint() string {
	return d.Host + ":" + strconv.Itoa(d.Port)
}

// PostgresDSN builds a lib/pq connection URL using password.
func (d DatabaseConfig) PostgresDSN(password string) string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, password),
		Host:     d.Endpoint(),
		Path:     "/" + d.Name,
		RawQuery: url.Values{"sslmode": {d.SSLMode}}.Encode(),
	}
	return u.String()
}

// SecurityConfig holds authentication settings.
//
// Environment Variables:
//   - JWT_SECRET: HMAC key for session and reset tokens (at least 32 characters)
//   - FRONTEND_URL: base URL used in password reset links
//   - SESSION_TIMEOUT, RESET_TOKEN_TIMEOUT, VERIFICATION_CODE_TTL
//   - LOGIN_MAX_ATTEMPTS, LOGIN_LOCKOUT: failed logins before an email is
//     locked out, and the base lockout period (doubled per repeat lockout)
type SecurityConfig struct {
	JWTSecret           string        `koanf:"jwt_secret"`
	SessionTimeout      time.Duration `koanf:"session_timeout"`
	ResetTokenTimeout   time.Duration `koanf:"reset_token_timeout"`
	VerificationCodeTTL time.Duration `koanf:"verification_code_ttl"`
	FrontendURL         string        `koanf:"frontend_url"`
	BcryptCost          int           `koanf:"bcrypt_cost"`
	LoginMaxAttempts    int           `koanf:"login_max_attempts"`
	LoginLockout        time.Duration `koanf:"login_lockout"`
}

// BreakerConfig tunes the circuit breaker around each AWS client.
type BreakerConfig struct {
	// MaxRequests allowed through while half-open.
	MaxRequests uint32 `koanf:"max_requests"`
	// Interval after which closed-state counts are cleared.
	Interval time.Duration `koanf:"interval"`
	// Timeout before an open breaker lets a probe through.
	Timeout time.Duration `koanf:"timeout"`
	// ConsecutiveFailures that trip the breaker.
	ConsecutiveFailures uint32 `koanf:"consecutive_failures"`
}

// AWSConfig holds S3 and SES settings. Static keys are optional; without them
// the default credential chain (profile, instance role) is used.
type AWSConfig struct {
	Region          string        `koanf:"region"`
	Profile         string        `koanf:"profile"`
	AccessKeyID     string        `koanf:"access_key_id"`
	SecretAccessKey string        `koanf:"secret_access_key"`
	CoverageBucket  string        `koanf:"coverage_bucket"`
	CoverageKey     string        `koanf:"coverage_key"`
	BenchmarkBucket string        `koanf:"benchmark_bucket"`
	BenchmarkPrefix string        `koanf:"benchmark_prefix"`
	SESSender       string        `koanf:"ses_sender"`
	// SESMaxSendRate caps emails per second to the account quota.
	SESMaxSendRate float64 `koanf:"ses_max_send_rate"`
	Breaker         BreakerConfig `koanf:"breaker"`
	// CacheTTL keeps the coverage map and benchmark listing in memory.
	// Zero disables caching.
	CacheTTL time.Duration `koanf:"cache_ttl"`
}

// NielsenConfig holds report generation settings.
type NielsenConfig struct {
	// WorkDir holds one scratch directory per requesting user.
	WorkDir string `koanf:"work_dir"`
	// MaxWorkers bounds concurrent per-DMA rendering.
	MaxWorkers int `koanf:"max_workers"`
	// MIMEDomain is the right-hand side of generated Content-IDs.
	MIMEDomain string `koanf:"mime_domain"`
	// ReportTTL is how long generated files survive before the sweep
	// removes them.
	ReportTTL time.Duration `koanf:"report_ttl"`
}

// LoggingConfig holds logging settings.
//
// Environment Variables:
//   - LOG_LEVEL: trace, debug, info, warn, error (default: info)
//   - LOG_FORMAT: json, console (default: json)
//   - LOG_CALLER: include caller file:line (default: false)
//   - LOG_FILE: rotating log file path (default: none)
type LoggingConfig struct {
	Level          string `koanf:"level"`
	Format         string `koanf:"format"`
	Caller         bool   `koanf:"caller"`
	FilePath       string `koanf:"file_path"`
	FileMaxSizeMB  int    `koanf:"file_max_size_mb"`
	FileMaxBackups int    `koanf:"file_max_backups"`
	FileMaxAgeDays int    `koanf:"file_max_age_days"`
	FileCompress   bool   `koanf:"file_compress"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8000,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    5 * time.Minute, // report generation renders every DMA
			ShutdownTimeout: 15 * time.Second,
			CORSOrigins:     []string{"http://localhost:3000", "http://localhost:8000"},
			AuthRateLimit:   30,
			MaxUploadMB:     50,
		},
		Database: DatabaseConfig{
			Driver:          "postgres",
			Port:            5432,
			SSLMode:         "require",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 10 * time.Minute,
			QueryTimeout:    60 * time.Second,
		},
		Security: SecurityConfig{
			SessionTimeout:      60 * time.Minute,
			ResetTokenTimeout:   3 * time.Hour,
			VerificationCodeTTL: 24 * time.Hour,
			FrontendURL:         "http://localhost:3000",
			BcryptCost:          12,
			LoginMaxAttempts:    5,
			LoginLockout:        15 * time.Minute,
		},
		AWS: AWSConfig{
			Region:          "us-east-2",
			CoverageBucket:  "coveragemapdata",
			CoverageKey:     "SNzips_no_sub_data.geoJSON",
			BenchmarkPrefix: "nielsen/dailyBenchmark/",
			Breaker: BreakerConfig{
				MaxRequests:         1,
				Interval:            time.Minute,
				Timeout:             30 * time.Second,
				ConsecutiveFailures: 5,
			},
			SESMaxSendRate: 14,
			CacheTTL:       10 * time.Minute,
		},
		Nielsen: NielsenConfig{
			WorkDir:    "/tmp/audience-insights/nielsen",
			MaxWorkers: 4,
			MIMEDomain: "audience-insights.local",
			ReportTTL:  24 * time.Hour,
		},
		Logging: LoggingConfig{
			Level:          "info",
			Format:         "json",
			FileMaxSizeMB:  100,
			FileMaxBackups: 5,
			FileMaxAgeDays: 30,
		},
	}
}
