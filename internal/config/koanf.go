// Audience Insights - Media Engagement Analytics and Nielsen Ratings Reporting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/audience-insights

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths are searched in order when CONFIG_PATH is unset.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/audience-insights/config.yaml",
}

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

// DotEnvPathEnvVar overrides the .env file location.
const DotEnvPathEnvVar = "DOTENV_PATH"

// Load builds the configuration:
//  1. struct defaults
//  2. .env (DOTENV_PATH or ./.env) copied into the process environment
//  3. YAML file (CONFIG_PATH or DefaultConfigPaths)
//  4. environment variables listed in envMappings
//
// The result is validated before it is returned.
func Load() (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	k := koanf.New(".")
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// loadDotEnv copies variables from the .env file into the environment without
// overriding ones already set. A missing file is not an error.
func loadDotEnv() error {
	path := os.Getenv(DotEnvPathEnvVar)
	if path == "" {
		path = ".env"
	}
	err := godotenv.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

var sliceConfigPaths = []string{
	"server.cors_origins",
}

// processSliceFields splits comma-separated env values for slice fields.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		s, ok := k.Get(path).(string)
		if !ok || s == "" {
			continue
		}
		var parts []string
		for _, p := range strings.Split(s, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		if err := k.Set(path, parts); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps environment variable names (lowercased) to config paths.
// The RDS_*, AWS_*, JWT_SECRET and FRONTEND_URL names match the existing
// deployment's .env files.
var envMappings = map[string]string{
	"http_host":             "server.host",
	"http_port":             "server.port",
	"http_read_timeout":     "server.read_timeout",
	"http_write_timeout":    "server.write_timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",
	"cors_origins":          "server.cors_origins",
	"auth_rate_limit":       "server.auth_rate_limit",
	"max_upload_mb":         "server.max_upload_mb",

	"db_driver":            "database.driver",
	"rds_url":              "database.host",
	"rds_port":             "database.port",
	"rds_username":         "database.user",
	"rds_password":         "database.password",
	"rds_db_name":          "database.name",
	"rds_sslmode":          "database.sslmode",
	"rds_iam_auth":         "database.iam_auth",
	"duckdb_path":          "database.path",
	"db_apply_schema":      "database.apply_schema",
	"db_max_open_conns":    "database.max_open_conns",
	"db_max_idle_conns":    "database.max_idle_conns",
	"db_conn_max_lifetime": "database.conn_max_lifetime",
	"db_query_timeout":     "database.query_timeout",

	"jwt_secret":            "security.jwt_secret",
	"session_timeout":       "security.session_timeout",
	"reset_token_timeout":   "security.reset_token_timeout",
	"verification_code_ttl": "security.verification_code_ttl",
	"frontend_url":          "security.frontend_url",
	"bcrypt_cost":           "security.bcrypt_cost",
	"login_max_attempts":    "security.login_max_attempts",
	"login_lockout":         "security.login_lockout",

	"aws_region":                    "aws.region",
	"aws_profile":                   "aws.profile",
	"aws_access_key":                "aws.access_key_id",
	"aws_secret_key":                "aws.secret_access_key",
	"coverage_bucket":               "aws.coverage_bucket",
	"coverage_key":                  "aws.coverage_key",
	"benchmark_bucket":              "aws.benchmark_bucket",
	"benchmark_prefix":              "aws.benchmark_prefix",
	"ses_sender":                    "aws.ses_sender",
	"ses_max_send_rate":             "aws.ses_max_send_rate",
	"aws_breaker_max_requests":      "aws.breaker.max_requests",
	"aws_breaker_interval":          "aws.breaker.interval",
	"aws_breaker_timeout":           "aws.breaker.timeout",
	"aws_breaker_consecutive_fails": "aws.breaker.consecutive_failures",
	"s3_cache_ttl":                  "aws.cache_ttl",

	"nielsen_work_dir":    "nielsen.work_dir",
	"nielsen_max_workers": "nielsen.max_workers",
	"nielsen_mime_domain": "nielsen.mime_domain",
	"nielsen_report_ttl":  "nielsen.report_ttl",

	"log_level":         "logging.level",
	"log_format":        "logging.format",
	"log_caller":        "logging.caller",
	"log_file":          "logging.file_path",
	"log_file_max_size": "logging.file_max_size_mb",
	"log_file_backups":  "logging.file_max_backups",
	"log_file_max_age":  "logging.file_max_age_days",
	"log_file_compress": "logging.file_compress",
}

// envTransformFunc maps an environment variable to its config path. Unmapped
// variables return "" and are ignored.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
