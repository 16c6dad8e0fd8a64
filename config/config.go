// Package config contains code to set the default values and read
// config files to be used throughout the whole application
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"bitwise74/account-api/validators"

	"github.com/spf13/pflag"
	v "github.com/spf13/viper"
)

var (
	printSecret      = pflag.Bool("print-secret", false, "Prints a random secret to use for jwt or api key encryption and exits")
	validLogLevels   = []string{"debug", "info", "warn", "error", "fatal"}
	validEnvs        = []string{"development", "production"}
	validDrivers     = []string{"mongo", "postgres", "sqlite"}
	validSecretsFrom = []string{"aws", "config"}
	secretKeys       = []string{"jwt", "api_key", "database", "mail"}
)

func genSecret() string {
	b := make([]byte, 64)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// Defaults registers every default value. Setup calls it, tests may call it
// on their own.
func Defaults() {
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.env", "development")

	v.SetDefault("host.port", 8080)
	v.SetDefault("host.domain", "localhost:8080")
	v.SetDefault("host.cors", []string{"http://localhost:5173"})
	v.SetDefault("host.ssl.enabled", false)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.uri", "database.db")
	v.SetDefault("database.name", "accounts")
	v.SetDefault("database.timeout", 10*time.Second)

	v.SetDefault("secrets.provider", "config")
	v.SetDefault("secrets.names.jwt", "jwt-secret")
	v.SetDefault("secrets.names.api_key", "api-key-secret")
	v.SetDefault("secrets.names.database", "database-password")
	v.SetDefault("secrets.names.mail", "mail-password")

	v.SetDefault("mail.port", 587)
	v.SetDefault("mail.timeout", 10*time.Second)

	v.SetDefault("security.rate_limit", 10)
	v.SetDefault("security.hash_concurrency", 0)
	v.SetDefault("security.body_limit", 1<<20)

	v.SetDefault("apikeys.supported", validators.DefaultAPINames)

	v.SetDefault("cleanup.interval", time.Hour)
}

// Setup prepares everything config-related so that the app can
// start working. Function will return an error if something
// is critically wrong and the application can't run because of
// that.
func Setup() error {
	pflag.Parse()
	v.BindPFlags(pflag.CommandLine)

	if *printSecret {
		fmt.Println(genSecret())
		os.Exit(0)
	}

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")

	v.AutomaticEnv()

	//
	// ENVS
	//
	v.BindEnv("app.log_level", "app_log_level")
	v.BindEnv("app.env", "app_env")

	v.BindEnv("host.port", "host_port")
	v.BindEnv("host.domain", "host_domain")
	v.BindEnv("host.cors", "host_cors")

	v.BindEnv("host.ssl.enabled", "host_ssl_enabled")
	v.BindEnv("host.ssl.certificate_path", "host_ssl_certificate_path")
	v.BindEnv("host.ssl.certificate_key_path", "host_ssl_certificate_key_path")

	v.BindEnv("database.driver", "database_driver")
	v.BindEnv("database.uri", "database_uri")
	v.BindEnv("database.name", "database_name")

	v.BindEnv("secrets.provider", "secrets_provider")
	v.BindEnv("secrets.aws.region", "secrets_aws_region")
	v.BindEnv("secrets.aws.access_key", "secrets_aws_access_key")
	v.BindEnv("secrets.aws.secret_access_key", "secrets_aws_secret_access_key")
	for _, k := range secretKeys {
		v.BindEnv("secrets.names."+k, "secrets_names_"+k)
		v.BindEnv("secrets.values."+k, "secrets_values_"+k)
	}

	v.BindEnv("mail.host", "mail_host")
	v.BindEnv("mail.port", "mail_port")
	v.BindEnv("mail.sender", "mail_sender")

	v.BindEnv("security.rate_limit", "security_rate_limit")

	//
	// Defaults
	//
	Defaults()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(v.ConfigFileNotFoundError); ok {
			return errors.New("config.toml file is missing")
		}

		return fmt.Errorf("failed to read config file, %w", err)
	}

	return Validate()
}

// Validate checks the loaded values
func Validate() error {
	if !slices.Contains(validLogLevels, v.GetString("app.log_level")) {
		return errors.New("invalid log level provided")
	}

	if !slices.Contains(validEnvs, v.GetString("app.env")) {
		return errors.New("app.env must be development or production")
	}

	if v.GetInt("host.port") <= 0 {
		return errors.New("invalid port provided")
	}

	if v.GetBool("host.ssl.enabled") {
		if v.GetString("host.ssl.certificate_path") == "" {
			return errors.New("no ssl certificate path provided")
		}

		if v.GetString("host.ssl.certificate_key_path") == "" {
			return errors.New("no ssl certificate key path provided")
		}
	}

	if !slices.Contains(validDrivers, v.GetString("database.driver")) {
		return errors.New("invalid database driver provided")
	}

	if v.GetString("database.uri") == "" {
		return errors.New("database.uri can't be empty")
	}

	if v.GetDuration("database.timeout") <= 0 {
		return errors.New("database.timeout must be bigger than 0")
	}

	switch v.GetString("secrets.provider") {
	case "aws":
		if v.GetString("secrets.aws.region") == "" {
			return errors.New("secrets.aws.region can't be empty")
		}
	case "config":
		for _, k := range []string{"jwt", "api_key"} {
			if v.GetString("secrets.values."+k) == "" {
				return fmt.Errorf("secrets.values.%s can't be empty, generate one with --print-secret", k)
			}
		}
	}

	if !slices.Contains(validSecretsFrom, v.GetString("secrets.provider")) {
		return errors.New("invalid secrets provider")
	}

	if v.GetString("mail.host") == "" {
		return errors.New("mail.host can't be empty")
	}

	if v.GetString("mail.sender") == "" {
		return errors.New("mail.sender can't be empty")
	}

	if v.GetInt("security.rate_limit") <= 0 {
		fmt.Println("[WARNING]: security.rate_limit is disabled. Auth endpoints won't be guarded against brute force")
	}

	if len(v.GetStringSlice("apikeys.supported")) == 0 {
		return errors.New("apikeys.supported can't be empty")
	}

	if v.GetDuration("cleanup.interval") <= 0 {
		return errors.New("cleanup.interval must be bigger than 0")
	}

	return nil
}
