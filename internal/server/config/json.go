package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/vidtube/internal/flagx"
	"github.com/dmitrijs2005/vidtube/internal/timex"
)

// JsonConfig is the on-disk shape of the optional JSON config file. Durations
// accept "15m"-style strings or integer nanoseconds. Absent fields leave the
// corresponding Config value untouched.
type JsonConfig struct {
	HTTPAddr           string         `json:"http_addr"`
	DatabaseDSN        string         `json:"database_dsn"`
	RunMigrations      *bool          `json:"run_migrations"`
	AccessTokenSecret  string         `json:"access_token_secret"`
	AccessTokenExpiry  timex.Duration `json:"access_token_expiry"`
	RefreshTokenSecret string         `json:"refresh_token_secret"`
	RefreshTokenExpiry timex.Duration `json:"refresh_token_expiry"`
	BcryptCost         int            `json:"bcrypt_cost"`
	HashWorkers        int            `json:"hash_workers"`
	S3RootUser         string         `json:"s3_root_user"`
	S3RootPassword     string         `json:"s3_root_password"`
	S3Bucket           string         `json:"s3_bucket"`
	S3Region           string         `json:"s3_region"`
	S3BaseEndpoint     string         `json:"s3_base_endpoint"`
	S3PublicBaseURL    string         `json:"s3_public_base_url"`
	CORSOrigin         string         `json:"cors_origin"`
	CookieSecure       *bool          `json:"cookie_secure"`
	LogLevel           string         `json:"log_level"`
}

// parseJson loads the file named by -c/-config (if any) into config.
func parseJson(config *Config, args []string) error {
	path := flagx.ConfigFile(args)
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return err
	}

	setString(&config.HTTPAddr, c.HTTPAddr)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.AccessTokenSecret, c.AccessTokenSecret)
	setString(&config.RefreshTokenSecret, c.RefreshTokenSecret)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.S3PublicBaseURL, c.S3PublicBaseURL)
	setString(&config.CORSOrigin, c.CORSOrigin)
	setString(&config.LogLevel, c.LogLevel)

	if c.AccessTokenExpiry.Duration != 0 {
		config.AccessTokenExpiry = c.AccessTokenExpiry.Duration
	}
	if c.RefreshTokenExpiry.Duration != 0 {
		config.RefreshTokenExpiry = c.RefreshTokenExpiry.Duration
	}
	if c.BcryptCost != 0 {
		config.BcryptCost = c.BcryptCost
	}
	if c.HashWorkers != 0 {
		config.HashWorkers = c.HashWorkers
	}
	if c.RunMigrations != nil {
		config.RunMigrations = *c.RunMigrations
	}
	if c.CookieSecure != nil {
		config.CookieSecure = *c.CookieSecure
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
