package config

import (
	"flag"
	"io"
	"time"

	"github.com/dmitrijs2005/vidtube/internal/flagx"
)

var knownFlags = []string{"-a", "-d", "-m", "-as", "-rs", "-t", "-r", "-u", "-p", "-b", "-g", "-e", "-w", "-o", "-l"}

// parseFlags populates Config fields from command-line flags.
//
//	-a string   HTTP bind address (e.g. ":8000")
//	-d string   PostgreSQL DSN
//	-m bool     run migrations on start
//	-as string  access token secret
//	-rs string  refresh token secret
//	-t int      access token validity, minutes
//	-r int      refresh token validity, minutes
//	-u/-p       S3 root user / password
//	-b/-g/-e    S3 bucket / region / base endpoint
//	-w string   public base URL of stored media
//	-o string   allowed CORS origin
//	-l string   log level
//
// Only the flags above are looked at, so -c/-config and -env pass through.
func parseFlags(config *Config, args []string) error {
	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.BoolVar(&config.RunMigrations, "m", config.RunMigrations, "run database migrations on start")
	fs.StringVar(&config.AccessTokenSecret, "as", config.AccessTokenSecret, "access token secret")
	fs.StringVar(&config.RefreshTokenSecret, "rs", config.RefreshTokenSecret, "refresh token secret")

	accessMinutes := fs.Int("t", int(config.AccessTokenExpiry.Minutes()), "access token validity (in minutes)")
	refreshMinutes := fs.Int("r", int(config.RefreshTokenExpiry.Minutes()), "refresh token validity (in minutes)")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.S3PublicBaseURL, "w", config.S3PublicBaseURL, "public base URL of stored media")
	fs.StringVar(&config.CORSOrigin, "o", config.CORSOrigin, "allowed CORS origin")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	if err := fs.Parse(flagx.FilterArgs(args, knownFlags)); err != nil {
		return err
	}

	seen := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { seen[f.Name] = true })
	if seen["t"] {
		config.AccessTokenExpiry = time.Duration(*accessMinutes) * time.Minute
	}
	if seen["r"] {
		config.RefreshTokenExpiry = time.Duration(*refreshMinutes) * time.Minute
	}
	return nil
}
