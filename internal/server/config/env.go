package config

import (
	"errors"
	"io/fs"

	"github.com/caarlos0/env/v11"
	"github.com/dmitrijs2005/vidtube/internal/flagx"
	"github.com/joho/godotenv"
)

// parseEnv overlays environment variables onto config. A dotenv file named by
// -env is loaded first and must exist; otherwise ./.env is loaded if present.
// Variables already set in the process environment win over dotenv values.
func parseEnv(config *Config, args []string) error {
	if path := flagx.EnvFile(args); path != "" {
		if err := godotenv.Load(path); err != nil {
			return err
		}
	} else if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	return env.Parse(config)
}
