package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"medication-tracker/internal/models"
)

// Config holds the project config values
type Config struct {
	Env           string
	DBPath        string
	TelegramToken string
	DefaultTZ     string
	HTTPAddr      string
	OCREnabled    bool
}

const (
	defaultDBPath   = "/root/data/meds.db"
	defaultHTTPAddr = ":8080"
	defaultEnv      = "development"
)

var secretPath = "/run/secrets/telegram_bot_token"

var ErrNoToken = errors.New("telegram token not found: no docker secret and no TELEGRAM_BOT_TOKEN")

// Load reads the config from the environment. godotenv is applied by main
// before this runs.
func Load() (Config, error) {
	token := botToken()
	if token == "" {
		return Config{}, ErrNoToken
	}

	tz := env("DEFAULT_TZ", "UTC")
	if _, err := models.ParseTZ(tz); err != nil {
		return Config{}, err
	}

	ocr, err := strconv.ParseBool(env("OCR_ENABLED", "false"))
	if err != nil {
		return Config{}, errors.New("OCR_ENABLED: want true or false")
	}

	return Config{
		Env:           env("APP_ENV", defaultEnv),
		DBPath:        env("DB_PATH", defaultDBPath),
		TelegramToken: token,
		DefaultTZ:     tz,
		HTTPAddr:      env("HTTP_ADDR", defaultHTTPAddr),
		OCREnabled:    ocr,
	}, nil
}

// the docker secret wins over the env var
func botToken() string {
	if data, err := os.ReadFile(secretPath); err == nil {
		if token := strings.TrimSpace(string(data)); token != "" {
			return token
		}
	}
	return strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN"))
}

func env(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
