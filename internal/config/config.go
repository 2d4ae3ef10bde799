package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds application configuration values.
type Config struct {
	Env  string `validate:"required,oneof=dev prod"`
	HTTP struct {
		Addr string `validate:"required"`
	}
	Log struct {
		ConsoleLevel string `validate:"required,oneof=debug info warn error"`
		FileLevel    string `validate:"required,oneof=debug info warn error"`
		File         string
	}
	Engine struct {
		BaseDelayMs  float64       `validate:"gt=0"`
		PatternLimit int           `validate:"gt=0"`
		Retention    time.Duration `validate:"gt=0"`
		SweepSpec    string        `validate:"required"`
	}
	Journal struct {
		Driver        string `validate:"required,oneof=sqlite postgres off"`
		SQLitePath    string
		PostgresDSN   string
		MigrationsDir string
	}
	Alert struct {
		TelegramToken string
		ChatID        int64
		Cooldown      time.Duration `validate:"gt=0"`
	}
}

var validate = validator.New()

// Load reads configuration from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	var c Config
	c.Env = getenv("ENV", "prod")
	c.HTTP.Addr = getenv("HTTP_ADDR", ":8080")
	c.Log.ConsoleLevel = strings.ToLower(getenv("LOG_CONSOLE_LEVEL", "info"))
	c.Log.FileLevel = strings.ToLower(getenv("LOG_FILE_LEVEL", "debug"))
	c.Log.File = getenv("LOG_FILE", "data/logs/soundlinkd.log")

	var err error
	if c.Engine.BaseDelayMs, err = getfloat("ENGINE_BASE_DELAY_MS", 1000); err != nil {
		return Config{}, err
	}
	if c.Engine.PatternLimit, err = getint("ENGINE_PATTERN_LIMIT", 20); err != nil {
		return Config{}, err
	}
	if c.Engine.Retention, err = getduration("ENGINE_RETENTION", 24*time.Hour); err != nil {
		return Config{}, err
	}
	c.Engine.SweepSpec = getenv("ENGINE_SWEEP_SPEC", "0 0 * * * *")

	c.Journal.Driver = strings.ToLower(getenv("JOURNAL_DRIVER", "sqlite"))
	c.Journal.SQLitePath = getenv("SQLITE_PATH", "data/soundlink.db")
	c.Journal.PostgresDSN = os.Getenv("PG_DSN")
	c.Journal.MigrationsDir = getenv("MIGRATIONS_DIR", "migrations")

	c.Alert.TelegramToken = os.Getenv("TELEGRAM_ALERT_TOKEN")
	if c.Alert.ChatID, err = getint64("TELEGRAM_ALERT_CHAT_ID", 0); err != nil {
		return Config{}, err
	}
	if c.Alert.Cooldown, err = getduration("ALERT_COOLDOWN", time.Hour); err != nil {
		return Config{}, err
	}

	if err := validate.Struct(c); err != nil {
		return Config{}, err
	}
	if c.Journal.Driver == "postgres" && c.Journal.PostgresDSN == "" {
		return Config{}, errors.New("PG_DSN required when JOURNAL_DRIVER is postgres")
	}
	if c.Alert.TelegramToken != "" && c.Alert.ChatID == 0 {
		return Config{}, errors.New("TELEGRAM_ALERT_CHAT_ID required when TELEGRAM_ALERT_TOKEN is set")
	}
	return c, nil
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) (int, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.New(k + " must be an integer")
	}
	return n, nil
}

func getint64(k string, def int64) (int64, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, errors.New(k + " must be an integer")
	}
	return n, nil
}

func getfloat(k string, def float64) (float64, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, errors.New(k + " must be a number")
	}
	return f, nil
}

func getduration(k string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, errors.New(k + " must be a duration like 24h or 90m")
	}
	return d, nil
}
