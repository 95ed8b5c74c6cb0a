package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

var ErrInvalid = errors.New("invalid config")

type Config struct {
	APIURL   string        `validate:"required,url"`
	Token    string
	PerPage  int           `validate:"gte=1,lte=100"`
	Debounce time.Duration `validate:"gt=0"`
	LogLevel string        `validate:"oneof=debug info warn error"`
	// Addr is where `taskview serve` listens.
	Addr string `validate:"required"`
}

// Load reads the environment, after merging the given .env files (".env"
// when none are named). Variables already set in the environment win.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	perPage, err := strconv.Atoi(getEnv("TASKVIEW_PER_PAGE", "10"))
	if err != nil {
		return Config{}, fmt.Errorf("%w: TASKVIEW_PER_PAGE: %v", ErrInvalid, err)
	}
	debounce, err := time.ParseDuration(getEnv("TASKVIEW_DEBOUNCE", "500ms"))
	if err != nil {
		return Config{}, fmt.Errorf("%w: TASKVIEW_DEBOUNCE: %v", ErrInvalid, err)
	}

	cfg := Config{
		APIURL:   getEnv("TASKVIEW_API_URL", "http://localhost:3000"),
		Token:    getEnv("TASKVIEW_TOKEN", ""),
		PerPage:  perPage,
		Debounce: debounce,
		LogLevel: getEnv("TASKVIEW_LOG_LEVEL", "info"),
		Addr:     getEnv("TASKVIEW_ADDR", ":3000"),
	}
	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
