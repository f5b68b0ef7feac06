package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ListenAddr      string
	DBPath          string
	CatalogPath     string
	StrictFoodIDs   bool
	CORSOrigins     []string
	LogLevel        string
	LogFormat       string
	LogFile         string
	ShutdownTimeout time.Duration
}

// Load reads configuration from the environment. Values missing from the
// environment are looked up in the dotenv file named by ENV_FILE (default
// ".env") before falling back to defaults. A missing dotenv file is not an
// error.
func Load() (*Config, error) {
	dotenv, err := readDotEnv(getEnvOr(nil, "ENV_FILE", ".env"))
	if err != nil {
		return nil, err
	}

	strict, err := strconv.ParseBool(getEnvOr(dotenv, "STRICT_FOOD_IDS", "false"))
	if err != nil {
		return nil, errors.New("STRICT_FOOD_IDS must be a boolean")
	}
	shutdown, err := time.ParseDuration(getEnvOr(dotenv, "SHUTDOWN_TIMEOUT", "10s"))
	if err != nil {
		return nil, errors.New("SHUTDOWN_TIMEOUT must be a duration")
	}

	return &Config{
		ListenAddr:      getEnvOr(dotenv, "LISTEN_ADDR", ":8080"),
		DBPath:          getEnvOr(dotenv, "DB_PATH", "/data/foodsurvey.db"),
		CatalogPath:     getEnvOr(dotenv, "CATALOG_PATH", ""),
		StrictFoodIDs:   strict,
		CORSOrigins:     splitList(getEnvOr(dotenv, "CORS_ORIGINS", "*")),
		LogLevel:        getEnvOr(dotenv, "LOG_LEVEL", "info"),
		LogFormat:       getEnvOr(dotenv, "LOG_FORMAT", "json"),
		LogFile:         getEnvOr(dotenv, "LOG_FILE", ""),
		ShutdownTimeout: shutdown,
	}, nil
}

func readDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	values, err := godotenv.Read(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return values, nil
}

func getEnvOr(dotenv map[string]string, key, defaultVal string) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	if val, exists := dotenv[key]; exists {
		return val
	}
	return defaultVal
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
