package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	AppEnv   string
	LogLevel slog.Level
	HTTPAddr string

	Driver          string
	DSN             string
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	Migrate         bool
	LogSQL          bool

	// QueryTTL is the freshness handed to the warehouse connection for every dashboard query.
	QueryTTL      time.Duration
	QueryRPS      float64
	QueryBurst    int
	CacheBackend  string
	RedisAddr     string
	RedisPassword string

	// DisplayLocation is used for calendar dates, window boundaries and hour-of-day grouping.
	DisplayLocation *time.Location

	ForecastDelay   time.Duration
	ForecastHorizon int
	ForecastHistory int

	MQTTBroker   string
	MQTTPort     int
	MQTTClientID string
	MQTTTopic    string
}

// fileConfig mirrors the env keys so a YAML file can provide defaults.
type fileConfig map[string]string

// Load reads .env (if present), then CONFIG_FILE (if set), then the process
// environment. Real environment variables always win.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := applyFile(path); err != nil {
			return Config{}, err
		}
	}
	return LoadFromEnv()
}

func applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read CONFIG_FILE %q: %w", path, err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse CONFIG_FILE %q: %w", path, err)
	}
	for k, v := range fc {
		key := strings.ToUpper(strings.TrimSpace(k))
		if _, set := os.LookupEnv(key); set {
			continue
		}
		if err := os.Setenv(key, v); err != nil {
			return fmt.Errorf("apply %s from CONFIG_FILE: %w", key, err)
		}
	}
	return nil
}

func LoadFromEnv() (Config, error) {
	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = "dev"
	}
	switch appEnv {
	case "dev", "prod":
	default:
		return Config{}, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", appEnv)
	}

	logLevelStr := strings.TrimSpace(os.Getenv("LOG_LEVEL"))
	if logLevelStr == "" {
		logLevelStr = "info"
	}
	level, err := parseLogLevel(logLevelStr)
	if err != nil {
		return Config{}, err
	}

	httpAddr := strings.TrimSpace(os.Getenv("HTTP_ADDR"))
	if httpAddr == "" {
		httpAddr = ":8080"
	}

	driver := strings.TrimSpace(os.Getenv("DB_DRIVER"))
	if driver == "" {
		driver = "sqlite3"
	}
	switch driver {
	case "sqlite3", "pgx":
	default:
		return Config{}, fmt.Errorf("invalid DB_DRIVER %q (allowed: sqlite3, pgx)", driver)
	}
	dsn := strings.TrimSpace(os.Getenv("DB_DSN"))
	if driver == "pgx" && dsn == "" {
		return Config{}, errors.New("DB_DSN is required when DB_DRIVER=pgx")
	}
	path := strings.TrimSpace(os.Getenv("SQLITE_PATH"))
	if path == "" {
		path = "dev/sqlite/bicing.db"
	}

	maxOpenConns, err := intEnv("DB_MAX_OPEN_CONNS", 4)
	if err != nil {
		return Config{}, err
	}
	maxIdleConns, err := intEnv("DB_MAX_IDLE_CONNS", 2)
	if err != nil {
		return Config{}, err
	}
	connMaxLifetime, err := durationEnv("DB_CONN_MAX_LIFETIME", 0)
	if err != nil {
		return Config{}, err
	}
	migrate, err := boolEnv("DB_MIGRATE", driver == "sqlite3")
	if err != nil {
		return Config{}, err
	}
	logSQL, err := boolEnv("DB_LOG_SQL", false)
	if err != nil {
		return Config{}, err
	}

	queryTTL, err := durationEnv("QUERY_TTL", 20*time.Minute)
	if err != nil {
		return Config{}, err
	}
	if queryTTL < 0 {
		return Config{}, fmt.Errorf("invalid QUERY_TTL %q: must be >= 0", os.Getenv("QUERY_TTL"))
	}
	queryRPS, err := floatEnv("QUERY_RPS", 10)
	if err != nil {
		return Config{}, err
	}
	if queryRPS <= 0 {
		return Config{}, fmt.Errorf("invalid QUERY_RPS %v: must be > 0", queryRPS)
	}
	queryBurst, err := intEnv("QUERY_BURST", 5)
	if err != nil {
		return Config{}, err
	}
	if queryBurst < 1 {
		return Config{}, fmt.Errorf("invalid QUERY_BURST %d: must be >= 1", queryBurst)
	}

	cacheBackend := strings.ToLower(strings.TrimSpace(os.Getenv("CACHE_BACKEND")))
	if cacheBackend == "" {
		cacheBackend = "memory"
	}
	switch cacheBackend {
	case "memory", "redis", "none":
	default:
		return Config{}, fmt.Errorf("invalid CACHE_BACKEND %q (allowed: memory, redis, none)", cacheBackend)
	}
	redisAddr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if cacheBackend == "redis" && redisAddr == "" {
		redisAddr = "localhost:6379"
	}

	tz := strings.TrimSpace(os.Getenv("DISPLAY_TZ"))
	if tz == "" {
		tz = "UTC"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return Config{}, fmt.Errorf("invalid DISPLAY_TZ %q: %w", tz, err)
	}

	forecastDelay, err := durationEnv("FORECAST_DELAY", 3*time.Second)
	if err != nil {
		return Config{}, err
	}
	forecastHorizon, err := intEnv("FORECAST_HORIZON", 20)
	if err != nil {
		return Config{}, err
	}
	if forecastHorizon < 1 {
		return Config{}, fmt.Errorf("invalid FORECAST_HORIZON %d: must be >= 1", forecastHorizon)
	}
	forecastHistory, err := intEnv("FORECAST_HISTORY", 30)
	if err != nil {
		return Config{}, err
	}
	if forecastHistory < 1 {
		return Config{}, fmt.Errorf("invalid FORECAST_HISTORY %d: must be >= 1", forecastHistory)
	}

	mqttBroker := strings.TrimSpace(os.Getenv("MQTT_BROKER"))
	mqttPort, err := intEnv("MQTT_PORT", 1883)
	if err != nil {
		return Config{}, err
	}
	mqttClientID := strings.TrimSpace(os.Getenv("MQTT_CLIENT_ID"))
	if mqttClientID == "" {
		mqttClientID = "bicing-dashboard"
	}
	mqttTopic := strings.TrimSpace(os.Getenv("MQTT_TOPIC"))
	if mqttTopic == "" {
		mqttTopic = "bicing/stations/status"
	}

	return Config{
		AppEnv:          appEnv,
		LogLevel:        level,
		HTTPAddr:        httpAddr,
		Driver:          driver,
		DSN:             dsn,
		Path:            path,
		MaxOpenConns:    maxOpenConns,
		MaxIdleConns:    maxIdleConns,
		ConnMaxLifetime: connMaxLifetime,
		Migrate:         migrate,
		LogSQL:          logSQL,
		QueryTTL:        queryTTL,
		QueryRPS:        queryRPS,
		QueryBurst:      queryBurst,
		CacheBackend:    cacheBackend,
		RedisAddr:       redisAddr,
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
		DisplayLocation: loc,
		ForecastDelay:   forecastDelay,
		ForecastHorizon: forecastHorizon,
		ForecastHistory: forecastHistory,
		MQTTBroker:      mqttBroker,
		MQTTPort:        mqttPort,
		MQTTClientID:    mqttClientID,
		MQTTTopic:       mqttTopic,
	}, nil
}

// MQTTEnabled reports whether telemetry ingest should be started.
func (c Config) MQTTEnabled() bool {
	return c.MQTTBroker != ""
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}

func intEnv(key string, def int) (int, error) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return n, nil
}

func floatEnv(key string, def float64) (float64, error) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return f, nil
}

func boolEnv(key string, def bool) (bool, error) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return b, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return d, nil
}
