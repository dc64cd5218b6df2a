package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Cfg struct {
	App        App
	Database   Database
	Logger     Logger
	OpenAI     OpenAI
	Browser    Browser
	Recorder   Recorder
	Probe      Probe
	Migrations Migrations
}

type App struct {
	Host          string
	Port          string
	MaxConcurrent int
}

type Database struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string
}

// Enabled сообщает, настроена ли база данных. Без неё история записей не сохраняется.
func (d Database) Enabled() bool {
	return d.Host != "" && d.Name != ""
}

type Migrations struct {
	Enabled bool
}

type Logger struct {
	Env        string
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

type OpenAI struct {
	KeyAI             string
	BaseURL           string
	Model             string
	MaxTokens         int
	Temperature       float32
	RequestsPerMinute int
	TokensPerHour     int
	BreakerFailures   int
	BreakerReset      time.Duration
}

type Browser struct {
	Headless       bool
	SystemBrowser  string
	ViewportWidth  int
	ViewportHeight int
	OutputDir      string
	RecordHar      bool
	DefaultTimeout time.Duration
}

type Recorder struct {
	Budget          time.Duration
	NavigateTimeout time.Duration
	PostNavSettle   time.Duration
	VisibilityWait  time.Duration
	StepTimeout     time.Duration
	ActionTimeout   time.Duration
	SettleScale     float64
}

// Probe описывает сигналы окружения. Имена переменных зависят от хостинга.
type Probe struct {
	Timeout             time.Duration
	ContainerMarkerFile string
	ContainerEnv        string
	CloudEnv            string
	CloudEnvAlt         string
	DevModeEnv          string
	FFmpegPath          string
}

func Load() (*Cfg, error) {
	_ = godotenv.Load()

	cfg := &Cfg{
		App: App{
			Host:          env("APP_HOST", "0.0.0.0"),
			Port:          env("APP_PORT", "8080"),
			MaxConcurrent: envInt("APP_MAX_CONCURRENT", 2),
		},
		Database: Database{
			Host:     os.Getenv("DB_HOST"),
			Port:     env("DB_PORT", "5432"),
			Name:     os.Getenv("DB_NAME"),
			User:     os.Getenv("DB_USER"),
			Password: os.Getenv("DB_PASS"),
			SSLMode:  env("DB_SSLMODE", "disable"),
		},
		Logger: Logger{
			Env:        env("ENV", "dev"),
			Level:      env("LOG_LEVEL", "info"),
			File:       os.Getenv("LOG_FILE"),
			MaxSizeMB:  envInt("LOG_MAX_SIZE_MB", 50),
			MaxBackups: envInt("LOG_MAX_BACKUPS", 3),
			MaxAgeDays: envInt("LOG_MAX_AGE_DAYS", 14),
		},
		OpenAI: OpenAI{
			KeyAI:             os.Getenv("OPENAI_API_KEY"),
			BaseURL:           os.Getenv("OPENAI_BASE_URL"),
			Model:             env("OPENAI_MODEL", "gpt-4o"),
			MaxTokens:         envInt("OPENAI_MAX_TOKENS", 2000),
			Temperature:       float32(envFloat("OPENAI_TEMPERATURE", 0.3)),
			RequestsPerMinute: envInt("OPENAI_RPM", 60),
			TokensPerHour:     envInt("OPENAI_TPH", 90000),
			BreakerFailures:   envInt("PLANNER_BREAKER_FAILURES", 3),
			BreakerReset:      envDuration("PLANNER_BREAKER_RESET", time.Minute),
		},
		Browser: Browser{
			Headless:       envBoolDefault("PW_HEADLESS", true),
			SystemBrowser:  env("PW_SYSTEM_BROWSER", "/usr/bin/chromium-browser"),
			ViewportWidth:  envInt("PW_VIEWPORT_WIDTH", 1280),
			ViewportHeight: envInt("PW_VIEWPORT_HEIGHT", 720),
			OutputDir:      env("PW_OUTPUT_DIR", "/tmp/videos"),
			RecordHar:      envBool("PW_RECORD_HAR"),
			DefaultTimeout: envDuration("PW_DEFAULT_TIMEOUT", 30*time.Second),
		},
		Recorder: Recorder{
			Budget:          envDuration("RECORDING_BUDGET", 2*time.Minute),
			NavigateTimeout: envDuration("RECORDING_NAVIGATE_TIMEOUT", 30*time.Second),
			PostNavSettle:   envDuration("RECORDING_POST_NAV_SETTLE", 2*time.Second),
			VisibilityWait:  envDuration("RECORDING_VISIBILITY_WAIT", 5*time.Second),
			StepTimeout:     envDuration("RECORDING_STEP_TIMEOUT", 10*time.Second),
			ActionTimeout:   envDuration("RECORDING_ACTION_TIMEOUT", 10*time.Second),
			SettleScale:     envFloat("RECORDING_SETTLE_SCALE", 1),
		},
		Probe: Probe{
			Timeout:             envDuration("PROBE_TIMEOUT", 10*time.Second),
			ContainerMarkerFile: env("PROBE_CONTAINER_MARKER", "/.dockerenv"),
			ContainerEnv:        env("PROBE_CONTAINER_ENV", "DOCKER"),
			CloudEnv:            env("PROBE_CLOUD_ENV", "VERCEL"),
			CloudEnvAlt:         env("PROBE_CLOUD_ENV_ALT", "VERCEL_ENV"),
			DevModeEnv:          env("PROBE_DEV_MODE_ENV", "ENV"),
			FFmpegPath:          os.Getenv("FFMPEG_PATH"),
		},
		Migrations: Migrations{
			Enabled: envBoolDefault("MIGRATIONS_ENABLED", true),
		},
	}

	return cfg, nil
}

// DSN собирает строку подключения к PostgreSQL.
func (d Database) DSN() string {
	return "host=" + d.Host +
		" port=" + d.Port +
		" user=" + d.User +
		" password=" + d.Password +
		" dbname=" + d.Name +
		" sslmode=" + d.SSLMode
}

// URL возвращает строку подключения в формате, который ожидает golang-migrate.
func (d Database) URL() string {
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + d.Port + "/" + d.Name + "?sslmode=" + d.SSLMode
}

func env(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func envInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultValue
}

func envFloat(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func envDuration(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}

func envBool(key string) bool {
	v := strings.ToLower(os.Getenv(key))
	return v == "true" || v == "1" || v == "yes"
}

func envBoolDefault(key string, defaultValue bool) bool {
	if os.Getenv(key) == "" {
		return defaultValue
	}
	return envBool(key)
}
