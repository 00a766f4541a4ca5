package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port          int
	BindAddress   string
	DataDir       string
	UploadDir     string
	PublicBaseURL string
	LogLevel      string
	AppEnv        string
	CORSOrigins   []string

	FalKey       string
	AnthropicKey string
	LumaKey      string

	GenerateTimeout time.Duration
	PollInterval    time.Duration
	SSETTL          time.Duration
	// UploadRetention of zero keeps uploads forever.
	UploadRetention time.Duration
	// GenerateRateLimit is generation calls per client per minute; zero
	// disables it.
	GenerateRateLimit int
}

// LoadDotEnv reads .env.local then .env from the working directory. Values
// already present in the environment are never overridden.
func LoadDotEnv() {
	for _, name := range []string{".env.local", ".env"} {
		if _, err := os.Stat(name); err == nil {
			_ = godotenv.Load(name)
		}
	}
}

// ReloadDotEnv re-reads the env files, letting them override the current
// environment. Used on SIGHUP to rotate provider keys without a restart.
func ReloadDotEnv() {
	for _, name := range []string{".env", ".env.local"} {
		if _, err := os.Stat(name); err == nil {
			_ = godotenv.Overload(name)
		}
	}
}

func Load() *Config {
	cfg := &Config{
		Port:            3000,
		BindAddress:     "0.0.0.0",
		DataDir:         resolveDataDir(),
		UploadDir:       filepath.Join("public", "uploads"),
		LogLevel:        "info",
		AppEnv:          getEnv("APP_ENV", "development"),
		FalKey:          getEnv("FAL_KEY", ""),
		AnthropicKey:    getEnv("ANTHROPIC_API_KEY", ""),
		LumaKey:         getEnv("LUMAAI_API_KEY", getEnv("LUMA_API_KEY", "")),
		PublicBaseURL:   strings.TrimRight(getEnv("PUBLIC_BASE_URL", getEnv("NEXT_PUBLIC_BASE_URL", "")), "/"),
		GenerateTimeout: time.Duration(getEnvInt("GENERATE_TIMEOUT_SECONDS", 300)) * time.Second,
		PollInterval:    time.Duration(getEnvInt("POLL_INTERVAL_MS", 2000)) * time.Millisecond,
		SSETTL:          time.Duration(getEnvInt("SSE_TTL_SECONDS", 600)) * time.Second,
		UploadRetention: time.Duration(getEnvInt("UPLOAD_RETENTION_HOURS", 0)) * time.Hour,

		GenerateRateLimit: getEnvInt("GENERATE_RATE_LIMIT", 0),
	}

	if p := getEnvInt("PORT", 0); p > 0 {
		cfg.Port = p
	}
	if b := getEnv("BIND_ADDRESS", ""); b != "" {
		cfg.BindAddress = b
	}
	if d := getEnv("DATA_DIR", ""); d != "" {
		cfg.DataDir = d
	}
	if u := getEnv("UPLOAD_DIR", ""); u != "" {
		cfg.UploadDir = u
	}
	if l := getEnv("LOG_LEVEL", ""); l != "" {
		cfg.LogLevel = l
	}
	for _, o := range strings.Split(getEnv("CORS_ORIGINS", ""), ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, o)
		}
	}

	return cfg
}

func (c *Config) DevMode() bool {
	return c.AppEnv != "production"
}

func resolveDataDir() string {
	// Resolve data dir relative to the executable, not the CWD
	exe, err := os.Executable()
	if err != nil {
		return "./data"
	}
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return "./data"
	}
	return filepath.Join(filepath.Dir(exe), "data")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
