package config

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// AppConfig holds environment driven configuration values. Secrets must come
// from the environment or the config file, never from code defaults.
type AppConfig struct {
	AppPort     string `json:"app_port"`
	GinMode     string `json:"gin_mode"`
	GinLogPath  string `json:"gin_log_path"`
	JWTSecret   string `json:"jwt_secret"`
	APIBaseURL  string `json:"api_base_url"`
	StaticDir   string `json:"static_dir"`
	DatabaseURI string `json:"database_uri"`
	DBHost      string `json:"db_host"`
	DBPort      string `json:"db_port"`
	DBUser      string `json:"db_user"`
	DBPassword  string `json:"db_password"`
	DBName      string `json:"db_name"`

	AllowedOrigins     []string `json:"allowed_origins"`
	RateLimitPerMinute int      `json:"rate_limit_per_minute"`

	// Media delegate
	MediaBackend    string `json:"media_backend"` // "local" or "gcs"
	MediaLocalDir   string `json:"media_local_dir"`
	MediaBaseURL    string `json:"media_base_url"`
	GCSBucket       string `json:"gcs_bucket"`
	GCSPrefix       string `json:"gcs_prefix"`
	MaxUploadSizeMB int    `json:"max_upload_size_mb"`

	// OAuth sign-in
	GitHubClientID     string `json:"github_client_id"`
	GitHubClientSecret string `json:"github_client_secret"`
	GoogleClientID     string `json:"google_client_id"`
	GoogleClientSecret string `json:"google_client_secret"`
	OAuthRedirectBase  string `json:"oauth_redirect_base"`

	// SMTP for verification and reset codes
	SMTPHost     string `json:"smtp_host"`
	SMTPPort     int    `json:"smtp_port"`
	SMTPUsername string `json:"smtp_username"`
	SMTPPassword string `json:"smtp_password"`
	SMTPFrom     string `json:"smtp_from"`
	SMTPFromName string `json:"smtp_from_name"`
	SMTPTLS      bool   `json:"smtp_tls"`

	// Redis for caching, token blacklist and one-time codes
	RedisHost     string `json:"redis_host"`
	RedisPort     int    `json:"redis_port"`
	RedisDB       int    `json:"redis_db"`
	RedisPassword string `json:"redis_password"`

	// Logging
	LogLevel      string `json:"log_level"`
	LogPath       string `json:"log_path"`
	LogMaxSizeMB  int    `json:"log_max_size_mb"`
	LogMaxBackups int    `json:"log_max_backups"`
	LogMaxAgeDays int    `json:"log_max_age_days"`
	LogCompress   bool   `json:"log_compress"`

	// Registration security
	RegisterCaptchaEnabled bool `json:"register_captcha_enabled"`
}

var cfg AppConfig
var loaded bool

// Load reads configuration once during boot.
// Precedence: config/config.json -> defaults -> environment overrides.
func Load() AppConfig {
	if loaded {
		return cfg
	}

	_ = godotenv.Load()

	_ = loadJSONConfig(filepath.Join("config", "config.json"), &cfg)
	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set in environment variables")
	}

	loaded = true
	return cfg
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	if !loaded {
		return Load()
	}
	return cfg
}

func loadJSONConfig(path string, out *AppConfig) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}

func applyDefaults(c *AppConfig) {
	def := func(v *string, d string) {
		if *v == "" {
			*v = d
		}
	}
	def(&c.AppPort, "8000")
	def(&c.GinMode, "release")
	def(&c.GinLogPath, "logs/gin.log")
	def(&c.StaticDir, "./static")
	def(&c.DBHost, "127.0.0.1")
	def(&c.DBPort, "3306")
	def(&c.DBUser, "snapfeed")
	def(&c.DBName, "snapfeed")
	def(&c.MediaBackend, "local")
	def(&c.MediaLocalDir, "./static/uploads")
	def(&c.MediaBaseURL, "/static/uploads")
	def(&c.RedisHost, "")
	def(&c.LogLevel, "info")
	def(&c.LogPath, "logs/app.log")
	def(&c.SMTPFromName, "Snapfeed")
	if c.APIBaseURL == "" {
		c.APIBaseURL = "http://127.0.0.1:" + c.AppPort
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.RateLimitPerMinute <= 0 {
		c.RateLimitPerMinute = 30
	}
	if c.MaxUploadSizeMB <= 0 {
		c.MaxUploadSizeMB = 50
	}
	if c.SMTPPort == 0 {
		c.SMTPPort = 587
	}
	if c.RedisPort == 0 {
		c.RedisPort = 6379
	}
	if c.LogMaxSizeMB == 0 {
		c.LogMaxSizeMB = 100
	}
	if c.LogMaxBackups == 0 {
		c.LogMaxBackups = 3
	}
	if c.LogMaxAgeDays == 0 {
		c.LogMaxAgeDays = 7
	}
}

func applyEnvOverrides(c *AppConfig) {
	str := func(v *string, key string) {
		if s := os.Getenv(key); s != "" {
			*v = s
		}
	}
	num := func(v *int, key string) {
		if s := os.Getenv(key); s != "" {
			if n, err := strconv.Atoi(s); err == nil {
				*v = n
			}
		}
	}
	flag := func(v *bool, key string) {
		if s := os.Getenv(key); s != "" {
			*v = s == "1" || strings.EqualFold(s, "true")
		}
	}

	str(&c.AppPort, "APP_PORT")
	str(&c.GinMode, "GIN_MODE")
	str(&c.GinLogPath, "GIN_LOG_PATH")
	str(&c.JWTSecret, "JWT_SECRET")
	str(&c.APIBaseURL, "API_BASE_URL")
	str(&c.StaticDir, "STATIC_DIR")
	str(&c.DatabaseURI, "DATABASE_URI")
	str(&c.DBHost, "DB_HOST")
	str(&c.DBPort, "DB_PORT")
	str(&c.DBUser, "DB_USER")
	str(&c.DBPassword, "DB_PASSWORD")
	str(&c.DBName, "DB_NAME")
	if s := os.Getenv("ALLOWED_ORIGINS"); s != "" {
		c.AllowedOrigins = splitAndTrim(s)
	}
	num(&c.RateLimitPerMinute, "RATE_LIMIT_PER_MINUTE")
	str(&c.MediaBackend, "MEDIA_BACKEND")
	str(&c.MediaLocalDir, "MEDIA_LOCAL_DIR")
	str(&c.MediaBaseURL, "MEDIA_BASE_URL")
	str(&c.GCSBucket, "GCS_BUCKET")
	str(&c.GCSPrefix, "GCS_PREFIX")
	num(&c.MaxUploadSizeMB, "MAX_UPLOAD_SIZE_MB")
	str(&c.GitHubClientID, "GITHUB_CLIENT_ID")
	str(&c.GitHubClientSecret, "GITHUB_CLIENT_SECRET")
	str(&c.GoogleClientID, "GOOGLE_CLIENT_ID")
	str(&c.GoogleClientSecret, "GOOGLE_CLIENT_SECRET")
	str(&c.OAuthRedirectBase, "OAUTH_REDIRECT_BASE")
	str(&c.SMTPHost, "SMTP_HOST")
	num(&c.SMTPPort, "SMTP_PORT")
	str(&c.SMTPUsername, "SMTP_USERNAME")
	str(&c.SMTPPassword, "SMTP_PASSWORD")
	str(&c.SMTPFrom, "SMTP_FROM")
	str(&c.SMTPFromName, "SMTP_FROM_NAME")
	flag(&c.SMTPTLS, "SMTP_TLS")
	str(&c.RedisHost, "REDIS_HOST")
	num(&c.RedisPort, "REDIS_PORT")
	num(&c.RedisDB, "REDIS_DB")
	str(&c.RedisPassword, "REDIS_PASSWORD")
	str(&c.LogLevel, "LOG_LEVEL")
	str(&c.LogPath, "LOG_PATH")
	num(&c.LogMaxSizeMB, "LOG_MAX_SIZE_MB")
	num(&c.LogMaxBackups, "LOG_MAX_BACKUPS")
	num(&c.LogMaxAgeDays, "LOG_MAX_AGE_DAYS")
	flag(&c.LogCompress, "LOG_COMPRESS")
	flag(&c.RegisterCaptchaEnabled, "REGISTER_CAPTCHA_ENABLED")
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}
