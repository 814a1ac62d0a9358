package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort int
	Env        string
	Debug      bool
	LogLevel   string
	LogFormat  string

	// PublicBaseURL is the externally reachable origin used to build
	// upload URLs, e.g. "https://api.riosinforma.mx".
	PublicBaseURL string
	CORSOrigins   []string

	Database DatabaseConfig
	Auth     AuthConfig
	Policy   PolicyConfig
	Storage  StorageConfig
	Redis    RedisConfig
}

type DatabaseConfig struct {
	// URL takes precedence over the individual fields when set.
	// Supported schemes: postgres://, postgresql://, sqlite://.
	URL      string
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	UseSSL   bool
}

type AuthConfig struct {
	JWTSecret  string
	TokenTTL   time.Duration
	BcryptCost int
	RateLimit  int
	RateWindow time.Duration
}

// PolicyConfig holds the behaviour switches that differ between deployments.
type PolicyConfig struct {
	RegisterRole          string
	CreateRequiresAdmin   bool
	UploadRequiresAuth    bool
	DefaultArticlePerPage int
}

type StorageConfig struct {
	Backend  string
	LocalDir string
	Minio    MinioConfig
	GCS      GCSConfig
}

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type GCSConfig struct {
	Bucket          string
	ProjectID       string
	CredentialsFile string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

func LoadConfig() Config {
	if os.Getenv("ENV") == "dev" {
		godotenv.Load()
	}

	port := getEnvInt("SERVER_PORT", getEnvInt("PORT", 8000))

	dbConfig := DatabaseConfig{
		URL:      getEnv("DATABASE_URL", ""),
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnvInt("DB_PORT", 5432),
		User:     getEnv("DB_USER", "noticias"),
		Password: getEnv("DB_PASSWORD", "password"),
		DBName:   getEnv("DB_NAME", "noticias"),
		UseSSL:   getEnvBool("DB_USE_SSL", false),
	}

	return Config{
		ServerPort:    port,
		Env:           getEnv("ENV", "development"),
		Debug:         getEnvBool("DEBUG", false),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFormat:     getEnv("LOG_FORMAT", ""),
		PublicBaseURL: strings.TrimRight(getEnv("PUBLIC_BASE_URL", fmt.Sprintf("http://localhost:%d", port)), "/"),
		CORSOrigins:   getEnvList("CORS_ORIGINS", []string{"http://localhost:4200", "http://127.0.0.1:4200"}),
		Database:      dbConfig,
		Auth: AuthConfig{
			JWTSecret:  strings.TrimSpace(os.Getenv("JWT_SECRET")),
			TokenTTL:   getEnvDuration("JWT_TTL", 24*time.Hour),
			BcryptCost: getEnvInt("BCRYPT_COST", 10),
			RateLimit:  getEnvInt("AUTH_RATE_LIMIT", 20),
			RateWindow: getEnvDuration("AUTH_RATE_WINDOW", time.Minute),
		},
		Policy: PolicyConfig{
			RegisterRole:          getEnv("REGISTER_ROLE", "admin"),
			CreateRequiresAdmin:   getEnvBool("NEWS_CREATE_REQUIRES_ADMIN", true),
			UploadRequiresAuth:    getEnvBool("UPLOAD_REQUIRES_AUTH", false),
			DefaultArticlePerPage: getEnvInt("NEWS_PAGE_SIZE", 4),
		},
		Storage: StorageConfig{
			Backend:  strings.ToLower(getEnv("STORAGE_BACKEND", "local")),
			LocalDir: getEnv("UPLOAD_DIR", "uploads"),
			Minio: MinioConfig{
				Endpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
				AccessKey: os.Getenv("MINIO_ACCESS_KEY"),
				SecretKey: os.Getenv("MINIO_SECRET_KEY"),
				Bucket:    getEnv("MINIO_BUCKET", "noticias"),
				UseSSL:    getEnvBool("MINIO_USE_SSL", false),
			},
			GCS: GCSConfig{
				Bucket:          os.Getenv("GCS_BUCKET"),
				ProjectID:       os.Getenv("GCS_PROJECT_ID"),
				CredentialsFile: os.Getenv("GCS_CREDENTIALS_FILE"),
			},
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getEnvInt("REDIS_DB", 0),
		},
	}
}

// DatabaseURL returns the connection URL, assembling a Postgres URL from the
// individual fields when DATABASE_URL is unset.
func (c Config) DatabaseURL() string {
	if strings.TrimSpace(c.Database.URL) != "" {
		return strings.TrimSpace(c.Database.URL)
	}

	sslmode := "disable"
	if c.Database.UseSSL {
		sslmode = "require"
	}

	u := &url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", c.Database.Host, c.Database.Port),
		User:   url.UserPassword(c.Database.User, c.Database.Password),
		Path:   c.Database.DBName,
	}
	q := u.Query()
	q.Set("sslmode", sslmode)
	u.RawQuery = q.Encode()
	return u.String()
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if valueStr, exists := os.LookupEnv(key); exists {
		value, err := strconv.Atoi(strings.TrimSpace(valueStr))
		if err != nil {
			return defaultValue
		}
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if valueStr, exists := os.LookupEnv(key); exists {
		value, err := strconv.ParseBool(strings.TrimSpace(valueStr))
		if err != nil {
			return defaultValue
		}
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if valueStr, exists := os.LookupEnv(key); exists {
		value, err := time.ParseDuration(strings.TrimSpace(valueStr))
		if err != nil || value <= 0 {
			return defaultValue
		}
		return value
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	raw, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(raw) == "" {
		return defaultValue
	}
	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		if v := strings.TrimSpace(part); v != "" {
			values = append(values, v)
		}
	}
	return values
}
