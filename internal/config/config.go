// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/andresuchdata/shipflow/pkg/logger"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Cache    CacheConfig
	Storage  StorageConfig
	Engine   EngineConfig
	App      AppConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DSN renders the postgres connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

type CacheConfig struct {
	Enabled           bool
	RedisURL          string
	RedisHost         string
	RedisPort         string
	RedisPassword     string
	RedisDB           int
	SummaryTTLSeconds int
}

type StorageConfig struct {
	Enabled   bool
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type EngineConfig struct {
	ForwardCover   float64
	InflationRatio float64
	ExpansionRatio float64
	MinStockRatio  float64
	TopN           int
}

type AppConfig struct {
	DataDir   string
	ExportDir string
}

var (
	once     sync.Once
	instance *Config
)

// Load reads configuration from the environment (plus an optional .env
// file) exactly once and returns the shared instance.
func Load() *Config {
	once.Do(func() {
		_ = godotenv.Load()

		viper.SetDefault("SERVER_PORT", "8080")
		viper.SetDefault("SERVER_MODE", "debug")
		viper.SetDefault("SERVER_READ_TIMEOUT", 30)
		viper.SetDefault("SERVER_WRITE_TIMEOUT", 30)
		viper.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})

		viper.SetDefault("DB_HOST", "localhost")
		viper.SetDefault("DB_PORT", "5432")
		viper.SetDefault("DB_USER", "postgres")
		viper.SetDefault("DB_PASSWORD", "postgres")
		viper.SetDefault("DB_NAME", "shipflow")
		viper.SetDefault("DB_SSLMODE", "disable")

		viper.SetDefault("CACHE_ENABLED", false)
		viper.SetDefault("REDIS_URL", "")
		viper.SetDefault("REDIS_HOST", "127.0.0.1")
		viper.SetDefault("REDIS_PORT", "6379")
		viper.SetDefault("REDIS_PASSWORD", "")
		viper.SetDefault("REDIS_DB", 0)
		viper.SetDefault("CACHE_SUMMARY_TTL_SECONDS", 60)

		viper.SetDefault("STORAGE_ENABLED", false)
		viper.SetDefault("STORAGE_ENDPOINT", "127.0.0.1:9000")
		viper.SetDefault("STORAGE_ACCESS_KEY", "")
		viper.SetDefault("STORAGE_SECRET_KEY", "")
		viper.SetDefault("STORAGE_BUCKET", "shipflow-exports")
		viper.SetDefault("STORAGE_USE_SSL", false)

		viper.SetDefault("ENGINE_FORWARD_COVER", 7.0)
		viper.SetDefault("ENGINE_INFLATION_RATIO", 0.5)
		viper.SetDefault("ENGINE_EXPANSION_RATIO", 1.0)
		viper.SetDefault("ENGINE_MIN_STOCK_RATIO", 1.0)
		viper.SetDefault("ENGINE_TOP_N", 5)

		viper.SetDefault("APP_DATA_DIR", "./data/input")
		viper.SetDefault("APP_EXPORT_DIR", "./data/output")

		viper.AutomaticEnv()

		ensureDir(viper.GetString("APP_DATA_DIR"))
		ensureDir(viper.GetString("APP_EXPORT_DIR"))

		instance = &Config{
			Server: ServerConfig{
				Port:           viper.GetString("SERVER_PORT"),
				Mode:           viper.GetString("SERVER_MODE"),
				ReadTimeout:    viper.GetInt("SERVER_READ_TIMEOUT"),
				WriteTimeout:   viper.GetInt("SERVER_WRITE_TIMEOUT"),
				AllowedOrigins: viper.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
			},
			Database: DatabaseConfig{
				Host:     viper.GetString("DB_HOST"),
				Port:     viper.GetString("DB_PORT"),
				User:     viper.GetString("DB_USER"),
				Password: viper.GetString("DB_PASSWORD"),
				DBName:   viper.GetString("DB_NAME"),
				SSLMode:  viper.GetString("DB_SSLMODE"),
			},
			Cache: CacheConfig{
				Enabled:           viper.GetBool("CACHE_ENABLED"),
				RedisURL:          viper.GetString("REDIS_URL"),
				RedisHost:         viper.GetString("REDIS_HOST"),
				RedisPort:         viper.GetString("REDIS_PORT"),
				RedisPassword:     viper.GetString("REDIS_PASSWORD"),
				RedisDB:           viper.GetInt("REDIS_DB"),
				SummaryTTLSeconds: viper.GetInt("CACHE_SUMMARY_TTL_SECONDS"),
			},
			Storage: StorageConfig{
				Enabled:   viper.GetBool("STORAGE_ENABLED"),
				Endpoint:  viper.GetString("STORAGE_ENDPOINT"),
				AccessKey: viper.GetString("STORAGE_ACCESS_KEY"),
				SecretKey: viper.GetString("STORAGE_SECRET_KEY"),
				Bucket:    viper.GetString("STORAGE_BUCKET"),
				UseSSL:    viper.GetBool("STORAGE_USE_SSL"),
			},
			Engine: EngineConfig{
				ForwardCover:   viper.GetFloat64("ENGINE_FORWARD_COVER"),
				InflationRatio: viper.GetFloat64("ENGINE_INFLATION_RATIO"),
				ExpansionRatio: viper.GetFloat64("ENGINE_EXPANSION_RATIO"),
				MinStockRatio:  viper.GetFloat64("ENGINE_MIN_STOCK_RATIO"),
				TopN:           viper.GetInt("ENGINE_TOP_N"),
			},
			App: AppConfig{
				DataDir:   viper.GetString("APP_DATA_DIR"),
				ExportDir: viper.GetString("APP_EXPORT_DIR"),
			},
		}
	})

	return instance
}

func ensureDir(dir string) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			logger.Log.Fatal().Err(err).Str("dir", dir).Msg("failed to create directory")
		}
	}
}
