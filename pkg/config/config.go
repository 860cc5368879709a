package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig
	Python  PythonConfig
	Storage StorageConfig
	SQLite  SQLiteConfig
	Redis   RedisConfig
	LLM     LLMConfig
	Auth    AuthConfig
	Logging LoggingConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  int
	WriteTimeout int
	BodyLimit    int
}

type PythonConfig struct {
	// Candidate interpreter commands probed in order at startup.
	Candidates    []string
	SplitScript   string
	AnalyzeScript string
}

type StorageConfig struct {
	UploadDir      string
	InstructorDir  string
	MaxUploadBytes int64
}

type SQLiteConfig struct {
	Path string
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
	CacheTTL int
}

type LLMConfig struct {
	APIKey      string
	Model       string
	Temperature float32
	MaxTokens   int
}

type AuthConfig struct {
	AdminUsername string
	AdminPassword string
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/feedback-insight")

	viper.SetEnvPrefix("FEEDBACK_INSIGHT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.readTimeout", 30)
	viper.SetDefault("server.writeTimeout", 300)
	viper.SetDefault("server.bodyLimit", 12582912)

	viper.SetDefault("python.candidates", []string{"python3", "python", "py"})
	viper.SetDefault("python.splitScript", "./scripts/extract_instructor_data.py")
	viper.SetDefault("python.analyzeScript", "./scripts/analyze.py")

	viper.SetDefault("storage.uploadDir", "./data/uploads")
	viper.SetDefault("storage.instructorDir", "./data/instructor_data")
	viper.SetDefault("storage.maxUploadBytes", 10485760)

	viper.SetDefault("sqlite.path", "./data/feedback.db")

	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.cacheTTL", 3600)

	viper.SetDefault("llm.model", "gpt-4o-mini")
	viper.SetDefault("llm.temperature", 0.4)
	viper.SetDefault("llm.maxTokens", 512)

	viper.SetDefault("auth.adminUsername", "admin")
	viper.SetDefault("auth.adminPassword", "admin123")

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.outputPath", "stdout")
}
