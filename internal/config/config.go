package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// readSecret reads a Docker secret from a file path specified by an env var
// with _FILE suffix. If FOO is already set directly, the file is skipped.
// If FOO_FILE is set, reads the file content and sets FOO.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	fileKey := envKey + "_FILE"
	filePath := os.Getenv(fileKey)
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	val := strings.TrimSpace(string(data))
	os.Setenv(envKey, val)
}

type Config struct {
	Server    ServerConfig
	Redis     RedisConfig
	JWT       JWTConfig
	RateLimit RateLimitConfig
	OpenAI    OpenAIConfig
	Video     VideoConfig
	R2        R2Config
}

type ServerConfig struct {
	Port      string
	Env       string
	LogLevel  string
	ApiDomain string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
}

type RateLimitConfig struct {
	SubmitPerHour int
}

type OpenAIConfig struct {
	APIKey             string
	BaseURL            string
	ChatModel          string
	TTSModel           string
	Voice              string
	ModerationModel    string
	ModerationMinScore float64
}

type VideoConfig struct {
	SceneCount     int
	TargetDuration int // seconds
	Resolution     string
	OutputDir      string
	TempDir        string
}

type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	PublicURL       string
}

func Load() (*Config, error) {
	// Read Docker Swarm secrets from _FILE env vars before Viper binds
	readSecret("REDIS_PASSWORD")
	readSecret("OPENAI_API_KEY")
	readSecret("JWT_SECRET")
	readSecret("R2_ACCOUNT_ID")
	readSecret("R2_ACCESS_KEY_ID")
	readSecret("R2_SECRET_ACCESS_KEY")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Environment variables
	viper.AutomaticEnv()

	// Bind environment variables with underscores to nested config keys
	_ = viper.BindEnv("server.port", "SERVER_PORT")
	_ = viper.BindEnv("server.env", "SERVER_ENV")
	_ = viper.BindEnv("server.log_level", "LOG_LEVEL")
	_ = viper.BindEnv("server.api_domain", "API_DOMAIN")
	_ = viper.BindEnv("redis.addr", "REDIS_ADDR")
	_ = viper.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = viper.BindEnv("redis.db", "REDIS_DB")
	_ = viper.BindEnv("jwt.secret", "JWT_SECRET")
	_ = viper.BindEnv("ratelimit.submit_per_hour", "SUBMIT_PER_HOUR")
	_ = viper.BindEnv("openai.api_key", "OPENAI_API_KEY")
	_ = viper.BindEnv("openai.base_url", "OPENAI_BASE_URL")
	_ = viper.BindEnv("openai.chat_model", "OPENAI_CHAT_MODEL")
	_ = viper.BindEnv("openai.tts_model", "OPENAI_TTS_MODEL")
	_ = viper.BindEnv("openai.voice", "AUDIO_VOICE")
	_ = viper.BindEnv("openai.moderation_model", "OPENAI_MODERATION_MODEL")
	_ = viper.BindEnv("openai.moderation_min_score", "MODERATION_MIN_SCORE")
	_ = viper.BindEnv("video.scene_count", "SCENE_COUNT")
	_ = viper.BindEnv("video.target_duration", "VIDEO_DURATION")
	_ = viper.BindEnv("video.resolution", "VIDEO_RESOLUTION")
	_ = viper.BindEnv("video.output_dir", "OUTPUT_DIR")
	_ = viper.BindEnv("video.temp_dir", "TEMP_DIR")
	_ = viper.BindEnv("r2.account_id", "R2_ACCOUNT_ID")
	_ = viper.BindEnv("r2.access_key_id", "R2_ACCESS_KEY_ID")
	_ = viper.BindEnv("r2.secret_access_key", "R2_SECRET_ACCESS_KEY")
	_ = viper.BindEnv("r2.bucket_name", "R2_BUCKET_NAME")
	_ = viper.BindEnv("r2.public_url", "R2_PUBLIC_URL")

	// Defaults
	viper.SetDefault("server.port", "8000")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("server.log_level", "info")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("jwt.secret", "")
	viper.SetDefault("ratelimit.submit_per_hour", 10)

	// OpenAI defaults
	viper.SetDefault("openai.base_url", "https://api.openai.com/v1")
	viper.SetDefault("openai.chat_model", "gpt-4o-mini")
	viper.SetDefault("openai.tts_model", "tts-1")
	viper.SetDefault("openai.voice", "alloy")
	viper.SetDefault("openai.moderation_model", "omni-moderation-latest")
	viper.SetDefault("openai.moderation_min_score", 0.08)

	// Video generation defaults
	viper.SetDefault("video.scene_count", 3)
	viper.SetDefault("video.target_duration", 30)
	viper.SetDefault("video.resolution", "1280x720")
	viper.SetDefault("video.output_dir", "outputs")
	viper.SetDefault("video.temp_dir", "temp")

	// Try to read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port:      viper.GetString("server.port"),
			Env:       viper.GetString("server.env"),
			LogLevel:  viper.GetString("server.log_level"),
			ApiDomain: viper.GetString("server.api_domain"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret: viper.GetString("jwt.secret"),
		},
		RateLimit: RateLimitConfig{
			SubmitPerHour: viper.GetInt("ratelimit.submit_per_hour"),
		},
		OpenAI: OpenAIConfig{
			APIKey:             viper.GetString("openai.api_key"),
			BaseURL:            viper.GetString("openai.base_url"),
			ChatModel:          viper.GetString("openai.chat_model"),
			TTSModel:           viper.GetString("openai.tts_model"),
			Voice:              viper.GetString("openai.voice"),
			ModerationModel:    viper.GetString("openai.moderation_model"),
			ModerationMinScore: viper.GetFloat64("openai.moderation_min_score"),
		},
		Video: VideoConfig{
			SceneCount:     viper.GetInt("video.scene_count"),
			TargetDuration: viper.GetInt("video.target_duration"),
			Resolution:     viper.GetString("video.resolution"),
			OutputDir:      viper.GetString("video.output_dir"),
			TempDir:        viper.GetString("video.temp_dir"),
		},
		R2: R2Config{
			AccountID:       viper.GetString("r2.account_id"),
			AccessKeyID:     viper.GetString("r2.access_key_id"),
			SecretAccessKey: viper.GetString("r2.secret_access_key"),
			BucketName:      viper.GetString("r2.bucket_name"),
			PublicURL:       viper.GetString("r2.public_url"),
		},
	}

	// Artifact paths are compared against the output root for download
	// safety, so resolve both directories up front.
	var err error
	if cfg.Video.OutputDir, err = filepath.Abs(cfg.Video.OutputDir); err != nil {
		return nil, fmt.Errorf("failed to resolve output dir: %w", err)
	}
	if cfg.Video.TempDir, err = filepath.Abs(cfg.Video.TempDir); err != nil {
		return nil, fmt.Errorf("failed to resolve temp dir: %w", err)
	}

	return cfg, nil
}

// EnsureDirs creates the output and temp directories if missing.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.Video.OutputDir, c.Video.TempDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}
