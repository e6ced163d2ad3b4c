package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Mode string `mapstructure:"mode"`
	Port int    `mapstructure:"port"`

	Secret    string        `mapstructure:"secret"`
	JWTSecret string        `mapstructure:"jwt_secret"`
	JWTTTL    time.Duration `mapstructure:"jwt_ttl"`

	DataDir string `mapstructure:"data_dir"`

	GeminiAPIKey string `mapstructure:"gemini_api_key"`

	AssemblyAIKey string `mapstructure:"assemblyai_api_key"`
	AssemblyAIURL string `mapstructure:"assemblyai_url"`
	SampleRate    int    `mapstructure:"sample_rate"`

	DiscussionDuration int           `mapstructure:"discussion_duration"`
	RoomTTL            time.Duration `mapstructure:"room_ttl"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("secret", "change-me")
	v.SetDefault("jwt_secret", "")
	v.SetDefault("jwt_ttl", "24h")
	v.SetDefault("data_dir", "./data")
	v.SetDefault("gemini_api_key", "")
	v.SetDefault("assemblyai_api_key", "")
	v.SetDefault("assemblyai_url", "wss://api.assemblyai.com/v2/realtime/ws")
	v.SetDefault("sample_rate", 16000)
	v.SetDefault("discussion_duration", 300)
	v.SetDefault("room_ttl", "30m")

	// Secrets come from the environment in every deployment.
	v.AutomaticEnv()
	_ = v.BindEnv("gemini_api_key", "GEMINI_API_KEY")
	_ = v.BindEnv("assemblyai_api_key", "ASSEMBLYAI_API_KEY")
	_ = v.BindEnv("jwt_secret", "JWT_SECRET")

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("config file not found (%s), using defaults\n", fileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
