package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type BridgeConfig struct {
	Token       string `mapstructure:"token"`
	ChatID      string `mapstructure:"chat_id"`
	Room        string `mapstructure:"room"`
	PollTimeout int    `mapstructure:"poll_timeout"`
}

type Config struct {
	Mode       string        `mapstructure:"mode"`
	Port       int           `mapstructure:"port"`
	StaticPath string        `mapstructure:"static_path"`
	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	Secret     string        `mapstructure:"secret"`
	Bridge     BridgeConfig  `mapstructure:"bridge"`
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
	v.SetDefault("static_path", "./web")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("bridge.room", "bridge")
	v.SetDefault("bridge.poll_timeout", 30)
	// Empty defaults so Unmarshal picks up the env-bound keys below.
	v.SetDefault("bridge.token", "")
	v.SetDefault("bridge.chat_id", "")

	// Credentials come from the environment, never from the yaml file.
	_ = v.BindEnv("bridge.token", "BOT_TOKEN")
	_ = v.BindEnv("bridge.chat_id", "ADMIN_CHAT_ID")

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("⚠️ Config file not found (%s), using defaults\n", fileName)
	} else {
		fmt.Printf("✅ Loaded config: %s\n", fileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	fmt.Printf("🧩 Mode: %s | Port: %d | Bridge room: %s\n", cfg.Mode, cfg.Port, cfg.Bridge.Room)
	return &cfg, nil
}
