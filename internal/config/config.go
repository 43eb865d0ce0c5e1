package config

import (
	"fmt"
	"log"

	"github.com/spf13/viper"
)

// global configuration structure
type Config struct {
	Bot        BotConfig        `mapstructure:"bot"`
	Logger     LoggerConfig     `mapstructure:"logger"`
	Moderation ModerationConfig `mapstructure:"moderation"`
	Database   DatabaseConfig   `mapstructure:"database"`
}

// WhatsApp bot configuration
type BotConfig struct {
	Name         string   `mapstructure:"name"`
	OwnerJID     string   `mapstructure:"owner_jid"`
	Prefixes     []string `mapstructure:"prefixes"`
	SessionDB    string   `mapstructure:"session_db"`
	PairPhone    string   `mapstructure:"pair_phone"`
	AllowedLinks []string `mapstructure:"allowed_links"`
}

// logging configuration
type LoggerConfig struct {
	Directory  string            `mapstructure:"directory"`
	Rotation   LogRotationConfig `mapstructure:"rotation"`
	Timezone   string            `mapstructure:"timezone"`
	TimeFormat string            `mapstructure:"time_format"`
	Level      string            `mapstructure:"level"`
}

// log rotation settings
type LogRotationConfig struct {
	MaxSize    int  `mapstructure:"max_size"`
	MaxBackups int  `mapstructure:"max_backups"`
	MaxAge     int  `mapstructure:"max_age"`
	Compress   bool `mapstructure:"compress"`
}

type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	Path     string `mapstructure:"path"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	Charset  string `mapstructure:"charset"`
}

// moderation defaults applied to newly seen groups
type ModerationConfig struct {
	MaxWarnings     int  `mapstructure:"max_warnings"`
	Autoban         bool `mapstructure:"autoban"`
	RemovalTimeout  int  `mapstructure:"removal_timeout_secs"`
	FloodLimit      int  `mapstructure:"flood_limit"`
	FloodWindowSecs int  `mapstructure:"flood_window_secs"`
	InactiveDays    int  `mapstructure:"inactive_days"`
}

var cfg *Config

func Load(configPath string) (*Config, error) {
	if configPath == "" {
		return nil, fmt.Errorf("config file path is required")
	}

	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	log.Printf("Using config file: %s", v.ConfigFileUsed())

	// Unmarshal configuration
	cfg = &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if cfg.Bot.OwnerJID == "" {
		return nil, fmt.Errorf("bot.owner_jid is required")
	}
	if cfg.Moderation.MaxWarnings < 1 {
		return nil, fmt.Errorf("moderation.max_warnings must be at least 1")
	}

	return cfg, nil
}

func Get() *Config {
	if cfg == nil {
		log.Fatal("Configuration not initialized, call Load() first")
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("bot.name", "GroupGuard")
	v.SetDefault("bot.prefixes", []string{"!", "#", "."})
	v.SetDefault("bot.session_db", "file:session.db?_foreign_keys=on")
	v.SetDefault("bot.allowed_links", []string{"youtube.com", "youtu.be", "instagram.com", "tiktok.com"})

	v.SetDefault("logger.directory", "logs")
	v.SetDefault("logger.rotation.max_size", 10)
	v.SetDefault("logger.rotation.max_backups", 30)
	v.SetDefault("logger.rotation.max_age", 90)
	v.SetDefault("logger.rotation.compress", true)
	v.SetDefault("logger.timezone", "Local")
	v.SetDefault("logger.time_format", "2006/01/02 15:04:05")
	v.SetDefault("logger.level", "INFO")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "groupguard.db")
	v.SetDefault("database.charset", "utf8mb4")

	v.SetDefault("moderation.max_warnings", 3)
	v.SetDefault("moderation.autoban", false)
	v.SetDefault("moderation.removal_timeout_secs", 5)
	v.SetDefault("moderation.flood_limit", 10)
	v.SetDefault("moderation.flood_window_secs", 60)
	v.SetDefault("moderation.inactive_days", 7)
}
