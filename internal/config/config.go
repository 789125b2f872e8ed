package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Mode         string        `mapstructure:"mode"`
	Port         int           `mapstructure:"port"`
	StaticPath   string        `mapstructure:"static_path"`
	SoundsDir    string        `mapstructure:"sounds_dir"`
	Storage      string        `mapstructure:"storage"` // json | sqlite
	CatalogPath  string        `mapstructure:"catalog_path"`
	Password     string        `mapstructure:"password"`
	PasswordHash string        `mapstructure:"password_hash"`
	Secret       string        `mapstructure:"secret"`
	SendBuffer   int           `mapstructure:"send_buffer"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	MaxUploadMB  int64         `mapstructure:"max_upload_mb"`
	TokenTTL     time.Duration `mapstructure:"token_ttl"` // 0 = never expire
	MaxTokens    int           `mapstructure:"max_tokens"`
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
	v.SetDefault("port", 3030)
	v.SetDefault("static_path", "./web")
	v.SetDefault("sounds_dir", "./sounds")
	v.SetDefault("storage", "json")
	v.SetDefault("catalog_path", "./sounds-config.json")
	v.SetDefault("password", "soundboard123")
	v.SetDefault("secret", "soundcast-cookie-secret")
	v.SetDefault("send_buffer", 32)
	v.SetDefault("write_timeout", "5s")
	v.SetDefault("max_upload_mb", 10)
	v.SetDefault("token_ttl", "0")
	v.SetDefault("max_tokens", 0)

	if err := v.ReadInConfig(); err != nil {
		// A missing file means defaults; a present but unparseable file is
		// an operator mistake that must not silently become defaults.
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read %s: %w", fileName, err)
		}
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	// SOUNDBOARD_PASSWORD overrides the file, matching how the server is
	// usually deployed.
	if pw := os.Getenv("SOUNDBOARD_PASSWORD"); pw != "" {
		v.Set("password", pw)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
