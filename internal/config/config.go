package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"

	"github.com/fluxsocial/voicerelay/internal/domain"
)

// StaticRoom is a room provisioned from the config file, used when no
// external directory service is configured (and by local development).
type StaticRoom struct {
	ID        string `mapstructure:"id"`
	Name      string `mapstructure:"name"`
	MaxUsers  int    `mapstructure:"max_users"`
	Bitrate   int    `mapstructure:"bitrate"`
	Temporary bool   `mapstructure:"temporary"`
}

type Config struct {
	Mode             string        `mapstructure:"mode"`
	Port             int           `mapstructure:"port"`
	ReadLimit        int64         `mapstructure:"read_limit"`
	PingPeriod       time.Duration `mapstructure:"ping_period"`
	WriteTimeout     time.Duration `mapstructure:"write_timeout"`
	Secret           string        `mapstructure:"secret"`
	DirectoryURL     string        `mapstructure:"directory_url"`
	DirectoryTimeout time.Duration `mapstructure:"directory_timeout"`
	MetricsEnabled   bool          `mapstructure:"metrics_enabled"`
	JoinLimit        int           `mapstructure:"join_limit"`
	JoinLimitWindow  time.Duration `mapstructure:"join_limit_window"`
	Rooms            []StaticRoom  `mapstructure:"rooms"`
}

func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	if path == "" {
		env := os.Getenv("CONFIG_ENV")
		if env == "" {
			env = "dev"
		}
		path = fmt.Sprintf("config/config.%s.yaml", env)
	}
	v.SetConfigFile(path)

	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("write_timeout", "5s")
	v.SetDefault("directory_timeout", "5s")
	v.SetDefault("metrics_enabled", true)
	v.SetDefault("join_limit", 10)
	v.SetDefault("join_limit_window", "10s")

	var cfg Config
	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("config file not found (%s), using defaults\n", path)
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}

// Room converts a static entry into a validated domain record.
func (r StaticRoom) Room() (*domain.Room, error) {
	return domain.NewRoom(domain.RoomID(r.ID), r.Name, r.MaxUsers, r.Bitrate, r.Temporary)
}
