package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Mode       string `mapstructure:"mode"`
	Port       int    `mapstructure:"port"`
	CallPort   int    `mapstructure:"call_port"`
	StaticPath string `mapstructure:"static_path"`
	Secret     string `mapstructure:"secret"`
	LogLevel   string `mapstructure:"log_level"`

	ReadLimit      int64         `mapstructure:"read_limit"`
	PingPeriod     time.Duration `mapstructure:"ping_period"`
	SendBuffer     int           `mapstructure:"send_buffer"`
	HubQueue       int           `mapstructure:"hub_queue"`
	MaxConnections int           `mapstructure:"max_connections"`
	Backpressure   string        `mapstructure:"backpressure"`

	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	ConnTimeout   time.Duration `mapstructure:"conn_timeout"`
	RoomMaxAge    time.Duration `mapstructure:"room_max_age"`
	RingTimeout   time.Duration `mapstructure:"ring_timeout"`

	ChatHistory     int           `mapstructure:"chat_history"`
	SnapshotHistory int           `mapstructure:"snapshot_history"`
	ChatRateLimit   int           `mapstructure:"chat_rate_limit"`
	ChatRateWindow  time.Duration `mapstructure:"chat_rate_window"`

	ICEServers     []string `mapstructure:"ice_servers"`
	TURNUsername   string   `mapstructure:"turn_username"`
	TURNCredential string   `mapstructure:"turn_credential"`
}

// Load reads config/config.<CONFIG_ENV>.yaml over the defaults; PULSE_* variables win over both.
func Load() (*Config, error) {
	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	return LoadFile(fmt.Sprintf("config/config.%s.yaml", env))
}

func LoadFile(fileName string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("PULSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log.Info().Str("module", "config").Str("mode", cfg.Mode).Int("port", cfg.Port).Int("call_port", cfg.CallPort).Msg("config ready")
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("call_port", 8081)
	v.SetDefault("static_path", "./web")
	v.SetDefault("secret", "change-me")
	v.SetDefault("log_level", "info")

	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("send_buffer", 32)
	v.SetDefault("hub_queue", 1024)
	v.SetDefault("max_connections", 1000)
	v.SetDefault("backpressure", "kick")

	v.SetDefault("sweep_interval", "30s")
	v.SetDefault("conn_timeout", "60s")
	v.SetDefault("room_max_age", "24h")
	v.SetDefault("ring_timeout", "5m")

	v.SetDefault("chat_history", 100)
	v.SetDefault("snapshot_history", 50)
	v.SetDefault("chat_rate_limit", 10)
	v.SetDefault("chat_rate_window", "10s")

	v.SetDefault("ice_servers", []string{"stun:stun.l.google.com:19302"})
	v.SetDefault("turn_username", "")
	v.SetDefault("turn_credential", "")
}

func (c *Config) Validate() error {
	if c.Port <= 0 || c.CallPort <= 0 {
		return fmt.Errorf("invalid port: port=%d call_port=%d", c.Port, c.CallPort)
	}
	if c.PingPeriod <= 0 || c.ConnTimeout <= c.PingPeriod {
		return fmt.Errorf("conn_timeout (%s) must exceed ping_period (%s)", c.ConnTimeout, c.PingPeriod)
	}
	switch c.Backpressure {
	case "drop", "kick":
	default:
		return fmt.Errorf("unknown backpressure policy %q", c.Backpressure)
	}
	return nil
}
