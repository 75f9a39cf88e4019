package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration (file + env overrides)
type Config struct {
	Server struct {
		Addr     string `mapstructure:"addr"`
		LogLevel string `mapstructure:"log_level"`
	} `mapstructure:"server"`

	Postgres struct {
		Host         string `mapstructure:"host"`
		Port         int    `mapstructure:"port"`
		User         string `mapstructure:"user"`
		Password     string `mapstructure:"password"`
		DBName       string `mapstructure:"db_name"`
		SSLMode      string `mapstructure:"ssl_mode"`
		MaxOpenConns int    `mapstructure:"max_open_conns"`
		MaxIdleConns int    `mapstructure:"max_idle_conns"`
	} `mapstructure:"postgres"`

	Listener struct {
		Channel          string `mapstructure:"channel"`
		ReconnectSeconds int    `mapstructure:"reconnect_seconds"`
	} `mapstructure:"listener"`

	Kit struct {
		SettingsFile     string `mapstructure:"settings_file"`
		SyncSeconds      int    `mapstructure:"sync_seconds"`
		NotificationsMax int    `mapstructure:"notifications_max"`
	} `mapstructure:"kit"`

	// Device describes the simulated handset the client runs on.
	Device struct {
		APILevel         int    `mapstructure:"api_level"`
		LocationGranted  bool   `mapstructure:"location_granted"`
		PreviouslyDenied bool   `mapstructure:"previously_denied"`
		Bluetooth        bool   `mapstructure:"bluetooth"`
		BluetoothLE      bool   `mapstructure:"bluetooth_le"`
		PlayServices     string `mapstructure:"play_services"`
	} `mapstructure:"device"`
}

func Load() Config {
	v := viper.New()
	v.SetConfigName("application")
	v.SetConfigType("yaml")
	v.AddConfigPath("configs")
	setDefaults(v)
	_ = v.ReadInConfig() // optional; env can fully configure

	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Errorf("unable to decode config: %w", err))
	}
	validate(&cfg)
	return cfg
}

// setDefaults registers keys so AutomaticEnv can override them without a file.
func setDefaults(v *viper.Viper) {
	v.SetDefault("device.api_level", 26)
	v.SetDefault("device.location_granted", true)
	v.SetDefault("device.bluetooth", true)
	v.SetDefault("device.bluetooth_le", true)
	v.SetDefault("device.play_services", "available")
}

func validate(c *Config) {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Postgres.Port == 0 {
		c.Postgres.Port = 5432
	}
	if c.Postgres.SSLMode == "" {
		c.Postgres.SSLMode = "disable"
	}
	if c.Postgres.MaxOpenConns == 0 {
		c.Postgres.MaxOpenConns = 10
	}
	if c.Postgres.MaxIdleConns == 0 {
		c.Postgres.MaxIdleConns = 10
	}
	if c.Listener.Channel == "" {
		c.Listener.Channel = "campaignkit_events"
	}
	if c.Listener.ReconnectSeconds <= 0 {
		c.Listener.ReconnectSeconds = 5
	}
	if c.Kit.SettingsFile == "" {
		c.Kit.SettingsFile = "configs/kit.yaml"
	}
	if c.Kit.SyncSeconds < 0 {
		c.Kit.SyncSeconds = 0
	}
	if c.Kit.NotificationsMax <= 0 {
		c.Kit.NotificationsMax = 50
	}
}

func (c Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Postgres.User,
		c.Postgres.Password,
		c.Postgres.Host,
		c.Postgres.Port,
		c.Postgres.DBName,
		c.Postgres.SSLMode,
	)
}

func (c Config) Backoff() time.Duration {
	return time.Duration(c.Listener.ReconnectSeconds) * time.Second
}

func (c Config) SyncInterval() time.Duration { return time.Duration(c.Kit.SyncSeconds) * time.Second }
