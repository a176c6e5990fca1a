package config

import (
	"time"

	"github.com/spf13/viper"
)

type APICfg struct {
	BaseURL        string `mapstructure:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

type HubCfg struct {
	// URL overrides the hub endpoint; empty composes base_url +
	// /notificationHub.
	URL                  string `mapstructure:"url"`
	PingIntervalSeconds  int    `mapstructure:"ping_interval_seconds"`
	WriteDeadlineSeconds int    `mapstructure:"write_deadline_seconds"`
	ReadTimeoutSeconds   int    `mapstructure:"read_timeout_seconds"`
}

type NotificationsCfg struct {
	// Dedup drops pushed notifications whose id the initial load
	// already returned. Off by default to match the deployed feed.
	Dedup bool `mapstructure:"dedup"`
}

type ToastCfg struct {
	PerMinute int `mapstructure:"per_minute"`
}

type Config struct {
	Env           string           `mapstructure:"env"`
	API           APICfg           `mapstructure:"api"`
	Hub           HubCfg           `mapstructure:"hub"`
	Notifications NotificationsCfg `mapstructure:"notifications"`
	Toast         ToastCfg         `mapstructure:"toast"`

	// derived
	APITimeout       time.Duration
	HubPingInterval  time.Duration
	HubWriteDeadline time.Duration
	HubReadTimeout   time.Duration
}

func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.AutomaticEnv()
	v.SetEnvPrefix("AGENT")

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, err
	}

	if c.API.TimeoutSeconds == 0 {
		c.API.TimeoutSeconds = 15
	}
	if c.Hub.PingIntervalSeconds == 0 {
		c.Hub.PingIntervalSeconds = 25
	}
	if c.Hub.WriteDeadlineSeconds == 0 {
		c.Hub.WriteDeadlineSeconds = 10
	}
	if c.Hub.ReadTimeoutSeconds == 0 {
		c.Hub.ReadTimeoutSeconds = 60
	}
	if c.Toast.PerMinute == 0 {
		c.Toast.PerMinute = 30
	}
	if c.Hub.URL == "" && c.API.BaseURL != "" {
		c.Hub.URL = c.API.BaseURL + "/notificationHub"
	}

	c.APITimeout = time.Duration(c.API.TimeoutSeconds) * time.Second
	c.HubPingInterval = time.Duration(c.Hub.PingIntervalSeconds) * time.Second
	c.HubWriteDeadline = time.Duration(c.Hub.WriteDeadlineSeconds) * time.Second
	c.HubReadTimeout = time.Duration(c.Hub.ReadTimeoutSeconds) * time.Second
	return &c, nil
}
