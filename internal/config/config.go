// Package config loads binary settings from .env, a config file, the
// environment and command-line flags.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/zberg/go-ditraheat/pkg/ditraheat"
)

// EnvPrefix is prepended to every environment variable, e.g.
// DITRAHEAT_SERIAL_NUMBER or DITRAHEAT_MQTT_BROKER.
const EnvPrefix = "DITRAHEAT"

var (
	ErrMissingEmail        = errors.New("config: email is required")
	ErrMissingPassword     = errors.New("config: password is required")
	ErrMissingSerialNumber = errors.New("config: serial_number is required")
)

type Config struct {
	Email          string        `mapstructure:"email"`
	Password       string        `mapstructure:"password"`
	SerialNumber   string        `mapstructure:"serial_number"`
	RegulationMode string        `mapstructure:"regulation_mode"`
	ComfortHours   float64       `mapstructure:"comfort_hours"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	PollInterval   time.Duration `mapstructure:"poll_interval"`
	LogLevel       string        `mapstructure:"log_level"`
	MQTT           MQTTConfig    `mapstructure:"mqtt"`
	HTTP           HTTPConfig    `mapstructure:"http"`
	HomeKit        HomeKitConfig `mapstructure:"homekit"`
}

type MQTTConfig struct {
	Broker      string `mapstructure:"broker"`
	ClientID    string `mapstructure:"client_id"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	TopicPrefix string `mapstructure:"topic_prefix"`
}

type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

type HomeKitConfig struct {
	Name      string `mapstructure:"name"`
	Pin       string `mapstructure:"pin"`
	StorePath string `mapstructure:"store_path"`
	Addr      string `mapstructure:"addr"`
}

// SetDefaults registers every key so environment variables are picked up
// by Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("email", "")
	v.SetDefault("password", "")
	v.SetDefault("serial_number", "")
	v.SetDefault("regulation_mode", "schedule")
	v.SetDefault("comfort_hours", 2.0)
	v.SetDefault("request_timeout", "30s")
	v.SetDefault("poll_interval", "1m")
	v.SetDefault("log_level", "info")

	v.SetDefault("mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("mqtt.client_id", "ditraheat")
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")
	v.SetDefault("mqtt.topic_prefix", "ditraheat")

	v.SetDefault("http.addr", ":8080")

	v.SetDefault("homekit.name", "Floor Heat")
	v.SetDefault("homekit.pin", "00102003")
	v.SetDefault("homekit.store_path", "./homekit")
	v.SetDefault("homekit.addr", "")
}

// LoadDotEnv loads .env files into the process environment. Missing files
// are ignored and variables already set win.
func LoadDotEnv(paths ...string) {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		_ = godotenv.Load(p)
	}
}

// Load reads configuration into v and decodes it. When path is empty the
// file ditraheat.{yaml,json,toml} is looked up in the working directory and
// $HOME/.config/ditraheat; not finding one is not an error.
func Load(v *viper.Viper, path string) (*Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("ditraheat")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/ditraheat")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

// Validate checks the settings needed to reach the thermostat.
func (c *Config) Validate() error {
	if c.Email == "" {
		return ErrMissingEmail
	}
	if c.Password == "" {
		return ErrMissingPassword
	}
	if c.SerialNumber == "" {
		return ErrMissingSerialNumber
	}
	if _, err := ditraheat.ParseRegulationMode(c.RegulationMode); err != nil {
		return fmt.Errorf("config: regulation_mode: %w", err)
	}
	if c.ComfortHours <= 0 {
		return errors.New("config: comfort_hours must be positive")
	}
	if c.PollInterval <= 0 {
		return errors.New("config: poll_interval must be positive")
	}
	return nil
}

// ComfortDuration returns ComfortHours as a duration.
func (c *Config) ComfortDuration() time.Duration {
	return time.Duration(c.ComfortHours * float64(time.Hour))
}

// ClientOptions translates the settings into client options.
func (c *Config) ClientOptions(logger *slog.Logger) ([]ditraheat.Option, error) {
	mode, err := ditraheat.ParseRegulationMode(c.RegulationMode)
	if err != nil {
		return nil, err
	}

	opts := []ditraheat.Option{
		ditraheat.WithRegulationMode(mode),
		ditraheat.WithComfortDuration(c.ComfortDuration()),
		ditraheat.WithLogger(logger),
	}
	if c.RequestTimeout > 0 {
		opts = append(opts, ditraheat.WithTimeout(c.RequestTimeout))
	}
	return opts, nil
}

// NewClient validates the settings and builds a client.
func (c *Config) NewClient(logger *slog.Logger) (*ditraheat.Client, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	opts, err := c.ClientOptions(logger)
	if err != nil {
		return nil, err
	}
	return ditraheat.NewClient(c.Email, c.Password, c.SerialNumber, opts...)
}
