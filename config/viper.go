package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/viper"
)

type Config struct {
	Log       logConfig       `toml:"log" mapstructure:"log" json:"log"`
	Fetch     fetchConfig     `toml:"fetch" mapstructure:"fetch" json:"fetch"`
	Resolve   resolveConfig   `toml:"resolve" mapstructure:"resolve" json:"resolve"`
	Download  downloadConfig  `toml:"download" mapstructure:"download" json:"download"`
	Cache     cacheConfig     `toml:"cache" mapstructure:"cache" json:"cache"`
	Providers providersConfig `toml:"providers" mapstructure:"providers" json:"providers"`
	Ytdlp     ytdlpConfig     `toml:"ytdlp" mapstructure:"ytdlp" json:"ytdlp"`
}

type logConfig struct {
	Level string `toml:"level" mapstructure:"level" json:"level"`
	File  string `toml:"file" mapstructure:"file" json:"file"`
}

type fetchConfig struct {
	// seconds
	Timeout        int    `toml:"timeout" mapstructure:"timeout" json:"timeout"`
	ConnectTimeout int    `toml:"connect_timeout" mapstructure:"connect_timeout" json:"connect_timeout"`
	Retry          uint   `toml:"retry" mapstructure:"retry" json:"retry"`
	Proxy          string `toml:"proxy" mapstructure:"proxy" json:"proxy"`
}

func (c fetchConfig) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

func (c fetchConfig) ConnectTimeoutDuration() time.Duration {
	return time.Duration(c.ConnectTimeout) * time.Second
}

type resolveConfig struct {
	MaxHops int `toml:"max_hops" mapstructure:"max_hops" json:"max_hops"`
}

type downloadConfig struct {
	Dir         string `toml:"dir" mapstructure:"dir" json:"dir"`
	Parallel    int    `toml:"parallel" mapstructure:"parallel" json:"parallel"`
	FFmpeg      string `toml:"ffmpeg" mapstructure:"ffmpeg" json:"ffmpeg"`
	ToolTimeout int    `toml:"tool_timeout" mapstructure:"tool_timeout" json:"tool_timeout"`
}

func (c downloadConfig) ToolTimeoutDuration() time.Duration {
	return time.Duration(c.ToolTimeout) * time.Second
}

type ytdlpConfig struct {
	Enable bool     `toml:"enable" mapstructure:"enable" json:"enable"`
	Hosts  []string `toml:"hosts" mapstructure:"hosts" json:"hosts"`
	Format string   `toml:"format" mapstructure:"format" json:"format"`
}

var cfg = defaultConfig()

func C() *Config {
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "INFO")

	v.SetDefault("fetch.timeout", 60)
	v.SetDefault("fetch.connect_timeout", 5)
	v.SetDefault("fetch.retry", 1)

	v.SetDefault("resolve.max_hops", 5)

	v.SetDefault("download.dir", "downloads")
	v.SetDefault("download.parallel", 4)
	v.SetDefault("download.ffmpeg", "ffmpeg")
	v.SetDefault("download.tool_timeout", 600)

	v.SetDefault("cache.ttl", 3600)
	v.SetDefault("cache.num_counters", 100000)
	v.SetDefault("cache.max_cost", 10000)

	v.SetDefault("providers.plugin_enable", false)
	v.SetDefault("providers.plugin_dirs", []string{"plugins"})

	v.SetDefault("ytdlp.enable", false)
	v.SetDefault("ytdlp.hosts", []string{"vimeo.com", "dailymotion.com", "twitch.tv"})
	v.SetDefault("ytdlp.format", "best[ext=mp4]/best")
}

func defaultConfig() *Config {
	v := viper.New()
	setDefaults(v)
	c := &Config{}
	if err := v.Unmarshal(c); err != nil {
		panic(err)
	}
	return c
}

// Init loads configFile, or ./config.toml when empty, writing the defaults
// there on first run. Environment variables prefixed with SKRAPER_ and flags
// bound through RegisterFlags override file values.
func Init(ctx context.Context, configFile string) error {
	logger := log.FromContext(ctx)
	setDefaults(viper.GetViper())
	viper.SetConfigType("toml")
	viper.SetEnvPrefix("SKRAPER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName("config")
		viper.AddConfigPath(".")
		viper.AddConfigPath("/etc/skraper/")
		if err := viper.SafeWriteConfigAs("config.toml"); err != nil {
			var exists viper.ConfigFileAlreadyExistsError
			if !errors.As(err, &exists) {
				return fmt.Errorf("error saving default config: %w", err)
			}
		} else {
			logger.Info("Default config written", "file", "config.toml")
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}

	loaded := &Config{}
	if err := viper.Unmarshal(loaded); err != nil {
		return fmt.Errorf("error unmarshalling config file: %w", err)
	}
	if err := loaded.validate(); err != nil {
		return err
	}
	cfg = loaded
	logger.Debug("Config loaded", "file", viper.ConfigFileUsed())
	return nil
}

func (c *Config) validate() error {
	if c.Download.Parallel < 1 {
		return fmt.Errorf("download.parallel must be greater than 0, got %d", c.Download.Parallel)
	}
	if c.Resolve.MaxHops < 1 {
		return fmt.Errorf("resolve.max_hops must be greater than 0, got %d", c.Resolve.MaxHops)
	}
	if c.Fetch.Timeout < 1 || c.Fetch.ConnectTimeout < 1 {
		return fmt.Errorf("fetch timeouts must be greater than 0, got timeout=%d connect_timeout=%d", c.Fetch.Timeout, c.Fetch.ConnectTimeout)
	}
	return nil
}

func Set(key string, value any) {
	viper.Set(key, value)
}
