package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// RegisterFlags adds the persistent flags shared by every command.
func RegisterFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()

	flags.StringP("config", "c", "", "config file path")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.String("proxy", "", "proxy URL (http, https, socks5, socks5h)")
	flags.Int("timeout", 0, "request timeout in seconds")
	flags.Uint("retry", 0, "request attempts on network errors and 5xx")
	flags.Int("max-hops", 0, "maximum media resolution hops")
	flags.String("ffmpeg", "", "ffmpeg binary")

	flags.Bool("plugin-enable", false, "enable JS provider plugins")
	flags.StringSlice("plugin-dirs", nil, "JS provider plugin directories")
	flags.Bool("ytdlp", false, "enable the yt-dlp provider")

	bindFlags(cmd)
}

func bindFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()

	viper.BindPFlag("log.level", flags.Lookup("log-level"))
	viper.BindPFlag("fetch.proxy", flags.Lookup("proxy"))
	viper.BindPFlag("fetch.timeout", flags.Lookup("timeout"))
	viper.BindPFlag("fetch.retry", flags.Lookup("retry"))
	viper.BindPFlag("resolve.max_hops", flags.Lookup("max-hops"))
	viper.BindPFlag("download.ffmpeg", flags.Lookup("ffmpeg"))

	viper.BindPFlag("providers.plugin_enable", flags.Lookup("plugin-enable"))
	viper.BindPFlag("providers.plugin_dirs", flags.Lookup("plugin-dirs"))
	viper.BindPFlag("ytdlp.enable", flags.Lookup("ytdlp"))
}

func GetConfigFile(cmd *cobra.Command) string {
	configFile, _ := cmd.Flags().GetString("config")
	return configFile
}
