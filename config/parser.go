package config

type providersConfig struct {
	PluginEnable bool     `toml:"plugin_enable" mapstructure:"plugin_enable" json:"plugin_enable"`
	PluginDirs   []string `toml:"plugin_dirs" mapstructure:"plugin_dirs" json:"plugin_dirs"`
	// per provider tables, e.g. [providers.twitter]
	ProviderCfgs map[string]map[string]any `mapstructure:",remain" json:"-"`
}

func (c Config) GetProviderConfigByName(name string) map[string]any {
	if c.Providers.ProviderCfgs == nil {
		return nil
	}
	return c.Providers.ProviderCfgs[name]
}
