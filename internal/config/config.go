package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Load 读取 YAML 配置文件并返回校验后的 Config。
func Load(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("config path cannot be empty")
	}
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file failed (%s): %w", path, err)
	}
	return fromViper(v)
}

// LoadDefaults 返回不依赖任何文件的默认配置,配置文件缺失时使用。
func LoadDefaults() *Config {
	var cfg Config
	cfg.applyDefaults(make(keySet))
	if err := validate(&cfg); err != nil {
		// 默认值自身必须通过校验
		panic(fmt.Sprintf("default config invalid: %v", err))
	}
	return &cfg
}

func fromViper(v *viper.Viper) (*Config, error) {
	settings := v.AllSettings()
	if err := validateSchema(settings); err != nil {
		return nil, fmt.Errorf("config schema validation failed: %w", err)
	}
	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "toml"
		dc.WeaklyTypedInput = true
	}); err != nil {
		return nil, fmt.Errorf("parsing config failed: %w", err)
	}
	setKeys := make(keySet)
	collectSettingsKeys(settings, setKeys)
	cfg.applyDefaults(setKeys)
	applyEnvCredentials(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnvCredentials 允许实盘凭证从环境变量注入,避免写进配置文件。
func applyEnvCredentials(cfg *Config) {
	if strings.TrimSpace(cfg.Live.PrivateKey) == "" {
		cfg.Live.PrivateKey = os.Getenv("POLYMARKET_PRIVATE_KEY")
	}
	if strings.TrimSpace(cfg.Live.Funder) == "" {
		cfg.Live.Funder = os.Getenv("POLYMARKET_FUNDER")
	}
}

func collectSettingsKeys(settings map[string]any, dest keySet) {
	if dest == nil || len(settings) == 0 {
		return
	}
	flattenConfigKeys("", settings, dest)
}

func flattenConfigKeys(prefix string, node any, dest keySet) {
	switch val := node.(type) {
	case map[string]any:
		for k, v := range val {
			next := strings.ToLower(strings.TrimSpace(k))
			if next == "" {
				continue
			}
			if prefix != "" {
				next = prefix + "." + next
			}
			flattenConfigKeys(next, v, dest)
		}
	case map[interface{}]interface{}:
		for k, v := range val {
			keyStr, ok := k.(string)
			if !ok {
				continue
			}
			next := strings.ToLower(strings.TrimSpace(keyStr))
			if next == "" {
				continue
			}
			if prefix != "" {
				next = prefix + "." + next
			}
			flattenConfigKeys(next, v, dest)
		}
	case []any:
		if prefix != "" {
			dest.mark(prefix)
		}
		for _, item := range val {
			flattenConfigKeys(prefix, item, dest)
		}
	default:
		if prefix != "" {
			dest.mark(prefix)
		}
	}
}
