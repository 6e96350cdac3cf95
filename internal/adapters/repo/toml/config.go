package toml

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bnema/opsbot/internal/adapters/notion"
	"github.com/bnema/opsbot/internal/adapters/switchbot"
	"github.com/bnema/opsbot/internal/domain"
	"github.com/spf13/viper"
)

const (
	configName    = "config"
	configType    = "toml"
	configDirName = "opsbot"
	envPrefix     = "OPSBOT"
)

const (
	keyEnvPath          = "env.path"
	keyEnvOverwrite     = "env.overwrite"
	keyConnectTimeout   = "timeouts.connect"
	keyActionTimeout    = "timeouts.action"
	keyLogLevel         = "log.level"
	keyLogPretty        = "log.pretty"
	keyHTTPTimeout      = "http.timeout"
	keyHTTPRetries      = "http.retries"
	keyNotionBaseURL    = "notion.base_url"
	keyNotionVersion    = "notion.version"
	keySwitchBotBaseURL = "switchbot.base_url"
	keySecretsDir       = "secrets.dir"
	keyAutomations      = "automations"
)

// Config is the resolved runtime configuration: defaults, then config.toml,
// then OPSBOT_* environment variables.
type Config struct {
	EnvPath          string
	EnvOverwrite     bool
	ConnectTimeout   time.Duration
	ActionTimeout    time.Duration
	LogLevel         string
	LogPretty        bool
	HTTPTimeout      time.Duration
	HTTPRetries      int
	NotionBaseURL    string
	NotionVersion    string
	SwitchBotBaseURL string
	SecretsDir       string
	Automations      map[string]AutomationConfig
	// ConfigFile is empty when no config file was found.
	ConfigFile string
}

type AutomationConfig struct {
	Scenes  []string `mapstructure:"scenes"`
	Message string   `mapstructure:"message"`
}

// DefaultConfigDir is $XDG_CONFIG_HOME/opsbot, or ~/.config/opsbot.
func DefaultConfigDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config directory: %w", err)
	}
	return filepath.Join(base, configDirName), nil
}

// LoadConfig reads config.toml from the default directory, or from
// explicitPath when set. Only an explicit path must exist.
func LoadConfig(cfg *viper.Viper, explicitPath string) (Config, error) {
	if cfg == nil {
		cfg = viper.New()
	}

	configDir, err := DefaultConfigDir()
	if err != nil {
		return Config{}, err
	}

	cfg.SetDefault(keyEnvPath, ".env")
	cfg.SetDefault(keyEnvOverwrite, false)
	cfg.SetDefault(keyConnectTimeout, "30s")
	cfg.SetDefault(keyActionTimeout, "60s")
	cfg.SetDefault(keyLogLevel, "info")
	cfg.SetDefault(keyLogPretty, false)
	cfg.SetDefault(keyHTTPTimeout, "15s")
	cfg.SetDefault(keyHTTPRetries, 0)
	cfg.SetDefault(keyNotionBaseURL, notion.DefaultBaseURL)
	cfg.SetDefault(keyNotionVersion, notion.DefaultVersion)
	cfg.SetDefault(keySwitchBotBaseURL, switchbot.DefaultBaseURL)
	cfg.SetDefault(keySecretsDir, filepath.Join(configDir, "secrets"))

	cfg.SetEnvPrefix(envPrefix)
	cfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	cfg.AutomaticEnv()

	if explicitPath != "" {
		cfg.SetConfigFile(explicitPath)
	} else {
		cfg.SetConfigName(configName)
		cfg.SetConfigType(configType)
		cfg.AddConfigPath(configDir)
	}

	if err := cfg.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if explicitPath != "" || !errors.As(err, &configNotFound) {
			return Config{}, fmt.Errorf("%w: read config file: %w", domain.ErrConfig, err)
		}
	}

	config := Config{
		EnvPath:          cfg.GetString(keyEnvPath),
		EnvOverwrite:     cfg.GetBool(keyEnvOverwrite),
		ConnectTimeout:   cfg.GetDuration(keyConnectTimeout),
		ActionTimeout:    cfg.GetDuration(keyActionTimeout),
		LogLevel:         cfg.GetString(keyLogLevel),
		LogPretty:        cfg.GetBool(keyLogPretty),
		HTTPTimeout:      cfg.GetDuration(keyHTTPTimeout),
		HTTPRetries:      cfg.GetInt(keyHTTPRetries),
		NotionBaseURL:    cfg.GetString(keyNotionBaseURL),
		NotionVersion:    cfg.GetString(keyNotionVersion),
		SwitchBotBaseURL: cfg.GetString(keySwitchBotBaseURL),
		SecretsDir:       cfg.GetString(keySecretsDir),
		ConfigFile:       cfg.ConfigFileUsed(),
	}

	if err := cfg.UnmarshalKey(keyAutomations, &config.Automations); err != nil {
		return Config{}, fmt.Errorf("%w: decode automations: %w", domain.ErrConfig, err)
	}

	if err := config.validate(); err != nil {
		return Config{}, err
	}

	return config, nil
}

func (c Config) validate() error {
	var errs []error
	if c.ConnectTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%w: %s must be positive", domain.ErrConfig, keyConnectTimeout))
	}
	if c.ActionTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%w: %s must be positive", domain.ErrConfig, keyActionTimeout))
	}
	if c.HTTPTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%w: %s must be positive", domain.ErrConfig, keyHTTPTimeout))
	}
	if c.HTTPRetries < 0 {
		errs = append(errs, fmt.Errorf("%w: %s must not be negative", domain.ErrConfig, keyHTTPRetries))
	}
	for name, automation := range c.Automations {
		if len(automation.Scenes) == 0 && strings.TrimSpace(automation.Message) == "" {
			errs = append(errs, fmt.Errorf("%w: automation %q has no scenes and no message", domain.ErrConfig, name))
		}
	}
	return errors.Join(errs...)
}
