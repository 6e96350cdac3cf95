package cmd

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/bnema/opsbot/internal/adapters/chat/discord"
	"github.com/bnema/opsbot/internal/adapters/dotenv"
	"github.com/bnema/opsbot/internal/adapters/httpjson"
	"github.com/bnema/opsbot/internal/adapters/notion"
	outcomeadapter "github.com/bnema/opsbot/internal/adapters/render/outcome"
	tomlrepo "github.com/bnema/opsbot/internal/adapters/repo/toml"
	chainstore "github.com/bnema/opsbot/internal/adapters/secrets/chain"
	"github.com/bnema/opsbot/internal/adapters/switchbot"
	"github.com/bnema/opsbot/internal/adapters/webhook"
	"github.com/bnema/opsbot/internal/application"
	"github.com/bnema/opsbot/internal/logger"
	"github.com/bnema/opsbot/internal/ports"
	"github.com/spf13/viper"
)

const webhookUsername = "opsbot"

// globalFlags are the persistent root flags.
type globalFlags struct {
	envFile    string
	configPath string
	logLevel   string
	json       bool
	dryRun     bool
}

// deps are the collaborators tests replace. Nil fields get the real adapter.
type deps struct {
	gateway    ports.ChatGateway
	secrets    ports.SecretStore
	persistent ports.SecretStore
	httpClient *http.Client
	clock      ports.Clock
	log        logger.Logger
	noSpinner  bool
}

type app struct {
	flags       globalFlags
	config      tomlrepo.Config
	log         logger.Logger
	clock       ports.Clock
	credentials *application.CredentialService
	runner      *application.Runner
	manifests   ports.ManifestRepository
	notion      *notion.Client
	switchbot   *switchbot.Client
	automation  *application.Automation
	renderer    func(application.Result, outcomeadapter.RenderOptions) (string, error)
	spinner     bool
}

// wireApp loads config and the env file, then builds every service. envFileSet
// makes a missing env file an error.
func wireApp(flags globalFlags, envFileSet bool, d deps) (*app, error) {
	config, err := tomlrepo.LoadConfig(viper.New(), flags.configPath)
	if err != nil {
		return nil, err
	}

	level := config.LogLevel
	if flags.logLevel != "" {
		level = flags.logLevel
	}
	log := d.log
	if log == nil {
		log, err = logger.New(level, config.LogPretty)
		if err != nil {
			return nil, fmt.Errorf("wire logger: %w", err)
		}
	}
	debugging := strings.EqualFold(strings.TrimSpace(level), "debug")

	envPath := config.EnvPath
	if envFileSet {
		envPath = flags.envFile
	}
	if err := loadEnvFile(envPath, envFileSet, config.EnvOverwrite); err != nil {
		return nil, err
	}

	secrets, persistent := d.secrets, d.persistent
	if secrets == nil {
		store, err := chainstore.NewCredentialChain(config.SecretsDir)
		if err != nil {
			return nil, fmt.Errorf("wire credential chain: %w", err)
		}
		secrets = store
	}
	if persistent == nil {
		store, err := chainstore.NewPersistentChain(config.SecretsDir)
		if err != nil {
			return nil, fmt.Errorf("wire persistent secret chain: %w", err)
		}
		persistent = store
	}

	httpClient := d.httpClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.HTTPTimeout}
	}
	poster := httpjson.NewClient(httpClient, httpjson.WithRetries(config.HTTPRetries))

	gateway := d.gateway
	if gateway == nil {
		gateway = discord.NewGateway(log, httpClient)
	}

	clock := d.clock
	if clock == nil {
		clock = ports.SystemClock{}
	}

	credentials := application.NewCredentialService(secrets, persistent, log)
	harness := application.NewHarness(gateway, log,
		application.WithConnectTimeout(config.ConnectTimeout),
		application.WithActionTimeout(config.ActionTimeout),
	)
	executor := application.NewExecutor(application.NewResolver(), log)
	scenes := switchbot.NewClient(poster, config.SwitchBotBaseURL)

	return &app{
		flags:       flags,
		config:      config,
		log:         log,
		clock:       clock,
		credentials: credentials,
		runner:      application.NewRunner(credentials, harness, executor, log),
		manifests:   tomlrepo.NewManifestRepository(),
		notion:      notion.NewClient(poster, config.NotionBaseURL, config.NotionVersion),
		switchbot:   scenes,
		automation: application.NewAutomation(credentials, scenes, webhook.NewClient(poster, webhookUsername),
			automationSpecs(config.Automations), log),
		renderer: outcomeadapter.Render,
		spinner:  !flags.json && !d.noSpinner && !debugging,
	}, nil
}

func loadEnvFile(path string, required, overwrite bool) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	loader := dotenv.NewLoader()
	opts := dotenv.Options{Overwrite: overwrite}
	if required {
		_, err := loader.Load(path, opts)
		return err
	}
	_, err := loader.LoadOptional(path, opts)
	return err
}

func automationSpecs(configs map[string]tomlrepo.AutomationConfig) map[string]application.AutomationSpec {
	specs := make(map[string]application.AutomationSpec, len(configs))
	for name, config := range configs {
		specs[name] = application.AutomationSpec{Scenes: config.Scenes, Message: config.Message}
	}
	return specs
}
