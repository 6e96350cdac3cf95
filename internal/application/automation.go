package application

import (
	"context"
	"fmt"
	"sort"

	"github.com/bnema/opsbot/internal/domain"
	"github.com/bnema/opsbot/internal/logger"
)

type SceneExecutor interface {
	ExecuteScene(ctx context.Context, token, sceneID string) error
}

type WebhookPoster interface {
	Post(ctx context.Context, url, content string) error
}

// AutomationSpec is a named routine: scenes run in order, then an optional
// webhook message.
type AutomationSpec struct {
	Scenes  []string `mapstructure:"scenes"`
	Message string   `mapstructure:"message"`
}

type AutomationReport struct {
	Name     string   `json:"name"`
	Scenes   []string `json:"scenes"`
	Notified bool     `json:"notified"`
}

type Automation struct {
	credentials *CredentialService
	scenes      SceneExecutor
	webhook     WebhookPoster
	specs       map[string]AutomationSpec
	log         logger.Logger
}

func NewAutomation(credentials *CredentialService, scenes SceneExecutor, webhook WebhookPoster, specs map[string]AutomationSpec, log logger.Logger) *Automation {
	if log == nil {
		log = logger.NewNop()
	}
	return &Automation{credentials: credentials, scenes: scenes, webhook: webhook, specs: specs, log: log}
}

func (a *Automation) Names() []string {
	names := make([]string, 0, len(a.specs))
	for name := range a.specs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Run executes the named automation. A failing scene stops the run before the
// webhook is posted.
func (a *Automation) Run(ctx context.Context, name string) (AutomationReport, error) {
	spec, ok := a.specs[name]
	if !ok {
		return AutomationReport{}, fmt.Errorf("%w: unknown automation %q", domain.ErrConfig, name)
	}
	if len(spec.Scenes) == 0 && spec.Message == "" {
		return AutomationReport{}, fmt.Errorf("%w: automation %q has neither scenes nor message", domain.ErrConfig, name)
	}

	credentials, err := a.credentials.Load(ctx)
	if err != nil {
		return AutomationReport{}, err
	}

	report := AutomationReport{Name: name}
	if len(spec.Scenes) > 0 {
		token, err := credentials.SwitchBotToken()
		if err != nil {
			return report, err
		}
		for _, sceneID := range spec.Scenes {
			if err := a.scenes.ExecuteScene(ctx, token, sceneID); err != nil {
				return report, fmt.Errorf("automation %s: scene %s: %w", name, sceneID, err)
			}
			a.log.Info("scene executed", logger.String("automation", name), logger.String("scene", sceneID))
			report.Scenes = append(report.Scenes, sceneID)
		}
	}

	if spec.Message != "" {
		url := credentials.WebhookURL()
		if url == "" {
			a.log.Debug("no webhook configured, skipping message", logger.String("automation", name))
			return report, nil
		}
		if err := a.webhook.Post(ctx, url, spec.Message); err != nil {
			return report, fmt.Errorf("automation %s: notify: %w", name, err)
		}
		report.Notified = true
	}
	return report, nil
}
