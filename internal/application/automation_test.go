package application

import (
	"context"
	"testing"

	"github.com/bnema/opsbot/internal/domain"
	"github.com/bnema/opsbot/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingScenes struct {
	calls []string
	fail  map[string]error
}

func (r *recordingScenes) ExecuteScene(_ context.Context, token, sceneID string) error {
	r.calls = append(r.calls, token+"/"+sceneID)
	return r.fail[sceneID]
}

type recordingWebhook struct {
	url     string
	content string
}

func (r *recordingWebhook) Post(_ context.Context, url, content string) error {
	r.url, r.content = url, content
	return nil
}

func newTestAutomation(t *testing.T, secrets map[string]string, scenes *recordingScenes, webhook *recordingWebhook) *Automation {
	t.Helper()

	specs := map[string]AutomationSpec{
		"morning":   {Scenes: []string{"scene-curtains", "scene-lights"}, Message: "Good morning"},
		"aircon_on": {Scenes: []string{"scene-aircon"}},
		"empty":     {},
	}
	credentials := NewCredentialService(secretsFrom(t, secrets), nil, logger.NewNop())
	return NewAutomation(credentials, scenes, webhook, specs, logger.NewNop())
}

func TestAutomationRunsScenesThenNotifies(t *testing.T) {
	t.Parallel()

	scenes := &recordingScenes{}
	webhook := &recordingWebhook{}
	automation := newTestAutomation(t, map[string]string{
		domain.KeySwitchBotToken:    "sb-token",
		domain.KeyDiscordWebhookURL: "https://discord.example/api/webhooks/1/x",
	}, scenes, webhook)

	report, err := automation.Run(context.Background(), "morning")
	require.NoError(t, err)

	assert.Equal(t, []string{"sb-token/scene-curtains", "sb-token/scene-lights"}, scenes.calls)
	assert.True(t, report.Notified)
	assert.Equal(t, "Good morning", webhook.content)
	assert.Equal(t, []string{"aircon_on", "empty", "morning"}, automation.Names())
}

func TestAutomationSceneFailureStopsRun(t *testing.T) {
	t.Parallel()

	scenes := &recordingScenes{fail: map[string]error{"scene-curtains": domain.NewPlatformError(500, 0, "", nil)}}
	webhook := &recordingWebhook{}
	automation := newTestAutomation(t, map[string]string{
		domain.KeySwitchBotToken:    "sb-token",
		domain.KeyDiscordWebhookURL: "https://discord.example/api/webhooks/1/x",
	}, scenes, webhook)

	report, err := automation.Run(context.Background(), "morning")

	assert.ErrorIs(t, err, domain.ErrPlatform)
	assert.Empty(t, report.Scenes)
	assert.Len(t, scenes.calls, 1)
	assert.Empty(t, webhook.content)
}

func TestAutomationWithoutWebhookSkipsMessage(t *testing.T) {
	t.Parallel()

	webhook := &recordingWebhook{}
	automation := newTestAutomation(t, map[string]string{domain.KeySwitchBotToken: "sb"}, &recordingScenes{}, webhook)

	report, err := automation.Run(context.Background(), "morning")
	require.NoError(t, err)
	assert.False(t, report.Notified)
	assert.Empty(t, webhook.url)
}

func TestAutomationConfigErrors(t *testing.T) {
	t.Parallel()

	automation := newTestAutomation(t, nil, &recordingScenes{}, &recordingWebhook{})

	_, err := automation.Run(context.Background(), "bedtime")
	assert.ErrorIs(t, err, domain.ErrConfig)

	_, err = automation.Run(context.Background(), "empty")
	assert.ErrorIs(t, err, domain.ErrConfig)

	_, err = automation.Run(context.Background(), "aircon_on")
	assert.ErrorIs(t, err, domain.ErrConfig)
}
