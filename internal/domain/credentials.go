package domain

import (
	"fmt"
	"strings"
)

const (
	KeyDiscordToken      = "DISCORD_TOKEN"
	KeyCodexBotToken     = "CODEX_BOT_TOKEN"
	KeyNotionToken       = "NOTION_TOKEN"
	KeyNotionTokenTask   = "NOTION_TOKEN_TASK"
	KeyNotionTokenOrder  = "NOTION_TOKEN_ORDER"
	KeyNotionTokenRice   = "NOTION_TOKEN_RICE"
	KeyNotionTokenSake   = "NOTION_TOKEN_SAKE"
	KeySwitchBotToken    = "SWITCHBOT_TOKEN"
	KeyDiscordWebhookURL = "DISCORD_WEBHOOK_URL"
)

// CredentialKeys lists every key the credential set recognises.
var CredentialKeys = []string{
	KeyDiscordToken,
	KeyCodexBotToken,
	KeyNotionToken,
	KeyNotionTokenTask,
	KeyNotionTokenOrder,
	KeyNotionTokenRice,
	KeyNotionTokenSake,
	KeySwitchBotToken,
	KeyDiscordWebhookURL,
}

// Identity selects which bot token a session connects with.
type Identity string

const (
	IdentityDiscord Identity = "discord"
	IdentityCodex   Identity = "codex"
)

func ParseIdentity(raw string) (Identity, error) {
	switch identity := Identity(strings.ToLower(strings.TrimSpace(raw))); identity {
	case "":
		return IdentityDiscord, nil
	case IdentityDiscord, IdentityCodex:
		return identity, nil
	default:
		return "", fmt.Errorf("%w: unknown bot identity %q", ErrConfig, raw)
	}
}

func (i Identity) TokenKey() string {
	if i == IdentityCodex {
		return KeyCodexBotToken
	}
	return KeyDiscordToken
}

type NotionScope string

const (
	NotionScopeDefault NotionScope = "default"
	NotionScopeTask    NotionScope = "task"
	NotionScopeOrder   NotionScope = "order"
	NotionScopeRice    NotionScope = "rice"
	NotionScopeSake    NotionScope = "sake"
)

var notionScopeKeys = map[NotionScope]string{
	NotionScopeDefault: KeyNotionToken,
	NotionScopeTask:    KeyNotionTokenTask,
	NotionScopeOrder:   KeyNotionTokenOrder,
	NotionScopeRice:    KeyNotionTokenRice,
	NotionScopeSake:    KeyNotionTokenSake,
}

func ParseNotionScope(raw string) (NotionScope, error) {
	scope := NotionScope(strings.ToLower(strings.TrimSpace(raw)))
	if scope == "" {
		return NotionScopeDefault, nil
	}
	if _, ok := notionScopeKeys[scope]; !ok {
		return "", fmt.Errorf("%w: unknown notion scope %q", ErrConfig, raw)
	}
	return scope, nil
}

// Credentials is the read-only credential set of one invocation.
type Credentials struct {
	values map[string]string
}

func NewCredentials(values map[string]string) Credentials {
	copied := make(map[string]string, len(values))
	for key, value := range values {
		if value = strings.TrimSpace(value); value != "" {
			copied[key] = value
		}
	}
	return Credentials{values: copied}
}

func (c Credentials) Get(key string) string {
	return c.values[key]
}

func (c Credentials) Has(key string) bool {
	_, ok := c.values[key]
	return ok
}

// Require fails naming every missing key.
func (c Credentials) Require(keys ...string) error {
	var missing []string
	for _, key := range keys {
		if !c.Has(key) {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing credentials: %s", ErrConfig, strings.Join(missing, ", "))
	}
	return nil
}

func (c Credentials) BotToken(identity Identity) (string, error) {
	key := identity.TokenKey()
	if err := c.Require(key); err != nil {
		return "", err
	}
	return c.values[key], nil
}

func (c Credentials) NotionToken(scope NotionScope) (string, error) {
	key, ok := notionScopeKeys[scope]
	if !ok {
		return "", fmt.Errorf("%w: unknown notion scope %q", ErrConfig, scope)
	}
	if err := c.Require(key); err != nil {
		return "", err
	}
	return c.values[key], nil
}

func (c Credentials) SwitchBotToken() (string, error) {
	if err := c.Require(KeySwitchBotToken); err != nil {
		return "", err
	}
	return c.values[KeySwitchBotToken], nil
}

// WebhookURL is optional; an empty string means no webhook is configured.
func (c Credentials) WebhookURL() string {
	return c.values[KeyDiscordWebhookURL]
}
