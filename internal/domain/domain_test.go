package domain

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSnowflake(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    Snowflake
		wantErr bool
	}{
		{name: "numeric id", raw: "1433974530971402270", want: "1433974530971402270"},
		{name: "surrounding whitespace trimmed", raw: " 42 ", want: "42"},
		{name: "empty", raw: "", wantErr: true},
		{name: "zero", raw: "0", wantErr: true},
		{name: "not numeric", raw: "general", wantErr: true},
		{name: "negative", raw: "-5", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSnowflake(tt.raw)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrConfig)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseTargetKindAliases(t *testing.T) {
	kind, err := ParseTargetKind("Text")
	require.NoError(t, err)
	assert.Equal(t, TargetTextChannel, kind)

	kind, err = ParseTargetKind("forum")
	require.NoError(t, err)
	assert.Equal(t, TargetForumChannel, kind)

	_, err = ParseTargetKind("voice")
	require.ErrorIs(t, err, ErrConfig)
}

func TestTargetRefValidateRequiresMessageChannel(t *testing.T) {
	require.NoError(t, MessageRef("10", "20").Validate())
	require.ErrorIs(t, TargetRef{Kind: TargetMessage, ID: "20"}.Validate(), ErrConfig)
	require.ErrorIs(t, ThreadRef("").Validate(), ErrConfig)
}

func TestChannelRefFollowsKind(t *testing.T) {
	forum := Channel{ID: "7", Kind: ChannelKindForum, ParentID: "3"}
	assert.Equal(t, TargetRef{Kind: TargetForumChannel, ID: "7", ParentID: "3"}, forum.Ref())

	voice := Channel{ID: "8", Kind: ChannelKindVoice}
	assert.Equal(t, TargetChannel, voice.Ref().Kind)
}

func TestIntentSetUnionAndNames(t *testing.T) {
	set := MinimumIntents.With(IntentMessageContent, IntentGuilds)

	assert.True(t, set.Has(IntentGuilds))
	assert.True(t, set.Has(IntentMessageContent))
	assert.False(t, set.Has(IntentGuildMembers))
	assert.Equal(t, []string{"guilds", "message-content"}, set.Names())

	parsed, err := ParseIntents([]string{"members", " Guilds "})
	require.NoError(t, err)
	assert.Equal(t, IntentGuilds|IntentGuildMembers, parsed)

	_, err = ParseIntents([]string{"presence"})
	require.ErrorIs(t, err, ErrConfig)
}

func TestReadHistoryDeclaresMessageContent(t *testing.T) {
	action := ReadHistory{Channel: TextChannelRef("1432180180985708648"), Limit: 20, Order: OldestFirst}

	require.NoError(t, action.Validate())
	assert.True(t, action.Intents().Has(IntentMessageContent))
	assert.True(t, action.Intents().Has(IntentGuilds))
	assert.Equal(t, 20, action.EffectiveLimit())
	assert.Equal(t, DefaultHistoryLimit, ReadHistory{}.EffectiveLimit())
	assert.Equal(t, NewestFirst, ReadHistory{}.EffectiveOrder())
}

func TestActionValidation(t *testing.T) {
	tests := []struct {
		name    string
		action  Action
		wantErr error
	}{
		{
			name:   "text channel in category",
			action: CreateTextChannel{Guild: GuildRef("1"), Name: "general", Category: CategoryRef("2")},
		},
		{
			name:    "text channel with empty name",
			action:  CreateTextChannel{Guild: GuildRef("1"), Name: "  "},
			wantErr: ErrConfig,
		},
		{
			name:    "forum under a text channel",
			action:  CreateForumChannel{Parent: TextChannelRef("1"), Name: "recipes"},
			wantErr: ErrConfig,
		},
		{
			name:   "rename forum",
			action: RenameEntity{Target: ForumChannelRef("1434340159389700157"), Name: "🤖｜生成AI"},
		},
		{
			name:    "rename with a name over the limit",
			action:  RenameEntity{Target: TextChannelRef("1"), Name: strings.Repeat("a", MaxChannelNameLength+1)},
			wantErr: ErrConfig,
		},
		{
			name:    "delete a guild",
			action:  DeleteEntity{Target: GuildRef("1")},
			wantErr: ErrConfig,
		},
		{
			name:    "post content over the limit",
			action:  PostMessage{Channel: TextChannelRef("1"), Content: strings.Repeat("x", MaxMessageLength+1)},
			wantErr: ErrPayloadTooLarge,
		},
		{
			name: "post oversize attachment",
			action: PostMessage{Channel: TextChannelRef("1"), Files: []FileUpload{
				{Name: "big.bin", Data: make([]byte, MaxAttachmentBytes+1)},
			}},
			wantErr: ErrPayloadTooLarge,
		},
		{
			name:    "post too many attachments",
			action:  PostMessage{Channel: TextChannelRef("1"), Files: make([]FileUpload, MaxAttachments+1)},
			wantErr: ErrPayloadTooLarge,
		},
		{
			name:    "post nothing",
			action:  PostMessage{Channel: TextChannelRef("1")},
			wantErr: ErrConfig,
		},
		{
			name:    "edit without message channel",
			action:  EditMessage{Message: TargetRef{Kind: TargetMessage, ID: "5"}, Content: "x"},
			wantErr: ErrConfig,
		},
		{
			name:    "reaction with bare custom emoji",
			action:  AddReaction{Message: MessageRef("1", "2"), Emoji: ":party:"},
			wantErr: ErrConfig,
		},
		{
			name:   "forum thread",
			action: CreateForumThread{Forum: ForumChannelRef("1433974530971402270"), Title: "スンドゥブ（純豆腐チゲ）", Content: "## 材料"},
		},
		{
			name:    "forum thread without content",
			action:  CreateForumThread{Forum: ForumChannelRef("1"), Title: "title"},
			wantErr: ErrConfig,
		},
		{
			name:    "history with unknown order",
			action:  ReadHistory{Channel: TextChannelRef("1"), Order: "random"},
			wantErr: ErrConfig,
		},
		{
			name: "overwrites allowing and denying the same bit",
			action: SetCategoryOverwrites{Category: CategoryRef("1"), Overwrites: []PermissionOverwrite{
				{TargetID: "2", TargetType: OverwriteRole, Allow: 1024, Deny: 1024},
			}},
			wantErr: ErrConfig,
		},
		{
			name: "member overwrite",
			action: SetCategoryOverwrites{Category: CategoryRef("1"), Overwrites: []PermissionOverwrite{
				{TargetID: "2", TargetType: OverwriteMember, Allow: 1024, Deny: 2048},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.action.Validate()
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestNormalizeEmoji(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{raw: "👍", want: "👍"},
		{raw: "1️⃣", want: "1️⃣"},
		{raw: "party:123456789", want: "party:123456789"},
		{raw: "<:party:123456789>", want: "party:123456789"},
		{raw: "<a:dance:987654321>", want: "dance:987654321"},
		{raw: ":party:", wantErr: true},
		{raw: "thumbsup", wantErr: true},
		{raw: "party:abc", wantErr: true},
		{raw: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := NormalizeEmoji(tt.raw)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrConfig)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPlatformErrorMapsStatus(t *testing.T) {
	tests := []struct {
		status int
		want   error
		kind   string
	}{
		{status: 401, want: ErrAuth, kind: "AuthError"},
		{status: 403, want: ErrPermissionDenied, kind: "PermissionDeniedError"},
		{status: 404, want: ErrNotFound, kind: "NotFoundError"},
		{status: 413, want: ErrPayloadTooLarge, kind: "PayloadTooLargeError"},
		{status: 400, want: ErrPlatform, kind: "PlatformError"},
		{status: 502, want: ErrPlatform, kind: "PlatformError"},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			err := fmt.Errorf("send message: %w", NewPlatformError(tt.status, 50013, "Missing Permissions", nil))

			require.ErrorIs(t, err, tt.want)
			assert.Equal(t, tt.kind, KindOf(err))

			var platformErr *PlatformError
			require.True(t, errors.As(err, &platformErr))
			assert.Equal(t, tt.status, platformErr.Status)
		})
	}
}

func TestPlatformErrorMessage(t *testing.T) {
	err := NewPlatformError(403, 50013, "Missing Permissions", nil)
	assert.Equal(t, "status 403 code 50013: Missing Permissions", err.Error())
	assert.False(t, err.Retryable())

	bodyOnly := NewPlatformError(500, 0, "", []byte(`{"message":"boom"}`+"\n"))
	assert.Equal(t, `status 500: {"message":"boom"}`, bodyOnly.Error())
	assert.True(t, bodyOnly.Retryable())
}

func TestKindMismatchError(t *testing.T) {
	err := &KindMismatchError{Ref: TextChannelRef("1430450907279261747"), Want: ChannelKindText, Got: ChannelKindCategory}

	require.ErrorIs(t, err, ErrKindMismatch)
	assert.Equal(t, "KindMismatchError", KindOf(err))
	assert.Contains(t, err.Error(), "category")
}

func TestKindOfFallbacks(t *testing.T) {
	assert.Empty(t, KindOf(nil))
	assert.Equal(t, "Error", KindOf(errors.New("boom")))
	assert.Equal(t, "SessionNotReadyError", KindOf(fmt.Errorf("api: %w", ErrSessionNotReady)))
}

func TestCredentialsRequireNamesMissingKeys(t *testing.T) {
	creds := NewCredentials(map[string]string{
		KeyDiscordToken:    "abc",
		KeyNotionTokenSake: " ",
	})

	require.NoError(t, creds.Require(KeyDiscordToken))

	err := creds.Require(KeyDiscordToken, KeyCodexBotToken, KeyNotionTokenSake)
	require.ErrorIs(t, err, ErrConfig)
	assert.Contains(t, err.Error(), KeyCodexBotToken)
	assert.Contains(t, err.Error(), KeyNotionTokenSake)
	assert.NotContains(t, err.Error(), KeyDiscordToken+",")
}

func TestCredentialsTokenLookup(t *testing.T) {
	creds := NewCredentials(map[string]string{
		KeyDiscordToken:   "primary",
		KeyCodexBotToken:  "codex",
		KeyNotionToken:    "default-notion",
		KeySwitchBotToken: "switch",
	})

	token, err := creds.BotToken(IdentityCodex)
	require.NoError(t, err)
	assert.Equal(t, "codex", token)

	token, err = creds.NotionToken(NotionScopeDefault)
	require.NoError(t, err)
	assert.Equal(t, "default-notion", token)

	_, err = creds.NotionToken(NotionScopeTask)
	require.ErrorIs(t, err, ErrConfig)

	token, err = creds.SwitchBotToken()
	require.NoError(t, err)
	assert.Equal(t, "switch", token)
	assert.Empty(t, creds.WebhookURL())
}

func TestParseIdentityAndScope(t *testing.T) {
	identity, err := ParseIdentity("")
	require.NoError(t, err)
	assert.Equal(t, IdentityDiscord, identity)

	_, err = ParseIdentity("webhook")
	require.ErrorIs(t, err, ErrConfig)

	scope, err := ParseNotionScope("Rice")
	require.NoError(t, err)
	assert.Equal(t, NotionScopeRice, scope)

	_, err = ParseNotionScope("wine")
	require.ErrorIs(t, err, ErrConfig)
}

func TestSessionStateTransitions(t *testing.T) {
	state := SessionInitializing

	state, err := state.Transition(SessionReady)
	require.NoError(t, err)
	state, err = state.Transition(SessionClosing)
	require.NoError(t, err)
	state, err = state.Transition(SessionClosed)
	require.NoError(t, err)
	assert.True(t, state.Terminal())

	_, err = state.Transition(SessionReady)
	require.Error(t, err)

	assert.True(t, SessionInitializing.CanTransition(SessionFailed))
	assert.False(t, SessionInitializing.CanTransition(SessionClosing))
	assert.False(t, SessionFailed.CanTransition(SessionClosed))
}

func TestManifestRequiredIntentsIsUnion(t *testing.T) {
	manifest := Manifest{
		Intents: IntentGuildMembers,
		Actions: []Action{
			RenameEntity{Target: TextChannelRef("1"), Name: "general"},
			ReadHistory{Channel: TextChannelRef("1"), Limit: 5},
		},
	}

	intents := manifest.RequiredIntents()
	assert.True(t, intents.Has(IntentGuilds|IntentGuildMembers|IntentMessageContent))
	require.NoError(t, manifest.Validate())
}

func TestManifestValidateJoinsActionErrors(t *testing.T) {
	manifest := Manifest{
		Actions: []Action{
			RenameEntity{Target: TextChannelRef("1")},
			AddReaction{Message: MessageRef("1", "2"), Emoji: ":x:"},
		},
	}

	err := manifest.Validate()
	require.ErrorIs(t, err, ErrConfig)
	assert.Contains(t, err.Error(), "action 1 (rename_entity)")
	assert.Contains(t, err.Error(), "action 2 (add_reaction)")

	require.ErrorIs(t, Manifest{}.Validate(), ErrConfig)
}

func TestOutcomeConstructors(t *testing.T) {
	failed := Failed(ActionPostMessage, fmt.Errorf("post: %w", NewPlatformError(403, 50013, "Missing Permissions", nil)))
	assert.False(t, failed.Success)
	assert.Equal(t, "PermissionDeniedError", failed.ErrorKind)
	assert.Contains(t, failed.Diagnostic, "Missing Permissions")

	created := CreatedOutcome(ActionCreateTextChannel, TextChannelRef("99"))
	assert.True(t, created.Success)
	assert.Equal(t, Snowflake("99"), created.PlatformID)
	require.NotNil(t, created.Created)
}
