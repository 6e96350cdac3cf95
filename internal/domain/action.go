package domain

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Platform limits checked before any request is made.
const (
	MaxAttachmentBytes   = 25 << 20
	MaxAttachments       = 10
	MaxMessageLength     = 2000
	MaxChannelNameLength = 100
	MaxThreadTitleLength = 100
	DefaultHistoryLimit  = 50
)

type ActionType string

const (
	ActionCreateTextChannel     ActionType = "create_text_channel"
	ActionCreateForumChannel    ActionType = "create_forum_channel"
	ActionCreateCategory        ActionType = "create_category"
	ActionRenameEntity          ActionType = "rename_entity"
	ActionDeleteEntity          ActionType = "delete_entity"
	ActionPostMessage           ActionType = "post_message"
	ActionEditMessage           ActionType = "edit_message"
	ActionAddReaction           ActionType = "add_reaction"
	ActionCreateForumThread     ActionType = "create_forum_thread"
	ActionListForumThreads      ActionType = "list_forum_threads"
	ActionReadHistory           ActionType = "read_history"
	ActionSetCategoryOverwrites ActionType = "set_category_overwrites"
)

// Action is one imperative mutation or read on the chat platform.
type Action interface {
	Type() ActionType
	Intents() IntentSet
	Validate() error
}

// CreateTextChannel creates a text channel, optionally inside a category.
// Creation never dedupes unless IfMissing asks for a name lookup first.
type CreateTextChannel struct {
	Guild     TargetRef
	Name      string
	Category  TargetRef
	Topic     string
	IfMissing bool
}

func (CreateTextChannel) Type() ActionType   { return ActionCreateTextChannel }
func (CreateTextChannel) Intents() IntentSet { return MinimumIntents }

func (a CreateTextChannel) Validate() error {
	if err := expectRef(a.Guild, "guild", TargetGuild); err != nil {
		return err
	}
	if a.Category.ID != "" {
		if err := expectRef(a.Category, "category", TargetCategory); err != nil {
			return err
		}
	}
	return validateName(a.Name, MaxChannelNameLength)
}

// CreateForumChannel creates a forum directly under a guild or inside a category.
type CreateForumChannel struct {
	Parent    TargetRef
	Name      string
	Topic     string
	IfMissing bool
}

func (CreateForumChannel) Type() ActionType   { return ActionCreateForumChannel }
func (CreateForumChannel) Intents() IntentSet { return MinimumIntents }

func (a CreateForumChannel) Validate() error {
	if err := expectRef(a.Parent, "parent", TargetGuild, TargetCategory); err != nil {
		return err
	}
	return validateName(a.Name, MaxChannelNameLength)
}

type CreateCategory struct {
	Guild      TargetRef
	Name       string
	Overwrites []PermissionOverwrite
	IfMissing  bool
}

func (CreateCategory) Type() ActionType   { return ActionCreateCategory }
func (CreateCategory) Intents() IntentSet { return MinimumIntents }

func (a CreateCategory) Validate() error {
	if err := expectRef(a.Guild, "guild", TargetGuild); err != nil {
		return err
	}
	if err := validateOverwrites(a.Overwrites); err != nil {
		return err
	}
	return validateName(a.Name, MaxChannelNameLength)
}

type RenameEntity struct {
	Target TargetRef
	Name   string
}

func (RenameEntity) Type() ActionType   { return ActionRenameEntity }
func (RenameEntity) Intents() IntentSet { return MinimumIntents }

func (a RenameEntity) Validate() error {
	if err := expectRef(a.Target, "target", TargetCategory, TargetTextChannel, TargetForumChannel, TargetThread, TargetChannel); err != nil {
		return err
	}
	return validateName(a.Name, MaxChannelNameLength)
}

// DeleteEntity removes a channel, category, forum or thread. A category is
// deleted alone; its children are left in place.
type DeleteEntity struct {
	Target    TargetRef
	MissingOK bool
}

func (DeleteEntity) Type() ActionType   { return ActionDeleteEntity }
func (DeleteEntity) Intents() IntentSet { return MinimumIntents }

func (a DeleteEntity) Validate() error {
	return expectRef(a.Target, "target", TargetCategory, TargetTextChannel, TargetForumChannel, TargetThread, TargetChannel)
}

type PostMessage struct {
	Channel TargetRef
	Content string
	Files   []FileUpload
}

func (PostMessage) Type() ActionType   { return ActionPostMessage }
func (PostMessage) Intents() IntentSet { return MinimumIntents }

func (a PostMessage) Validate() error {
	if err := expectRef(a.Channel, "channel", TargetTextChannel, TargetThread, TargetChannel); err != nil {
		return err
	}
	if strings.TrimSpace(a.Content) == "" && len(a.Files) == 0 {
		return fmt.Errorf("%w: message needs content or files", ErrConfig)
	}
	if err := validateContent(a.Content); err != nil {
		return err
	}
	if len(a.Files) > MaxAttachments {
		return fmt.Errorf("%w: %d files, at most %d per message", ErrPayloadTooLarge, len(a.Files), MaxAttachments)
	}
	for _, file := range a.Files {
		if strings.TrimSpace(file.Name) == "" {
			return fmt.Errorf("%w: attachment name is empty", ErrConfig)
		}
		if len(file.Data) > MaxAttachmentBytes {
			return fmt.Errorf("%w: %s is %d bytes, limit %d", ErrPayloadTooLarge, file.Name, len(file.Data), MaxAttachmentBytes)
		}
	}
	return nil
}

type EditMessage struct {
	Message TargetRef
	Content string
}

func (EditMessage) Type() ActionType   { return ActionEditMessage }
func (EditMessage) Intents() IntentSet { return MinimumIntents }

func (a EditMessage) Validate() error {
	if err := expectRef(a.Message, "message", TargetMessage); err != nil {
		return err
	}
	if strings.TrimSpace(a.Content) == "" {
		return fmt.Errorf("%w: message content is empty", ErrConfig)
	}
	return validateContent(a.Content)
}

type AddReaction struct {
	Message TargetRef
	Emoji   string
}

func (AddReaction) Type() ActionType   { return ActionAddReaction }
func (AddReaction) Intents() IntentSet { return MinimumIntents }

func (a AddReaction) Validate() error {
	if err := expectRef(a.Message, "message", TargetMessage); err != nil {
		return err
	}
	_, err := NormalizeEmoji(a.Emoji)
	return err
}

// CreateForumThread opens a forum post: a thread plus its starter message.
type CreateForumThread struct {
	Forum   TargetRef
	Title   string
	Content string
}

func (CreateForumThread) Type() ActionType   { return ActionCreateForumThread }
func (CreateForumThread) Intents() IntentSet { return MinimumIntents }

func (a CreateForumThread) Validate() error {
	if err := expectRef(a.Forum, "forum", TargetForumChannel); err != nil {
		return err
	}
	if err := validateName(a.Title, MaxThreadTitleLength); err != nil {
		return err
	}
	if strings.TrimSpace(a.Content) == "" {
		return fmt.Errorf("%w: starter message content is empty", ErrConfig)
	}
	return validateContent(a.Content)
}

type ListForumThreads struct {
	Forum           TargetRef
	IncludeArchived bool
}

func (ListForumThreads) Type() ActionType   { return ActionListForumThreads }
func (ListForumThreads) Intents() IntentSet { return MinimumIntents }

func (a ListForumThreads) Validate() error {
	return expectRef(a.Forum, "forum", TargetForumChannel)
}

type ReadHistory struct {
	Channel TargetRef
	Limit   int
	Order   HistoryOrder
}

func (ReadHistory) Type() ActionType { return ActionReadHistory }

func (ReadHistory) Intents() IntentSet {
	return MinimumIntents.With(IntentGuildMessages, IntentMessageContent)
}

func (a ReadHistory) Validate() error {
	if err := expectRef(a.Channel, "channel", TargetTextChannel, TargetThread, TargetChannel); err != nil {
		return err
	}
	if a.Limit < 0 {
		return fmt.Errorf("%w: history limit %d is negative", ErrConfig, a.Limit)
	}
	switch a.Order {
	case "", NewestFirst, OldestFirst:
		return nil
	default:
		return fmt.Errorf("%w: unsupported history order %q", ErrConfig, a.Order)
	}
}

// EffectiveLimit applies the default when no limit was given.
func (a ReadHistory) EffectiveLimit() int {
	if a.Limit == 0 {
		return DefaultHistoryLimit
	}
	return a.Limit
}

func (a ReadHistory) EffectiveOrder() HistoryOrder {
	if a.Order == "" {
		return NewestFirst
	}
	return a.Order
}

type SetCategoryOverwrites struct {
	Category   TargetRef
	Overwrites []PermissionOverwrite
}

func (SetCategoryOverwrites) Type() ActionType   { return ActionSetCategoryOverwrites }
func (SetCategoryOverwrites) Intents() IntentSet { return MinimumIntents }

func (a SetCategoryOverwrites) Validate() error {
	if err := expectRef(a.Category, "category", TargetCategory); err != nil {
		return err
	}
	if len(a.Overwrites) == 0 {
		return fmt.Errorf("%w: no overwrites given", ErrConfig)
	}
	return validateOverwrites(a.Overwrites)
}

// NormalizeEmoji returns the form the reaction endpoint expects. Unicode emoji
// pass through unchanged; custom emoji must carry their id as name:id, and the
// <:name:id> and <a:name:id> message forms are accepted.
func NormalizeEmoji(raw string) (string, error) {
	emoji := strings.TrimSpace(raw)
	if emoji == "" {
		return "", fmt.Errorf("%w: emoji is empty", ErrConfig)
	}

	if strings.HasPrefix(emoji, "<") && strings.HasSuffix(emoji, ">") {
		inner := strings.TrimPrefix(emoji[1:len(emoji)-1], "a")
		emoji = strings.TrimPrefix(inner, ":")
	}

	if !strings.Contains(emoji, ":") {
		if isASCII(emoji) {
			return "", fmt.Errorf("%w: custom emoji %q must be given as name:id", ErrConfig, raw)
		}
		return emoji, nil
	}

	name, id, ok := strings.Cut(emoji, ":")
	if !ok || name == "" || strings.Contains(id, ":") {
		return "", fmt.Errorf("%w: custom emoji %q must be given as name:id", ErrConfig, raw)
	}
	if _, err := ParseSnowflake(id); err != nil {
		return "", fmt.Errorf("%w: custom emoji %q must be given as name:id", ErrConfig, raw)
	}

	return name + ":" + id, nil
}

func isASCII(value string) bool {
	for i := 0; i < len(value); i++ {
		if value[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

func expectRef(ref TargetRef, field string, kinds ...TargetKind) error {
	if !ref.IsOneOf(kinds...) {
		return fmt.Errorf("%w: %s must be one of %v, got %q", ErrConfig, field, kinds, ref.Kind)
	}
	if err := ref.Validate(); err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	return nil
}

func validateName(name string, limit int) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return fmt.Errorf("%w: name is empty", ErrConfig)
	}
	if n := utf8.RuneCountInString(trimmed); n > limit {
		return fmt.Errorf("%w: name is %d characters, limit %d", ErrConfig, n, limit)
	}
	return nil
}

func validateContent(content string) error {
	if n := utf8.RuneCountInString(content); n > MaxMessageLength {
		return fmt.Errorf("%w: content is %d characters, limit %d", ErrPayloadTooLarge, n, MaxMessageLength)
	}
	return nil
}

func validateOverwrites(overwrites []PermissionOverwrite) error {
	for _, overwrite := range overwrites {
		if _, err := ParseSnowflake(string(overwrite.TargetID)); err != nil {
			return fmt.Errorf("overwrite target: %w", err)
		}
		switch overwrite.TargetType {
		case OverwriteRole, OverwriteMember:
		default:
			return fmt.Errorf("%w: overwrite target type %q", ErrConfig, overwrite.TargetType)
		}
		if overwrite.Allow&overwrite.Deny != 0 {
			return fmt.Errorf("%w: overwrite for %s both allows and denies %d", ErrConfig, overwrite.TargetID, overwrite.Allow&overwrite.Deny)
		}
	}
	return nil
}
