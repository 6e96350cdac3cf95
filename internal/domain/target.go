package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Snowflake is a Discord entity id kept in its decimal string form.
type Snowflake string

func ParseSnowflake(raw string) (Snowflake, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("%w: id is empty", ErrConfig)
	}

	n, err := strconv.ParseUint(trimmed, 10, 64)
	if err != nil || n == 0 {
		return "", fmt.Errorf("%w: invalid id %q", ErrConfig, raw)
	}

	return Snowflake(trimmed), nil
}

func (s Snowflake) String() string {
	return string(s)
}

func (s Snowflake) IsZero() bool {
	return s == ""
}

// Uint64 returns the numeric id, or 0 when s is not numeric.
func (s Snowflake) Uint64() uint64 {
	n, err := strconv.ParseUint(string(s), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

type TargetKind string

const (
	TargetGuild        TargetKind = "guild"
	TargetCategory     TargetKind = "category"
	TargetTextChannel  TargetKind = "text-channel"
	TargetForumChannel TargetKind = "forum-channel"
	TargetThread       TargetKind = "thread"
	TargetMessage      TargetKind = "message"
	// TargetChannel matches any guild channel without a kind check.
	TargetChannel TargetKind = "channel"
)

func ParseTargetKind(raw string) (TargetKind, error) {
	kind := TargetKind(strings.ToLower(strings.TrimSpace(raw)))
	switch kind {
	case TargetGuild, TargetCategory, TargetTextChannel, TargetForumChannel, TargetThread, TargetMessage, TargetChannel:
		return kind, nil
	case "text":
		return TargetTextChannel, nil
	case "forum":
		return TargetForumChannel, nil
	default:
		return "", fmt.Errorf("%w: unsupported target kind %q", ErrConfig, raw)
	}
}

// ChannelKind returns the channel kind a resolved handle must have, or "" when
// any channel kind is accepted.
func (k TargetKind) ChannelKind() ChannelKind {
	switch k {
	case TargetCategory:
		return ChannelKindCategory
	case TargetTextChannel:
		return ChannelKindText
	case TargetForumChannel:
		return ChannelKindForum
	case TargetThread:
		return ChannelKindThread
	default:
		return ""
	}
}

// TargetRef is an immutable reference to a chat platform entity. ChannelID is
// only set for messages; ParentID is informational and set on created refs.
type TargetRef struct {
	Kind      TargetKind `json:"kind"`
	ID        Snowflake  `json:"id"`
	ChannelID Snowflake  `json:"channel_id,omitempty"`
	ParentID  Snowflake  `json:"parent_id,omitempty"`
}

func GuildRef(id Snowflake) TargetRef        { return TargetRef{Kind: TargetGuild, ID: id} }
func CategoryRef(id Snowflake) TargetRef     { return TargetRef{Kind: TargetCategory, ID: id} }
func TextChannelRef(id Snowflake) TargetRef  { return TargetRef{Kind: TargetTextChannel, ID: id} }
func ForumChannelRef(id Snowflake) TargetRef { return TargetRef{Kind: TargetForumChannel, ID: id} }
func ThreadRef(id Snowflake) TargetRef       { return TargetRef{Kind: TargetThread, ID: id} }
func ChannelRef(id Snowflake) TargetRef      { return TargetRef{Kind: TargetChannel, ID: id} }

func MessageRef(channelID, id Snowflake) TargetRef {
	return TargetRef{Kind: TargetMessage, ID: id, ChannelID: channelID}
}

func (r TargetRef) Validate() error {
	if _, err := ParseTargetKind(string(r.Kind)); err != nil {
		return err
	}
	if _, err := ParseSnowflake(string(r.ID)); err != nil {
		return fmt.Errorf("%s target: %w", r.Kind, err)
	}
	if r.Kind == TargetMessage {
		if _, err := ParseSnowflake(string(r.ChannelID)); err != nil {
			return fmt.Errorf("message target channel: %w", err)
		}
	}

	return nil
}

// IsOneOf reports whether the reference kind is among kinds.
func (r TargetRef) IsOneOf(kinds ...TargetKind) bool {
	for _, kind := range kinds {
		if r.Kind == kind {
			return true
		}
	}
	return false
}

func (r TargetRef) String() string {
	if r.Kind == TargetMessage {
		return fmt.Sprintf("message %s in %s", r.ID, r.ChannelID)
	}
	return fmt.Sprintf("%s %s", r.Kind, r.ID)
}
