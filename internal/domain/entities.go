package domain

import "time"

type ChannelKind string

const (
	ChannelKindText     ChannelKind = "text"
	ChannelKindCategory ChannelKind = "category"
	ChannelKindForum    ChannelKind = "forum"
	ChannelKindThread   ChannelKind = "thread"
	ChannelKindVoice    ChannelKind = "voice"
	ChannelKindNews     ChannelKind = "news"
	ChannelKindOther    ChannelKind = "other"
)

type Guild struct {
	ID   Snowflake `json:"id"`
	Name string    `json:"name"`
}

type Channel struct {
	ID           Snowflake             `json:"id"`
	GuildID      Snowflake             `json:"guild_id,omitempty"`
	ParentID     Snowflake             `json:"parent_id,omitempty"`
	Name         string                `json:"name"`
	Topic        string                `json:"topic,omitempty"`
	Kind         ChannelKind           `json:"kind"`
	Archived     bool                  `json:"archived,omitempty"`
	Locked       bool                  `json:"locked,omitempty"`
	MessageCount int                   `json:"message_count,omitempty"`
	ArchivedAt   time.Time             `json:"archived_at,omitempty"`
	Overwrites   []PermissionOverwrite `json:"overwrites,omitempty"`
}

func (c Channel) Ref() TargetRef {
	kind := TargetChannel
	switch c.Kind {
	case ChannelKindText:
		kind = TargetTextChannel
	case ChannelKindCategory:
		kind = TargetCategory
	case ChannelKindForum:
		kind = TargetForumChannel
	case ChannelKindThread:
		kind = TargetThread
	}

	return TargetRef{Kind: kind, ID: c.ID, ParentID: c.ParentID}
}

// Messageable reports whether messages can be posted to or read from c.
func (c Channel) Messageable() bool {
	switch c.Kind {
	case ChannelKindText, ChannelKindThread, ChannelKindNews:
		return true
	default:
		return false
	}
}

type Attachment struct {
	Filename string `json:"filename"`
	URL      string `json:"url"`
	Size     int    `json:"size"`
}

type Message struct {
	ID          Snowflake    `json:"id"`
	ChannelID   Snowflake    `json:"channel_id"`
	AuthorID    Snowflake    `json:"author_id"`
	AuthorName  string       `json:"author"`
	AuthorBot   bool         `json:"author_bot,omitempty"`
	Content     string       `json:"content"`
	Timestamp   time.Time    `json:"timestamp"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

func (m Message) Ref() TargetRef {
	return MessageRef(m.ChannelID, m.ID)
}

type OverwriteTarget string

const (
	OverwriteRole   OverwriteTarget = "role"
	OverwriteMember OverwriteTarget = "member"
)

type PermissionOverwrite struct {
	TargetID   Snowflake       `json:"target_id"`
	TargetType OverwriteTarget `json:"target_type"`
	Allow      int64           `json:"allow"`
	Deny       int64           `json:"deny"`
}

// BotIdentity is what the platform reports once a session is ready.
type BotIdentity struct {
	UserID   Snowflake   `json:"user_id"`
	Username string      `json:"username"`
	GuildIDs []Snowflake `json:"guild_ids"`
}

// HistoryOrder selects how ReadHistory orders its records.
type HistoryOrder string

const (
	NewestFirst HistoryOrder = "newest-first"
	OldestFirst HistoryOrder = "oldest-first"
)

// FileUpload is an attachment loaded in memory before posting. Path records
// where it was read from and is empty for generated data.
type FileUpload struct {
	Name        string
	Path        string
	ContentType string
	Data        []byte
}

// ChannelDraft describes a channel to create.
type ChannelDraft struct {
	Name       string
	Kind       ChannelKind
	ParentID   Snowflake
	Topic      string
	Overwrites []PermissionOverwrite
}
