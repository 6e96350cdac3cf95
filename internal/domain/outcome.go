package domain

import "time"

// Outcome is the result record of one action.
type Outcome struct {
	Action           ActionType      `json:"action"`
	Success          bool            `json:"success"`
	Skipped          bool            `json:"skipped,omitempty"`
	Created          *TargetRef      `json:"created,omitempty"`
	Affected         *TargetRef      `json:"affected,omitempty"`
	PlatformID       Snowflake       `json:"platform_id,omitempty"`
	StarterMessageID Snowflake       `json:"starter_message_id,omitempty"`
	Diagnostic       string          `json:"diagnostic,omitempty"`
	ErrorKind        string          `json:"error_kind,omitempty"`
	Threads          []ThreadInfo    `json:"threads,omitempty"`
	Messages         []MessageRecord `json:"messages,omitempty"`
	Err              error           `json:"-"`
}

func Failed(action ActionType, err error) Outcome {
	outcome := Outcome{Action: action, Err: err, ErrorKind: KindOf(err)}
	if err != nil {
		outcome.Diagnostic = err.Error()
	}
	return outcome
}

func SkippedOutcome(action ActionType, reason string) Outcome {
	return Outcome{Action: action, Skipped: true, Diagnostic: reason}
}

func CreatedOutcome(action ActionType, ref TargetRef) Outcome {
	return Outcome{Action: action, Success: true, Created: &ref, PlatformID: ref.ID}
}

func AffectedOutcome(action ActionType, ref TargetRef, diagnostic string) Outcome {
	return Outcome{Action: action, Success: true, Affected: &ref, PlatformID: ref.ID, Diagnostic: diagnostic}
}

type ThreadInfo struct {
	ID           Snowflake `json:"id"`
	Name         string    `json:"name"`
	ParentID     Snowflake `json:"parent_id"`
	Archived     bool      `json:"archived"`
	Locked       bool      `json:"locked"`
	MessageCount int       `json:"message_count"`
	ArchivedAt   time.Time `json:"archived_at,omitempty"`
}

func (c Channel) ThreadInfo() ThreadInfo {
	return ThreadInfo{
		ID:           c.ID,
		Name:         c.Name,
		ParentID:     c.ParentID,
		Archived:     c.Archived,
		Locked:       c.Locked,
		MessageCount: c.MessageCount,
		ArchivedAt:   c.ArchivedAt,
	}
}

type MessageRecord struct {
	ID          Snowflake    `json:"id"`
	ChannelID   Snowflake    `json:"channel_id"`
	AuthorID    Snowflake    `json:"author_id"`
	Author      string       `json:"author"`
	Content     string       `json:"content"`
	Timestamp   time.Time    `json:"timestamp"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

func (m Message) Record() MessageRecord {
	return MessageRecord{
		ID:          m.ID,
		ChannelID:   m.ChannelID,
		AuthorID:    m.AuthorID,
		Author:      m.AuthorName,
		Content:     m.Content,
		Timestamp:   m.Timestamp,
		Attachments: m.Attachments,
	}
}
