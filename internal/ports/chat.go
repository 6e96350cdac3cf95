package ports

import (
	"context"
	"time"

	"github.com/bnema/opsbot/internal/domain"
)

// ChatGateway opens one bot session on the chat platform.
type ChatGateway interface {
	Open(ctx context.Context, token string, intents domain.IntentSet) (ChatConn, error)
}

// ChatConn is an open gateway connection. Ready delivers the bot identity once
// the platform has accepted the session.
type ChatConn interface {
	Ready() <-chan domain.BotIdentity
	API() ChatAPI
	Close() error
}

// MessagePage selects one page of channel history. Before and After are
// exclusive message ids; at most one is set.
type MessagePage struct {
	Limit  int
	Before domain.Snowflake
	After  domain.Snowflake
}

// ChatAPI is the platform surface actions run against. Failed calls return
// errors wrapping the domain taxonomy.
type ChatAPI interface {
	CachedGuild(id domain.Snowflake) (domain.Guild, bool)
	CachedChannel(id domain.Snowflake) (domain.Channel, bool)

	Guild(ctx context.Context, id domain.Snowflake) (domain.Guild, error)
	Channel(ctx context.Context, id domain.Snowflake) (domain.Channel, error)
	GuildChannels(ctx context.Context, guildID domain.Snowflake) ([]domain.Channel, error)

	CreateChannel(ctx context.Context, guildID domain.Snowflake, draft domain.ChannelDraft) (domain.Channel, error)
	RenameChannel(ctx context.Context, id domain.Snowflake, name string) (domain.Channel, error)
	DeleteChannel(ctx context.Context, id domain.Snowflake) error
	SetPermissionOverwrite(ctx context.Context, channelID domain.Snowflake, overwrite domain.PermissionOverwrite) error

	Message(ctx context.Context, channelID, messageID domain.Snowflake) (domain.Message, error)
	Messages(ctx context.Context, channelID domain.Snowflake, page MessagePage) ([]domain.Message, error)
	SendMessage(ctx context.Context, channelID domain.Snowflake, content string, files []domain.FileUpload) (domain.Message, error)
	EditMessage(ctx context.Context, channelID, messageID domain.Snowflake, content string) (domain.Message, error)
	AddReaction(ctx context.Context, channelID, messageID domain.Snowflake, emoji string) error

	StartForumThread(ctx context.Context, forumID domain.Snowflake, title, content string) (domain.Channel, error)
	ActiveThreads(ctx context.Context, guildID domain.Snowflake) ([]domain.Channel, error)
	ArchivedThreads(ctx context.Context, channelID domain.Snowflake, before time.Time, limit int) ([]domain.Channel, bool, error)
}
