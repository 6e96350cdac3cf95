package discord

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/bnema/opsbot/internal/domain"
	"github.com/bnema/opsbot/internal/ports"
)

// forumArchiveMinutes is the auto-archive window of new forum threads.
const forumArchiveMinutes = 10080

type api struct {
	session *discordgo.Session
}

var _ ports.ChatAPI = (*api)(nil)

func (a *api) CachedGuild(id domain.Snowflake) (domain.Guild, bool) {
	guild, err := a.session.State.Guild(string(id))
	if err != nil {
		return domain.Guild{}, false
	}
	return toGuild(guild), true
}

func (a *api) CachedChannel(id domain.Snowflake) (domain.Channel, bool) {
	channel, err := a.session.State.Channel(string(id))
	if err != nil {
		return domain.Channel{}, false
	}
	return toChannel(channel), true
}

func (a *api) Guild(ctx context.Context, id domain.Snowflake) (domain.Guild, error) {
	guild, err := a.session.Guild(string(id), discordgo.WithContext(ctx))
	if err != nil {
		return domain.Guild{}, fmt.Errorf("fetch guild %s: %w", id, mapError(err))
	}
	return toGuild(guild), nil
}

func (a *api) Channel(ctx context.Context, id domain.Snowflake) (domain.Channel, error) {
	channel, err := a.session.Channel(string(id), discordgo.WithContext(ctx))
	if err != nil {
		return domain.Channel{}, fmt.Errorf("fetch channel %s: %w", id, mapError(err))
	}
	return toChannel(channel), nil
}

func (a *api) GuildChannels(ctx context.Context, guildID domain.Snowflake) ([]domain.Channel, error) {
	channels, err := a.session.GuildChannels(string(guildID), discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("list channels of guild %s: %w", guildID, mapError(err))
	}
	return toChannels(channels), nil
}

func (a *api) CreateChannel(ctx context.Context, guildID domain.Snowflake, draft domain.ChannelDraft) (domain.Channel, error) {
	data := discordgo.GuildChannelCreateData{
		Name:                 draft.Name,
		Type:                 toChannelType(draft.Kind),
		Topic:                draft.Topic,
		ParentID:             string(draft.ParentID),
		PermissionOverwrites: toOverwrites(draft.Overwrites),
	}
	channel, err := a.session.GuildChannelCreateComplex(string(guildID), data, discordgo.WithContext(ctx))
	if err != nil {
		return domain.Channel{}, fmt.Errorf("create %s channel %q: %w", draft.Kind, draft.Name, mapError(err))
	}
	return toChannel(channel), nil
}

func (a *api) RenameChannel(ctx context.Context, id domain.Snowflake, name string) (domain.Channel, error) {
	channel, err := a.session.ChannelEdit(string(id), &discordgo.ChannelEdit{Name: name}, discordgo.WithContext(ctx))
	if err != nil {
		return domain.Channel{}, fmt.Errorf("rename channel %s: %w", id, mapError(err))
	}
	return toChannel(channel), nil
}

func (a *api) DeleteChannel(ctx context.Context, id domain.Snowflake) error {
	if _, err := a.session.ChannelDelete(string(id), discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("delete channel %s: %w", id, mapError(err))
	}
	return nil
}

func (a *api) SetPermissionOverwrite(ctx context.Context, channelID domain.Snowflake, overwrite domain.PermissionOverwrite) error {
	err := a.session.ChannelPermissionSet(
		string(channelID),
		string(overwrite.TargetID),
		toOverwriteType(overwrite.TargetType),
		overwrite.Allow,
		overwrite.Deny,
		discordgo.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("set overwrite for %s on %s: %w", overwrite.TargetID, channelID, mapError(err))
	}
	return nil
}

func (a *api) Message(ctx context.Context, channelID, messageID domain.Snowflake) (domain.Message, error) {
	message, err := a.session.ChannelMessage(string(channelID), string(messageID), discordgo.WithContext(ctx))
	if err != nil {
		return domain.Message{}, fmt.Errorf("fetch message %s: %w", messageID, mapError(err))
	}
	return toMessage(message), nil
}

func (a *api) Messages(ctx context.Context, channelID domain.Snowflake, page ports.MessagePage) ([]domain.Message, error) {
	messages, err := a.session.ChannelMessages(
		string(channelID),
		page.Limit,
		string(page.Before),
		string(page.After),
		"",
		discordgo.WithContext(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("read history of %s: %w", channelID, mapError(err))
	}

	out := make([]domain.Message, 0, len(messages))
	for _, message := range messages {
		out = append(out, toMessage(message))
	}
	return out, nil
}

func (a *api) SendMessage(ctx context.Context, channelID domain.Snowflake, content string, files []domain.FileUpload) (domain.Message, error) {
	send := &discordgo.MessageSend{Content: content}
	for _, file := range files {
		send.Files = append(send.Files, &discordgo.File{
			Name:        file.Name,
			ContentType: file.ContentType,
			Reader:      bytes.NewReader(file.Data),
		})
	}

	message, err := a.session.ChannelMessageSendComplex(string(channelID), send, discordgo.WithContext(ctx))
	if err != nil {
		return domain.Message{}, fmt.Errorf("post to %s: %w", channelID, mapError(err))
	}
	return toMessage(message), nil
}

func (a *api) EditMessage(ctx context.Context, channelID, messageID domain.Snowflake, content string) (domain.Message, error) {
	message, err := a.session.ChannelMessageEdit(string(channelID), string(messageID), content, discordgo.WithContext(ctx))
	if err != nil {
		return domain.Message{}, fmt.Errorf("edit message %s: %w", messageID, mapError(err))
	}
	return toMessage(message), nil
}

func (a *api) AddReaction(ctx context.Context, channelID, messageID domain.Snowflake, emoji string) error {
	if err := a.session.MessageReactionAdd(string(channelID), string(messageID), emoji, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("react to %s: %w", messageID, mapError(err))
	}
	return nil
}

func (a *api) StartForumThread(ctx context.Context, forumID domain.Snowflake, title, content string) (domain.Channel, error) {
	thread, err := a.session.ForumThreadStart(string(forumID), title, forumArchiveMinutes, content, discordgo.WithContext(ctx))
	if err != nil {
		return domain.Channel{}, fmt.Errorf("start thread in forum %s: %w", forumID, mapError(err))
	}
	return toChannel(thread), nil
}

func (a *api) ActiveThreads(ctx context.Context, guildID domain.Snowflake) ([]domain.Channel, error) {
	list, err := a.session.GuildThreadsActive(string(guildID), discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("list active threads of %s: %w", guildID, mapError(err))
	}
	return toChannels(list.Threads), nil
}

func (a *api) ArchivedThreads(ctx context.Context, channelID domain.Snowflake, before time.Time, limit int) ([]domain.Channel, bool, error) {
	var cursor *time.Time
	if !before.IsZero() {
		cursor = &before
	}
	list, err := a.session.ThreadsArchived(string(channelID), cursor, limit, discordgo.WithContext(ctx))
	if err != nil {
		return nil, false, fmt.Errorf("list archived threads of %s: %w", channelID, mapError(err))
	}
	return toChannels(list.Threads), list.HasMore, nil
}
