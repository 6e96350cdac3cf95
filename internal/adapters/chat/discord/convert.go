package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/bwmarrin/discordgo"

	"github.com/bnema/opsbot/internal/domain"
)

var intentMap = []struct {
	domain  domain.IntentSet
	discord discordgo.Intent
}{
	{domain.IntentGuilds, discordgo.IntentsGuilds},
	{domain.IntentGuildMembers, discordgo.IntentsGuildMembers},
	{domain.IntentGuildMessages, discordgo.IntentsGuildMessages},
	{domain.IntentGuildMessageReactions, discordgo.IntentsGuildMessageReactions},
	{domain.IntentMessageContent, discordgo.IntentsMessageContent},
}

func toIntents(set domain.IntentSet) discordgo.Intent {
	var intents discordgo.Intent
	for _, entry := range intentMap {
		if set.Has(entry.domain) {
			intents |= entry.discord
		}
	}
	return intents
}

// mapError turns discordgo failures into the domain taxonomy. REST answers
// become PlatformError; anything without an HTTP answer is a transport
// failure.
func mapError(err error) error {
	if err == nil {
		return nil
	}

	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) {
		status := 0
		if restErr.Response != nil {
			status = restErr.Response.StatusCode
		}
		platformErr := domain.NewPlatformError(status, 0, "", restErr.ResponseBody)
		if restErr.Message != nil {
			platformErr.Code = restErr.Message.Code
			platformErr.Message = restErr.Message.Message
		}
		return platformErr
	}

	var rateErr *discordgo.RateLimitError
	if errors.As(err, &rateErr) {
		return domain.NewPlatformError(http.StatusTooManyRequests, 0, rateErr.Error(), nil)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if errors.Is(err, discordgo.ErrJSONUnmarshal) {
		return fmt.Errorf("%w: %w", domain.ErrPlatform, err)
	}

	return fmt.Errorf("%w: %w", domain.ErrTransport, err)
}

func toGuild(guild *discordgo.Guild) domain.Guild {
	return domain.Guild{ID: domain.Snowflake(guild.ID), Name: guild.Name}
}

func toChannelKind(t discordgo.ChannelType) domain.ChannelKind {
	switch t {
	case discordgo.ChannelTypeGuildText:
		return domain.ChannelKindText
	case discordgo.ChannelTypeGuildCategory:
		return domain.ChannelKindCategory
	case discordgo.ChannelTypeGuildForum:
		return domain.ChannelKindForum
	case discordgo.ChannelTypeGuildNews:
		return domain.ChannelKindNews
	case discordgo.ChannelTypeGuildVoice:
		return domain.ChannelKindVoice
	case discordgo.ChannelTypeGuildPublicThread, discordgo.ChannelTypeGuildPrivateThread, discordgo.ChannelTypeGuildNewsThread:
		return domain.ChannelKindThread
	default:
		return domain.ChannelKindOther
	}
}

func toChannelType(kind domain.ChannelKind) discordgo.ChannelType {
	switch kind {
	case domain.ChannelKindCategory:
		return discordgo.ChannelTypeGuildCategory
	case domain.ChannelKindForum:
		return discordgo.ChannelTypeGuildForum
	case domain.ChannelKindNews:
		return discordgo.ChannelTypeGuildNews
	case domain.ChannelKindVoice:
		return discordgo.ChannelTypeGuildVoice
	default:
		return discordgo.ChannelTypeGuildText
	}
}

func toChannel(channel *discordgo.Channel) domain.Channel {
	out := domain.Channel{
		ID:           domain.Snowflake(channel.ID),
		GuildID:      domain.Snowflake(channel.GuildID),
		ParentID:     domain.Snowflake(channel.ParentID),
		Name:         channel.Name,
		Topic:        channel.Topic,
		Kind:         toChannelKind(channel.Type),
		MessageCount: channel.MessageCount,
	}
	if meta := channel.ThreadMetadata; meta != nil {
		out.Archived = meta.Archived
		out.Locked = meta.Locked
		out.ArchivedAt = meta.ArchiveTimestamp
	}
	for _, overwrite := range channel.PermissionOverwrites {
		target := domain.OverwriteRole
		if overwrite.Type == discordgo.PermissionOverwriteTypeMember {
			target = domain.OverwriteMember
		}
		out.Overwrites = append(out.Overwrites, domain.PermissionOverwrite{
			TargetID:   domain.Snowflake(overwrite.ID),
			TargetType: target,
			Allow:      overwrite.Allow,
			Deny:       overwrite.Deny,
		})
	}
	return out
}

func toChannels(channels []*discordgo.Channel) []domain.Channel {
	out := make([]domain.Channel, 0, len(channels))
	for _, channel := range channels {
		out = append(out, toChannel(channel))
	}
	return out
}

func toOverwriteType(target domain.OverwriteTarget) discordgo.PermissionOverwriteType {
	if target == domain.OverwriteMember {
		return discordgo.PermissionOverwriteTypeMember
	}
	return discordgo.PermissionOverwriteTypeRole
}

func toOverwrites(overwrites []domain.PermissionOverwrite) []*discordgo.PermissionOverwrite {
	out := make([]*discordgo.PermissionOverwrite, 0, len(overwrites))
	for _, overwrite := range overwrites {
		out = append(out, &discordgo.PermissionOverwrite{
			ID:    string(overwrite.TargetID),
			Type:  toOverwriteType(overwrite.TargetType),
			Allow: overwrite.Allow,
			Deny:  overwrite.Deny,
		})
	}
	return out
}

func toMessage(message *discordgo.Message) domain.Message {
	out := domain.Message{
		ID:        domain.Snowflake(message.ID),
		ChannelID: domain.Snowflake(message.ChannelID),
		Content:   message.Content,
		Timestamp: message.Timestamp,
	}
	if author := message.Author; author != nil {
		out.AuthorID = domain.Snowflake(author.ID)
		out.AuthorName = author.Username
		out.AuthorBot = author.Bot
	}
	for _, attachment := range message.Attachments {
		out.Attachments = append(out.Attachments, domain.Attachment{
			Filename: attachment.Filename,
			URL:      attachment.URL,
			Size:     attachment.Size,
		})
	}
	return out
}
