package memory

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/bnema/opsbot/internal/domain"
	"github.com/bnema/opsbot/internal/ports"
)

type api struct {
	gateway *Gateway
}

var _ ports.ChatAPI = (*api)(nil)

func (a *api) CachedGuild(id domain.Snowflake) (domain.Guild, bool) {
	g := a.gateway
	g.mu.Lock()
	defer g.mu.Unlock()

	g.record("CachedGuild")
	guild, ok := g.guilds[id]
	return guild, ok
}

func (a *api) CachedChannel(id domain.Snowflake) (domain.Channel, bool) {
	g := a.gateway
	g.mu.Lock()
	defer g.mu.Unlock()

	g.record("CachedChannel")
	if g.uncached[id] {
		return domain.Channel{}, false
	}
	channel, ok := g.channels[id]
	return channel, ok
}

func (a *api) Guild(ctx context.Context, id domain.Snowflake) (domain.Guild, error) {
	g := a.gateway
	g.mu.Lock()
	defer g.mu.Unlock()

	g.record("Guild")
	if err := ctx.Err(); err != nil {
		return domain.Guild{}, err
	}
	guild, ok := g.guilds[id]
	if !ok {
		return domain.Guild{}, domain.NewPlatformError(http.StatusNotFound, codeUnknownGuild, "Unknown Guild", nil)
	}
	return guild, nil
}

func (a *api) Channel(ctx context.Context, id domain.Snowflake) (domain.Channel, error) {
	g := a.gateway
	g.mu.Lock()
	defer g.mu.Unlock()

	g.record("Channel")
	if err := ctx.Err(); err != nil {
		return domain.Channel{}, err
	}
	return g.channelOrNotFound(id)
}

func (a *api) GuildChannels(ctx context.Context, guildID domain.Snowflake) ([]domain.Channel, error) {
	g := a.gateway
	g.mu.Lock()
	defer g.mu.Unlock()

	g.record("GuildChannels")
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, ok := g.guilds[guildID]; !ok {
		return nil, domain.NewPlatformError(http.StatusNotFound, codeUnknownGuild, "Unknown Guild", nil)
	}

	var channels []domain.Channel
	for _, channel := range g.channels {
		if channel.GuildID == guildID && channel.Kind != domain.ChannelKindThread {
			channels = append(channels, channel)
		}
	}
	sortChannels(channels)
	return channels, nil
}

func (a *api) CreateChannel(ctx context.Context, guildID domain.Snowflake, draft domain.ChannelDraft) (domain.Channel, error) {
	g := a.gateway
	g.mu.Lock()
	defer g.mu.Unlock()

	g.record("CreateChannel")
	if err := ctx.Err(); err != nil {
		return domain.Channel{}, err
	}
	if _, ok := g.guilds[guildID]; !ok {
		return domain.Channel{}, domain.NewPlatformError(http.StatusNotFound, codeUnknownGuild, "Unknown Guild", nil)
	}
	if err := g.checkWrite(guildID); err != nil {
		return domain.Channel{}, err
	}
	if draft.ParentID != "" {
		parent, ok := g.channels[draft.ParentID]
		if !ok || parent.Kind != domain.ChannelKindCategory || parent.GuildID != guildID {
			return domain.Channel{}, invalidForm("parent_id: Category does not exist")
		}
		if draft.Kind == domain.ChannelKindCategory {
			return domain.Channel{}, invalidForm("parent_id: Categories cannot be nested")
		}
	}

	channel := domain.Channel{
		ID:         g.newID(),
		GuildID:    guildID,
		ParentID:   draft.ParentID,
		Name:       draft.Name,
		Topic:      draft.Topic,
		Kind:       draft.Kind,
		Overwrites: append([]domain.PermissionOverwrite(nil), draft.Overwrites...),
	}
	g.channels[channel.ID] = channel
	return channel, nil
}

func (a *api) RenameChannel(ctx context.Context, id domain.Snowflake, name string) (domain.Channel, error) {
	g := a.gateway
	g.mu.Lock()
	defer g.mu.Unlock()

	g.record("RenameChannel")
	if err := ctx.Err(); err != nil {
		return domain.Channel{}, err
	}
	channel, err := g.channelOrNotFound(id)
	if err != nil {
		return domain.Channel{}, err
	}
	if err := g.checkWrite(id); err != nil {
		return domain.Channel{}, err
	}

	channel.Name = name
	g.channels[id] = channel
	return channel, nil
}

func (a *api) DeleteChannel(ctx context.Context, id domain.Snowflake) error {
	g := a.gateway
	g.mu.Lock()
	defer g.mu.Unlock()

	g.record("DeleteChannel")
	if err := ctx.Err(); err != nil {
		return err
	}
	if g.vanished[id] {
		return domain.NewPlatformError(http.StatusNotFound, codeUnknownChannel, "Unknown Channel", nil)
	}
	channel, err := g.channelOrNotFound(id)
	if err != nil {
		return err
	}
	if err := g.checkWrite(id); err != nil {
		return err
	}

	delete(g.channels, id)
	delete(g.messages, id)
	for childID, child := range g.channels {
		if child.ParentID != id {
			continue
		}
		// Children of a deleted category move to the top level; threads go
		// with their parent.
		if channel.Kind == domain.ChannelKindCategory {
			child.ParentID = ""
			g.channels[childID] = child
			continue
		}
		if child.Kind == domain.ChannelKindThread {
			delete(g.channels, childID)
			delete(g.messages, childID)
		}
	}
	return nil
}

func (a *api) SetPermissionOverwrite(ctx context.Context, channelID domain.Snowflake, overwrite domain.PermissionOverwrite) error {
	g := a.gateway
	g.mu.Lock()
	defer g.mu.Unlock()

	g.record("SetPermissionOverwrite")
	if err := ctx.Err(); err != nil {
		return err
	}
	channel, err := g.channelOrNotFound(channelID)
	if err != nil {
		return err
	}
	if err := g.checkWrite(channelID); err != nil {
		return err
	}

	replaced := false
	for i, existing := range channel.Overwrites {
		if existing.TargetID == overwrite.TargetID {
			channel.Overwrites[i] = overwrite
			replaced = true
		}
	}
	if !replaced {
		channel.Overwrites = append(channel.Overwrites, overwrite)
	}
	g.channels[channelID] = channel
	return nil
}

func (a *api) Message(ctx context.Context, channelID, messageID domain.Snowflake) (domain.Message, error) {
	g := a.gateway
	g.mu.Lock()
	defer g.mu.Unlock()

	g.record("Message")
	if err := ctx.Err(); err != nil {
		return domain.Message{}, err
	}
	if _, err := g.channelOrNotFound(channelID); err != nil {
		return domain.Message{}, err
	}
	for _, message := range g.messages[channelID] {
		if message.ID == messageID {
			return message, nil
		}
	}
	return domain.Message{}, domain.NewPlatformError(http.StatusNotFound, codeUnknownMessage, "Unknown Message", nil)
}

// Messages answers newest first, like the platform's history endpoint.
func (a *api) Messages(ctx context.Context, channelID domain.Snowflake, page ports.MessagePage) ([]domain.Message, error) {
	g := a.gateway
	g.mu.Lock()
	defer g.mu.Unlock()

	g.record("Messages")
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := g.channelOrNotFound(channelID); err != nil {
		return nil, err
	}
	limit := page.Limit
	if limit <= 0 || limit > 100 {
		limit = 100
	}

	all := g.messages[channelID]
	var selected []domain.Message
	switch {
	case page.After != "":
		after := page.After.Uint64()
		for _, message := range all {
			if message.ID.Uint64() > after && len(selected) < limit {
				selected = append(selected, message)
			}
		}
	default:
		before := page.Before.Uint64()
		for i := len(all) - 1; i >= 0 && len(selected) < limit; i-- {
			if page.Before == "" || all[i].ID.Uint64() < before {
				selected = append(selected, all[i])
			}
		}
	}

	sort.Slice(selected, func(i, j int) bool { return selected[i].ID.Uint64() > selected[j].ID.Uint64() })
	return selected, nil
}

func (a *api) SendMessage(ctx context.Context, channelID domain.Snowflake, content string, files []domain.FileUpload) (domain.Message, error) {
	g := a.gateway
	g.mu.Lock()
	defer g.mu.Unlock()

	g.record("SendMessage")
	if err := ctx.Err(); err != nil {
		return domain.Message{}, err
	}
	channel, err := g.channelOrNotFound(channelID)
	if err != nil {
		return domain.Message{}, err
	}
	if err := g.checkWrite(channelID); err != nil {
		return domain.Message{}, err
	}
	if !channel.Messageable() {
		return domain.Message{}, invalidForm("Cannot send messages in a non-text channel")
	}

	message := domain.Message{
		ID:         g.newID(),
		ChannelID:  channelID,
		AuthorID:   g.bot.UserID,
		AuthorName: g.bot.Username,
		AuthorBot:  true,
		Content:    content,
		Timestamp:  g.tick(),
	}
	for _, file := range files {
		message.Attachments = append(message.Attachments, domain.Attachment{
			Filename: file.Name,
			URL:      "https://cdn.example.invalid/attachments/" + string(channelID) + "/" + file.Name,
			Size:     len(file.Data),
		})
	}
	g.insertMessage(message)
	return message, nil
}

func (a *api) EditMessage(ctx context.Context, channelID, messageID domain.Snowflake, content string) (domain.Message, error) {
	g := a.gateway
	g.mu.Lock()
	defer g.mu.Unlock()

	g.record("EditMessage")
	if err := ctx.Err(); err != nil {
		return domain.Message{}, err
	}
	if _, err := g.channelOrNotFound(channelID); err != nil {
		return domain.Message{}, err
	}

	list := g.messages[channelID]
	for i, message := range list {
		if message.ID != messageID {
			continue
		}
		if message.AuthorID != g.bot.UserID {
			return domain.Message{}, domain.NewPlatformError(http.StatusForbidden, codeCannotEditOthers, "Cannot edit a message authored by another user", nil)
		}
		message.Content = content
		list[i] = message
		return message, nil
	}
	return domain.Message{}, domain.NewPlatformError(http.StatusNotFound, codeUnknownMessage, "Unknown Message", nil)
}

func (a *api) AddReaction(ctx context.Context, channelID, messageID domain.Snowflake, emoji string) error {
	g := a.gateway
	g.mu.Lock()
	defer g.mu.Unlock()

	g.record("AddReaction")
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := g.channelOrNotFound(channelID); err != nil {
		return err
	}
	if err := g.checkWrite(channelID); err != nil {
		return err
	}

	found := false
	for _, message := range g.messages[channelID] {
		if message.ID == messageID {
			found = true
			break
		}
	}
	if !found {
		return domain.NewPlatformError(http.StatusNotFound, codeUnknownMessage, "Unknown Message", nil)
	}

	byEmoji, ok := g.reactions[messageID]
	if !ok {
		byEmoji = map[string]map[domain.Snowflake]struct{}{}
		g.reactions[messageID] = byEmoji
	}
	if byEmoji[emoji] == nil {
		byEmoji[emoji] = map[domain.Snowflake]struct{}{}
	}
	byEmoji[emoji][g.bot.UserID] = struct{}{}
	return nil
}

func (a *api) StartForumThread(ctx context.Context, forumID domain.Snowflake, title, content string) (domain.Channel, error) {
	g := a.gateway
	g.mu.Lock()
	defer g.mu.Unlock()

	g.record("StartForumThread")
	if err := ctx.Err(); err != nil {
		return domain.Channel{}, err
	}
	forum, err := g.channelOrNotFound(forumID)
	if err != nil {
		return domain.Channel{}, err
	}
	if err := g.checkWrite(forumID); err != nil {
		return domain.Channel{}, err
	}
	if forum.Kind != domain.ChannelKindForum {
		return domain.Channel{}, invalidForm("Channel is not a forum")
	}

	thread := domain.Channel{
		ID:           g.newID(),
		GuildID:      forum.GuildID,
		ParentID:     forumID,
		Name:         title,
		Kind:         domain.ChannelKindThread,
		MessageCount: 1,
	}
	g.channels[thread.ID] = thread
	g.insertMessage(domain.Message{
		ID:         thread.ID,
		ChannelID:  thread.ID,
		AuthorID:   g.bot.UserID,
		AuthorName: g.bot.Username,
		AuthorBot:  true,
		Content:    content,
		Timestamp:  g.tick(),
	})
	return thread, nil
}

func (a *api) ActiveThreads(ctx context.Context, guildID domain.Snowflake) ([]domain.Channel, error) {
	g := a.gateway
	g.mu.Lock()
	defer g.mu.Unlock()

	g.record("ActiveThreads")
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var threads []domain.Channel
	for _, channel := range g.channels {
		if channel.GuildID == guildID && channel.Kind == domain.ChannelKindThread && !channel.Archived {
			threads = append(threads, channel)
		}
	}
	sortChannels(threads)
	return threads, nil
}

// ArchivedThreads pages archived threads of a channel, most recently archived
// first.
func (a *api) ArchivedThreads(ctx context.Context, channelID domain.Snowflake, before time.Time, limit int) ([]domain.Channel, bool, error) {
	g := a.gateway
	g.mu.Lock()
	defer g.mu.Unlock()

	g.record("ArchivedThreads")
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	if _, err := g.channelOrNotFound(channelID); err != nil {
		return nil, false, err
	}
	if limit <= 0 {
		limit = 50
	}

	var threads []domain.Channel
	for _, channel := range g.channels {
		if channel.ParentID != channelID || channel.Kind != domain.ChannelKindThread || !channel.Archived {
			continue
		}
		if !before.IsZero() && !channel.ArchivedAt.Before(before) {
			continue
		}
		threads = append(threads, channel)
	}
	sort.Slice(threads, func(i, j int) bool { return threads[i].ArchivedAt.After(threads[j].ArchivedAt) })

	if len(threads) > limit {
		return threads[:limit], true, nil
	}
	return threads, false, nil
}

func sortChannels(channels []domain.Channel) {
	sort.Slice(channels, func(i, j int) bool {
		if channels[i].ParentID != channels[j].ParentID {
			return channels[i].ParentID < channels[j].ParentID
		}
		if !strings.EqualFold(channels[i].Name, channels[j].Name) {
			return strings.ToLower(channels[i].Name) < strings.ToLower(channels[j].Name)
		}
		return channels[i].ID.Uint64() < channels[j].ID.Uint64()
	})
}
