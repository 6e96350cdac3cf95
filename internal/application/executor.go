package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bnema/opsbot/internal/domain"
	"github.com/bnema/opsbot/internal/logger"
	"github.com/bnema/opsbot/internal/ports"
)

// historyPageSize is the largest page the history endpoint returns.
const historyPageSize = 100

// archivedPageSize bounds each archived-thread page.
const archivedPageSize = 100

// Executor turns domain actions into harness steps.
type Executor struct {
	resolver *Resolver
	log      logger.Logger
}

func NewExecutor(resolver *Resolver, log logger.Logger) *Executor {
	if resolver == nil {
		resolver = NewResolver()
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Executor{resolver: resolver, log: log}
}

// Steps builds one step per action, in order.
func (e *Executor) Steps(actions []domain.Action) []Step {
	steps := make([]Step, 0, len(actions))
	for _, action := range actions {
		steps = append(steps, e.Step(action))
	}
	return steps
}

func (e *Executor) Step(action domain.Action) Step {
	return Step{
		Type: action.Type(),
		Run: func(ctx context.Context, session *Session) (domain.Outcome, error) {
			return e.Execute(ctx, session, action)
		},
	}
}

// Execute validates action and performs it against the session.
func (e *Executor) Execute(ctx context.Context, session *Session, action domain.Action) (domain.Outcome, error) {
	if err := action.Validate(); err != nil {
		return domain.Outcome{}, err
	}
	api, err := session.API()
	if err != nil {
		return domain.Outcome{}, err
	}

	switch a := action.(type) {
	case domain.CreateTextChannel:
		return e.createTextChannel(ctx, api, a)
	case domain.CreateForumChannel:
		return e.createForumChannel(ctx, api, a)
	case domain.CreateCategory:
		return e.createCategory(ctx, api, a)
	case domain.RenameEntity:
		return e.rename(ctx, api, a)
	case domain.DeleteEntity:
		return e.delete(ctx, api, a)
	case domain.PostMessage:
		return e.postMessage(ctx, api, a)
	case domain.EditMessage:
		return e.editMessage(ctx, api, session.Identity(), a)
	case domain.AddReaction:
		return e.addReaction(ctx, api, a)
	case domain.CreateForumThread:
		return e.createForumThread(ctx, api, a)
	case domain.ListForumThreads:
		return e.listForumThreads(ctx, api, a)
	case domain.ReadHistory:
		return e.readHistory(ctx, api, a)
	case domain.SetCategoryOverwrites:
		return e.setCategoryOverwrites(ctx, api, a)
	default:
		return domain.Outcome{}, fmt.Errorf("%w: unsupported action %T", domain.ErrConfig, action)
	}
}

func (e *Executor) createTextChannel(ctx context.Context, api ports.ChatAPI, a domain.CreateTextChannel) (domain.Outcome, error) {
	guild, err := e.resolver.Resolve(ctx, api, a.Guild)
	if err != nil {
		return domain.Outcome{}, err
	}

	draft := domain.ChannelDraft{Name: strings.TrimSpace(a.Name), Kind: domain.ChannelKindText, Topic: a.Topic}
	if !a.Category.ID.IsZero() {
		category, err := e.resolver.Resolve(ctx, api, a.Category)
		if err != nil {
			return domain.Outcome{}, err
		}
		if category.Channel.GuildID != guild.Guild.ID {
			return domain.Outcome{}, fmt.Errorf("%w: category %s is not in guild %s", domain.ErrConfig, category.Channel.ID, guild.Guild.ID)
		}
		draft.ParentID = category.Channel.ID
	}

	return e.create(ctx, api, a.Type(), guild.Guild.ID, draft, a.IfMissing)
}

func (e *Executor) createForumChannel(ctx context.Context, api ports.ChatAPI, a domain.CreateForumChannel) (domain.Outcome, error) {
	parent, err := e.resolver.Resolve(ctx, api, a.Parent)
	if err != nil {
		return domain.Outcome{}, err
	}

	draft := domain.ChannelDraft{Name: strings.TrimSpace(a.Name), Kind: domain.ChannelKindForum, Topic: a.Topic}
	guildID := parent.Guild.ID
	if a.Parent.Kind == domain.TargetCategory {
		guildID = parent.Channel.GuildID
		draft.ParentID = parent.Channel.ID
	}

	return e.create(ctx, api, a.Type(), guildID, draft, a.IfMissing)
}

func (e *Executor) createCategory(ctx context.Context, api ports.ChatAPI, a domain.CreateCategory) (domain.Outcome, error) {
	guild, err := e.resolver.Resolve(ctx, api, a.Guild)
	if err != nil {
		return domain.Outcome{}, err
	}

	draft := domain.ChannelDraft{Name: strings.TrimSpace(a.Name), Kind: domain.ChannelKindCategory, Overwrites: a.Overwrites}
	return e.create(ctx, api, a.Type(), guild.Guild.ID, draft, a.IfMissing)
}

func (e *Executor) create(ctx context.Context, api ports.ChatAPI, action domain.ActionType, guildID domain.Snowflake, draft domain.ChannelDraft, ifMissing bool) (domain.Outcome, error) {
	if ifMissing {
		channels, err := api.GuildChannels(ctx, guildID)
		if err != nil {
			return domain.Outcome{}, err
		}
		sameName := ExactName(draft.Name)
		for _, existing := range channels {
			if existing.Kind == draft.Kind && existing.ParentID == draft.ParentID && sameName(existing.Name) {
				return domain.AffectedOutcome(action, existing.Ref(), "already exists"), nil
			}
		}
	}

	channel, err := api.CreateChannel(ctx, guildID, draft)
	if err != nil {
		return domain.Outcome{}, err
	}
	e.log.Debug("channel created", logger.Stringer("id", channel.ID), logger.String("kind", string(channel.Kind)))
	return domain.CreatedOutcome(action, channel.Ref()), nil
}

func (e *Executor) rename(ctx context.Context, api ports.ChatAPI, a domain.RenameEntity) (domain.Outcome, error) {
	target, err := e.resolver.Resolve(ctx, api, a.Target)
	if err != nil {
		return domain.Outcome{}, err
	}

	name := strings.TrimSpace(a.Name)
	if target.Channel.Name == name {
		return domain.AffectedOutcome(a.Type(), target.Channel.Ref(), "unchanged"), nil
	}

	renamed, err := api.RenameChannel(ctx, target.Channel.ID, name)
	if err != nil {
		return domain.Outcome{}, err
	}
	return domain.AffectedOutcome(a.Type(), renamed.Ref(), fmt.Sprintf("renamed from %q", target.Channel.Name)), nil
}

func (e *Executor) delete(ctx context.Context, api ports.ChatAPI, a domain.DeleteEntity) (domain.Outcome, error) {
	target, err := e.resolver.Resolve(ctx, api, a.Target)
	if err != nil {
		if a.MissingOK && errors.Is(err, domain.ErrNotFound) {
			return domain.AffectedOutcome(a.Type(), a.Target, "already absent"), nil
		}
		return domain.Outcome{}, err
	}

	if err := api.DeleteChannel(ctx, target.Channel.ID); err != nil {
		if a.MissingOK && errors.Is(err, domain.ErrNotFound) {
			return domain.AffectedOutcome(a.Type(), a.Target, "already absent"), nil
		}
		return domain.Outcome{}, err
	}
	return domain.AffectedOutcome(a.Type(), target.Channel.Ref(), "deleted"), nil
}

func (e *Executor) resolveMessageable(ctx context.Context, api ports.ChatAPI, ref domain.TargetRef) (domain.Channel, error) {
	target, err := e.resolver.Resolve(ctx, api, ref)
	if err != nil {
		return domain.Channel{}, err
	}
	if !target.Channel.Messageable() {
		return domain.Channel{}, &domain.KindMismatchError{Ref: ref, Want: domain.ChannelKindText, Got: target.Channel.Kind}
	}
	return target.Channel, nil
}

func (e *Executor) postMessage(ctx context.Context, api ports.ChatAPI, a domain.PostMessage) (domain.Outcome, error) {
	channel, err := e.resolveMessageable(ctx, api, a.Channel)
	if err != nil {
		return domain.Outcome{}, err
	}

	message, err := api.SendMessage(ctx, channel.ID, a.Content, a.Files)
	if err != nil {
		return domain.Outcome{}, err
	}
	return domain.CreatedOutcome(a.Type(), message.Ref()), nil
}

func (e *Executor) editMessage(ctx context.Context, api ports.ChatAPI, bot domain.BotIdentity, a domain.EditMessage) (domain.Outcome, error) {
	target, err := e.resolver.Resolve(ctx, api, a.Message)
	if err != nil {
		return domain.Outcome{}, err
	}
	if target.Message.AuthorID != bot.UserID {
		return domain.Outcome{}, fmt.Errorf("%w: %s was written by %s, not by this bot", domain.ErrPermissionDenied, a.Message, target.Message.AuthorID)
	}
	if target.Message.Content == a.Content {
		return domain.AffectedOutcome(a.Type(), target.Message.Ref(), "unchanged"), nil
	}

	edited, err := api.EditMessage(ctx, target.Message.ChannelID, target.Message.ID, a.Content)
	if err != nil {
		return domain.Outcome{}, err
	}
	return domain.AffectedOutcome(a.Type(), edited.Ref(), "edited"), nil
}

func (e *Executor) addReaction(ctx context.Context, api ports.ChatAPI, a domain.AddReaction) (domain.Outcome, error) {
	emoji, err := domain.NormalizeEmoji(a.Emoji)
	if err != nil {
		return domain.Outcome{}, err
	}
	target, err := e.resolver.Resolve(ctx, api, a.Message)
	if err != nil {
		return domain.Outcome{}, err
	}

	if err := api.AddReaction(ctx, target.Message.ChannelID, target.Message.ID, emoji); err != nil {
		return domain.Outcome{}, err
	}
	return domain.AffectedOutcome(a.Type(), target.Message.Ref(), "reacted "+emoji), nil
}

func (e *Executor) createForumThread(ctx context.Context, api ports.ChatAPI, a domain.CreateForumThread) (domain.Outcome, error) {
	forum, err := e.resolver.Resolve(ctx, api, a.Forum)
	if err != nil {
		return domain.Outcome{}, err
	}

	thread, err := api.StartForumThread(ctx, forum.Channel.ID, strings.TrimSpace(a.Title), a.Content)
	if err != nil {
		return domain.Outcome{}, err
	}

	ref := thread.Ref()
	ref.ParentID = forum.Channel.ID
	outcome := domain.CreatedOutcome(a.Type(), ref)
	// The starter message shares the thread's id.
	outcome.StarterMessageID = thread.ID
	return outcome, nil
}

func (e *Executor) listForumThreads(ctx context.Context, api ports.ChatAPI, a domain.ListForumThreads) (domain.Outcome, error) {
	forum, err := e.resolver.Resolve(ctx, api, a.Forum)
	if err != nil {
		return domain.Outcome{}, err
	}

	active, err := api.ActiveThreads(ctx, forum.Channel.GuildID)
	if err != nil {
		return domain.Outcome{}, err
	}

	seen := map[domain.Snowflake]bool{}
	var threads []domain.ThreadInfo
	for _, thread := range active {
		if thread.ParentID == forum.Channel.ID && !seen[thread.ID] {
			seen[thread.ID] = true
			threads = append(threads, thread.ThreadInfo())
		}
	}

	if a.IncludeArchived {
		var before time.Time
		for {
			page, more, err := api.ArchivedThreads(ctx, forum.Channel.ID, before, archivedPageSize)
			if err != nil {
				return domain.Outcome{}, err
			}
			for _, thread := range page {
				if !seen[thread.ID] {
					seen[thread.ID] = true
					threads = append(threads, thread.ThreadInfo())
				}
			}
			if !more || len(page) == 0 {
				break
			}
			before = page[len(page)-1].ArchivedAt
		}
	}

	outcome := domain.AffectedOutcome(a.Type(), forum.Channel.Ref(), fmt.Sprintf("%d threads", len(threads)))
	outcome.Threads = threads
	return outcome, nil
}

func (e *Executor) readHistory(ctx context.Context, api ports.ChatAPI, a domain.ReadHistory) (domain.Outcome, error) {
	channel, err := e.resolveMessageable(ctx, api, a.Channel)
	if err != nil {
		return domain.Outcome{}, err
	}

	limit := a.EffectiveLimit()
	order := a.EffectiveOrder()
	records := make([]domain.MessageRecord, 0, min(limit, historyPageSize))

	var cursor domain.Snowflake
	if order == domain.OldestFirst {
		cursor = "0"
	}
	for len(records) < limit {
		size := min(limit-len(records), historyPageSize)
		page := ports.MessagePage{Limit: size}
		if order == domain.OldestFirst {
			page.After = cursor
		} else {
			page.Before = cursor
		}

		messages, err := api.Messages(ctx, channel.ID, page)
		if err != nil {
			return domain.Outcome{}, err
		}
		sortMessages(messages, order)
		for _, message := range messages {
			if len(records) == limit {
				break
			}
			records = append(records, message.Record())
		}
		if len(messages) < size {
			break
		}
		cursor = messages[len(messages)-1].ID
	}

	outcome := domain.AffectedOutcome(a.Type(), channel.Ref(), fmt.Sprintf("%d messages", len(records)))
	outcome.Messages = records
	return outcome, nil
}

func sortMessages(messages []domain.Message, order domain.HistoryOrder) {
	sort.SliceStable(messages, func(i, j int) bool {
		if order == domain.OldestFirst {
			return messages[i].ID.Uint64() < messages[j].ID.Uint64()
		}
		return messages[i].ID.Uint64() > messages[j].ID.Uint64()
	})
}

func (e *Executor) setCategoryOverwrites(ctx context.Context, api ports.ChatAPI, a domain.SetCategoryOverwrites) (domain.Outcome, error) {
	category, err := e.resolver.Resolve(ctx, api, a.Category)
	if err != nil {
		return domain.Outcome{}, err
	}

	current := map[domain.Snowflake]domain.PermissionOverwrite{}
	for _, overwrite := range category.Channel.Overwrites {
		current[overwrite.TargetID] = overwrite
	}

	applied := 0
	for _, overwrite := range a.Overwrites {
		if existing, ok := current[overwrite.TargetID]; ok && existing == overwrite {
			continue
		}
		if err := api.SetPermissionOverwrite(ctx, category.Channel.ID, overwrite); err != nil {
			return domain.Outcome{}, err
		}
		applied++
	}

	diagnostic := fmt.Sprintf("applied %d, unchanged %d", applied, len(a.Overwrites)-applied)
	return domain.AffectedOutcome(a.Type(), category.Channel.Ref(), diagnostic), nil
}
