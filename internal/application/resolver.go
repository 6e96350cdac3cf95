package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/bnema/opsbot/internal/domain"
	"github.com/bnema/opsbot/internal/ports"
)

// Handle is a resolved target. Exactly one of Guild, Channel or Message is
// meaningful, according to Ref.Kind; a message handle also carries its
// channel.
type Handle struct {
	Ref     domain.TargetRef
	Guild   domain.Guild
	Channel domain.Channel
	Message domain.Message
}

// Resolver turns target references into live handles, checking kinds.
type Resolver struct{}

func NewResolver() *Resolver {
	return &Resolver{}
}

func (r *Resolver) Resolve(ctx context.Context, api ports.ChatAPI, ref domain.TargetRef) (Handle, error) {
	if err := ref.Validate(); err != nil {
		return Handle{}, err
	}

	switch ref.Kind {
	case domain.TargetGuild:
		guild, err := r.guild(ctx, api, ref.ID)
		if err != nil {
			return Handle{}, err
		}
		return Handle{Ref: ref, Guild: guild}, nil
	case domain.TargetMessage:
		return r.message(ctx, api, ref)
	default:
		channel, err := r.channel(ctx, api, ref.ID)
		if err != nil {
			return Handle{}, err
		}
		if want := ref.Kind.ChannelKind(); want != "" && channel.Kind != want {
			return Handle{}, &domain.KindMismatchError{Ref: ref, Want: want, Got: channel.Kind}
		}
		return Handle{Ref: ref, Channel: channel}, nil
	}
}

func (r *Resolver) guild(ctx context.Context, api ports.ChatAPI, id domain.Snowflake) (domain.Guild, error) {
	if guild, ok := api.CachedGuild(id); ok {
		return guild, nil
	}
	guild, err := api.Guild(ctx, id)
	if err != nil {
		return domain.Guild{}, fmt.Errorf("resolve guild %s: %w", id, err)
	}
	return guild, nil
}

func (r *Resolver) channel(ctx context.Context, api ports.ChatAPI, id domain.Snowflake) (domain.Channel, error) {
	if channel, ok := api.CachedChannel(id); ok {
		return channel, nil
	}
	channel, err := api.Channel(ctx, id)
	if err != nil {
		return domain.Channel{}, fmt.Errorf("resolve channel %s: %w", id, err)
	}
	return channel, nil
}

func (r *Resolver) message(ctx context.Context, api ports.ChatAPI, ref domain.TargetRef) (Handle, error) {
	channel, err := r.channel(ctx, api, ref.ChannelID)
	if err != nil {
		return Handle{}, err
	}
	if !channel.Messageable() {
		return Handle{}, &domain.KindMismatchError{Ref: domain.ChannelRef(ref.ChannelID), Want: domain.ChannelKindText, Got: channel.Kind}
	}

	message, err := api.Message(ctx, ref.ChannelID, ref.ID)
	if err != nil {
		return Handle{}, fmt.Errorf("resolve %s: %w", ref, err)
	}
	return Handle{Ref: ref, Channel: channel, Message: message}, nil
}

// NameMatcher selects channels by name in FindByName.
type NameMatcher func(name string) bool

// ExactName matches names equal to want, ignoring case and surrounding space.
func ExactName(want string) NameMatcher {
	want = strings.TrimSpace(want)
	return func(name string) bool {
		return strings.EqualFold(strings.TrimSpace(name), want)
	}
}

func NameContains(fragment string) NameMatcher {
	fragment = strings.ToLower(strings.TrimSpace(fragment))
	return func(name string) bool {
		return strings.Contains(strings.ToLower(name), fragment)
	}
}

// FindByName returns the first channel of kind whose name matches, scanning
// guilds in order. Threads are looked up among active threads. It returns
// nil, nil when nothing matches.
func (r *Resolver) FindByName(ctx context.Context, api ports.ChatAPI, guildIDs []domain.Snowflake, kind domain.ChannelKind, match NameMatcher) (*domain.Channel, error) {
	for _, guildID := range guildIDs {
		var (
			channels []domain.Channel
			err      error
		)
		if kind == domain.ChannelKindThread {
			channels, err = api.ActiveThreads(ctx, guildID)
		} else {
			channels, err = api.GuildChannels(ctx, guildID)
		}
		if err != nil {
			return nil, fmt.Errorf("scan guild %s: %w", guildID, err)
		}

		for _, channel := range channels {
			if channel.Kind == kind && match(channel.Name) {
				found := channel
				return &found, nil
			}
		}
	}
	return nil, nil
}
