// Package discord adapts a discordgo session to the chat ports.
package discord

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/bnema/opsbot/internal/domain"
	"github.com/bnema/opsbot/internal/logger"
	"github.com/bnema/opsbot/internal/ports"
)

// Gateway opens discordgo sessions authenticated as a bot.
type Gateway struct {
	log    logger.Logger
	client *http.Client
}

var _ ports.ChatGateway = (*Gateway)(nil)

func NewGateway(log logger.Logger, client *http.Client) *Gateway {
	if log == nil {
		log = logger.NewNop()
	}
	return &Gateway{log: log, client: client}
}

// Open checks the token over REST, then dials the gateway with intents. The
// returned connection reports ready once the platform sends its READY event.
func (g *Gateway) Open(ctx context.Context, token string, intents domain.IntentSet) (ports.ChatConn, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("%w: create session: %w", domain.ErrConfig, err)
	}
	if g.client != nil {
		session.Client = g.client
	}
	session.Identify.Intents = toIntents(intents)
	session.StateEnabled = true
	session.LogLevel = discordgo.LogError

	if _, err := session.User("@me", discordgo.WithContext(ctx)); err != nil {
		return nil, fmt.Errorf("validate token: %w", mapError(err))
	}

	c := &conn{session: session, ready: make(chan domain.BotIdentity, 1)}
	c.removeReady = session.AddHandlerOnce(func(_ *discordgo.Session, event *discordgo.Ready) {
		c.ready <- identityFromReady(event)
	})

	g.log.Debug("opening discord gateway", logger.Strings("intents", intents.Names()))

	opened := make(chan error, 1)
	go func() { opened <- session.Open() }()

	select {
	case err := <-opened:
		if err != nil {
			c.removeReady()
			return nil, fmt.Errorf("%w: open gateway: %w", domain.ErrTransport, err)
		}
		return c, nil
	case <-ctx.Done():
		go func() {
			if err := <-opened; err == nil {
				_ = session.Close()
			}
		}()
		return nil, ctx.Err()
	}
}

type conn struct {
	session     *discordgo.Session
	ready       chan domain.BotIdentity
	removeReady func()
	once        sync.Once
	closeErr    error
}

func (c *conn) Ready() <-chan domain.BotIdentity {
	return c.ready
}

func (c *conn) API() ports.ChatAPI {
	return &api{session: c.session}
}

func (c *conn) Close() error {
	c.once.Do(func() {
		c.removeReady()
		if err := c.session.Close(); err != nil {
			c.closeErr = fmt.Errorf("close gateway: %w", err)
		}
	})
	return c.closeErr
}

func identityFromReady(event *discordgo.Ready) domain.BotIdentity {
	var identity domain.BotIdentity
	if event.User != nil {
		identity.UserID = domain.Snowflake(event.User.ID)
		identity.Username = event.User.Username
	}
	for _, guild := range event.Guilds {
		identity.GuildIDs = append(identity.GuildIDs, domain.Snowflake(guild.ID))
	}
	return identity
}
