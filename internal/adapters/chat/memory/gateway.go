package memory

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/bnema/opsbot/internal/domain"
	"github.com/bnema/opsbot/internal/ports"
)

// Platform error codes mirrored from the chat platform.
const (
	codeUnknownChannel    = 10003
	codeUnknownGuild      = 10004
	codeUnknownMessage    = 10008
	codeCannotEditOthers  = 50005
	codeMissingPermission = 50013
	codeInvalidForm       = 50035
)

// Gateway is an in-process chat platform. It keeps guilds, channels, messages
// and reactions in memory and answers like the real platform does.
type Gateway struct {
	mu sync.Mutex

	bot         domain.BotIdentity
	rejected    map[string]bool
	holdReady   bool
	closeErr    error
	guilds      map[domain.Snowflake]domain.Guild
	channels    map[domain.Snowflake]domain.Channel
	uncached    map[domain.Snowflake]bool
	messages    map[domain.Snowflake][]domain.Message
	reactions   map[domain.Snowflake]map[string]map[domain.Snowflake]struct{}
	denied      map[domain.Snowflake]bool
	vanished    map[domain.Snowflake]bool
	nextID      uint64
	clock       time.Time
	calls       []string
	opened      int
	closed      int
	lastIntents domain.IntentSet
	lastToken   string
}

var _ ports.ChatGateway = (*Gateway)(nil)

func NewGateway(bot domain.BotIdentity) *Gateway {
	return &Gateway{
		bot:       bot,
		rejected:  map[string]bool{},
		guilds:    map[domain.Snowflake]domain.Guild{},
		channels:  map[domain.Snowflake]domain.Channel{},
		uncached:  map[domain.Snowflake]bool{},
		messages:  map[domain.Snowflake][]domain.Message{},
		reactions: map[domain.Snowflake]map[string]map[domain.Snowflake]struct{}{},
		denied:    map[domain.Snowflake]bool{},
		vanished:  map[domain.Snowflake]bool{},
		nextID:    1500000000000000000,
		clock:     time.Date(2025, 11, 1, 9, 0, 0, 0, time.UTC),
	}
}

func (g *Gateway) AddGuild(guild domain.Guild) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.guilds[guild.ID] = guild
	g.bot.GuildIDs = appendUnique(g.bot.GuildIDs, guild.ID)
}

func (g *Gateway) AddChannel(channel domain.Channel) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.channels[channel.ID] = channel
}

// AddUncachedChannel stores a channel the session cache does not know about,
// so lookups must go through an authoritative fetch.
func (g *Gateway) AddUncachedChannel(channel domain.Channel) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.channels[channel.ID] = channel
	g.uncached[channel.ID] = true
}

func (g *Gateway) AddMessage(message domain.Message) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.insertMessage(message)
}

// DenyChannel makes every write on the channel fail with a permission error.
func (g *Gateway) DenyChannel(id domain.Snowflake) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.denied[id] = true
}

// VanishChannel keeps the channel in guild listings while deleting it answers
// Unknown Channel, as when someone else removed it after the listing.
func (g *Gateway) VanishChannel(id domain.Snowflake) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.vanished[id] = true
}

func (g *Gateway) RejectToken(token string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.rejected[token] = true
}

// HoldReady keeps new connections from ever reporting ready.
func (g *Gateway) HoldReady() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.holdReady = true
}

func (g *Gateway) FailClose(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.closeErr = err
}

func (g *Gateway) Lookup(id domain.Snowflake) (domain.Channel, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	channel, ok := g.channels[id]
	return channel, ok
}

func (g *Gateway) MessagesIn(channelID domain.Snowflake) []domain.Message {
	g.mu.Lock()
	defer g.mu.Unlock()

	return append([]domain.Message(nil), g.messages[channelID]...)
}

// Reactors lists the users who reacted to a message with emoji.
func (g *Gateway) Reactors(messageID domain.Snowflake, emoji string) []domain.Snowflake {
	g.mu.Lock()
	defer g.mu.Unlock()

	var users []domain.Snowflake
	for user := range g.reactions[messageID][emoji] {
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool { return users[i] < users[j] })
	return users
}

// CallCount reports how many times the named API method was invoked.
func (g *Gateway) CallCount(method string) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	count := 0
	for _, call := range g.calls {
		if call == method {
			count++
		}
	}
	return count
}

func (g *Gateway) Calls() []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	return append([]string(nil), g.calls...)
}

func (g *Gateway) Connections() (opened, closed int) {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.opened, g.closed
}

func (g *Gateway) LastIntents() domain.IntentSet {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.lastIntents
}

func (g *Gateway) LastToken() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.lastToken
}

func (g *Gateway) Open(ctx context.Context, token string, intents domain.IntentSet) (ports.ChatConn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.lastIntents = intents
	g.lastToken = token
	if g.rejected[token] {
		return nil, fmt.Errorf("open gateway: %w", domain.NewPlatformError(http.StatusUnauthorized, 0, "401: Unauthorized", nil))
	}

	g.opened++
	conn := &conn{gateway: g, ready: make(chan domain.BotIdentity, 1)}
	if !g.holdReady {
		identity := g.bot
		identity.GuildIDs = append([]domain.Snowflake(nil), g.bot.GuildIDs...)
		conn.ready <- identity
	}

	return conn, nil
}

type conn struct {
	gateway *Gateway
	ready   chan domain.BotIdentity
	once    sync.Once
}

func (c *conn) Ready() <-chan domain.BotIdentity {
	return c.ready
}

func (c *conn) API() ports.ChatAPI {
	return &api{gateway: c.gateway}
}

func (c *conn) Close() error {
	var err error
	c.once.Do(func() {
		c.gateway.mu.Lock()
		defer c.gateway.mu.Unlock()

		c.gateway.closed++
		err = c.gateway.closeErr
	})
	return err
}

func (g *Gateway) record(method string) {
	g.calls = append(g.calls, method)
}

func (g *Gateway) newID() domain.Snowflake {
	g.nextID++
	return domain.Snowflake(strconv.FormatUint(g.nextID, 10))
}

func (g *Gateway) tick() time.Time {
	g.clock = g.clock.Add(time.Second)
	return g.clock
}

func (g *Gateway) insertMessage(message domain.Message) {
	list := append(g.messages[message.ChannelID], message)
	sort.Slice(list, func(i, j int) bool { return list[i].ID.Uint64() < list[j].ID.Uint64() })
	g.messages[message.ChannelID] = list
}

func (g *Gateway) channelOrNotFound(id domain.Snowflake) (domain.Channel, error) {
	channel, ok := g.channels[id]
	if !ok {
		return domain.Channel{}, domain.NewPlatformError(http.StatusNotFound, codeUnknownChannel, "Unknown Channel", nil)
	}
	return channel, nil
}

func (g *Gateway) checkWrite(id domain.Snowflake) error {
	if g.denied[id] {
		return domain.NewPlatformError(http.StatusForbidden, codeMissingPermission, "Missing Permissions", nil)
	}
	return nil
}

func appendUnique(ids []domain.Snowflake, id domain.Snowflake) []domain.Snowflake {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}

func invalidForm(message string) error {
	return domain.NewPlatformError(http.StatusBadRequest, codeInvalidForm, message, nil)
}
