package application

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/bnema/opsbot/internal/adapters/chat/memory"
	"github.com/bnema/opsbot/internal/domain"
	"github.com/bnema/opsbot/internal/logger"
	"github.com/stretchr/testify/require"
)

const (
	guildID    domain.Snowflake = "1100000000000000001"
	categoryID domain.Snowflake = "1100000000000000002"
	textID     domain.Snowflake = "1100000000000000003"
	forumID    domain.Snowflake = "1100000000000000004"
	botID      domain.Snowflake = "1900000000000000001"
	humanID    domain.Snowflake = "1900000000000000002"
	testToken                   = "bot-token"
)

type fixture struct {
	gateway  *memory.Gateway
	harness  *Harness
	executor *Executor
}

func newFixture(t *testing.T, opts ...HarnessOption) *fixture {
	t.Helper()

	gateway := memory.NewGateway(domain.BotIdentity{UserID: botID, Username: "opsbot"})
	gateway.AddGuild(domain.Guild{ID: guildID, Name: "home"})
	gateway.AddChannel(domain.Channel{ID: categoryID, GuildID: guildID, Name: "ops", Kind: domain.ChannelKindCategory})
	gateway.AddChannel(domain.Channel{ID: textID, GuildID: guildID, ParentID: categoryID, Name: "general", Kind: domain.ChannelKindText})
	gateway.AddChannel(domain.Channel{ID: forumID, GuildID: guildID, Name: "tradition", Kind: domain.ChannelKindForum})

	opts = append([]HarnessOption{WithConnectTimeout(time.Second), WithActionTimeout(2 * time.Second)}, opts...)
	return &fixture{
		gateway:  gateway,
		harness:  NewHarness(gateway, logger.NewNop(), opts...),
		executor: NewExecutor(NewResolver(), logger.NewNop()),
	}
}

func (f *fixture) run(t *testing.T, action domain.Action) domain.Outcome {
	t.Helper()

	return f.harness.RunAction(context.Background(), testToken, action.Intents(), f.executor.Step(action))
}

func (f *fixture) requireClosed(t *testing.T) {
	t.Helper()

	opened, closed := f.gateway.Connections()
	require.Equal(t, opened, closed, "every opened connection must be closed")
}

// seedMessages adds count messages from a human with increasing ids and
// returns the ids oldest first.
func (f *fixture) seedMessages(channelID domain.Snowflake, count int) []domain.Snowflake {
	base := uint64(1200000000000000000)
	start := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)

	ids := make([]domain.Snowflake, 0, count)
	for i := 0; i < count; i++ {
		id := domain.Snowflake(strconv.FormatUint(base+uint64(i), 10))
		f.gateway.AddMessage(domain.Message{
			ID:         id,
			ChannelID:  channelID,
			AuthorID:   humanID,
			AuthorName: "kaito",
			Content:    "message " + strconv.Itoa(i),
			Timestamp:  start.Add(time.Duration(i) * time.Minute),
		})
		ids = append(ids, id)
	}
	return ids
}
