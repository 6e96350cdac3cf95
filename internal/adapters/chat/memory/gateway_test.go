package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bnema/opsbot/internal/domain"
	"github.com/bnema/opsbot/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testGuild    domain.Snowflake = "100000000000000001"
	testCategory domain.Snowflake = "100000000000000002"
	testText     domain.Snowflake = "100000000000000003"
	testForum    domain.Snowflake = "100000000000000004"
	testBot      domain.Snowflake = "900000000000000001"
	testHuman    domain.Snowflake = "900000000000000002"
)

func newTestGateway(t *testing.T) (*Gateway, ports.ChatAPI) {
	t.Helper()

	g := NewGateway(domain.BotIdentity{UserID: testBot, Username: "opsbot"})
	g.AddGuild(domain.Guild{ID: testGuild, Name: "home"})
	g.AddChannel(domain.Channel{ID: testCategory, GuildID: testGuild, Name: "ops", Kind: domain.ChannelKindCategory})
	g.AddChannel(domain.Channel{ID: testText, GuildID: testGuild, ParentID: testCategory, Name: "general", Kind: domain.ChannelKindText})
	g.AddChannel(domain.Channel{ID: testForum, GuildID: testGuild, Name: "tradition", Kind: domain.ChannelKindForum})

	conn, err := g.Open(context.Background(), "token", domain.MinimumIntents)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return g, conn.API()
}

func TestOpenReportsReadyWithIdentity(t *testing.T) {
	t.Parallel()

	g := NewGateway(domain.BotIdentity{UserID: testBot, Username: "opsbot"})
	g.AddGuild(domain.Guild{ID: testGuild})

	conn, err := g.Open(context.Background(), "token", domain.IntentGuilds|domain.IntentMessageContent)
	require.NoError(t, err)

	select {
	case identity := <-conn.Ready():
		assert.Equal(t, testBot, identity.UserID)
		assert.Equal(t, []domain.Snowflake{testGuild}, identity.GuildIDs)
	default:
		t.Fatal("ready was not delivered")
	}
	assert.Equal(t, domain.IntentGuilds|domain.IntentMessageContent, g.LastIntents())
	assert.Equal(t, "token", g.LastToken())
}

func TestOpenRejectedTokenIsAuthError(t *testing.T) {
	t.Parallel()

	g := NewGateway(domain.BotIdentity{UserID: testBot})
	g.RejectToken("bad")

	_, err := g.Open(context.Background(), "bad", domain.MinimumIntents)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrAuth)

	opened, _ := g.Connections()
	assert.Zero(t, opened)
}

func TestHoldReadyNeverDelivers(t *testing.T) {
	t.Parallel()

	g := NewGateway(domain.BotIdentity{UserID: testBot})
	g.HoldReady()

	conn, err := g.Open(context.Background(), "token", domain.MinimumIntents)
	require.NoError(t, err)

	select {
	case <-conn.Ready():
		t.Fatal("ready delivered while held")
	case <-time.After(10 * time.Millisecond):
	}
}

func TestCloseCountsOnceAndReturnsConfiguredError(t *testing.T) {
	t.Parallel()

	g := NewGateway(domain.BotIdentity{UserID: testBot})
	g.FailClose(errors.New("socket already gone"))

	conn, err := g.Open(context.Background(), "token", domain.MinimumIntents)
	require.NoError(t, err)

	assert.EqualError(t, conn.Close(), "socket already gone")
	assert.NoError(t, conn.Close())

	opened, closed := g.Connections()
	assert.Equal(t, 1, opened)
	assert.Equal(t, 1, closed)
}

func TestCachedChannelMissesUncachedChannels(t *testing.T) {
	t.Parallel()

	g, api := newTestGateway(t)
	g.AddUncachedChannel(domain.Channel{ID: "100000000000000009", GuildID: testGuild, Name: "late", Kind: domain.ChannelKindText})

	_, ok := api.CachedChannel("100000000000000009")
	assert.False(t, ok)

	channel, err := api.Channel(context.Background(), "100000000000000009")
	require.NoError(t, err)
	assert.Equal(t, "late", channel.Name)
}

func TestUnknownIDsAreNotFound(t *testing.T) {
	t.Parallel()

	_, api := newTestGateway(t)
	ctx := context.Background()

	_, err := api.Channel(ctx, "100000000000000099")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = api.Guild(ctx, "100000000000000099")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = api.Message(ctx, testText, "100000000000000099")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	var platformErr *domain.PlatformError
	require.ErrorAs(t, err, &platformErr)
	assert.Equal(t, codeUnknownMessage, platformErr.Code)
}

func TestCreateChannelRequiresCategoryParent(t *testing.T) {
	t.Parallel()

	_, api := newTestGateway(t)
	ctx := context.Background()

	created, err := api.CreateChannel(ctx, testGuild, domain.ChannelDraft{Name: "alerts", Kind: domain.ChannelKindText, ParentID: testCategory})
	require.NoError(t, err)
	assert.Equal(t, testCategory, created.ParentID)
	assert.False(t, created.ID.IsZero())

	_, err = api.CreateChannel(ctx, testGuild, domain.ChannelDraft{Name: "bad", Kind: domain.ChannelKindText, ParentID: testText})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPlatform)
}

func TestDeleteCategoryOrphansChildren(t *testing.T) {
	t.Parallel()

	g, api := newTestGateway(t)

	require.NoError(t, api.DeleteChannel(context.Background(), testCategory))

	_, ok := g.Lookup(testCategory)
	assert.False(t, ok)
	child, ok := g.Lookup(testText)
	require.True(t, ok)
	assert.True(t, child.ParentID.IsZero())
}

func TestDeniedChannelWritesArePermissionErrors(t *testing.T) {
	t.Parallel()

	g, api := newTestGateway(t)
	g.DenyChannel(testText)

	_, err := api.SendMessage(context.Background(), testText, "hello", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPermissionDenied)
	assert.Contains(t, err.Error(), "Missing Permissions")
	assert.Empty(t, g.MessagesIn(testText))
}

func TestSendMessageRejectsNonMessageableChannels(t *testing.T) {
	t.Parallel()

	_, api := newTestGateway(t)

	_, err := api.SendMessage(context.Background(), testCategory, "hello", nil)
	assert.ErrorIs(t, err, domain.ErrPlatform)
}

func TestEditMessageOnlyForOwnMessages(t *testing.T) {
	t.Parallel()

	g, api := newTestGateway(t)
	ctx := context.Background()
	g.AddMessage(domain.Message{ID: "200000000000000001", ChannelID: testText, AuthorID: testHuman, Content: "mine"})

	_, err := api.EditMessage(ctx, testText, "200000000000000001", "changed")
	assert.ErrorIs(t, err, domain.ErrPermissionDenied)

	sent, err := api.SendMessage(ctx, testText, "draft", nil)
	require.NoError(t, err)
	edited, err := api.EditMessage(ctx, testText, sent.ID, "final")
	require.NoError(t, err)
	assert.Equal(t, "final", edited.Content)
}

func TestAddReactionIsASet(t *testing.T) {
	t.Parallel()

	g, api := newTestGateway(t)
	ctx := context.Background()
	g.AddMessage(domain.Message{ID: "200000000000000001", ChannelID: testText, AuthorID: testHuman})

	require.NoError(t, api.AddReaction(ctx, testText, "200000000000000001", "👍"))
	require.NoError(t, api.AddReaction(ctx, testText, "200000000000000001", "👍"))

	assert.Equal(t, []domain.Snowflake{testBot}, g.Reactors("200000000000000001", "👍"))
	assert.Equal(t, 2, g.CallCount("AddReaction"))
}

func TestStartForumThreadCreatesStarterMessage(t *testing.T) {
	t.Parallel()

	g, api := newTestGateway(t)
	ctx := context.Background()

	thread, err := api.StartForumThread(ctx, testForum, "Sake night", "Bring a bottle")
	require.NoError(t, err)
	assert.Equal(t, domain.ChannelKindThread, thread.Kind)
	assert.Equal(t, testForum, thread.ParentID)

	messages := g.MessagesIn(thread.ID)
	require.Len(t, messages, 1)
	assert.Equal(t, thread.ID, messages[0].ID)
	assert.Equal(t, "Bring a bottle", messages[0].Content)

	_, err = api.StartForumThread(ctx, testText, "nope", "x")
	assert.ErrorIs(t, err, domain.ErrPlatform)
}

func TestMessagesPagesNewestFirst(t *testing.T) {
	t.Parallel()

	g, api := newTestGateway(t)
	ctx := context.Background()
	for _, id := range []domain.Snowflake{"200000000000000001", "200000000000000002", "200000000000000003", "200000000000000004"} {
		g.AddMessage(domain.Message{ID: id, ChannelID: testText, AuthorID: testHuman})
	}

	page, err := api.Messages(ctx, testText, ports.MessagePage{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []domain.Snowflake{"200000000000000004", "200000000000000003"}, messageIDs(page))

	page, err = api.Messages(ctx, testText, ports.MessagePage{Limit: 2, Before: "200000000000000003"})
	require.NoError(t, err)
	assert.Equal(t, []domain.Snowflake{"200000000000000002", "200000000000000001"}, messageIDs(page))

	page, err = api.Messages(ctx, testText, ports.MessagePage{Limit: 2, After: "0"})
	require.NoError(t, err)
	assert.Equal(t, []domain.Snowflake{"200000000000000002", "200000000000000001"}, messageIDs(page))
}

func TestArchivedThreadsPageByArchiveTime(t *testing.T) {
	t.Parallel()

	g, api := newTestGateway(t)
	base := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []domain.Snowflake{"300000000000000001", "300000000000000002", "300000000000000003"} {
		g.AddChannel(domain.Channel{
			ID: id, GuildID: testGuild, ParentID: testForum, Kind: domain.ChannelKindThread,
			Archived: true, ArchivedAt: base.Add(time.Duration(i) * time.Hour),
		})
	}

	threads, more, err := api.ArchivedThreads(context.Background(), testForum, time.Time{}, 2)
	require.NoError(t, err)
	assert.True(t, more)
	assert.Equal(t, domain.Snowflake("300000000000000003"), threads[0].ID)

	threads, more, err = api.ArchivedThreads(context.Background(), testForum, threads[1].ArchivedAt, 2)
	require.NoError(t, err)
	assert.False(t, more)
	require.Len(t, threads, 1)
	assert.Equal(t, domain.Snowflake("300000000000000001"), threads[0].ID)
}

func TestSetPermissionOverwriteUpserts(t *testing.T) {
	t.Parallel()

	g, api := newTestGateway(t)
	ctx := context.Background()
	overwrite := domain.PermissionOverwrite{TargetID: testHuman, TargetType: domain.OverwriteMember, Allow: 1024}

	require.NoError(t, api.SetPermissionOverwrite(ctx, testCategory, overwrite))
	overwrite.Deny = 2048
	require.NoError(t, api.SetPermissionOverwrite(ctx, testCategory, overwrite))

	category, _ := g.Lookup(testCategory)
	assert.Equal(t, []domain.PermissionOverwrite{overwrite}, category.Overwrites)
}

func TestCanceledContextShortCircuits(t *testing.T) {
	t.Parallel()

	_, api := newTestGateway(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := api.GuildChannels(ctx, testGuild)
	assert.ErrorIs(t, err, context.Canceled)
}

func messageIDs(messages []domain.Message) []domain.Snowflake {
	ids := make([]domain.Snowflake, 0, len(messages))
	for _, message := range messages {
		ids = append(ids, message.ID)
	}
	return ids
}
