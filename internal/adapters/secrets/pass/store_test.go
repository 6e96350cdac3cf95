package pass

import (
	"context"
	"errors"
	"testing"

	"github.com/bnema/opsbot/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorePutInsertsUnderPrefix(t *testing.T) {
	t.Parallel()

	called := false
	store := &Store{
		prefix: DefaultPrefix,
		run: func(ctx context.Context, input string, args ...string) (string, string, error) {
			called = true
			assert.Equal(t, []string{"insert", "-m", "-f", "opsbot/DISCORD_TOKEN"}, args)
			assert.Equal(t, "bot-token\n", input)
			return "", "", nil
		},
	}

	err := store.Put(context.Background(), "DISCORD_TOKEN", "bot-token")
	require.NoError(t, err)
	assert.True(t, called)
}

func TestStoreGetReturnsFirstLine(t *testing.T) {
	t.Parallel()

	store := &Store{
		prefix: DefaultPrefix,
		run: func(ctx context.Context, input string, args ...string) (string, string, error) {
			assert.Equal(t, []string{"show", "opsbot/NOTION_TOKEN_TASK"}, args)
			assert.Empty(t, input)
			return "secret_abc\r\nurl: https://www.notion.so\n", "", nil
		},
	}

	value, err := store.Get(context.Background(), "NOTION_TOKEN_TASK")
	require.NoError(t, err)
	assert.Equal(t, "secret_abc", value)
}

func TestStoreGetMissingEntryIsNotFound(t *testing.T) {
	t.Parallel()

	store := &Store{
		prefix: DefaultPrefix,
		run: func(ctx context.Context, input string, args ...string) (string, string, error) {
			return "", "Error: opsbot/SWITCHBOT_TOKEN is not in the password store.", errors.New("exit status 1")
		},
	}

	_, err := store.Get(context.Background(), "SWITCHBOT_TOKEN")
	require.ErrorIs(t, err, ports.ErrSecretNotFound)
}

func TestStoreDeleteUsesPassRemove(t *testing.T) {
	t.Parallel()

	store := &Store{
		run: func(ctx context.Context, input string, args ...string) (string, string, error) {
			assert.Equal(t, []string{"rm", "-f", "CODEX_BOT_TOKEN"}, args)
			return "", "", nil
		},
	}

	require.NoError(t, store.Delete(context.Background(), "CODEX_BOT_TOKEN"))
}

func TestStoreDeleteOfAbsentEntrySucceeds(t *testing.T) {
	t.Parallel()

	for name, run := range map[string]runFunc{
		"absent entry": func(context.Context, string, ...string) (string, string, error) {
			return "", "Error: opsbot/NOTION_TOKEN is not in the password store.", errors.New("exit status 1")
		},
		"pass missing": func(context.Context, string, ...string) (string, string, error) {
			return "", "", ErrUnavailable
		},
	} {
		store := &Store{prefix: DefaultPrefix, run: run}
		assert.NoError(t, store.Delete(context.Background(), "NOTION_TOKEN"), name)
	}
}

func TestStoreGetReturnsClearError(t *testing.T) {
	t.Parallel()

	store := &Store{
		prefix: DefaultPrefix,
		run: func(ctx context.Context, input string, args ...string) (string, string, error) {
			return "", "gpg: decryption failed", errors.New("exit status 2")
		},
	}

	_, err := store.Get(context.Background(), "DISCORD_TOKEN")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ports.ErrSecretNotFound)
	assert.ErrorContains(t, err, "pass get")
	assert.ErrorContains(t, err, "opsbot/DISCORD_TOKEN")
	assert.ErrorContains(t, err, "gpg: decryption failed")
}

func TestStoreHonoursCanceledContext(t *testing.T) {
	t.Parallel()

	store := &Store{run: func(ctx context.Context, input string, args ...string) (string, string, error) {
		t.Fatal("pass must not run with a canceled context")
		return "", "", nil
	}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Get(ctx, "DISCORD_TOKEN")
	require.ErrorIs(t, err, context.Canceled)
}
