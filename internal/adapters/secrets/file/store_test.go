package file

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/bnema/opsbot/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreRejectsInvalidKeys(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir())
	testCases := []struct {
		name    string
		key     string
		wantErr string
	}{
		{name: "empty", key: "", wantErr: "secret key is empty"},
		{name: "whitespace", key: "   ", wantErr: "secret key is empty"},
		{name: "absolute", key: "/etc/passwd", wantErr: "invalid secret key"},
		{name: "traversal", key: "../DISCORD_TOKEN", wantErr: "invalid secret key"},
		{name: "lowercase", key: "discord_token", wantErr: "invalid secret key"},
		{name: "leading digit", key: "1TOKEN", wantErr: "invalid secret key"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := store.Put(context.Background(), tc.key, "value")
			require.Error(t, err)
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestStorePutGetRoundTripAndPermissions(t *testing.T) {
	t.Parallel()

	root := filepath.Join(t.TempDir(), "secrets")
	store := NewStore(root)

	require.NoError(t, store.Put(context.Background(), "SWITCHBOT_TOKEN", "switch-secret"))

	got, err := store.Get(context.Background(), "SWITCHBOT_TOKEN")
	require.NoError(t, err)
	assert.Equal(t, "switch-secret", got)

	info, err := os.Stat(filepath.Join(root, "SWITCHBOT_TOKEN"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(secretFileMod), info.Mode().Perm())

	dirInfo, err := os.Stat(root)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(storeDirMode), dirInfo.Mode().Perm())
}

func TestStorePutReplacesWithoutLeavingTempFiles(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	store := NewStore(root)

	require.NoError(t, store.Put(context.Background(), "NOTION_TOKEN", "first"))
	require.NoError(t, store.Put(context.Background(), "NOTION_TOKEN", "second"))

	got, err := store.Get(context.Background(), "NOTION_TOKEN")
	require.NoError(t, err)
	assert.Equal(t, "second", got)

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "NOTION_TOKEN", entries[0].Name())
}

func TestStoreGetTrimsHandWrittenNewline(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "DISCORD_TOKEN"), []byte("bot-token\r\n"), 0o600))

	got, err := NewStore(root).Get(context.Background(), "DISCORD_TOKEN")
	require.NoError(t, err)
	assert.Equal(t, "bot-token", got)
}

func TestStoreGetMissingOrEmptyIsNotFound(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "NOTION_TOKEN_RICE"), []byte("\n"), 0o600))
	store := NewStore(root)

	_, err := store.Get(context.Background(), "CODEX_BOT_TOKEN")
	require.ErrorIs(t, err, ports.ErrSecretNotFound)

	_, err = store.Get(context.Background(), "NOTION_TOKEN_RICE")
	require.ErrorIs(t, err, ports.ErrSecretNotFound)
}

func TestStoreDeleteIsIdempotentWhenSecretMissing(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir())
	require.NoError(t, store.Delete(context.Background(), "NOTION_TOKEN"))
	require.NoError(t, store.Put(context.Background(), "NOTION_TOKEN", "secret_1"))
	require.NoError(t, store.Delete(context.Background(), "NOTION_TOKEN"))

	_, err := store.Get(context.Background(), "NOTION_TOKEN")
	require.ErrorIs(t, err, ports.ErrSecretNotFound)
}

func TestStoreHonorsCanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := NewStore(t.TempDir())
	require.ErrorIs(t, store.Put(ctx, "NOTION_TOKEN", "value"), context.Canceled)
	_, err := store.Get(ctx, "NOTION_TOKEN")
	require.ErrorIs(t, err, context.Canceled)
}

func TestStoreConcurrentPutAndGet(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir())
	require.NoError(t, store.Put(context.Background(), "SWITCHBOT_TOKEN", "initial"))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			assert.NoError(t, store.Put(context.Background(), "SWITCHBOT_TOKEN", "updated"))
		}()
		go func() {
			defer wg.Done()
			value, err := store.Get(context.Background(), "SWITCHBOT_TOKEN")
			assert.NoError(t, err)
			assert.Contains(t, []string{"initial", "updated"}, value)
		}()
	}
	wg.Wait()
}
