package credentials_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/clubsync/go-club-client/credentials"
)

func TestFileStoreRoundTrip(t *testing.T) {
	store, err := credentials.NewFileStore(t.TempDir())
	require.NoError(t, err)

	pair := credentials.TokenPair{Access: "t1", Refresh: "r1"}
	require.NoError(t, store.Save(pair))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	require.Equal(t, pair, *loaded)
}

func TestFileStoreLoadWhenEmpty(t *testing.T) {
	store, err := credentials.NewFileStore(t.TempDir())
	require.NoError(t, err)

	loaded, err := store.Load()
	require.NoError(t, err)
	require.Nil(t, loaded)
}

func TestFileStoreSurvivesReopen(t *testing.T) {
	folder := t.TempDir()

	store, err := credentials.NewFileStore(folder)
	require.NoError(t, err)
	require.NoError(t, store.Save(credentials.TokenPair{Access: "t1", Refresh: "r1"}))

	reopened, err := credentials.NewFileStore(folder)
	require.NoError(t, err)
	loaded, err := reopened.Load()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	require.Equal(t, "t1", loaded.Access)
	require.Equal(t, "r1", loaded.Refresh)
}

func TestFileStoreRejectsPartialPair(t *testing.T) {
	store, err := credentials.NewFileStore(t.TempDir())
	require.NoError(t, err)

	require.Error(t, store.Save(credentials.TokenPair{Access: "t1"}))
	require.Error(t, store.Save(credentials.TokenPair{Refresh: "r1"}))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.Nil(t, loaded)
}

func TestFileStoreClearRemovesBothTokens(t *testing.T) {
	store, err := credentials.NewFileStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Save(credentials.TokenPair{Access: "t1", Refresh: "r1"}))

	require.NoError(t, store.Clear())

	loaded, err := store.Load()
	require.NoError(t, err)
	require.Nil(t, loaded)

	// Idempotent: clearing an empty store succeeds
	require.NoError(t, store.Clear())
}

func TestFileStoreTokensNotPlaintextOnDisk(t *testing.T) {
	folder := t.TempDir()
	store, err := credentials.NewFileStore(folder)
	require.NoError(t, err)
	require.NoError(t, store.Save(credentials.TokenPair{Access: "super-secret-access", Refresh: "super-secret-refresh"}))

	raw, err := os.ReadFile(filepath.Join(folder, "credentials.json"))
	require.NoError(t, err)
	require.NotContains(t, string(raw), "super-secret-access")
	require.NotContains(t, string(raw), "super-secret-refresh")
}

func TestFileStoreCorruptFileTreatedAsAbsent(t *testing.T) {
	folder := t.TempDir()
	store, err := credentials.NewFileStore(folder)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(folder, "credentials.json"), []byte("not json"), 0o600))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.Nil(t, loaded)
}
