package tokenstore

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/florianilch/xsolla-sdk/internal/session"
)

func TestFileStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "token")
	store := NewFileStore(path)

	_, err := store.Read(ctx)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Write(ctx, "refresh-1"))
	got, err := store.Read(ctx)
	require.NoError(t, err)
	require.Equal(t, "refresh-1", got)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	require.NoError(t, store.Write(ctx, ""))
	_, err = store.Read(ctx)
	require.ErrorIs(t, err, ErrNotFound)

	// Clearing twice is fine.
	require.NoError(t, store.Write(ctx, ""))
}

func TestKeyringStore(t *testing.T) {
	keyring.MockInit()
	ctx := context.Background()
	store := NewKeyringStore("xsolla-test", "default")

	_, err := store.Read(ctx)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Write(ctx, "refresh-1"))
	got, err := store.Read(ctx)
	require.NoError(t, err)
	require.Equal(t, "refresh-1", got)

	require.NoError(t, store.Write(ctx, ""))
	_, err = store.Read(ctx)
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, store.Write(ctx, ""))
}

func TestEnvStore(t *testing.T) {
	t.Setenv("XSOLLA_TEST_REFRESH_TOKEN", "from-env")
	store := NewEnvStore("XSOLLA_TEST_REFRESH_TOKEN")

	got, err := store.Read(context.Background())
	require.NoError(t, err)
	require.Equal(t, "from-env", got)

	require.ErrorIs(t, store.Write(context.Background(), "x"), ErrReadOnly)

	_, err = NewEnvStore("XSOLLA_TEST_UNSET_VARIABLE").Read(context.Background())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestPersisterFollowsSession(t *testing.T) {
	backend := NewFileStore(filepath.Join(t.TempDir(), "token"))
	persister := NewPersister(backend)
	t.Cleanup(func() { _ = persister.Close(context.Background()) })

	store := session.NewStore()
	store.Subscribe(persister)

	store.Replace(session.Token{AccessToken: "a1", RefreshToken: "r1"})
	got, err := persister.RefreshCredential(context.Background())
	require.NoError(t, err)
	require.Equal(t, "r1", got)

	// Tokens without a refresh credential leave the stored one alone.
	store.Replace(session.Token{AccessToken: "a2"})
	got, _ = backend.Read(context.Background())
	require.Equal(t, "r1", got)

	store.Replace(session.Token{AccessToken: "a3", RefreshToken: "r3"})
	require.NoError(t, persister.Flush(context.Background()))
	got, _ = backend.Read(context.Background())
	require.Equal(t, "r3", got)

	store.Clear()
	got, err = persister.RefreshCredential(context.Background())
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestPersisterIgnoresReadOnlyBackend(t *testing.T) {
	t.Setenv("XSOLLA_TEST_REFRESH_TOKEN", "from-env")
	persister := NewPersister(NewEnvStore("XSOLLA_TEST_REFRESH_TOKEN"))

	store := session.NewStore()
	store.Subscribe(persister)
	store.Replace(session.Token{AccessToken: "a1", RefreshToken: "r1"})
	store.Clear()

	got, err := persister.RefreshCredential(context.Background())
	require.NoError(t, err)
	require.Equal(t, "from-env", got)
}

// gatedStore blocks every write until release is closed and records the
// order writes arrive in.
type gatedStore struct {
	release chan struct{}

	mu     sync.Mutex
	writes []string
}

func (s *gatedStore) Read(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.writes) == 0 || s.writes[len(s.writes)-1] == "" {
		return "", ErrNotFound
	}
	return s.writes[len(s.writes)-1], nil
}

func (s *gatedStore) Write(ctx context.Context, token string) error {
	select {
	case <-s.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes = append(s.writes, token)
	return nil
}

func TestPersisterDoesNotBlockSessionOnSlowStorage(t *testing.T) {
	backend := &gatedStore{release: make(chan struct{})}
	persister := NewPersister(backend)

	store := session.NewStore()
	store.Subscribe(persister)

	changed := make(chan struct{})
	go func() {
		store.Replace(session.Token{AccessToken: "a1", RefreshToken: "r1"})
		store.Replace(session.Token{AccessToken: "a2", RefreshToken: "r2"})
		store.Clear()
		close(changed)
	}()

	select {
	case <-changed:
	case <-time.After(time.Second):
		t.Fatal("session changes blocked on storage")
	}

	close(backend.release)
	require.NoError(t, persister.Close(context.Background()))

	require.Equal(t, []string{"r1", "r2", ""}, backend.writes)
}

func TestPersisterDropsWritesAfterClose(t *testing.T) {
	backend := NewFileStore(filepath.Join(t.TempDir(), "token"))
	persister := NewPersister(backend)
	require.NoError(t, persister.Close(context.Background()))

	persister.TokenReplaced(session.Token{AccessToken: "a1", RefreshToken: "r1"})
	require.NoError(t, persister.Flush(context.Background()))

	_, err := backend.Read(context.Background())
	require.ErrorIs(t, err, ErrNotFound)
}
