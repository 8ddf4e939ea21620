package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/yourusername/secret-board/internal/apperr"
	"github.com/yourusername/secret-board/internal/jobs"
	"github.com/yourusername/secret-board/internal/logging"
	"github.com/yourusername/secret-board/internal/session"
	"github.com/yourusername/secret-board/internal/users"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []jobs.Event
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, event jobs.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) types() []jobs.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]jobs.EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type countingHasher struct {
	CredentialHasher
	mu       sync.Mutex
	verifies int
}

func (h *countingHasher) Verify(plaintext, hash string) bool {
	h.mu.Lock()
	h.verifies++
	h.mu.Unlock()
	return h.CredentialHasher.Verify(plaintext, hash)
}

type failingUserStore struct {
	users.Store
	err error
}

func (s failingUserStore) FindByUsername(ctx context.Context, username string) (*users.User, error) {
	return nil, s.err
}

type fixture struct {
	auth      *Authenticator
	users     *users.MemoryStore
	sessions  *session.Manager
	events    *recordingPublisher
	hasher    *countingHasher
	sessStore *session.MemoryStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		users:     users.NewMemoryStore(),
		sessStore: session.NewMemoryStore(),
		events:    &recordingPublisher{},
		hasher:    &countingHasher{CredentialHasher: NewBcryptHasher(bcrypt.MinCost, logging.Discard())},
	}
	f.sessions = session.NewManager(f.sessStore, time.Hour)
	f.auth = NewAuthenticator(f.users, f.hasher, f.sessions, f.events, logging.Discard())
	return f
}

func TestRegisterThenLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	s, err := f.auth.Register(ctx, "carol", "hunter2")
	require.NoError(t, err)
	require.NotNil(t, s)

	user, err := f.users.FindByUsername(ctx, "carol")
	require.NoError(t, err)
	assert.Equal(t, user.ID, s.UserID)
	assert.NotEqual(t, "hunter2", user.CredentialHash)

	s2, err := f.auth.Login(ctx, "carol", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, user.ID, s2.UserID)
	assert.Equal(t, 2, f.sessStore.Len())

	assert.Equal(t, []jobs.EventType{jobs.EventRegistered, jobs.EventLoginSucceeded}, f.events.types())
}

// alice の一連の操作: 登録、誤ったログイン、正しいログイン、投稿、ログアウト
func TestAliceScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	s1, err := f.auth.Register(ctx, "alice", "pw123")
	require.NoError(t, err)

	_, err = f.auth.Login(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, apperr.ErrInvalidCredentials)
	assert.Equal(t, 1, f.sessStore.Len(), "failed login must not create a session")

	s2, err := f.auth.Login(ctx, "alice", "pw123")
	require.NoError(t, err)
	assert.NotEqual(t, s1.Token, s2.Token)

	_, err = f.sessions.Validate(ctx, s1.Token)
	require.NoError(t, err, "S1 must be unaffected by a new login")

	current, err := f.auth.CurrentUser(ctx, s2.Token)
	require.NoError(t, err)
	require.NoError(t, f.users.UpdateSecret(ctx, current.ID, "hello"))

	alice, err := f.users.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, alice.Secret)
	assert.Equal(t, "hello", *alice.Secret)

	listed, err := f.users.ListWithSecret(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "alice", listed[0].Username)

	require.NoError(t, f.auth.Logout(ctx, s2.Token))
	_, err = f.sessions.Validate(ctx, s2.Token)
	assert.ErrorIs(t, err, session.ErrInvalidSession)
	assert.NoError(t, f.auth.Logout(ctx, s2.Token))

	assert.Equal(t, []jobs.EventType{
		jobs.EventRegistered,
		jobs.EventLoginFailed,
		jobs.EventLoginSucceeded,
		jobs.EventLogout,
	}, f.events.types())
}

func TestRegisterDuplicate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.auth.Register(ctx, "dave", "pw")
	require.NoError(t, err)

	s, err := f.auth.Register(ctx, "dave", "other")
	assert.ErrorIs(t, err, apperr.ErrDuplicateUsername)
	assert.Nil(t, s)
	assert.Equal(t, 1, f.sessStore.Len())
}

func TestRegisterInvalidInput(t *testing.T) {
	tests := []struct {
		name     string
		username string
		password string
	}{
		{name: "empty username", username: "", password: "pw"},
		{name: "blank username", username: "   ", password: "pw"},
		{name: "empty password", username: "erin", password: ""},
		{name: "long username", username: string(make([]byte, MaxUsernameBytes+1)), password: "pw"},
		{name: "long password", username: "erin", password: string(make([]byte, MaxPasswordBytes+1))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.auth.Register(context.Background(), tt.username, tt.password)
			assert.ErrorIs(t, err, apperr.ErrInvalidInput)
			assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))
			assert.Equal(t, 0, f.sessStore.Len())
		})
	}
}

func TestLoginUnknownUserLooksLikeWrongPassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.auth.Register(ctx, "frank", "pw")
	require.NoError(t, err)

	_, errUnknown := f.auth.Login(ctx, "nobody", "pw")
	_, errWrong := f.auth.Login(ctx, "frank", "nope")

	assert.ErrorIs(t, errUnknown, apperr.ErrInvalidCredentials)
	assert.ErrorIs(t, errWrong, apperr.ErrInvalidCredentials)
	assert.Equal(t, errWrong.Error(), errUnknown.Error())
	assert.Equal(t, 2, f.hasher.verifies, "unknown users still run a verification")
}

func TestLoginStoreUnavailable(t *testing.T) {
	f := newFixture(t)
	storeErr := apperr.StoreUnavailable("find user", errors.New("dial tcp: timeout"))
	a := NewAuthenticator(failingUserStore{Store: f.users, err: storeErr}, f.hasher, f.sessions, nil, logging.Discard())

	_, err := a.Login(context.Background(), "grace", "pw")
	assert.ErrorIs(t, err, apperr.ErrStoreUnavailable)
	assert.False(t, apperr.Recoverable(err))
}

func TestPublishFailureDoesNotFailRequest(t *testing.T) {
	f := newFixture(t)
	f.events.err = errors.New("queue down")

	_, err := f.auth.Register(context.Background(), "heidi", "pw")
	assert.NoError(t, err)
}

func TestCurrentUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	s, err := f.auth.Register(ctx, "ivan", "pw")
	require.NoError(t, err)

	user, err := f.auth.CurrentUser(ctx, s.Token)
	require.NoError(t, err)
	assert.Equal(t, "ivan", user.Username)

	_, err = f.auth.CurrentUser(ctx, "bogus")
	assert.ErrorIs(t, err, session.ErrInvalidSession)

	orphan, err := f.sessions.Create(ctx, "missing-user")
	require.NoError(t, err)
	_, err = f.auth.CurrentUser(ctx, orphan.Token)
	assert.ErrorIs(t, err, session.ErrInvalidSession)
}

func TestConcurrentRegistrationRace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const attempts = 8
	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		sessions   int
		duplicates int
	)
	start := make(chan struct{})
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			s, err := f.auth.Register(ctx, "bob", "pw")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil && s != nil:
				sessions++
			case errors.Is(err, apperr.ErrDuplicateUsername):
				duplicates++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, sessions)
	assert.Equal(t, attempts-1, duplicates)
	assert.Equal(t, 1, f.sessStore.Len())
}
