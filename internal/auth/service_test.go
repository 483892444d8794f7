package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/huscsoft/event-core-go/internal/account"
	"github.com/huscsoft/event-core-go/internal/account/entity"
)

type memStore struct {
	nextID   int64
	accounts map[int64]*entity.Account
}

func newMemStore() *memStore {
	return &memStore{nextID: 1, accounts: map[int64]*entity.Account{}}
}

func (m *memStore) Create(_ context.Context, a *entity.Account) (int64, error) {
	a.ID = m.nextID
	m.nextID++
	cp := *a
	m.accounts[a.ID] = &cp
	return a.ID, nil
}

func (m *memStore) GetByEmail(_ context.Context, email string) (*entity.Account, error) {
	for _, a := range m.accounts {
		if a.Email == email && !a.IsDeleted {
			cp := *a
			return &cp, nil
		}
	}
	return nil, account.ErrNotFound
}

func (m *memStore) GetByID(_ context.Context, id int64) (*entity.Account, error) {
	a, ok := m.accounts[id]
	if !ok {
		return nil, account.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memStore) List(_ context.Context, limit, offset int) ([]*entity.Account, error) {
	return nil, nil
}

func (m *memStore) Count(_ context.Context) (int, error) {
	return len(m.accounts), nil
}

func (m *memStore) Update(_ context.Context, a *entity.Account) error {
	cp := *a
	m.accounts[a.ID] = &cp
	return nil
}

func (m *memStore) BumpTokenVersion(_ context.Context, id int64) (int, error) {
	a, ok := m.accounts[id]
	if !ok {
		return 0, account.ErrNotFound
	}
	a.TokenVersion++
	return a.TokenVersion, nil
}

func (m *memStore) Activate(_ context.Context, id int64) error {
	a, ok := m.accounts[id]
	if !ok {
		return account.ErrNotFound
	}
	a.Active = true
	return nil
}

func (m *memStore) UpdatePassword(_ context.Context, id int64, hash string) error {
	m.accounts[id].PasswordHash = hash
	return nil
}

func (m *memStore) SoftDelete(_ context.Context, id int64, _ time.Time) error {
	m.accounts[id].IsDeleted = true
	return nil
}

type plainHasher struct{}

func (plainHasher) Hash(pw string) (string, error) { return "hash:" + pw, nil }
func (plainHasher) Verify(hash, pw string) bool    { return hash == "hash:"+pw }

type sentMail struct {
	email string
	token string
}

type chanMailer struct {
	sent chan sentMail
}

func newChanMailer() *chanMailer {
	return &chanMailer{sent: make(chan sentMail, 4)}
}

func (m *chanMailer) SendVerification(_ context.Context, email, token string) error {
	m.sent <- sentMail{email: email, token: token}
	return nil
}

func (m *chanMailer) wait(t *testing.T) sentMail {
	t.Helper()
	select {
	case s := <-m.sent:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("no verification mail dispatched")
		return sentMail{}
	}
}

func testConfig() Config {
	return Config{
		Secret:          []byte("test-secret"),
		AccessTTL:       15 * time.Minute,
		VerificationTTL: 24 * time.Hour,
	}
}

func newTestAuth() (*Service, *memStore, *chanMailer) {
	store := newMemStore()
	mailer := newChanMailer()
	svc := NewService(store, NewTokenService(testConfig()), plainHasher{}, mailer, zap.NewNop().Sugar())
	return svc, store, mailer
}

func seedActiveUser(store *memStore, email, password string) *entity.Account {
	a := &entity.Account{
		FullName:     "Test User",
		Email:        email,
		Phone:        "0911111111",
		PasswordHash: "hash:" + password,
		Active:       true,
		Role:         entity.RoleUser,
	}
	store.Create(context.Background(), a)
	return a
}

func TestSessionTokenRoundTrip(t *testing.T) {
	ts := NewTokenService(testConfig())

	token, err := ts.IssueSession("user@gmail.com", 3)
	require.NoError(t, err)

	email, version, err := ts.ParseSession(token)
	require.NoError(t, err)
	assert.Equal(t, "user@gmail.com", email)
	assert.Equal(t, 3, version)
}

func TestTokenPurposesDoNotCross(t *testing.T) {
	ts := NewTokenService(testConfig())

	session, err := ts.IssueSession("user@gmail.com", 1)
	require.NoError(t, err)
	verify, err := ts.IssueVerification("user@gmail.com")
	require.NoError(t, err)

	_, _, err = ts.ParseSession(verify)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = ts.ParseVerification(session)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestExpiredTokenRejected(t *testing.T) {
	ts := NewTokenService(testConfig())
	issued := time.Now()
	ts.now = func() time.Time { return issued }

	token, err := ts.IssueSession("user@gmail.com", 1)
	require.NoError(t, err)

	ts.now = func() time.Time { return issued.Add(16 * time.Minute) }
	_, _, err = ts.ParseSession(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTamperedTokenRejected(t *testing.T) {
	ts := NewTokenService(testConfig())
	other := NewTokenService(Config{Secret: []byte("other-secret"), AccessTTL: time.Minute, VerificationTTL: time.Minute})

	token, err := other.IssueSession("user@gmail.com", 1)
	require.NoError(t, err)

	_, _, err = ts.ParseSession(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSecondLoginInvalidatesFirstToken(t *testing.T) {
	svc, store, _ := newTestAuth()
	ctx := context.Background()
	seedActiveUser(store, "user@gmail.com", "abcd1234")

	first, err := svc.SignIn(ctx, "user@gmail.com", "abcd1234", "10.0.0.1")
	require.NoError(t, err)
	require.NotEmpty(t, first.Token)

	// The first token works while it is the newest session.
	_, err = svc.Authenticate(ctx, first.Token)
	require.NoError(t, err)

	second, err := svc.SignIn(ctx, "user@gmail.com", "abcd1234", "10.0.0.2")
	require.NoError(t, err)

	// Now only the second token validates, well before any expiry.
	_, err = svc.Authenticate(ctx, first.Token)
	assert.ErrorIs(t, err, ErrSessionStale)
	acct, err := svc.Authenticate(ctx, second.Token)
	require.NoError(t, err)
	assert.Equal(t, "user@gmail.com", acct.Email)
}

func TestSignInRejections(t *testing.T) {
	svc, store, _ := newTestAuth()
	ctx := context.Background()
	seedActiveUser(store, "user@gmail.com", "abcd1234")

	_, err := svc.SignIn(ctx, "user@gmail.com", "wrongpass1", "10.0.0.1")
	assert.ErrorIs(t, err, ErrBadCredentials)

	// Unknown email on a non-empty system is a plain credentials error,
	// never a bootstrap.
	_, err = svc.SignIn(ctx, "ghost@gmail.com", "abcd1234", "10.0.0.1")
	assert.ErrorIs(t, err, ErrBadCredentials)
}

func TestFirstSignInBootstrapsAdmin(t *testing.T) {
	svc, store, mailer := newTestAuth()
	ctx := context.Background()

	res, err := svc.SignIn(ctx, "admin@gmail.com", "abcd1234", "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, res.Bootstrapped)
	assert.Empty(t, res.Token, "bootstrap must not issue a session token")

	created, err := store.GetByEmail(ctx, "admin@gmail.com")
	require.NoError(t, err)
	assert.Equal(t, entity.RoleAdmin, created.Role)
	assert.False(t, created.Active)
	// Placeholder phone from the reserved block, never an allocatable
	// number.
	assert.Equal(t, "0000000000", created.Phone)

	sent := mailer.wait(t)
	assert.Equal(t, "admin@gmail.com", sent.email)

	// Before verification the credentials are refused.
	_, err = svc.SignIn(ctx, "admin@gmail.com", "abcd1234", "10.0.0.1")
	assert.ErrorIs(t, err, ErrNotActivated)

	// Activation is driven by the mailed token and is idempotent.
	require.NoError(t, svc.Verify(ctx, sent.token))
	require.NoError(t, svc.Verify(ctx, sent.token))

	res, err = svc.SignIn(ctx, "admin@gmail.com", "abcd1234", "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, res.Bootstrapped)
	assert.NotEmpty(t, res.Token)
}

func TestBootstrapValidation(t *testing.T) {
	svc, _, _ := newTestAuth()
	ctx := context.Background()

	_, err := svc.SignIn(ctx, "admin@husc.edu.vn", "abcd1234", "10.0.0.1")
	assert.ErrorIs(t, err, account.ErrEmailDomain)

	_, err = svc.SignIn(ctx, "admin@gmail.com", "letters", "10.0.0.1")
	assert.ErrorIs(t, err, account.ErrWeakPassword)
}

func TestSignInRateLimitPerClient(t *testing.T) {
	svc, store, _ := newTestAuth()
	ctx := context.Background()
	seedActiveUser(store, "victim@gmail.com", "abcd1234")

	var limited bool
	for i := 0; i < 10; i++ {
		_, err := svc.SignIn(ctx, "victim@gmail.com", "wrongpass1", "10.0.0.66")
		if errors.Is(err, ErrRateLimited) {
			limited = true
			break
		}
	}
	require.True(t, limited, "burst of signins should trip the limiter")

	// The attacker's burst must not lock the account out for everyone:
	// a different client signs in fine with correct credentials.
	res, err := svc.SignIn(ctx, "victim@gmail.com", "abcd1234", "10.0.0.9")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)

	// The tripped client stays limited even with correct credentials.
	_, err = svc.SignIn(ctx, "victim@gmail.com", "abcd1234", "10.0.0.66")
	assert.ErrorIs(t, err, ErrRateLimited)
}

func TestResendVerification(t *testing.T) {
	svc, store, mailer := newTestAuth()
	ctx := context.Background()

	inactive := &entity.Account{Email: "new@gmail.com", PasswordHash: "hash:abcd1234", Role: entity.RoleUser}
	store.Create(ctx, inactive)

	require.NoError(t, svc.ResendVerification(ctx, "new@gmail.com"))
	sent := mailer.wait(t)
	assert.Equal(t, "new@gmail.com", sent.email)

	assert.ErrorIs(t, svc.ResendVerification(ctx, "nobody@gmail.com"), ErrUnknownAccount)

	seedActiveUser(store, "active@gmail.com", "abcd1234")
	assert.ErrorIs(t, svc.ResendVerification(ctx, "active@gmail.com"), ErrAlreadyActive)
}
