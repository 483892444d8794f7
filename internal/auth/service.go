package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/huscsoft/event-core-go/internal/account"
	"github.com/huscsoft/event-core-go/internal/account/entity"
	"github.com/huscsoft/event-core-go/internal/mail"
)

var (
	ErrBadCredentials = errors.New("incorrect email or password")
	ErrNotActivated   = errors.New("account is not activated, verify your email first")
	ErrSessionStale   = errors.New("session expired or signed in from another device")
	ErrRateLimited    = errors.New("too many signin attempts, slow down")
	ErrAlreadyActive  = errors.New("account is already activated")
	ErrUnknownAccount = errors.New("no account with that email")
)

// Bootstrap values for the very first admin; the real profile gets
// filled in once the admin can sign in. The phone placeholder sits in
// the reserved 0000xxxxxx block so no allocatable number is ever held
// by the unique index.
const (
	bootstrapFullName = "Super Admin"
	bootstrapPhone    = "0000000000"
)

// SignInResult is the outcome of a successful SignIn call. Bootstrapped
// means the empty-system first-admin flow ran: no token is issued and
// the caller should point the admin at their inbox.
type SignInResult struct {
	Token        string
	Account      *entity.Account
	Bootstrapped bool
}

// signinLimiters throttles signin attempts per client, 5 a minute
// each. A keyed map rather than one shared limiter: one client's burst
// must not lock every account out.
type signinLimiters struct {
	mu  sync.Mutex
	per map[string]*rate.Limiter
}

func newSigninLimiters() *signinLimiters {
	return &signinLimiters{per: map[string]*rate.Limiter{}}
}

func (l *signinLimiters) allow(client string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.per[client]
	if !ok {
		lim = rate.NewLimiter(rate.Every(time.Minute/5), 5) // 5 per minute
		l.per[client] = lim
	}
	return lim.Allow()
}

// Service implements password sign-in with single-session token
// versioning, plus the email verification flow.
type Service struct {
	accounts account.Store
	tokens   *TokenService
	hasher   account.PasswordHasher
	mailer   mail.Dispatcher
	limiters *signinLimiters
	logger   *zap.SugaredLogger
}

func NewService(accounts account.Store, tokens *TokenService, hasher account.PasswordHasher, mailer mail.Dispatcher, logger *zap.SugaredLogger) *Service {
	if hasher == nil {
		hasher = account.BcryptHasher{Cost: 12}
	}
	return &Service{
		accounts: accounts,
		tokens:   tokens,
		hasher:   hasher,
		mailer:   mailer,
		limiters: newSigninLimiters(),
		logger:   logger,
	}
}

// SignIn authenticates by email and password. Each success bumps the
// account's token version by one, so every token issued before this
// call stops validating immediately.
//
// When the accounts table is completely empty, the unknown email takes
// the first-admin bootstrap path instead of failing.
//
// client identifies the caller for rate limiting, normally the remote
// address.
func (s *Service) SignIn(ctx context.Context, email, password, client string) (*SignInResult, error) {
	if !s.limiters.allow(client) {
		return nil, ErrRateLimited
	}
	email = strings.ToLower(strings.TrimSpace(email))

	acct, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			n, countErr := s.accounts.Count(ctx)
			if countErr != nil {
				return nil, countErr
			}
			if n == 0 {
				return s.bootstrapFirstAdmin(ctx, email, password)
			}
			return nil, ErrBadCredentials
		}
		return nil, err
	}

	if !s.hasher.Verify(acct.PasswordHash, password) {
		return nil, ErrBadCredentials
	}
	if !acct.Active {
		return nil, ErrNotActivated
	}

	version, err := s.accounts.BumpTokenVersion(ctx, acct.ID)
	if err != nil {
		return nil, err
	}
	acct.TokenVersion = version

	token, err := s.tokens.IssueSession(acct.Email, version)
	if err != nil {
		return nil, err
	}
	return &SignInResult{Token: token, Account: acct}, nil
}

// bootstrapFirstAdmin provisions the initial administrator on an empty
// system: stricter validation, created inactive, verification mail
// dispatched after the response.
func (s *Service) bootstrapFirstAdmin(ctx context.Context, email, password string) (*SignInResult, error) {
	if err := account.ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := account.ValidatePassword(password); err != nil {
		return nil, err
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}
	admin := &entity.Account{
		FullName:     bootstrapFullName,
		Email:        email,
		Phone:        bootstrapPhone,
		PasswordHash: hash,
		Role:         entity.RoleAdmin,
		Active:       false,
	}
	if _, err := s.accounts.Create(ctx, admin); err != nil {
		return nil, err
	}

	token, err := s.tokens.IssueVerification(email)
	if err != nil {
		return nil, err
	}
	mail.Async(s.logger, s.mailer, email, token)
	s.logger.Infow("first admin bootstrapped", "email", email)

	return &SignInResult{Account: admin, Bootstrapped: true}, nil
}

// Authenticate validates a bearer token against the account's current
// session version. Any token from an earlier login fails here even
// before its expiry.
func (s *Service) Authenticate(ctx context.Context, token string) (*entity.Account, error) {
	email, version, err := s.tokens.ParseSession(token)
	if err != nil {
		return nil, err
	}
	acct, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if acct.TokenVersion != version {
		return nil, ErrSessionStale
	}
	return acct, nil
}

// Verify consumes an activation token. Activating an already-active
// account is a no-op.
func (s *Service) Verify(ctx context.Context, token string) error {
	email, err := s.tokens.ParseVerification(token)
	if err != nil {
		return err
	}
	acct, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return ErrUnknownAccount
		}
		return err
	}
	if acct.Active {
		return nil
	}
	return s.accounts.Activate(ctx, acct.ID)
}

// ResendVerification re-issues the activation token for an inactive
// account and dispatches the mail in the background.
func (s *Service) ResendVerification(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	acct, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return ErrUnknownAccount
		}
		return err
	}
	if acct.Active {
		return ErrAlreadyActive
	}
	token, err := s.tokens.IssueVerification(acct.Email)
	if err != nil {
		return err
	}
	mail.Async(s.logger, s.mailer, acct.Email, token)
	return nil
}
