package account

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"
	"unicode"

	"golang.org/x/crypto/bcrypt"

	"github.com/huscsoft/event-core-go/internal/account/entity"
	"github.com/huscsoft/event-core-go/internal/account/repo"
)

// AdminEmailDomain is the only domain accepted for accounts; the
// verification mail flow depends on it.
const AdminEmailDomain = "@gmail.com"

// MinPasswordLength is the floor for all password validation.
const MinPasswordLength = 8

var phonePattern = regexp.MustCompile(`^0\d{9}$`)

var (
	ErrEmailDomain       = errors.New("only gmail.com accounts are accepted")
	ErrWeakPassword      = errors.New("password needs at least 8 characters with a digit and a letter")
	ErrBadPhone          = errors.New("phone must start with 0 and contain 10 digits")
	ErrBadRole           = errors.New("role must be user or admin")
	ErrBadCredentials    = errors.New("invalid credentials")
	ErrProtectedCreator  = errors.New("cannot modify the account that created yours")
	ErrSelfDelete        = errors.New("cannot delete the signed-in account")
	ErrNotFound          = repo.ErrNotFound
	ErrDuplicateEmail    = repo.ErrDuplicateEmail
	ErrDuplicatePhone    = repo.ErrDuplicatePhone
)

// PasswordHasher abstracts hashing so the algorithm can be swapped
// without touching callers.
type PasswordHasher interface {
	Hash(pw string) (string, error)
	Verify(hash, pw string) bool
}

// BcryptHasher implementation.
type BcryptHasher struct{ Cost int }

func (b BcryptHasher) Hash(pw string) (string, error) {
	cost := b.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(pw), cost)
	return string(h), err
}

func (b BcryptHasher) Verify(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

// Store is the persistence surface the service needs; *repo.AccountRepo
// satisfies it.
type Store interface {
	Create(ctx context.Context, a *entity.Account) (int64, error)
	GetByEmail(ctx context.Context, email string) (*entity.Account, error)
	GetByID(ctx context.Context, id int64) (*entity.Account, error)
	List(ctx context.Context, limit, offset int) ([]*entity.Account, error)
	Count(ctx context.Context) (int, error)
	Update(ctx context.Context, a *entity.Account) error
	BumpTokenVersion(ctx context.Context, id int64) (int, error)
	Activate(ctx context.Context, id int64) error
	UpdatePassword(ctx context.Context, id int64, hash string) error
	SoftDelete(ctx context.Context, id int64, deletedAt time.Time) error
}

// Service orchestrates account lifecycle flows.
type Service struct {
	store  Store
	hasher PasswordHasher
}

func NewService(store Store, hasher PasswordHasher) *Service {
	if hasher == nil {
		hasher = BcryptHasher{Cost: 12}
	}
	return &Service{store: store, hasher: hasher}
}

// CreateInput carries the fields an admin supplies for a new account.
type CreateInput struct {
	Email    string
	Password string
	FullName string
	Phone    string
	Role     string
	Active   bool
}

// ValidatePassword enforces the password-strength rules: minimum
// length, at least one digit, at least one letter.
func ValidatePassword(pw string) error {
	if len(pw) < MinPasswordLength {
		return ErrWeakPassword
	}
	var hasDigit, hasLetter bool
	for _, r := range pw {
		switch {
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsLetter(r):
			hasLetter = true
		}
	}
	if !hasDigit || !hasLetter {
		return ErrWeakPassword
	}
	return nil
}

// ValidateEmail enforces the email-domain allowlist.
func ValidateEmail(email string) error {
	if !strings.HasSuffix(email, AdminEmailDomain) {
		return ErrEmailDomain
	}
	return nil
}

func validatePhone(phone string) error {
	if phone != "" && !phonePattern.MatchString(phone) {
		return ErrBadPhone
	}
	return nil
}

func validateRole(role string) error {
	if role != entity.RoleUser && role != entity.RoleAdmin {
		return ErrBadRole
	}
	return nil
}

// Create makes a new account on behalf of an admin. Role and active
// flag are taken as given; uniqueness violations surface per field.
func (s *Service) Create(ctx context.Context, in CreateInput, creator *entity.Account) (*entity.Account, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := ValidateEmail(in.Email); err != nil {
		return nil, err
	}
	if err := ValidatePassword(in.Password); err != nil {
		return nil, err
	}
	if err := validatePhone(in.Phone); err != nil {
		return nil, err
	}
	if in.Role == "" {
		in.Role = entity.RoleUser
	}
	if err := validateRole(in.Role); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}
	a := &entity.Account{
		FullName:     in.FullName,
		Email:        in.Email,
		Phone:        in.Phone,
		PasswordHash: hash,
		Active:       in.Active,
		Role:         in.Role,
	}
	if creator != nil {
		a.CreatedBy = &creator.ID
	}
	if _, err := s.store.Create(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Patch applies a partial update under the actor-scoped rules: the
// actor's own role change is stripped silently, and the account that
// created the actor is off limits entirely.
func (s *Service) Patch(ctx context.Context, id int64, patch entity.AccountPatch, actor *entity.Account) (*entity.Account, error) {
	target, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if target.IsDeleted {
		return nil, ErrNotFound
	}
	if actor.CreatedByAccount(target.ID) {
		return nil, ErrProtectedCreator
	}
	if actor.ID == target.ID {
		patch.ClearRole()
	}
	if patch.Phone != nil {
		if err := validatePhone(*patch.Phone); err != nil {
			return nil, err
		}
	}
	if patch.Role != nil {
		if err := validateRole(*patch.Role); err != nil {
			return nil, err
		}
	}

	patch.Apply(target)
	if err := s.store.Update(ctx, target); err != nil {
		return nil, err
	}
	return target, nil
}

// SoftDelete retires an account. Actors cannot delete themselves or the
// account that created them.
func (s *Service) SoftDelete(ctx context.Context, id int64, actor *entity.Account, now time.Time) error {
	target, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if target.IsDeleted {
		return ErrNotFound
	}
	if target.ID == actor.ID {
		return ErrSelfDelete
	}
	if actor.CreatedByAccount(target.ID) {
		return ErrProtectedCreator
	}
	return s.store.SoftDelete(ctx, id, now)
}

// ChangePassword verifies the current password before storing the new
// hash.
func (s *Service) ChangePassword(ctx context.Context, actor *entity.Account, current, next string) error {
	if !s.hasher.Verify(actor.PasswordHash, current) {
		return ErrBadCredentials
	}
	if err := ValidatePassword(next); err != nil {
		return err
	}
	hash, err := s.hasher.Hash(next)
	if err != nil {
		return err
	}
	return s.store.UpdatePassword(ctx, actor.ID, hash)
}

// Get returns a non-deleted account by ID.
func (s *Service) Get(ctx context.Context, id int64) (*entity.Account, error) {
	a, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.IsDeleted {
		return nil, ErrNotFound
	}
	return a, nil
}

// List returns non-deleted accounts, paginated.
func (s *Service) List(ctx context.Context, limit, offset int) ([]*entity.Account, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.List(ctx, limit, offset)
}
