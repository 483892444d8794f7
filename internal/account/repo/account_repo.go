package repo

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/huscsoft/event-core-go/internal/account/entity"
	"github.com/huscsoft/event-core-go/pkg/utilities"
)

var (
	ErrNotFound       = errors.New("account not found")
	ErrDuplicateEmail = errors.New("email already registered")
	ErrDuplicatePhone = errors.New("phone already registered")
)

// AccountRepo provides data access for the accounts table using sqlx.
type AccountRepo struct {
	db *sqlx.DB
}

func NewAccountRepo(db *sqlx.DB) *AccountRepo { return &AccountRepo{db: db} }

const accountColumns = `account_id, full_name, email, phone, password_hash, active, role,
	bank_name, bank_number, token_version, is_deleted, created_by, created_at, updated_at`

// Create inserts a new account row. The ID is generated app-side.
func (r *AccountRepo) Create(ctx context.Context, a *entity.Account) (int64, error) {
	if a.ID == 0 {
		a.ID = utilities.NewID()
	}
	const q = `INSERT INTO accounts
		(account_id, full_name, email, phone, password_hash, active, role, bank_name, bank_number, token_version, created_by)
		VALUES (:account_id, :full_name, :email, :phone, :password_hash, :active, :role, :bank_name, :bank_number, :token_version, :created_by)`
	if _, err := r.db.NamedExecContext(ctx, q, a); err != nil {
		return 0, mapConstraint(err)
	}
	return a.ID, nil
}

// GetByEmail returns a non-deleted account matched by email.
func (r *AccountRepo) GetByEmail(ctx context.Context, email string) (*entity.Account, error) {
	const q = `SELECT ` + accountColumns + ` FROM accounts WHERE email=$1 AND is_deleted=false`
	var a entity.Account
	if err := r.db.GetContext(ctx, &a, q, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// GetByID returns an account by primary key, deleted or not. Callers
// that must exclude deleted rows check IsDeleted themselves.
func (r *AccountRepo) GetByID(ctx context.Context, id int64) (*entity.Account, error) {
	const q = `SELECT ` + accountColumns + ` FROM accounts WHERE account_id=$1`
	var a entity.Account
	if err := r.db.GetContext(ctx, &a, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// List returns non-deleted accounts ordered by creation, paginated.
func (r *AccountRepo) List(ctx context.Context, limit, offset int) ([]*entity.Account, error) {
	const q = `SELECT ` + accountColumns + ` FROM accounts
		WHERE is_deleted=false ORDER BY created_at, account_id LIMIT $1 OFFSET $2`
	out := []*entity.Account{}
	if err := r.db.SelectContext(ctx, &out, q, limit, offset); err != nil {
		return nil, err
	}
	return out, nil
}

// Count returns the total number of account rows, deleted included.
// The first-admin bootstrap triggers only on a truly empty table.
func (r *AccountRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM accounts`); err != nil {
		return 0, err
	}
	return n, nil
}

// Update persists the mutable profile columns of an account.
func (r *AccountRepo) Update(ctx context.Context, a *entity.Account) error {
	const q = `UPDATE accounts SET full_name=:full_name, phone=:phone, role=:role, active=:active,
		bank_name=:bank_name, bank_number=:bank_number, updated_at=NOW()
		WHERE account_id=:account_id AND is_deleted=false`
	res, err := r.db.NamedExecContext(ctx, q, a)
	if err != nil {
		return mapConstraint(err)
	}
	return requireRow(res)
}

// BumpTokenVersion increments the session version counter and returns
// the new value. Tokens carrying an older version become invalid.
func (r *AccountRepo) BumpTokenVersion(ctx context.Context, id int64) (int, error) {
	const q = `UPDATE accounts SET token_version = token_version + 1, updated_at=NOW()
		WHERE account_id=$1 RETURNING token_version`
	var v int
	if err := r.db.GetContext(ctx, &v, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return v, nil
}

// Activate flips the active flag after email verification.
func (r *AccountRepo) Activate(ctx context.Context, id int64) error {
	const q = `UPDATE accounts SET active=true, updated_at=NOW() WHERE account_id=$1 AND is_deleted=false`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// UpdatePassword replaces the password hash.
func (r *AccountRepo) UpdatePassword(ctx context.Context, id int64, hash string) error {
	const q = `UPDATE accounts SET password_hash=$2, updated_at=NOW() WHERE account_id=$1 AND is_deleted=false`
	res, err := r.db.ExecContext(ctx, q, id, hash)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// SoftDelete marks the account deleted and mutates email/phone with the
// deletion timestamp so the unique indexes free up for reuse.
func (r *AccountRepo) SoftDelete(ctx context.Context, id int64, deletedAt time.Time) error {
	suffix := deletedAt.Format(time.RFC3339)
	const q = `UPDATE accounts SET is_deleted=true, active=false,
		email = email || $2, phone = phone || $2, updated_at=NOW()
		WHERE account_id=$1 AND is_deleted=false`
	res, err := r.db.ExecContext(ctx, q, id, suffix)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// mapConstraint translates Postgres unique violations into sentinel
// errors the service layer can report per field.
func mapConstraint(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		switch {
		case strings.Contains(pqErr.Constraint, "email"):
			return ErrDuplicateEmail
		case strings.Contains(pqErr.Constraint, "phone"):
			return ErrDuplicatePhone
		}
	}
	return err
}
