package entity

import "time"

// Account roles. Admins manage events and other accounts; users join
// events as instructors or teaching assistants.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Account represents a row in the accounts table.
type Account struct {
	ID           int64      `db:"account_id" json:"account_id"`
	FullName     string     `db:"full_name" json:"full_name"`
	Email        string     `db:"email" json:"email"`
	Phone        string     `db:"phone" json:"phone"`
	PasswordHash string     `db:"password_hash" json:"-"`
	Active       bool       `db:"active" json:"active"`
	Role         string     `db:"role" json:"role"`
	BankName     *string    `db:"bank_name" json:"bank_name,omitempty"`
	BankNumber   *string    `db:"bank_number" json:"bank_number,omitempty"`
	TokenVersion int        `db:"token_version" json:"-"`
	IsDeleted    bool       `db:"is_deleted" json:"-"`
	CreatedBy    *int64     `db:"created_by" json:"created_by,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// IsAdmin reports whether the account holds the admin role.
func (a *Account) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// CreatedByAccount reports whether other created this account.
func (a *Account) CreatedByAccount(other int64) bool {
	return a.CreatedBy != nil && *a.CreatedBy == other
}

// AccountPatch is a partial update with all-optional fields. Fields are
// applied through the named setters below so protected-field handling
// stays type-checked instead of string-keyed.
type AccountPatch struct {
	FullName   *string `json:"full_name,omitempty"`
	Phone      *string `json:"phone,omitempty"`
	Role       *string `json:"role,omitempty"`
	Active     *bool   `json:"active,omitempty"`
	BankName   *string `json:"bank_name,omitempty"`
	BankNumber *string `json:"bank_number,omitempty"`
}

// ClearRole drops a pending role change from the patch.
func (p *AccountPatch) ClearRole() {
	p.Role = nil
}

// Apply copies the set fields onto the account, one named setter per
// field.
func (p AccountPatch) Apply(a *Account) {
	if p.FullName != nil {
		a.SetFullName(*p.FullName)
	}
	if p.Phone != nil {
		a.SetPhone(*p.Phone)
	}
	if p.Role != nil {
		a.SetRole(*p.Role)
	}
	if p.Active != nil {
		a.SetActive(*p.Active)
	}
	if p.BankName != nil {
		a.SetBankName(*p.BankName)
	}
	if p.BankNumber != nil {
		a.SetBankNumber(*p.BankNumber)
	}
}

func (a *Account) SetFullName(v string)   { a.FullName = v }
func (a *Account) SetPhone(v string)      { a.Phone = v }
func (a *Account) SetRole(v string)       { a.Role = v }
func (a *Account) SetActive(v bool)       { a.Active = v }
func (a *Account) SetBankName(v string)   { a.BankName = &v }
func (a *Account) SetBankNumber(v string) { a.BankNumber = &v }
