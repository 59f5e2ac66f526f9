package repos

import (
	"time"

	"shopeasy/internal/domain"

	"github.com/jmoiron/sqlx"
)

type AccountRepo struct{ DB *sqlx.DB }

func NewAccountRepo(db *sqlx.DB) *AccountRepo { return &AccountRepo{DB: db} }

func (r *AccountRepo) ByEmail(email string) (*domain.Account, error) {
	var a domain.Account
	err := r.DB.Get(&a, `SELECT id,email,name,password_hash,role FROM accounts WHERE LOWER(email)=LOWER(?)`, email)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AccountRepo) ByID(id string) (*domain.Account, error) {
	var a domain.Account
	err := r.DB.Get(&a, `SELECT id,email,name,password_hash,role FROM accounts WHERE id=?`, id)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Create inserts a new account; a duplicate email surfaces as a constraint error.
func (r *AccountRepo) Create(a domain.Account) error {
	if a.Role == "" {
		a.Role = domain.RoleUser
	}
	_, err := r.DB.Exec(`INSERT INTO accounts(id,email,name,password_hash,role) VALUES(?,?,?,?,?)`,
		a.ID, a.Email, a.Name, a.Hash, a.Role)
	return err
}

func (r *AccountRepo) EmailTaken(email string) (bool, error) {
	var n int
	if err := r.DB.Get(&n, `SELECT COUNT(*) FROM accounts WHERE LOWER(email)=LOWER(?)`, email); err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *AccountRepo) BindSession(sessionID, accountID string, expires time.Time) error {
	_, err := r.DB.Exec(`INSERT INTO auth_sessions(id,account_id,expires_at)
                          VALUES(?,?,?)
                          ON CONFLICT(id) DO UPDATE SET account_id=excluded.account_id, expires_at=excluded.expires_at`,
		sessionID, accountID, expires.UTC().Format(TimeLayout))
	return err
}

// SessionAccount resolves a live (unexpired) auth session to its account.
func (r *AccountRepo) SessionAccount(sessionID string) (*domain.Account, error) {
	var a domain.Account
	err := r.DB.Get(&a, `
      SELECT a.id,a.email,a.name,a.password_hash,a.role
      FROM auth_sessions s
      JOIN accounts a ON a.id=s.account_id
      WHERE s.id=? AND s.expires_at > ?`, sessionID, Now())
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AccountRepo) UnbindSession(sessionID string) error {
	_, err := r.DB.Exec(`DELETE FROM auth_sessions WHERE id=?`, sessionID)
	return err
}

// PurgeExpiredSessions removes auth sessions past their expiry and returns how many went.
func (r *AccountRepo) PurgeExpiredSessions() (int64, error) {
	res, err := r.DB.Exec(`DELETE FROM auth_sessions WHERE expires_at <= ?`, Now())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
