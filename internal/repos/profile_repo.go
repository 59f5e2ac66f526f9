package repos

import (
	"shopeasy/internal/domain"

	"github.com/jmoiron/sqlx"
)

type ProfileRepo struct{ db *sqlx.DB }

func NewProfileRepo(db *sqlx.DB) *ProfileRepo { return &ProfileRepo{db: db} }

// Get returns sql.ErrNoRows when no profile exists for id.
func (r *ProfileRepo) Get(id string) (domain.Profile, error) {
	var p domain.Profile
	err := r.db.Get(&p, `SELECT id,email,full_name,created_at,updated_at FROM profiles WHERE id=?`, id)
	return p, err
}

func (r *ProfileRepo) Create(id, email, name string) (domain.Profile, error) {
	now := Now()
	p := domain.Profile{ID: id, Email: email, FullName: name, CreatedAt: now, UpdatedAt: now}
	_, err := r.db.NamedExec(`
	  INSERT INTO profiles(id,email,full_name,created_at,updated_at)
	  VALUES(:id,:email,:full_name,:created_at,:updated_at)
	`, p)
	if err != nil {
		return domain.Profile{}, err
	}
	return p, nil
}

// List returns every profile, newest first.
func (r *ProfileRepo) List() ([]domain.Profile, error) {
	out := []domain.Profile{}
	err := r.db.Select(&out, `SELECT id,email,full_name,created_at,updated_at FROM profiles ORDER BY created_at DESC`)
	return out, err
}

func (r *ProfileRepo) Count() (int, error) {
	var n int
	err := r.db.Get(&n, `SELECT COUNT(*) FROM profiles`)
	return n, err
}
