package repos

import (
	"github.com/jmoiron/sqlx"
)

// LocalStoreRepo is a string-keyed durable store scoped to one client namespace.
// Writes are last-writer-wins; there is no cross-process locking.
type LocalStoreRepo struct {
	db *sqlx.DB
	ns string
}

func NewLocalStoreRepo(db *sqlx.DB) *LocalStoreRepo { return &LocalStoreRepo{db: db} }

// Scope returns a repo bound to the given namespace (typically the client sid).
func (r *LocalStoreRepo) Scope(ns string) *LocalStoreRepo { return &LocalStoreRepo{db: r.db, ns: ns} }

// GetItem returns sql.ErrNoRows when the key has never been written.
func (r *LocalStoreRepo) GetItem(key string) (string, error) {
	var v string
	err := r.db.Get(&v, `SELECT value FROM local_storage WHERE namespace=? AND key=?`, r.ns, key)
	return v, err
}

func (r *LocalStoreRepo) SetItem(key, value string) error {
	_, err := r.db.Exec(`
		INSERT INTO local_storage(namespace,key,value,updated_at)
		VALUES(?,?,?,?)
		ON CONFLICT(namespace,key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at
	`, r.ns, key, value, Now())
	return err
}

func (r *LocalStoreRepo) RemoveItem(key string) error {
	_, err := r.db.Exec(`DELETE FROM local_storage WHERE namespace=? AND key=?`, r.ns, key)
	return err
}
