package repos

import (
	"log"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"
)

// TimeLayout is fixed-width so TEXT timestamps sort chronologically.
const TimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func Now() string { return time.Now().UTC().Format(TimeLayout) }

func OpenDB(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}
	// One connection: ":memory:" databases are per-connection and sqlite serialises writers anyway.
	db.SetMaxOpenConns(1)
	if err = db.Ping(); err != nil {
		return nil, errors.Wrap(err, "ping sqlite")
	}

	if err := ensureSchema(db); err != nil {
		return nil, errors.Wrap(err, "ensure schema")
	}
	// Ensure accounts exist (idempotent; safe to run every start)
	if err := seedAccounts(db); err != nil {
		return nil, errors.Wrap(err, "seed accounts")
	}
	return db, nil
}

func ensureSchema(db *sqlx.DB) error {
	schema := `
PRAGMA foreign_keys = ON;

-- Client-side durable storage: one namespace per browser client
CREATE TABLE IF NOT EXISTS local_storage(
  namespace  TEXT NOT NULL,
  key        TEXT NOT NULL,
  value      TEXT NOT NULL,
  updated_at TEXT,
  PRIMARY KEY(namespace, key)
);

-- Remote store: credentials and auth sessions
CREATE TABLE IF NOT EXISTS accounts(
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  password_hash TEXT NOT NULL,
  role TEXT NOT NULL CHECK (role IN ('USER','ADMIN')),
  created_at TEXT DEFAULT CURRENT_TIMESTAMP
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_accounts_email ON accounts(LOWER(email));

CREATE TABLE IF NOT EXISTS auth_sessions(
  id TEXT PRIMARY KEY,               -- jti of the issued token
  account_id TEXT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  expires_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_auth_sessions_account ON auth_sessions(account_id);

-- Remote store: records
CREATE TABLE IF NOT EXISTS profiles(
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL,
  full_name TEXT NOT NULL,
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_profiles_created_at ON profiles(created_at);

CREATE TABLE IF NOT EXISTS orders(
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  items TEXT NOT NULL,               -- JSON order lines
  total TEXT NOT NULL,
  status TEXT NOT NULL CHECK (status IN ('pending','processing','shipped','delivered')),
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_orders_user_created ON orders(user_id, created_at);
`
	_, err := db.Exec(schema)
	return err
}

// seedAccounts ensures one USER and one ADMIN exist (idempotent).
func seedAccounts(db *sqlx.DB) error {
	type acct struct {
		ID, Email, Name, Role, Hash string
	}
	mk := func(id, email, name, role, raw string) (acct, error) {
		h, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
		return acct{ID: id, Email: email, Name: name, Role: role, Hash: string(h)}, err
	}

	var n int
	if err := db.Get(&n, `SELECT COUNT(*) FROM accounts WHERE id IN ('u-alice','u-admin')`); err != nil {
		return err
	}
	if n == 2 {
		return nil
	}
	log.Println("[seed] inserting demo accounts")

	var accts []acct
	for _, a := range [][4]string{
		{"u-alice", "alice@shopeasy.test", "Alice", "USER"},
		{"u-admin", "admin@shopeasy.test", "Admin", "ADMIN"},
	} {
		x, err := mk(a[0], a[1], a[2], a[3], "Passw0rd!")
		if err != nil {
			return err
		}
		accts = append(accts, x)
	}

	tx, err := db.Beginx()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, x := range accts {
		if _, err := tx.Exec(`
			INSERT INTO accounts(id,email,name,password_hash,role)
			VALUES(?,?,?,?,?)
			ON CONFLICT(email) DO NOTHING
		`, x.ID, x.Email, x.Name, x.Hash, x.Role); err != nil {
			return err
		}
	}
	return tx.Commit()
}
