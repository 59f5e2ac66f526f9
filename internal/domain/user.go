package domain

// Account is the remote store's credential record.
type Account struct {
	ID    string `db:"id"`
	Email string `db:"email"`
	Name  string `db:"name"`
	Hash  string `db:"password_hash"`
	Role  string `db:"role"`
}

const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

type Profile struct {
	ID        string `db:"id" json:"id"`
	Email     string `db:"email" json:"email"`
	FullName  string `db:"full_name" json:"full_name"`
	CreatedAt string `db:"created_at" json:"created_at"`
	UpdatedAt string `db:"updated_at" json:"updated_at"`
}

// AuthUser is the identity carried by auth events.
type AuthUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

type AuthEventKind string

const (
	// EventInitialSession is delivered once per subscription; User is nil when no session was restored.
	EventInitialSession AuthEventKind = "initial_session"
	EventSignedIn       AuthEventKind = "signed_in"
	EventSignedOut      AuthEventKind = "signed_out"
)

type AuthEvent struct {
	Kind AuthEventKind
	User *AuthUser
}

// Session is the authenticated identity with its cached order history, newest first.
type Session struct {
	ID     string  `json:"id"`
	Email  string  `json:"email"`
	Name   string  `json:"name"`
	Role   string  `json:"role"`
	Orders []Order `json:"orders"`
}

func (s *Session) IsAdmin() bool { return s != nil && s.Role == RoleAdmin }
