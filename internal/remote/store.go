package remote

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"shopeasy/internal/config"
	"shopeasy/internal/domain"
	"shopeasy/internal/repos"
)

// Store holds the shared record tables and auth settings. Clients are per browser.
type Store struct {
	accounts    *repos.AccountRepo
	profiles    *repos.ProfileRepo
	orders      *repos.OrderRepo
	secret      []byte
	ttl         time.Duration
	cost        int
	autoConfirm bool
}

func NewStore(db *sqlx.DB, cfg config.Config) *Store {
	return &Store{
		accounts:    repos.NewAccountRepo(db),
		profiles:    repos.NewProfileRepo(db),
		orders:      repos.NewOrderRepo(db),
		secret:      []byte(cfg.JWTSecret),
		ttl:         cfg.SessionTTL,
		cost:        cfg.BcryptCost,
		autoConfirm: cfg.AuthAutoConfirm,
	}
}

func (s *Store) GetProfile(ctx context.Context, id string) (domain.Profile, error) {
	if err := ctx.Err(); err != nil {
		return domain.Profile{}, err
	}
	p, err := s.profiles.Get(id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Profile{}, ErrNotFound
	}
	if err != nil {
		return domain.Profile{}, errors.Wrapf(err, "get profile %s", id)
	}
	return p, nil
}

func (s *Store) CreateProfile(ctx context.Context, id, email, name string) (domain.Profile, error) {
	if err := ctx.Err(); err != nil {
		return domain.Profile{}, err
	}
	if strings.TrimSpace(id) == "" {
		return domain.Profile{}, &Error{Code: CodeValidation, Message: "profile id is required"}
	}
	p, err := s.profiles.Create(id, email, name)
	if err != nil {
		return domain.Profile{}, errors.Wrapf(err, "create profile %s", id)
	}
	return p, nil
}

// ListProfiles returns all profiles, newest first.
func (s *Store) ListProfiles(ctx context.Context) ([]domain.Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out, err := s.profiles.List()
	return out, errors.Wrap(err, "list profiles")
}

func (s *Store) ListOrders(ctx context.Context, userID string) ([]domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out, err := s.orders.ListByUser(userID)
	return out, errors.Wrapf(err, "list orders for %s", userID)
}

func (s *Store) InsertOrder(ctx context.Context, userID string, o domain.Order) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if o.ID == "" || !o.Status.Valid() {
		return &Error{Code: CodeValidation, Message: "order id and a valid status are required"}
	}
	return errors.Wrapf(s.orders.Insert(userID, o), "insert order %s", o.ID)
}

func (s *Store) CountOrders(ctx context.Context, userID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	n, err := s.orders.CountByUser(userID)
	return n, errors.Wrap(err, "count orders")
}

// CountAllOrders counts orders across every user.
func (s *Store) CountAllOrders(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	n, err := s.orders.Count()
	return n, errors.Wrap(err, "count all orders")
}

func (s *Store) CountProfiles(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	n, err := s.profiles.Count()
	return n, errors.Wrap(err, "count profiles")
}

// UpdateOrderStatus is the fulfillment-side status transition.
func (s *Store) UpdateOrderStatus(ctx context.Context, id string, status domain.OrderStatus) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return errors.Wrapf(s.orders.UpdateStatus(id, status), "update order %s", id)
}

// PurgeExpiredSessions drops auth sessions past their expiry.
func (s *Store) PurgeExpiredSessions() (int64, error) {
	n, err := s.accounts.PurgeExpiredSessions()
	return n, errors.Wrap(err, "purge sessions")
}
