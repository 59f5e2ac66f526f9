package repos

import (
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"shopeasy/internal/domain"
)

type OrderRepo struct{ db *sqlx.DB }

func NewOrderRepo(db *sqlx.DB) *OrderRepo { return &OrderRepo{db: db} }

type orderRow struct {
	ID        string            `db:"id"`
	UserID    string            `db:"user_id"`
	Items     domain.OrderLines `db:"items"`
	Total     decimal.Decimal   `db:"total"`
	Status    string            `db:"status"`
	CreatedAt string            `db:"created_at"`
}

func (o orderRow) toDomain() (domain.Order, error) {
	ts, err := time.Parse(TimeLayout, o.CreatedAt)
	if err != nil {
		return domain.Order{}, errors.Wrapf(err, "order %s created_at", o.ID)
	}
	items := o.Items
	if items == nil {
		items = domain.OrderLines{}
	}
	return domain.Order{ID: o.ID, Date: ts, Items: items, Total: o.Total, Status: domain.OrderStatus(o.Status)}, nil
}

// Insert writes an order keyed by its owner; the order's own date becomes created_at.
func (r *OrderRepo) Insert(userID string, o domain.Order) error {
	created := o.Date
	if created.IsZero() {
		created = time.Now()
	}
	_, err := r.db.Exec(`
	  INSERT INTO orders(id, user_id, items, total, status, created_at, updated_at)
	  VALUES(?, ?, ?, ?, ?, ?, ?)
	`, o.ID, userID, o.Items, o.Total.String(), string(o.Status), created.UTC().Format(TimeLayout), Now())
	return err
}

// ListByUser returns a user's orders newest first.
func (r *OrderRepo) ListByUser(userID string) ([]domain.Order, error) {
	var rows []orderRow
	if err := r.db.Select(&rows, `
		SELECT id, user_id, items, total, status, created_at
		FROM orders
		WHERE user_id = ?
		ORDER BY created_at DESC
	`, userID); err != nil {
		return nil, err
	}
	out := make([]domain.Order, 0, len(rows))
	for _, row := range rows {
		o, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

func (r *OrderRepo) CountByUser(userID string) (int, error) {
	var n int
	err := r.db.Get(&n, `SELECT COUNT(*) FROM orders WHERE user_id = ?`, userID)
	return n, err
}

func (r *OrderRepo) Count() (int, error) {
	var n int
	err := r.db.Get(&n, `SELECT COUNT(*) FROM orders`)
	return n, err
}

// UpdateStatus is the fulfillment side's only mutation of an order.
func (r *OrderRepo) UpdateStatus(id string, status domain.OrderStatus) error {
	if !status.Valid() {
		return errors.Errorf("invalid order status %q", status)
	}
	res, err := r.db.Exec(`UPDATE orders SET status = ?, updated_at = ? WHERE id = ?`, string(status), Now(), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.Errorf("order %s not found", id)
	}
	return nil
}
