package services

import (
	"context"

	"github.com/pkg/errors"

	"shopeasy/internal/domain"
)

// AdminStore is the slice of the remote store the dashboard reads.
type AdminStore interface {
	GetProfile(ctx context.Context, id string) (domain.Profile, error)
	ListOrders(ctx context.Context, userID string) ([]domain.Order, error)
	ListProfiles(ctx context.Context) ([]domain.Profile, error)
	CountOrders(ctx context.Context, userID string) (int, error)
	CountAllOrders(ctx context.Context) (int, error)
	CountProfiles(ctx context.Context) (int, error)
	UpdateOrderStatus(ctx context.Context, id string, status domain.OrderStatus) error
}

type ProfileSummary struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	FullName    string `json:"full_name"`
	CreatedAt   string `json:"created_at"`
	OrdersCount int    `json:"orders_count"`
}

type Dashboard struct {
	TotalUsers    int              `json:"total_users"`
	TotalOrders   int              `json:"total_orders"`
	TotalProducts int              `json:"total_products"`
	Profiles      []ProfileSummary `json:"profiles"`
}

// UserOrders is one profile with its order history, newest first.
type UserOrders struct {
	Profile domain.Profile `json:"profile"`
	Orders  []domain.Order `json:"orders"`
}

type AdminService struct {
	Store   AdminStore
	Catalog *CatalogService
}

func NewAdminService(store AdminStore, catalog *CatalogService) *AdminService {
	return &AdminService{Store: store, Catalog: catalog}
}

// Dashboard collects the totals and per-profile order counts, newest profile first.
func (s *AdminService) Dashboard(ctx context.Context) (Dashboard, error) {
	var d Dashboard
	var err error
	if d.TotalUsers, err = s.Store.CountProfiles(ctx); err != nil {
		return d, errors.Wrap(err, "dashboard users")
	}
	if d.TotalOrders, err = s.Store.CountAllOrders(ctx); err != nil {
		return d, errors.Wrap(err, "dashboard orders")
	}
	d.TotalProducts = s.Catalog.Count()

	profiles, err := s.Store.ListProfiles(ctx)
	if err != nil {
		return d, errors.Wrap(err, "dashboard profiles")
	}
	d.Profiles = make([]ProfileSummary, 0, len(profiles))
	for _, p := range profiles {
		n, err := s.Store.CountOrders(ctx, p.ID)
		if err != nil {
			return d, errors.Wrapf(err, "dashboard orders for %s", p.ID)
		}
		d.Profiles = append(d.Profiles, ProfileSummary{
			ID: p.ID, Email: p.Email, FullName: p.FullName, CreatedAt: p.CreatedAt, OrdersCount: n,
		})
	}
	return d, nil
}

// UserOrders loads a profile and its orders. An unknown id keeps the store's not-found error in the chain.
func (s *AdminService) UserOrders(ctx context.Context, userID string) (UserOrders, error) {
	p, err := s.Store.GetProfile(ctx, userID)
	if err != nil {
		return UserOrders{}, errors.Wrapf(err, "user orders profile %s", userID)
	}
	orders, err := s.Store.ListOrders(ctx, userID)
	if err != nil {
		return UserOrders{}, errors.Wrapf(err, "user orders %s", userID)
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	return UserOrders{Profile: p, Orders: orders}, nil
}

func (s *AdminService) SetOrderStatus(ctx context.Context, orderID string, status domain.OrderStatus) error {
	if !status.Valid() {
		return errors.Errorf("invalid order status %q", status)
	}
	return s.Store.UpdateOrderStatus(ctx, orderID, status)
}
