package services

import (
	"context"

	"shopeasy/internal/domain"
)

// LocalStorage is a client's durable key/value storage. GetItem returns
// sql.ErrNoRows for a key that was never written.
type LocalStorage interface {
	GetItem(key string) (string, error)
	SetItem(key, value string) error
}

// RemoteStore is the hosted backend as seen by one client.
type RemoteStore interface {
	GetProfile(ctx context.Context, id string) (domain.Profile, error)
	CreateProfile(ctx context.Context, id, email, name string) (domain.Profile, error)
	ListOrders(ctx context.Context, userID string) ([]domain.Order, error)
	InsertOrder(ctx context.Context, userID string, o domain.Order) error
	CountOrders(ctx context.Context, userID string) (int, error)
	CountProfiles(ctx context.Context) (int, error)

	SignIn(ctx context.Context, email, password string) error
	SignUp(ctx context.Context, email, password, name string) error
	SignOut(ctx context.Context) error
	Subscribe(handler func(domain.AuthEvent)) (unsubscribe func())
}
