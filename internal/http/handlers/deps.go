package handlers

import (
	"github.com/jmoiron/sqlx"

	"shopeasy/internal/config"
	"shopeasy/internal/remote"
	"shopeasy/internal/repos"
	"shopeasy/internal/services"
)

type Deps struct {
	Store   *remote.Store
	Clients *services.Clients

	ProductHandler  *ProductHandler
	CartHandler     *CartHandler
	WishlistHandler *WishlistHandler
	AuthHandler     *AuthHandler
	OrderHandler    *OrderHandler
	ProfileHandler  *ProfileHandler
	AdminHandler    *AdminHandler
	APIHandler      *APIHandler
}

// NewDeps wires the remote store, the per-client registry and every handler.
// Each client's local storage is its sid-scoped slice of the local_storage table.
func NewDeps(db *sqlx.DB, cfg config.Config) *Deps {
	store := remote.NewStore(db, cfg)
	local := repos.NewLocalStoreRepo(db)
	clients := services.NewClients(func(sid string) (services.LocalStorage, services.RemoteStore, func()) {
		ls := local.Scope(sid)
		rc := store.Connect(ls)
		return ls, rc, rc.Close
	})

	catalog := services.NewCatalogService(services.SampleCatalog())
	admin := services.NewAdminService(store, catalog)

	return &Deps{
		Store:           store,
		Clients:         clients,
		ProductHandler:  &ProductHandler{Catalog: catalog},
		CartHandler:     &CartHandler{Catalog: catalog},
		WishlistHandler: &WishlistHandler{Catalog: catalog},
		AuthHandler:     &AuthHandler{AutoConfirm: cfg.AuthAutoConfirm},
		OrderHandler:    &OrderHandler{},
		ProfileHandler:  &ProfileHandler{},
		AdminHandler:    &AdminHandler{Admin: admin},
		APIHandler:      &APIHandler{Catalog: catalog, Admin: admin},
	}
}
