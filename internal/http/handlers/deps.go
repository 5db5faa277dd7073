package handlers

import (
	"campusswap/internal/config"
	"campusswap/internal/events"
	"campusswap/internal/repos"
	"campusswap/internal/services"

	"github.com/jmoiron/sqlx"
)

type Deps struct {
	Auth *services.AuthService

	AuthHandler        *AuthHandler
	ItemHandler        *ItemHandler
	SearchHandler      *SearchHandler
	TransactionHandler *TransactionHandler
	ProfileHandler     *ProfileHandler
	AdminHandler       *AdminHandler
	APIHandler         *APIHandler
}

func NewDeps(db *sqlx.DB, cfg config.Config, auth *services.AuthService, pub events.Publisher) *Deps {
	userRepo := repos.NewUserRepo(db)

	catalogSvc := services.NewCatalogService(db, cfg.Rules)
	txnSvc := services.NewTransactionService(db, cfg.Rules, pub)
	penSvc := services.NewPenaltyService(db, pub)
	ratingSvc := services.NewRatingService(db, pub)
	savedSvc := services.NewSavedService(db)
	adminSvc := services.NewAdminService(db, userRepo)

	return &Deps{
		Auth:          auth,
		AuthHandler:   &AuthHandler{Auth: auth},
		ItemHandler:   &ItemHandler{Catalog: catalogSvc, Txns: txnSvc, Saved: savedSvc},
		SearchHandler: &SearchHandler{Catalog: catalogSvc},
		TransactionHandler: &TransactionHandler{
			Catalog: catalogSvc, Txns: txnSvc, Penalties: penSvc, Ratings: ratingSvc,
		},
		ProfileHandler: &ProfileHandler{Users: userRepo, Catalog: catalogSvc, Ratings: ratingSvc},
		AdminHandler:   &AdminHandler{Admin: adminSvc, Txns: txnSvc, Penalties: penSvc},
		APIHandler:     &APIHandler{Catalog: catalogSvc, Txns: txnSvc, Penalties: penSvc, Ratings: ratingSvc},
	}
}
