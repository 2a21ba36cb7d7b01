// Package routes defines the API routing configuration. It wires
// repositories into services and services into handlers.
package routes

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"moneta/internal/handlers"
	"moneta/internal/middleware"
	"moneta/internal/repositories"
	"moneta/internal/services/account"
)

// SetupRoutes configures all application routes.
func SetupRoutes(app *fiber.App, db *gorm.DB) {
	accountRepo := repositories.NewAccountRepository(db)
	transitionRepo := repositories.NewTransitionRepository(db)

	var accountCache account.Cache
	if repositories.CacheService != nil {
		accountCache = repositories.CacheService
	}

	accountService := account.NewService(
		accountRepo,
		transitionRepo,
		accountCache,
		account.Config{},
		&account.NoopMetricsCollector{},
	)

	accountHandler := handlers.NewAccountHandler(accountService)
	transferHandler := handlers.NewTransferHandler(accountService)
	transitionHandler := handlers.NewTransitionHandler(accountService)

	api := app.Group("/api")

	api.Get("/accounts", accountHandler.ListAccounts)
	api.Post("/accounts", accountHandler.CreateAccount)
	api.Get("/accounts/:id", accountHandler.GetAccount)
	api.Get("/accounts/:id/transitions", transitionHandler.GetAccountTransitions)

	api.Get("/users/:userId/accounts", accountHandler.GetAccountsForUser)
	api.Post("/users/:userId/income", accountHandler.Income)
	api.Post("/users/:userId/withdraw", accountHandler.Withdraw)

	api.Post("/transfers", middleware.Idempotency(repositories.CacheService), transferHandler.Transfer)

	api.Get("/transactions/:transactionId", transitionHandler.GetTransaction)
}
