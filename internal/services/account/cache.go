package account

import (
	"context"

	"moneta/internal/models"
)

// NoopCache is used when redis is disabled. Every lookup is a miss.
type NoopCache struct{}

func (n *NoopCache) GetAccountByID(context.Context, uint) (*models.Account, bool) { return nil, false }
func (n *NoopCache) CacheAccount(context.Context, *models.Account) error          { return nil }
func (n *NoopCache) InvalidateAccount(context.Context, *models.Account) error     { return nil }
