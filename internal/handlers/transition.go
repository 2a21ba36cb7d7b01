package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"moneta/internal/services/account"
	"moneta/internal/utils/response"
)

// TransitionHandler exposes read-only audit log projections.
type TransitionHandler struct {
	service account.Service
}

func NewTransitionHandler(service account.Service) *TransitionHandler {
	return &TransitionHandler{service: service}
}

// GetTransaction handles GET /transactions/:transactionId requests,
// returning every transition in the group.
func (h *TransitionHandler) GetTransaction(c *fiber.Ctx) error {
	txID, err := uuid.Parse(c.Params("transactionId"))
	if err != nil {
		return response.BadRequest(c, "invalid transaction id")
	}

	transitions, err := h.service.GetTransaction(c.Context(), txID)
	if err != nil {
		return mapDomainError(c, err)
	}
	return response.Success(c, transitions)
}

// GetAccountTransitions handles GET /accounts/:id/transitions requests.
func (h *TransitionHandler) GetAccountTransitions(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return response.BadRequest(c, "invalid account id")
	}

	transitions, err := h.service.GetAccountTransitions(c.Context(), uint(id))
	if err != nil {
		return mapDomainError(c, err)
	}
	return response.Success(c, transitions)
}
