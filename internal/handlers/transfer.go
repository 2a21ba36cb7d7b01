package handlers

import (
	"github.com/gofiber/fiber/v2"

	"moneta/internal/models"
	"moneta/internal/services/account"
	"moneta/internal/utils/response"
	"moneta/internal/validation"
)

// TransferHandler exposes the P2P transfer endpoint.
type TransferHandler struct {
	service account.Service
}

func NewTransferHandler(service account.Service) *TransferHandler {
	return &TransferHandler{service: service}
}

// Transfer handles POST /transfers requests.
func (h *TransferHandler) Transfer(c *fiber.Ctx) error {
	var req models.TransferRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	v := validation.New()
	validation.ValidateTransferRequest(v, req)
	if !v.Valid() {
		return response.ValidationError(c, "invalid transfer", v.FieldMap())
	}

	receipt, err := h.service.Transfer(c.Context(), req)
	if err != nil {
		return mapDomainError(c, err)
	}
	return response.Success(c, receipt)
}
