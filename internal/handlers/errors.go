package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"moneta/internal/services/account"
	"moneta/internal/utils/response"
)

// mapDomainError translates core errors to transport status codes.
func mapDomainError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, account.ErrInvalidAmount):
		return response.ValidationError(c, err.Error(), map[string]string{
			"amount": "must be greater than zero",
		})
	case errors.Is(err, account.ErrSelfTransfer):
		return response.BadRequest(c, err.Error())
	case errors.Is(err, account.ErrInsufficientFunds):
		return response.BadRequest(c, err.Error())
	case errors.Is(err, account.ErrAccountNotFound):
		return response.NotFound(c, err.Error())
	case errors.Is(err, account.ErrDuplicateAccount):
		return response.Conflict(c, err.Error())
	case errors.Is(err, account.ErrTooMuchContention):
		return response.Conflict(c, err.Error())
	default:
		return response.ServerError(c, err.Error())
	}
}
