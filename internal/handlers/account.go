package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"moneta/internal/services/account"
	"moneta/internal/utils/response"
	"moneta/internal/validation"
)

// AccountHandler exposes account management and balance operation
// endpoints.
type AccountHandler struct {
	service account.Service
}

func NewAccountHandler(service account.Service) *AccountHandler {
	return &AccountHandler{service: service}
}

func (h *AccountHandler) ListAccounts(c *fiber.Ctx) error {
	accounts, err := h.service.ListAccounts(c.Context())
	if err != nil {
		return mapDomainError(c, err)
	}
	return response.Success(c, accounts)
}

func (h *AccountHandler) GetAccount(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return response.BadRequest(c, "invalid account id")
	}

	acc, err := h.service.GetAccount(c.Context(), uint(id))
	if err != nil {
		return mapDomainError(c, err)
	}
	return response.Success(c, acc)
}

func (h *AccountHandler) CreateAccount(c *fiber.Ctx) error {
	var input struct {
		UserID     uuid.UUID       `json:"userId"`
		CurrencyID int             `json:"currencyId"`
		Amount     decimal.Decimal `json:"amount"`
	}
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	v := validation.New()
	validation.ValidateUserID(v, "userId", input.UserID)
	validation.ValidateCurrency(v, input.CurrencyID)
	v.Check(!input.Amount.IsNegative(), "amount", "must not be negative")
	if !v.Valid() {
		return response.ValidationError(c, "invalid account", v.FieldMap())
	}

	acc, err := h.service.CreateAccount(c.Context(), input.UserID, input.CurrencyID, input.Amount)
	if err != nil {
		return mapDomainError(c, err)
	}
	return response.Created(c, acc)
}

func (h *AccountHandler) GetAccountsForUser(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Params("userId"))
	if err != nil {
		return response.BadRequest(c, "invalid user id")
	}

	accounts, err := h.service.GetAccountsForUser(c.Context(), userID)
	if err != nil {
		return mapDomainError(c, err)
	}
	return response.Success(c, accounts)
}

type balanceOperationInput struct {
	CurrencyID int             `json:"currencyId"`
	Amount     decimal.Decimal `json:"amount"`
}

func (h *AccountHandler) parseBalanceOperation(c *fiber.Ctx) (uuid.UUID, balanceOperationInput, error) {
	userID, err := uuid.Parse(c.Params("userId"))
	if err != nil {
		return uuid.Nil, balanceOperationInput{}, response.BadRequest(c, "invalid user id")
	}

	var input balanceOperationInput
	if err := c.BodyParser(&input); err != nil {
		return uuid.Nil, balanceOperationInput{}, response.BadRequest(c, "invalid request body")
	}

	v := validation.New()
	validation.ValidateCurrency(v, input.CurrencyID)
	validation.ValidateAmount(v, input.Amount)
	if !v.Valid() {
		return uuid.Nil, balanceOperationInput{}, response.ValidationError(c, "invalid operation", v.FieldMap())
	}
	return userID, input, nil
}

// Income handles POST /users/:userId/income requests.
func (h *AccountHandler) Income(c *fiber.Ctx) error {
	userID, input, reject := h.parseBalanceOperation(c)
	if reject != nil {
		return reject
	}

	acc, err := h.service.Deposit(c.Context(), userID, input.CurrencyID, input.Amount)
	if err != nil {
		return mapDomainError(c, err)
	}
	return response.Success(c, acc)
}

// Withdraw handles POST /users/:userId/withdraw requests.
func (h *AccountHandler) Withdraw(c *fiber.Ctx) error {
	userID, input, reject := h.parseBalanceOperation(c)
	if reject != nil {
		return reject
	}

	acc, err := h.service.Withdraw(c.Context(), userID, input.CurrencyID, input.Amount)
	if err != nil {
		return mapDomainError(c, err)
	}
	return response.Success(c, acc)
}
