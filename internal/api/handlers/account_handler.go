package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/reelflow/internal/service"
	"github.com/maheshrc27/reelflow/internal/transfer"
)

type AccountHandler struct {
	s service.AccountService
}

func NewAccountHandler(service service.AccountService) *AccountHandler {
	return &AccountHandler{s: service}
}

func (h *AccountHandler) ListAccounts(c *fiber.Ctx) error {
	accounts, err := h.s.List(c.Context(), GetUserID(c))
	if err != nil {
		return err
	}
	return c.JSON(accounts)
}

func (h *AccountHandler) CreateAccount(c *fiber.Ctx) error {
	var cmd transfer.CreateAccount
	if err := c.BodyParser(&cmd); err != nil {
		return bodyError(err)
	}

	account, err := h.s.Create(c.Context(), GetUserID(c), &cmd)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(account)
}

func (h *AccountHandler) UpdateAccount(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}

	var cmd transfer.UpdateAccount
	if err := c.BodyParser(&cmd); err != nil {
		return bodyError(err)
	}

	account, err := h.s.Rename(c.Context(), GetUserID(c), id, cmd.Name)
	if err != nil {
		return err
	}
	return c.JSON(account)
}

func (h *AccountHandler) DeleteAccount(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}

	if err := h.s.Delete(c.Context(), GetUserID(c), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
