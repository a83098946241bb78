package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/reelflow/internal/service"
	"github.com/maheshrc27/reelflow/internal/transfer"
)

type PageHandler struct {
	s service.PageService
}

func NewPageHandler(service service.PageService) *PageHandler {
	return &PageHandler{s: service}
}

func (h *PageHandler) ListPages(c *fiber.Ctx) error {
	accountID := c.QueryInt("account_id", 0)
	if accountID < 0 {
		return &service.ValidationError{Field: "account_id", Message: "must be a positive integer"}
	}

	pages, err := h.s.List(c.Context(), GetUserID(c), int64(accountID))
	if err != nil {
		return err
	}
	return c.JSON(pages)
}

func (h *PageHandler) CreatePage(c *fiber.Ctx) error {
	var cmd transfer.CreatePage
	if err := c.BodyParser(&cmd); err != nil {
		return bodyError(err)
	}

	page, err := h.s.Create(c.Context(), GetUserID(c), &cmd)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(page)
}

func (h *PageHandler) UpdatePage(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}

	var cmd transfer.UpdatePage
	if err := c.BodyParser(&cmd); err != nil {
		return bodyError(err)
	}

	page, err := h.s.Update(c.Context(), GetUserID(c), id, &cmd)
	if err != nil {
		return err
	}
	return c.JSON(page)
}

func (h *PageHandler) DeletePage(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}

	if err := h.s.Delete(c.Context(), GetUserID(c), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
