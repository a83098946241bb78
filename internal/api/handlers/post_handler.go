package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/reelflow/internal/service"
	"github.com/maheshrc27/reelflow/internal/transfer"
)

type PostHandler struct {
	s service.PostService
}

func NewPostHandler(service service.PostService) *PostHandler {
	return &PostHandler{s: service}
}

// CreatePost answers once the post is scheduled, or once an immediate
// publish has reached a terminal state.
func (h *PostHandler) CreatePost(c *fiber.Ctx) error {
	var cmd transfer.CreatePost
	if err := c.BodyParser(&cmd); err != nil {
		return bodyError(err)
	}

	post, err := h.s.Create(c.Context(), GetUserID(c), &cmd)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

func (h *PostHandler) ListPosts(c *fiber.Ctx) error {
	posts, err := h.s.List(c.Context(), GetUserID(c))
	if err != nil {
		return err
	}
	return c.JSON(posts)
}

func (h *PostHandler) GetPost(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}

	post, err := h.s.Get(c.Context(), GetUserID(c), id)
	if err != nil {
		return err
	}
	return c.JSON(post)
}

func (h *PostHandler) RemovePost(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}

	if err := h.s.Delete(c.Context(), GetUserID(c), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
