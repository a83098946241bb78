package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/reelflow/internal/service"
)

type UploadHandler struct {
	s service.UploadService
}

func NewUploadHandler(service service.UploadService) *UploadHandler {
	return &UploadHandler{s: service}
}

func (h *UploadHandler) ListUploads(c *fiber.Ctx) error {
	uploads, err := h.s.List(c.Context(), GetUserID(c))
	if err != nil {
		return err
	}
	return c.JSON(uploads)
}

func (h *UploadHandler) CreateUpload(c *fiber.Ctx) error {
	header, err := c.FormFile("video")
	if err != nil {
		return &service.ValidationError{Field: "video", Message: "file is required"}
	}

	file, err := header.Open()
	if err != nil {
		return err
	}
	defer file.Close()

	upload, err := h.s.Create(c.Context(), GetUserID(c), header.Filename, file, header.Size)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(upload)
}

func (h *UploadHandler) DeleteUpload(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}

	if err := h.s.Delete(c.Context(), GetUserID(c), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
