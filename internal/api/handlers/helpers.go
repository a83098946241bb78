package handlers

import (
	"errors"
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/reelflow/internal/service"
)

func GetUserID(c *fiber.Ctx) int64 {
	userID, _ := strconv.Atoi(c.Locals("user_id").(string))
	return int64(userID)
}

func paramID(c *fiber.Ctx) (int64, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, &service.ValidationError{Field: "id", Message: "must be a positive integer"}
	}
	return int64(id), nil
}

func bodyError(err error) error {
	slog.Info(err.Error())
	return &service.ValidationError{Message: "invalid request body"}
}

// ErrorHandler turns service errors into JSON responses.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var (
		validationErr *service.ValidationError
		quotaErr      *service.QuotaExceededError
		fiberErr      *fiber.Error
	)

	status := fiber.StatusInternalServerError
	message := "internal server error"

	switch {
	case errors.As(err, &validationErr):
		status, message = fiber.StatusBadRequest, validationErr.Error()
	case errors.As(err, &quotaErr):
		status, message = fiber.StatusBadRequest, quotaErr.Error()
	case errors.Is(err, service.ErrUnauthorized):
		status, message = fiber.StatusUnauthorized, err.Error()
	case errors.Is(err, service.ErrNotFound):
		status, message = fiber.StatusNotFound, err.Error()
	case errors.Is(err, service.ErrConflict):
		status, message = fiber.StatusConflict, "email is already registered"
	case errors.As(err, &fiberErr):
		status, message = fiberErr.Code, fiberErr.Message
	default:
		slog.Error("request failed", "method", c.Method(), "path", c.Path(), "error", err.Error())
	}

	return c.Status(status).JSON(fiber.Map{
		"error": message,
	})
}
