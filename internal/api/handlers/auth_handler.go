package handlers

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	config "github.com/maheshrc27/reelflow/configs"
	"github.com/maheshrc27/reelflow/internal/models"
	"github.com/maheshrc27/reelflow/internal/service"
	"github.com/maheshrc27/reelflow/internal/transfer"
	"github.com/maheshrc27/reelflow/pkg/utils"
)

type AuthHandler struct {
	s      service.AuthService
	cfg    config.Config
	signer *utils.TokenSigner
}

func NewAuthHandler(cfg config.Config, service service.AuthService, signer *utils.TokenSigner) *AuthHandler {
	return &AuthHandler{s: service, cfg: cfg, signer: signer}
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var creds transfer.Credentials
	if err := c.BodyParser(&creds); err != nil {
		return bodyError(err)
	}

	user, err := h.s.Register(c.Context(), &creds)
	if err != nil {
		return err
	}
	return h.startSession(c, fiber.StatusCreated, user)
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var creds transfer.Credentials
	if err := c.BodyParser(&creds); err != nil {
		return bodyError(err)
	}

	user, err := h.s.Login(c.Context(), &creds)
	if err != nil {
		return err
	}
	return h.startSession(c, fiber.StatusOK, user)
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	c.Cookie(&fiber.Cookie{
		Name:   h.cfg.CookieName,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *AuthHandler) startSession(c *fiber.Ctx, status int, user *models.User) error {
	token, err := h.signer.Generate(strconv.FormatInt(user.ID, 10))
	if err != nil {
		return err
	}

	c.Cookie(&fiber.Cookie{
		Name:     h.cfg.CookieName,
		Value:    token,
		HTTPOnly: true,
		Secure:   false,
		SameSite: fiber.CookieSameSiteLaxMode,
		Path:     "/",
		Expires:  time.Now().Add(h.signer.TTL()),
	})

	var resp transfer.AuthResponse
	resp.Token = token
	resp.User.ID = user.ID
	resp.User.Email = user.Email
	return c.Status(status).JSON(resp)
}
