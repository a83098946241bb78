package middleware

import (
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"
	config "github.com/maheshrc27/reelflow/configs"
	"github.com/maheshrc27/reelflow/pkg/utils"
)

type AuthMiddleware struct {
	cfg    config.Config
	signer *utils.TokenSigner
}

func NewAuthMiddleware(cfg config.Config, signer *utils.TokenSigner) *AuthMiddleware {
	return &AuthMiddleware{cfg: cfg, signer: signer}
}

// AuthMiddleware accepts the session cookie or an Authorization: Bearer
// header and stores the user id in Locals as a string.
func (m *AuthMiddleware) AuthMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := c.Cookies(m.cfg.CookieName)
		fromCookie := tokenString != ""
		if auth := c.Get(fiber.HeaderAuthorization); tokenString == "" && strings.HasPrefix(auth, "Bearer ") {
			tokenString = strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
		}

		if tokenString == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing token or cookie",
			})
		}

		claims, err := m.signer.Validate(tokenString)
		if err != nil {
			if fromCookie {
				c.Cookie(&fiber.Cookie{
					Name:   m.cfg.CookieName,
					Value:  "",
					Path:   "/",
					MaxAge: -1, // Delete cookie
				})
			}

			slog.Info("token validation failed")
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired token",
			})
		}

		c.Locals("user_id", claims.UserID)
		return c.Next()
	}
}
