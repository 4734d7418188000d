package handler

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"kankou/internal/logger"
	"kankou/internal/service"
	"kankou/internal/session"
)

// PageLocalKey is the key under which Session stores the browser's page.
const PageLocalKey = "page"

// SessionConfig configures the session cookie.
type SessionConfig struct {
	CookieName string
	Secure     bool
}

// Session resolves the browser's page from its cookie, creating a session on
// first visit, and loads the page once.
func Session(store *session.Store, cfg SessionConfig, l *zap.Logger) fiber.Handler {
	if l == nil {
		l = zap.NewNop()
	}
	return func(c *fiber.Ctx) error {
		id, page := store.Get(c.Cookies(cfg.CookieName))

		c.Cookie(&fiber.Cookie{
			Name:     cfg.CookieName,
			Value:    id,
			Path:     "/",
			HTTPOnly: true,
			Secure:   cfg.Secure,
			SameSite: fiber.CookieSameSiteLaxMode,
		})
		c.Locals(PageLocalKey, page)

		if err := page.EnsureLoaded(c.UserContext()); err != nil {
			logger.FromContext(c.UserContext(), l).Warn("initial page load incomplete", zap.Error(err))
		}
		return c.Next()
	}
}

// pageFromCtx returns the page stored by Session.
func pageFromCtx(c *fiber.Ctx) *service.Page {
	p, _ := c.Locals(PageLocalKey).(*service.Page)
	return p
}
