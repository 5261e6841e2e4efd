package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"sync"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
)

// CollaboratorAuth guards the push endpoints used by the rate feed and chain
// watcher. Callers present a bearer token whose bcrypt hash is configured. An
// empty hash disables the check.
func CollaboratorAuth(tokenHash string) fiber.Handler {
	var (
		mu       sync.RWMutex
		accepted string
	)
	return func(c *fiber.Ctx) error {
		if tokenHash == "" {
			return c.Next()
		}
		authz := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
		}
		token := strings.TrimSpace(authz[len("Bearer "):])

		mu.RLock()
		ok := accepted != "" && subtle.ConstantTimeCompare([]byte(token), []byte(accepted)) == 1
		mu.RUnlock()
		if ok {
			return c.Next()
		}

		if err := bcrypt.CompareHashAndPassword([]byte(tokenHash), []byte(token)); err != nil {
			return fiber.NewError(http.StatusUnauthorized, "invalid token")
		}
		mu.Lock()
		accepted = token
		mu.Unlock()
		return c.Next()
	}
}
