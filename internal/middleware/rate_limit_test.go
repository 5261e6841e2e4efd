package middleware

import (
	"net/http/httptest"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

func TestRateLimitRejectsAfterLimit(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer cache.Close()

	app := fiber.New()
	app.Post("/process", RateLimit(cache, "process", 2), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	want := []int{fiber.StatusNoContent, fiber.StatusNoContent, fiber.StatusTooManyRequests}
	for i, code := range want {
		resp, err := app.Test(httptest.NewRequest(fiber.MethodPost, "/process", nil))
		if err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
		if resp.StatusCode != code {
			t.Fatalf("request %d: expected %d got %d", i, code, resp.StatusCode)
		}
	}
}

func TestRateLimitWithoutRedis(t *testing.T) {
	app := fiber.New()
	app.Post("/process", RateLimit(nil, "process", 1), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	for i := 0; i < 3; i++ {
		resp, err := app.Test(httptest.NewRequest(fiber.MethodPost, "/process", nil))
		if err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
		if resp.StatusCode != fiber.StatusNoContent {
			t.Fatalf("expected pass-through without redis, got %d", resp.StatusCode)
		}
	}
}

func TestCollaboratorAuth(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("feed-token"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	app := fiber.New()
	app.Put("/rates", CollaboratorAuth(string(hash)), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", fiber.StatusUnauthorized},
		{"wrong", "Bearer nope", fiber.StatusUnauthorized},
		{"valid", "Bearer feed-token", fiber.StatusNoContent},
		{"valid cached", "Bearer feed-token", fiber.StatusNoContent},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(fiber.MethodPut, "/rates", nil)
		if tc.header != "" {
			req.Header.Set(fiber.HeaderAuthorization, tc.header)
		}
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if resp.StatusCode != tc.want {
			t.Fatalf("%s: expected %d got %d", tc.name, tc.want, resp.StatusCode)
		}
	}
}

func TestCollaboratorAuthDisabled(t *testing.T) {
	app := fiber.New()
	app.Put("/rates", CollaboratorAuth(""), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	resp, err := app.Test(httptest.NewRequest(fiber.MethodPut, "/rates", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != fiber.StatusNoContent {
		t.Fatalf("expected open endpoint, got %d", resp.StatusCode)
	}
}
