package api

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"

	"github.com/xiaomiproject/aikefu/api/mcp"
	"github.com/xiaomiproject/aikefu/pkg/user"
)

const (
	localUsername = "username"
	localUserID   = "user_id"
)

// requireUser returns the middleware chain guarding authenticated routes:
// HTTP basic auth checked against the user store, then identity lookup.
func (s *Server) requireUser() []fiber.Handler {
	check := basicauth.New(basicauth.Config{
		Realm: "aikefu",
		Authorizer: func(username, password string) bool {
			_, err := user.Authenticate(context.Background(), s.store, username, password)
			if err != nil && !errors.Is(err, user.ErrInvalidCredentials) && !errors.Is(err, user.ErrBlankCredentials) {
				s.logger.Error("authenticating user", "username", username, "error", err)
			}
			return err == nil
		},
		Unauthorized: func(c *fiber.Ctx) error {
			c.Set(fiber.HeaderWWWAuthenticate, `Basic realm="aikefu"`)
			return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{Error: "authentication required"})
		},
		ContextUsername: localUsername,
	})

	identify := func(c *fiber.Ctx) error {
		username, _ := c.Locals(localUsername).(string)
		u, err := s.store.GetUserByUsername(c.UserContext(), username)
		if err != nil {
			if errors.Is(err, user.ErrNotFound) {
				return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{Error: "authentication required"})
			}
			return s.fail(c, err)
		}
		c.Locals(localUserID, u.ID)
		// Mounted net/http handlers read identity from this header, so any
		// client supplied value is overwritten.
		c.Request().Header.Set(mcp.UserHeader, u.ID)
		return c.Next()
	}

	return []fiber.Handler{check, identify}
}

// userID returns the authenticated user id, or "" outside protected routes.
func userID(c *fiber.Ctx) string {
	id, _ := c.Locals(localUserID).(string)
	return id
}

// credentials is the body of register and login requests.
type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// userView is the public representation of a user.
type userView struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

func viewOf(u *user.User) userView {
	return userView{ID: u.ID, Username: u.Username, Role: u.Role}
}

// handleRegister creates a new account.
func (s *Server) handleRegister(c *fiber.Ctx) error {
	var body credentials
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}

	u, err := user.Register(c.UserContext(), s.store, body.Username, body.Password)
	if err != nil {
		return s.fail(c, err)
	}

	s.logger.Info("user registered", "user_id", u.ID, "username", u.Username)
	return c.Status(fiber.StatusCreated).JSON(viewOf(u))
}

// handleLogin verifies credentials and records the login time.
func (s *Server) handleLogin(c *fiber.Ctx) error {
	var body credentials
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}

	u, err := user.Login(c.UserContext(), s.store, body.Username, body.Password)
	if err != nil {
		return s.fail(c, err)
	}

	return c.JSON(viewOf(u))
}
