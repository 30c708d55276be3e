package services

import (
	"github.com/gofiber/fiber/v2"
)

// Roles resolved by the auth service, in descending privilege order.
const (
	RoleAdmin     = "admin"
	RoleOrganizer = "organizer"
	RoleLeader    = "leader"
	RolePlayer    = "player"
)

// Caller is the verified identity attached to a request by the auth
// middleware. The services never resolve tokens themselves.
type Caller struct {
	UserID      string
	Role        string
	DisplayName string
}

// CanAdjudicate reports whether the caller may override match results.
func (cl Caller) CanAdjudicate() bool {
	return cl.Role == RoleAdmin || cl.Role == RoleOrganizer
}

// CallerFromCtx reads the identity set by middleware.UserContextMiddleware.
// A zero UserID means the middleware did not run (unsecured route).
func CallerFromCtx(c *fiber.Ctx) Caller {
	caller := Caller{}
	if v, ok := c.Locals("user_id").(string); ok {
		caller.UserID = v
	}
	if v, ok := c.Locals("user_role").(string); ok {
		caller.Role = v
	}
	if v, ok := c.Locals("user_name").(string); ok {
		caller.DisplayName = v
	}
	return caller
}
