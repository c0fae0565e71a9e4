package httpkit

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Gin context keys set by AuthRequired.
const (
	ContextUserIDKey = "userID"
	ContextRolesKey  = "roles"
)

// RoleAdmin grants access to every owner's deal data.
const RoleAdmin = "admin"

// UserID returns the authenticated user's id from the gin context.
func UserID(c *gin.Context) (uuid.UUID, bool) {
	raw, ok := c.Get(ContextUserIDKey)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := raw.(uuid.UUID)
	return id, ok
}

// Roles returns the authenticated user's roles from the gin context.
func Roles(c *gin.Context) []string {
	raw, ok := c.Get(ContextRolesKey)
	if !ok {
		return nil
	}
	roles, _ := raw.([]string)
	return roles
}

// IsAdmin reports whether the request carries the admin role.
func IsAdmin(c *gin.Context) bool {
	for _, role := range Roles(c) {
		if role == RoleAdmin {
			return true
		}
	}
	return false
}
