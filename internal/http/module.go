// Package http assembles the HTTP application out of feature modules.
package http

import "github.com/gin-gonic/gin"

// RouterContext carries the route groups a module can attach to.
type RouterContext struct {
	// API is the authenticated /api/v1 group.
	API *gin.RouterGroup
	// Public has no authentication, used for health and webhooks.
	Public *gin.RouterGroup
}

// Module is one feature area of the application.
type Module interface {
	Name() string
	RegisterRoutes(rc *RouterContext)
}
