// Package http assembles the HTTP application from feature modules.
package http

import "github.com/gin-gonic/gin"

// RouterContext is handed to each module at route registration time.
type RouterContext struct {
	Engine *gin.Engine
	V1     *gin.RouterGroup
}

// Module is a feature module that registers its own routes.
type Module interface {
	Name() string
	RegisterRoutes(rc RouterContext)
}
