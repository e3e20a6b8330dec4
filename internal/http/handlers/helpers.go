package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/softwareparlat/main/internal/http/middleware"
	"github.com/softwareparlat/main/internal/shared/apperr"
)

// mustUser returns the authenticated user or fails the request with 401.
func mustUser(c *gin.Context) (middleware.AuthUser, bool) {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		middleware.Fail(c, apperr.UnauthorizedErr("authentication required"))
	}
	return u, ok
}
