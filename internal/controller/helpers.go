package controller

import (
	"quiz_backend/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// idParam reads a UUID path parameter, answering 400 when it is malformed.
func idParam(ctx *gin.Context, name string) (string, bool) {
	raw := ctx.Param(name)
	if _, err := uuid.Parse(raw); err != nil {
		util.BadRequest(ctx, "invalid "+name)
		return "", false
	}
	return raw, true
}

// currentUser answers 401 when the request carries no identity.
func currentUser(ctx *gin.Context) (*util.Claims, bool) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return nil, false
	}
	return user, true
}
