// internal/handlers/common.go
package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/panelforge/panelforge-backend/internal/utils"
)

// currentUserID pulls the authenticated user id out of the gin context.
// Writes the error response itself; callers just return on !ok.
func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	userIDStr, exists := utils.GetUserIDFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return uuid.Nil, false
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		utils.BadRequestResponse(c, "invalid user id", nil)
		return uuid.Nil, false
	}

	return userID, true
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		utils.BadRequestResponse(c, "invalid "+name, nil)
		return 0, false
	}
	return id, true
}
