package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"talentpool-backend/internal/database"
	"talentpool-backend/internal/model"
	"talentpool-backend/internal/utilities"
)

// CheckPunishment check whether user is punished or not
func CheckPunishment(db *database.DBinstanceStruct, punishmentType string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		user, err := utilities.ExtractUser(ctx)
		if err != nil {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, utilities.ErrorResponse{
				Error: err.Error(),
			})
			return
		}

		// Of course, Admin can't be punished
		if user.Role == model.RoleAdmin || user.Punishment == nil {
			ctx.Next()
			return
		}

		if user.Punishment.PunishmentType != punishmentType {
			ctx.Next()
			return
		}

		now := time.Now()
		if active := user.ActivePunishment(now); active != nil {
			if active.PunishEnd == nil {
				ctx.AbortWithStatusJSON(http.StatusForbidden, utilities.ErrorResponse{
					Error: "You don't have access to this endpoint due to permanent punishment",
				})
				return
			}
			ctx.AbortWithStatusJSON(http.StatusForbidden, utilities.ErrorResponse{
				Error: fmt.Sprintf("You don't have access to this endpoint until: %s", active.PunishEnd.Format(time.RFC3339)),
			})
			return
		}

		if _, err := database.LiftExpiredPunishment(db.WithContext(ctx.Request.Context()), &user, now); err != nil {
			ctx.AbortWithStatusJSON(http.StatusInternalServerError, utilities.ErrorResponse{
				Error: fmt.Sprintf("Failed to update user information: %s", err.Error()),
			})
			return
		}
		ctx.Set("user", user)
		ctx.Next()
	}
}
