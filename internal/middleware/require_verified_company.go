package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"talentpool-backend/internal/database"
	"talentpool-backend/internal/model"
	"talentpool-backend/internal/utilities"
)

// RequireVerifiedCompany stop HR whose company is missing or not verified.
// The company is stored in context key "company". Other roles pass through.
func RequireVerifiedCompany(db *database.DBinstanceStruct) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		user, err := utilities.ExtractUser(ctx)
		if err != nil {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, utilities.ErrorResponse{
				Error: err.Error(),
			})
			return
		}
		if user.Role != model.RoleHR {
			ctx.Next()
			return
		}

		var company model.Company
		err = db.WithContext(ctx.Request.Context()).Where("hr_user_id = ?", user.ID).First(&company).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			ctx.AbortWithStatusJSON(http.StatusForbidden, utilities.ErrorResponse{
				Error: "Company profile is required before searching candidates",
			})
			return
		case err != nil:
			ctx.AbortWithStatusJSON(http.StatusInternalServerError, utilities.ErrorResponse{
				Error: fmt.Sprintf("Failed to retrieve company: %s", err.Error()),
			})
			return
		}

		if company.VerifiedStatus != model.StatusVerified {
			ctx.AbortWithStatusJSON(http.StatusForbidden, utilities.ErrorResponse{
				Error: fmt.Sprintf("Company is not verified (status: %s)", company.VerifiedStatus),
			})
			return
		}

		ctx.Set("company", company)
		ctx.Next()
	}
}
