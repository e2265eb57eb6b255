package middleware

import (
	"net/http"
	"strings"

	"kitchen-api/internal/pkg/common"

	"github.com/gin-gonic/gin"
)

// HouseholdHeader 上游閘道提供的家庭識別標頭
const HouseholdHeader = "X-Household-ID"

const householdKey = "household_id"

// Household 要求請求帶有家庭識別，並存入 context
func Household() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(HouseholdHeader))
		if id == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, common.ErrorResponse{
				Code:    common.ErrHouseholdRequired.Code,
				Message: common.ErrHouseholdRequired.Message,
			})
			return
		}
		c.Set(householdKey, id)
		c.Next()
	}
}

// HouseholdID 取得目前請求的家庭 ID
func HouseholdID(c *gin.Context) string {
	return c.GetString(householdKey)
}
