package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/roadwatch-api/internal/middleware"
	"github.com/noah-isme/roadwatch-api/internal/models"
	"github.com/noah-isme/roadwatch-api/internal/policy"
	appErrors "github.com/noah-isme/roadwatch-api/pkg/errors"
	"github.com/noah-isme/roadwatch-api/pkg/response"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	return middleware.CurrentUser(c)
}

// actorFromContext returns the authenticated caller, writing 401 when there is none.
func actorFromContext(c *gin.Context) (policy.Actor, bool) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return policy.Actor{}, false
	}
	return policy.Actor{ID: claims.UserID, Role: claims.Role}, true
}

// bindJSON decodes the body into dst, writing 400 on malformed input.
func bindJSON(c *gin.Context, dst interface{}, what string) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid "+what+" payload"))
		return false
	}
	return true
}

func pageQuery(c *gin.Context) (page, pageSize int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))
	return page, pageSize
}
