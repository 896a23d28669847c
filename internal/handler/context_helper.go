package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jondumad/EcoPulse-Backend/internal/middleware"
	"github.com/jondumad/EcoPulse-Backend/internal/models"
	appErrors "github.com/jondumad/EcoPulse-Backend/pkg/errors"
	"github.com/jondumad/EcoPulse-Backend/pkg/response"
)

// actorFromContext returns the authenticated caller or writes a 401.
func actorFromContext(c *gin.Context) (models.Actor, bool) {
	claims, ok := middleware.Claims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return models.Actor{}, false
	}
	return claims.Actor(), true
}

func bindError(err error, msg string) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, msg)
}

// queryList accepts both repeated and comma separated query values.
func queryList(c *gin.Context, key string) []string {
	var out []string
	for _, raw := range c.QueryArray(key) {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
