package rmiddleware

import (
	"strings"
	"time"

	"github.com/questhall/questhall/internal/middleware"
	"github.com/questhall/questhall/pkg/responses"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/gin-gonic/gin"
)

const RequestIDKey = "request_id"

// RequestID tags every request with an id, honoring an inbound
// X-Request-ID when present.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader("X-Request-ID")
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set(RequestIDKey, rid)
		c.Writer.Header().Set("X-Request-ID", rid)
		c.Next()
	}
}

// RequestLogger logs each request through zap once the handler chain
// completes.
func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		rid, _ := c.Get(RequestIDKey)
		log.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.Any("request_id", rid),
		)
	}
}

// RoleMiddleware allows the request through only when the account's role
// column matches one of the required roles. The role is read fresh from
// the store on every call; nothing is cached across requests.
func RoleMiddleware(db *gorm.DB, requiredRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := middleware.GetUserIDFromContext(c)
		if err != nil {
			responses.Unauthorized(c, "")
			return
		}

		var role string
		if err := db.Table("users").Select("role").Where("id = ? AND deleted_at IS NULL", userID).Find(&role).Error; err != nil {
			responses.InternalServerError(c, "Failed to resolve role")
			return
		}

		for _, required := range requiredRoles {
			if strings.EqualFold(role, required) {
				c.Next()
				return
			}
		}

		responses.Forbidden(c, "")
	}
}

// AdminMiddleware is a convenience middleware for admin-only access.
func AdminMiddleware(db *gorm.DB) gin.HandlerFunc {
	return RoleMiddleware(db, "admin")
}
