package main

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// AuthMiddleware verifies the bearer token, loads the account it refers to
// and attaches it to the context as "user". An expired TEMP_ADMIN is demoted
// here, before any handler consults the role, and the demotion is persisted
// so the stored record catches up with the effective role.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			jsonError(c, http.StatusUnauthorized, "Missing Authorization header")
			c.Abort()
			return
		}

		// Expect: "Bearer token"
		if !strings.HasPrefix(authHeader, "Bearer ") {
			jsonError(c, http.StatusUnauthorized, "Invalid token format")
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		userID, err := ParseToken(tokenString)
		if err != nil {
			jsonError(c, http.StatusUnauthorized, "Invalid token")
			c.Abort()
			return
		}

		var user User
		if err := DB.First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				jsonError(c, http.StatusUnauthorized, "Unauthorized")
			} else {
				log.Printf("AuthMiddleware lookup error: %v", err)
				jsonError(c, http.StatusInternalServerError, "Server error")
			}
			c.Abort()
			return
		}

		// Lazy demotion of expired TEMP_ADMIN
		now := time.Now()
		if user.Role == RoleTempAdmin && EffectiveRole(&user, now) == RoleUser {
			user.Role = RoleUser
			user.PromotedUntil = nil
			if err := DB.Model(&User{}).Where("id = ?", user.ID).
				Updates(map[string]interface{}{"role": RoleUser, "promoted_until": nil}).Error; err != nil {
				log.Printf("AuthMiddleware demotion error: %v", err)
				jsonError(c, http.StatusInternalServerError, "Server error")
				c.Abort()
				return
			}
		}

		c.Set("user", &user)
		c.Next()
	}
}

// currentUser fetches the account AuthMiddleware attached to the context.
func currentUser(c *gin.Context) (*User, bool) {
	v, exists := c.Get("user")
	if !exists {
		return nil, false
	}
	user, ok := v.(*User)
	return user, ok
}

// RequireRoles gates a route on the caller's effective role.
func RequireRoles(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			jsonError(c, http.StatusUnauthorized, "Unauthorized")
			c.Abort()
			return
		}

		role := EffectiveRole(user, time.Now())
		for _, allowed := range roles {
			if role == allowed {
				c.Next()
				return
			}
		}

		jsonError(c, http.StatusForbidden, "Forbidden - insufficient role")
		c.Abort()
	}
}
