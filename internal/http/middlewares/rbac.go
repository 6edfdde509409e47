package middlewares

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rmendes/userhub/internal/domain/user"
)

// RoleReader fetches the current user record; the role guard never trusts
// a role embedded in a token.
type RoleReader interface {
	GetByID(ctx context.Context, id int64) (user.User, error)
}

// RoleGuard authorizes routes against the subject's CURRENT role. Claims
// only carry identity, and roles can change after a token is signed, so the
// role is read fresh from the store on every request.
type RoleGuard struct {
	users RoleReader
}

func NewRoleGuard(users RoleReader) *RoleGuard {
	return &RoleGuard{users: users}
}

func (g *RoleGuard) RequireRole(required string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := UserIDFromContext(c)

		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{
					"code":    "unauthorized",
					"message": "Missing identity context",
				},
			})
			return
		}

		u, err := g.users.GetByID(c.Request.Context(), id)

		if err != nil {
			if errors.Is(err, user.ErrNotFound) {
				// token subject no longer exists
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"error": gin.H{
						"code":    "unauthorized",
						"message": "Unknown identity",
					},
				})
				return
			}

			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": gin.H{
					"code":    "internal_error",
					"message": "Could not authorize request",
				},
			})
			return
		}

		if !roleSatisfies(u.Role, required) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": gin.H{
					"code":    "forbidden",
					"message": "Insufficient role",
				},
			})
			return
		}

		c.Next()
	}
}

// admin dominates user; the enum is flat otherwise.
func roleSatisfies(have, required string) bool {
	if have == required {
		return true
	}

	return have == user.RoleAdmin && required == user.RoleUser
}
