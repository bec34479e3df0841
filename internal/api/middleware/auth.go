package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/contentgenie/publisher/pkg/response"
)

// JWTAuth 校验 Bearer token 并把 user_id 写入上下文；
// enabled 为 false 时直接放行（本地联调）。
func JWTAuth(secret string, enabled bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !enabled {
			c.Next()
			return
		}
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			response.Unauthorized(c, "missing bearer token")
			c.Abort()
			return
		}
		raw := strings.TrimPrefix(header, "Bearer ")

		claims := jwt.MapClaims{}
		token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			response.Unauthorized(c, "invalid token")
			c.Abort()
			return
		}
		sub, err := claims.GetSubject()
		if err != nil || sub == "" {
			response.Unauthorized(c, "invalid token subject")
			c.Abort()
			return
		}
		c.Set("user_id", sub)
		c.Next()
	}
}
