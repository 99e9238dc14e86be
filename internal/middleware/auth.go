package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/jengzang/trip-features-go/pkg/response"
)

// SubjectKey is the gin context key holding the token subject
const SubjectKey = "subject"

// Auth requires an HS256 bearer token signed with secret
func Auth(secret string) gin.HandlerFunc {
	key := []byte(secret)
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			response.Unauthorized(c, "missing bearer token")
			return
		}

		claims := &jwt.RegisteredClaims{}
		_, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
			return key, nil
		})
		if err != nil {
			msg := "invalid token"
			if errors.Is(err, jwt.ErrTokenExpired) {
				msg = "token expired"
			}
			response.Unauthorized(c, msg)
			return
		}

		c.Set(SubjectKey, claims.Subject)
		c.Next()
	}
}
