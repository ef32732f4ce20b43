// middlewares/auth_middleware.go
package middlewares

import (
	"errors"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// The account directory lives outside this service; its JWTs carry the stable
// account id in the sub claim. Parsing one is all the coupling we want.

// AuthMiddleware requires a valid bearer token and puts the account id on the
// context.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		accountID, err := accountFromHeader(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.Set("accountID", accountID)
		c.Next()
	}
}

// OptionalAuthMiddleware attaches the account id when a valid token is
// present and otherwise leaves it empty. Analysis works signed-out; identity
// is only carried along for telemetry.
func OptionalAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if accountID, err := accountFromHeader(c); err == nil {
			c.Set("accountID", accountID)
		}
		c.Next()
	}
}

func accountFromHeader(c *gin.Context) (string, error) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
		return "", errors.New("Authorization header required")
	}

	tokenString := strings.TrimPrefix(authHeader, "Bearer ")
	secret := []byte(os.Getenv("JWT_SECRET"))
	if len(secret) == 0 {
		return "", errors.New("server misconfigured: JWT_SECRET not set")
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return "", errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("invalid claims")
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return "", errors.New("sub claim missing")
	}
	return sub, nil
}
