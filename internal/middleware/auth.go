package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

type voterKey struct{}

// WithVoter returns a context carrying the authenticated voter id.
func WithVoter(ctx context.Context, voterID int) context.Context {
	return context.WithValue(ctx, voterKey{}, voterID)
}

// ContextIdentity reads the voter placed on the request context by
// AuthMiddleware.
type ContextIdentity struct{}

func (ContextIdentity) CurrentVoterID(ctx context.Context) (int, bool) {
	id, ok := ctx.Value(voterKey{}).(int)
	return id, ok && id > 0
}

// AuthMiddleware verifies an optional HS256 bearer token. Requests without a
// token pass through anonymously; handlers decide whether that is allowed.
// A token that is present but invalid is rejected.
func AuthMiddleware(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}

		raw, found := strings.CutPrefix(header, "Bearer ")
		if !found {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header must be a Bearer token"})
			return
		}

		userID, err := ParseToken(raw, secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		c.Set("user_id", userID)
		c.Request = c.Request.WithContext(WithVoter(c.Request.Context(), userID))
		c.Next()
	}
}

// ParseToken validates a token signed with secret and returns its user_id
// claim.
func ParseToken(raw string, secret []byte) (int, error) {
	token, err := jwt.Parse(raw, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return 0, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, fmt.Errorf("invalid token claims")
	}

	// JSON numbers decode as float64
	switch v := claims["user_id"].(type) {
	case float64:
		if v > 0 {
			return int(v), nil
		}
	case int:
		if v > 0 {
			return v, nil
		}
	}
	return 0, fmt.Errorf("token has no user_id claim")
}
