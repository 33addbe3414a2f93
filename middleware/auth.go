// Package middleware holds the gin middleware of the REST API: bearer-token
// authentication, request logging and request metrics.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"social-service/util"
)

const claimsKey = "social_claims"

// Auth rejects requests without a valid bearer token and stores the claims in
// the gin context.
func Auth(tokens *util.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := util.ParseBearer(c.GetHeader("Authorization"))
		if err != nil {
			status := http.StatusUnauthorized
			if err == util.ErrMalformedAuthorization {
				status = http.StatusBadRequest
			}
			c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
			return
		}

		claims, err := tokens.ValidateToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}

// GetClaims returns the claims stored by Auth, or nil.
func GetClaims(c *gin.Context) *util.Claims {
	if v, ok := c.Get(claimsKey); ok {
		if claims, ok := v.(*util.Claims); ok {
			return claims
		}
	}
	return nil
}
