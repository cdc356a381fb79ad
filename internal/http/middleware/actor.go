package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/northcampus/gradebook-backend/internal/platform/ctxutil"
	"github.com/northcampus/gradebook-backend/internal/platform/logger"
)

// ActorClaims is the token payload issued by the campus SSO gateway. Subject
// carries the actor id; name and roles ride along as custom claims.
type ActorClaims struct {
	jwt.RegisteredClaims
	Name  string   `json:"name"`
	Roles []string `json:"roles"`
}

type ActorMiddleware struct {
	log    *logger.Logger
	secret []byte
}

func NewActorMiddleware(log *logger.Logger, secret string) *ActorMiddleware {
	middlewareLogger := log.With("Middleware", "ActorMiddleware")
	return &ActorMiddleware{log: middlewareLogger, secret: []byte(secret)}
}

// RequireActor rejects requests without a valid signed token and stores the
// actor's identity in the request context for handlers and the audit trail.
func (am *ActorMiddleware) RequireActor() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractTokenFromAll(c)
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{"message": "missing or invalid token", "code": "unauthorized"},
			})
			return
		}
		ad, err := am.parseActor(tokenString)
		if err != nil {
			am.log.Warn("Rejected actor token", "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{"message": "missing or invalid token", "code": "unauthorized"},
			})
			return
		}
		ctx := ctxutil.WithActorData(c.Request.Context(), ad)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequireRole gates a route on a role claim. Must run after RequireActor.
func (am *ActorMiddleware) RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ad := ctxutil.GetActorData(c.Request.Context())
		if ad == nil || !ad.HasRole(role) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": gin.H{"message": "forbidden", "code": "forbidden"},
			})
			return
		}
		c.Next()
	}
}

func (am *ActorMiddleware) parseActor(tokenString string) (*ctxutil.ActorData, error) {
	parsedToken, err := jwt.ParseWithClaims(tokenString, &ActorClaims{}, func(token *jwt.Token) (interface{}, error) {
		return am.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	claims, ok := parsedToken.Claims.(*ActorClaims)
	if !ok || !parsedToken.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	actorID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, err
	}
	return &ctxutil.ActorData{
		ActorID:   actorID,
		ActorName: claims.Name,
		Roles:     claims.Roles,
	}, nil
}

func extractTokenFromAll(c *gin.Context) string {
	if qToken := c.Query("token"); qToken != "" {
		return qToken
	}
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return authHeader[7:]
	}
	return ""
}
