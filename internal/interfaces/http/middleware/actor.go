package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pharmadist/backend/internal/domain/shared"
	"github.com/pharmadist/backend/internal/infrastructure/auth"
	"github.com/pharmadist/backend/internal/interfaces/http/dto"
)

// Context keys for the authenticated actor
const (
	ActorIDKey   = "actor_id"
	ActorNameKey = "actor_name"
	ActorRoleKey = "actor_role"
)

// ActorAuth validates the Authorization bearer token when present and
// stores the authenticated actor on the context. Requests without a
// token pass through unauthenticated; handlers resolve the actor via
// ResolveActorID and fail with ACTOR_RESOLUTION when none is found.
func ActorAuth(jwtService *auth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			abortUnauthorized(c, "Invalid authorization header format")
			return
		}

		claims, err := jwtService.Validate(parts[1])
		if err != nil {
			if errors.Is(err, auth.ErrExpiredToken) {
				abortUnauthorized(c, "Token has expired")
				return
			}
			abortUnauthorized(c, "Invalid token")
			return
		}

		c.Set(ActorIDKey, claims.UserID)
		c.Set(ActorNameKey, claims.Username)
		c.Set(ActorRoleKey, claims.Role)
		c.Next()
	}
}

// ResolveActorID returns the ID of the acting user. Token claims win;
// the X-User-ID header is a development fallback for setups without
// an identity provider.
func ResolveActorID(c *gin.Context) (uuid.UUID, error) {
	idStr := c.GetString(ActorIDKey)
	if idStr == "" {
		idStr = c.GetHeader("X-User-ID")
	}
	if idStr == "" {
		return uuid.Nil, shared.ErrActorResolution
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return uuid.Nil, shared.NewDomainError("ACTOR_RESOLUTION", "Acting user ID is not a valid UUID")
	}
	return id, nil
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized,
		dto.NewErrorResponseWithRequestID(dto.ErrCodeUnauthorized, message, GetRequestID(c)))
}
