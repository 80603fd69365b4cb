package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	// ActorKey is the context key for the acting user
	ActorKey = "actor"
	// ActorHeader is the HTTP header naming the acting user
	ActorHeader = "X-Actor"
	// AnonymousActor is recorded when a request names no actor
	AnonymousActor = "anonymous"
)

// Actor reads the acting user from the X-Actor header, set by the
// authenticating front end, and stores it in the context. Requests without
// the header act as AnonymousActor.
func Actor() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := strings.TrimSpace(c.GetHeader(ActorHeader))
		if actor == "" {
			actor = AnonymousActor
		}
		c.Set(ActorKey, actor)
		c.Next()
	}
}

// GetActor retrieves the acting user from the Gin context.
// Returns AnonymousActor if not found.
func GetActor(c *gin.Context) string {
	if actor, exists := c.Get(ActorKey); exists {
		if s, ok := actor.(string); ok && s != "" {
			return s
		}
	}
	return AnonymousActor
}
