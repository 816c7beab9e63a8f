package middleware

import (
	"net/http"
	"strings"

	"github.com/dfryer1193/newsroom/api"
	"github.com/gin-gonic/gin"
)

const (
	ActorHeader = "X-Actor-ID"
	actorKey    = "actor"
)

// RequireActor reads the acting user from the X-Actor-ID header. The header
// is set by the authenticating proxy in front of the service.
func RequireActor() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := strings.TrimSpace(c.GetHeader(ActorHeader))
		if actor == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, api.Error{
				Kind:    "unauthenticated",
				Message: ActorHeader + " header is required",
			})
			return
		}

		c.Set(actorKey, actor)
		c.Next()
	}
}

// Actor returns the actor stored by RequireActor.
func Actor(c *gin.Context) (string, bool) {
	actor := c.GetString(actorKey)
	return actor, actor != ""
}
