package middleware

import (
	"net/http"
	"strings"

	"writeflow/internal/models"
	"writeflow/internal/store"
	"writeflow/internal/utils"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const IdentityKey = "identity"

// ResolveIdentity attaches the acting Identity to every request. Order of
// precedence: bearer token, session login, the persistent anonymous token
// (minted on first contact and saved back into the session). The store
// never reads identity from ambient state; handlers pass this value down
// explicitly.
func ResolveIdentity(s *store.Store, jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
			raw := strings.TrimPrefix(auth, "Bearer ")
			if uid, err := utils.ParseToken(raw, jwtSecret); err == nil {
				if identity, err := s.ResolveUser(uid); err == nil {
					c.Set(IdentityKey, identity)
					c.Next()
					return
				}
			}
			// A bad bearer token degrades to the anonymous path below.
		}

		session := sessions.Default(c)
		if uid, ok := session.Get("user_id").(uint); ok {
			if identity, err := s.ResolveUser(uid); err == nil {
				c.Set(IdentityKey, identity)
				c.Next()
				return
			}
		}

		token, _ := session.Get("anon_token").(string)
		identity, newToken, err := s.ResolveAnonymous(token)
		if err != nil {
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		if newToken != token {
			session.Set("anon_token", newToken)
			if err := session.Save(); err != nil {
				c.AbortWithStatus(http.StatusInternalServerError)
				return
			}
		}
		c.Set(IdentityKey, identity)
		c.Next()
	}
}

// Identity returns the resolved identity for this request.
func Identity(c *gin.Context) *models.Identity {
	return c.MustGet(IdentityKey).(*models.Identity)
}
