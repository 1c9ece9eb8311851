package http

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// requireAdminKey guards mutation endpoints that are not driven by the
// certification flow itself. When no key is configured the guard is open,
// which is the demo posture.
func (s *Server) requireAdminKey(c *gin.Context) bool {
	if s.adminAPIKey == "" {
		return true
	}
	key := strings.TrimSpace(c.GetHeader("X-Admin-Key"))
	if key != "" && subtle.ConstantTimeCompare([]byte(key), []byte(s.adminAPIKey)) == 1 {
		return true
	}
	writeErrorCode(c, http.StatusUnauthorized, "UNAUTHORIZED", "admin key required")
	return false
}
