package server

import (
	"embed"
	"net/http"

	"github.com/gin-gonic/gin"
)

//go:embed templates/client.html
var templatesFS embed.FS

// handleClient serves the static client page. No session side effects.
func (s *Server) handleClient(c *gin.Context) {
	data, err := templatesFS.ReadFile("templates/client.html")
	if err != nil {
		detail(c, http.StatusInternalServerError, "client page unavailable")
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", data)
}
