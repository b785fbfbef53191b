package server

import (
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// serveAudio streams an audio file owned by the logged-in account.
// Files are named <account>_<nanos>.<ext>.
func (s *Server) serveAudio(c *gin.Context) {
	name := c.Param("file")
	if name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}

	owner, _, ok := strings.Cut(name, "_")
	if !ok || owner != strconv.FormatInt(accountID(c), 10) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}

	path := filepath.Join(s.opts.AudioDir, name)
	if fi, err := os.Stat(path); err != nil || fi.IsDir() {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}
	c.File(path)
}
