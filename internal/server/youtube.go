package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/llehouerou/vibeflow/internal/errmsg"
	"github.com/llehouerou/vibeflow/internal/extract"
	"github.com/llehouerou/vibeflow/internal/library"
)

type extractRequest struct {
	URL string `json:"url"`
}

func (s *Server) extractSong(c *gin.Context) {
	var req extractRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.URL == "" {
		badRequest(c, "URL is required")
		return
	}

	id := accountID(c)
	res, err := s.extractor.Extract(c.Request.Context(), req.URL, id)
	if err != nil {
		if errors.Is(err, extract.ErrFailed) || errors.Is(err, extract.ErrNoOutput) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		s.respondError(c, errmsg.OpExtract, err)
		return
	}

	song, err := s.songs.ForAccount(id).Create(c.Request.Context(), library.Song{
		Title:        res.Title,
		Artist:       res.Artist,
		CoverURL:     res.Thumbnail,
		AudioLocator: res.AudioPath,
		Duration:     res.Duration,
		SourceType:   library.SourceYouTube,
		SourceURL:    req.URL,
	})
	if err != nil {
		s.respondError(c, errmsg.OpSongCreate, err)
		return
	}
	c.JSON(http.StatusOK, toWire(song))
}

func (s *Server) getCookies(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"hasCookies": s.extractor.HasCookies()})
}

type cookiesRequest struct {
	Cookies string `json:"cookies"`
}

func (s *Server) saveCookies(c *gin.Context) {
	var req cookiesRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Cookies == "" {
		badRequest(c, "Cookies content is required")
		return
	}
	if err := s.extractor.SaveCookies(req.Cookies); err != nil {
		s.respondError(c, errmsg.OpCookiesSave, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Cookies saved successfully"})
}

func (s *Server) deleteCookies(c *gin.Context) {
	if err := s.extractor.DeleteCookies(); err != nil {
		s.respondError(c, errmsg.OpCookiesDelete, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Cookies deleted"})
}
