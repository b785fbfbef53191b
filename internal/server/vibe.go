package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"github.com/llehouerou/vibeflow/internal/errmsg"
	"github.com/llehouerou/vibeflow/internal/library"
	"github.com/llehouerou/vibeflow/internal/suggest"
)

type vibeRequest struct {
	HistoryIDs []string `json:"historyIds"`
}

type vibeResponse struct {
	suggest.Suggestion
	Songs []library.Song `json:"songs"`
}

// vibe suggests library songs matching the listening history.
func (s *Server) vibe(c *gin.Context) {
	var req vibeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request")
		return
	}

	songs, err := s.songs.ForAccount(accountID(c)).List(c.Request.Context())
	if err != nil {
		s.respondError(c, errmsg.OpVibe, err)
		return
	}

	history := suggest.Resolve(req.HistoryIDs, songs)
	sug, err := s.suggester.Suggest(c.Request.Context(), history, songs)
	if err != nil {
		s.respondError(c, errmsg.OpVibe, err)
		return
	}

	picked := suggest.Resolve(sug.SongIDs, songs)
	c.JSON(http.StatusOK, vibeResponse{
		Suggestion: sug,
		Songs:      lo.Map(picked, func(song library.Song, _ int) library.Song { return toWire(song) }),
	})
}
