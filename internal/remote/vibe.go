package remote

import (
	"context"
	"net/http"

	"github.com/llehouerou/vibeflow/internal/library"
	"github.com/llehouerou/vibeflow/internal/suggest"
)

var _ suggest.Service = (*Client)(nil)

// Suggest asks the server for songs matching history. The server works from
// its own copy of the library, so songs is not sent.
func (c *Client) Suggest(ctx context.Context, history, _ []library.Song) (suggest.Suggestion, error) {
	var resp struct {
		suggest.Suggestion
		Songs []library.Song `json:"songs"`
	}
	req := map[string][]string{"historyIds": library.IDs(history)}
	if err := c.doJSON(ctx, http.MethodPost, "/api/vibe", req, &resp); err != nil {
		return suggest.Suggestion{}, err
	}
	return resp.Suggestion, nil
}
