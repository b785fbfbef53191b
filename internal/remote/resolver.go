package remote

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/llehouerou/vibeflow/internal/errmsg"
	"github.com/llehouerou/vibeflow/internal/player"
)

var _ player.Resolver = (*Client)(nil)

// Resolve returns a local file for an audio locator. Server audio ("/audio/..."
// or an absolute URL on the server) is downloaded once into the cache
// directory. Anything else is treated as a local path.
func (c *Client) Resolve(ctx context.Context, locator string) (string, error) {
	name, ok := c.serverAudio(locator)
	if !ok {
		return player.LocalResolver{}.Resolve(ctx, locator)
	}

	dest := filepath.Join(c.cacheDir, name)
	if fi, err := os.Stat(dest); err == nil && fi.Size() > 0 {
		return dest, nil
	}

	_, err, _ := c.downloads.Do(name, func() (any, error) {
		return nil, c.download(ctx, "/audio/"+url.PathEscape(name), dest)
	})
	if err != nil {
		return "", err
	}
	return dest, nil
}

// serverAudio returns the file name of a locator served under /audio/.
func (c *Client) serverAudio(locator string) (string, bool) {
	p := locator
	if strings.Contains(locator, "://") {
		u, err := url.Parse(locator)
		if err != nil || u.Host != c.baseURL.Host {
			return "", false
		}
		p = u.Path
	}
	if !strings.HasPrefix(p, "/audio/") {
		return "", false
	}
	name := path.Base(p)
	if name == "." || name == "/" || name == ".." || strings.HasPrefix(name, ".") {
		return "", false
	}
	return name, true
}

// download fetches p into dest through a temporary file so a partial
// download is never mistaken for a cached one.
func (c *Client) download(ctx context.Context, p, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(p), http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := c.untimed().Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("download %s: %w: %w", p, errmsg.ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}

	if err := os.MkdirAll(c.cacheDir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	tmp, err := os.CreateTemp(c.cacheDir, ".download-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, resp.Body)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", dest, err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return fmt.Errorf("move download: %w", err)
	}

	c.logger.Debug("audio cached", "file", filepath.Base(dest), "size", humanize.Bytes(uint64(n)))
	return nil
}
