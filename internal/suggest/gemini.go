package suggest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/samber/lo"
	"golang.org/x/sync/singleflight"

	"github.com/llehouerou/vibeflow/internal/errmsg"
	"github.com/llehouerou/vibeflow/internal/library"
)

const defaultEndpoint = "https://generativelanguage.googleapis.com/v1beta"

// Options configures a Gemini client.
type Options struct {
	APIKey         string
	Model          string
	Endpoint       string
	MaxSuggestions int
}

// Gemini is a Service backed by the Gemini generateContent API. Without an
// API key it answers with the first songs of the library.
type Gemini struct {
	httpClient *http.Client
	opts       Options
	logger     *log.Logger
	group      singleflight.Group
}

// Verify Gemini implements Service at compile time.
var _ Service = (*Gemini)(nil)

// NewGemini creates a Gemini suggestion client.
func NewGemini(opts Options, logger *log.Logger) *Gemini {
	if opts.Model == "" {
		opts.Model = "gemini-2.5-flash"
	}
	if opts.Endpoint == "" {
		opts.Endpoint = defaultEndpoint
	}
	opts.Endpoint = strings.TrimSuffix(opts.Endpoint, "/")
	if opts.MaxSuggestions <= 0 {
		opts.MaxSuggestions = DefaultMax
	}
	return &Gemini{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		opts:       opts,
		logger:     logger,
	}
}

// Suggest analyzes the last songs of history and picks matching library songs.
// AI failures fall back to the head of the library; only a canceled context
// is reported as an error.
func (g *Gemini) Suggest(ctx context.Context, history, songs []library.Song) (Suggestion, error) {
	n := g.opts.MaxSuggestions
	if len(history) == 0 || len(songs) == 0 {
		return notEnoughData(songs, n), nil
	}
	if g.opts.APIKey == "" {
		return unavailable(songs, n), nil
	}

	v, err, shared := g.group.Do(flightKey(history, songs), func() (any, error) {
		return g.generate(ctx, history, songs)
	})
	if shared {
		g.logger.Debug("vibe request shared with in-flight call")
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Suggestion{}, ctxErr
		}
		g.logger.Warn("vibe analysis failed", "err", err)
		return offline(songs, n), nil
	}

	return sanitize(v.(Suggestion), songs, n), nil
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type generationConfig struct {
	ResponseMimeType string `json:"responseMimeType"`
	ResponseSchema   schema `json:"responseSchema"`
}

type schema struct {
	Type       string            `json:"type"`
	Properties map[string]schema `json:"properties,omitempty"`
	Items      *schema           `json:"items,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

var suggestionSchema = schema{
	Type: "OBJECT",
	Properties: map[string]schema{
		"mood":             {Type: "STRING"},
		"reasoning":        {Type: "STRING"},
		"suggestedSongIds": {Type: "ARRAY", Items: &schema{Type: "STRING"}},
	},
}

func (g *Gemini) generate(ctx context.Context, history, songs []library.Song) (Suggestion, error) {
	prompt, err := buildPrompt(history, songs, g.opts.MaxSuggestions)
	if err != nil {
		return Suggestion{}, err
	}

	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{
			ResponseMimeType: "application/json",
			ResponseSchema:   suggestionSchema,
		},
	})
	if err != nil {
		return Suggestion{}, fmt.Errorf("encode request: %w", err)
	}

	reqURL := fmt.Sprintf("%s/models/%s:generateContent", g.opts.Endpoint, url.PathEscape(g.opts.Model))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(body))
	if err != nil {
		return Suggestion{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.opts.APIKey)

	start := time.Now()
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return Suggestion{}, fmt.Errorf("http request: %w: %w", errmsg.ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Suggestion{}, fmt.Errorf("unexpected status: %s: %w", resp.Status, errmsg.ErrRemoteUnavailable)
	}

	var result generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Suggestion{}, fmt.Errorf("decode response: %w", err)
	}
	g.logger.Debug("vibe analyzed", "model", g.opts.Model, "took", time.Since(start))

	return parseSuggestion(result)
}

func parseSuggestion(resp generateResponse) (Suggestion, error) {
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return Suggestion{}, errors.New("empty response")
	}
	text := resp.Candidates[0].Content.Parts[0].Text
	if strings.TrimSpace(text) == "" {
		return Suggestion{}, nil
	}

	var s Suggestion
	if err := json.Unmarshal([]byte(text), &s); err != nil {
		return Suggestion{}, fmt.Errorf("decode suggestion: %w", err)
	}
	return s, nil
}

type catalogEntry struct {
	ID   string `json:"id"`
	Info string `json:"info"`
}

func buildPrompt(history, songs []library.Song, n int) (string, error) {
	recent := history[max(0, len(history)-historyWindow):]
	titles := lo.Map(recent, func(s library.Song, _ int) string {
		return s.Title + " by " + s.Artist
	})

	catalog, err := json.Marshal(lo.Map(songs, func(s library.Song, _ int) catalogEntry {
		genre := s.Genre
		if genre == "" {
			genre = "Unknown Genre"
		}
		return catalogEntry{ID: s.ID, Info: fmt.Sprintf("%s by %s (%s)", s.Title, s.Artist, genre)}
	}))
	if err != nil {
		return "", fmt.Errorf("encode catalog: %w", err)
	}

	var b strings.Builder
	b.WriteString("I have a music player app.\n")
	fmt.Fprintf(&b, "The user just listened to: [%s].\n\n", strings.Join(titles, ", "))
	b.WriteString("Here is the available library of songs:\n")
	b.Write(catalog)
	b.WriteString("\n\nTask:\n")
	b.WriteString("1. Analyze the \"Vibe\" or \"Mood\" of the recently played songs " +
		"(e.g., \"Energetic Workout\", \"Late Night Chill\", \"Focus\", \"Melancholy\").\n")
	fmt.Fprintf(&b, "2. Select up to %d song IDs from the library that BEST fit this mood to play next.\n", n)
	b.WriteString("3. Explain the reasoning briefly.\n")
	return b.String(), nil
}
