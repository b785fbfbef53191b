package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/generators"
	"github.com/gopxl/beep/v2/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llehouerou/vibeflow/internal/account"
	"github.com/llehouerou/vibeflow/internal/db"
	"github.com/llehouerou/vibeflow/internal/extract"
	"github.com/llehouerou/vibeflow/internal/library"
	"github.com/llehouerou/vibeflow/internal/suggest"
)

type fakeExtractor struct {
	mu      sync.Mutex
	result  extract.Result
	err     error
	cookies string
	urls    []string
}

func (f *fakeExtractor) Extract(_ context.Context, url string, _ int64) (extract.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.urls = append(f.urls, url)
	return f.result, f.err
}

func (f *fakeExtractor) HasCookies() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cookies != ""
}

func (f *fakeExtractor) SaveCookies(content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !strings.Contains(content, "youtube.com") {
		return extract.ErrInvalidCookies
	}
	f.cookies = content
	return nil
}

func (f *fakeExtractor) DeleteCookies() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cookies = ""
	return nil
}

type fakeSuggester struct {
	got suggest.Suggestion
}

func (f *fakeSuggester) Suggest(_ context.Context, history, _ []library.Song) (suggest.Suggestion, error) {
	s := f.got
	s.Reasoning = fmt.Sprintf("%d in history", len(history))
	return s, nil
}

type testEnv struct {
	handler   http.Handler
	server    *Server
	extractor *fakeExtractor
	suggester *fakeSuggester
	audioDir  string
}

func newTestEnv(t *testing.T, opts Options) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conn, err := db.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	if opts.AudioDir == "" {
		opts.AudioDir = t.TempDir()
	}
	env := &testEnv{
		extractor: &fakeExtractor{},
		suggester: &fakeSuggester{},
		audioDir:  opts.AudioDir,
	}
	env.server = New(
		account.NewService(conn, "test-secret", time.Hour),
		library.NewSQLStore(conn),
		env.extractor,
		env.suggester,
		opts,
		log.New(io.Discard),
	)
	env.handler = env.server.Handler()
	return env
}

// do sends a JSON request with an optional session cookie.
func (e *testEnv) do(t *testing.T, method, path string, body any, session *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader = http.NoBody
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if session != nil {
		req.AddCookie(session)
	}
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == SessionCookie {
			return c
		}
	}
	t.Fatalf("no %s cookie in response", SessionCookie)
	return nil
}

func (e *testEnv) signup(t *testing.T, email string) *http.Cookie {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/auth/signup", gin.H{
		"email": email, "password": "pw", "displayName": "Tester",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return sessionCookie(t, w)
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func errorOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[map[string]string](t, w)["error"]
}

func TestAuthFlow(t *testing.T) {
	env := newTestEnv(t, Options{})

	w := env.do(t, http.MethodPost, "/api/auth/signup", gin.H{
		"email": "ada@example.com", "password": "pw", "displayName": "Ada",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	cookie := sessionCookie(t, w)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	assert.NotContains(t, w.Body.String(), "password")

	me := decode[map[string]map[string]any](t, env.do(t, http.MethodGet, "/api/auth/me", nil, cookie))
	assert.Equal(t, "ada@example.com", me["user"]["email"])
	assert.Equal(t, "Ada", me["user"]["displayName"])

	anon := env.do(t, http.MethodGet, "/api/auth/me", nil, nil)
	assert.Equal(t, http.StatusOK, anon.Code)
	assert.JSONEq(t, `{"user":null}`, anon.Body.String())

	w = env.do(t, http.MethodPost, "/api/auth/login", gin.H{"email": "ada@example.com", "password": "pw"}, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	sessionCookie(t, w)

	w = env.do(t, http.MethodPost, "/api/auth/logout", nil, cookie)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Negative(t, sessionCookie(t, w).MaxAge)
}

func TestAuthErrors(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.signup(t, "ada@example.com")

	tests := []struct {
		name   string
		path   string
		body   any
		status int
	}{
		{"missing fields", "/api/auth/signup", gin.H{"email": "x@example.com"}, http.StatusBadRequest},
		{"duplicate email", "/api/auth/signup", gin.H{"email": "ada@example.com", "password": "p", "displayName": "A"}, http.StatusBadRequest},
		{"wrong password", "/api/auth/login", gin.H{"email": "ada@example.com", "password": "nope"}, http.StatusUnauthorized},
		{"unknown email", "/api/auth/login", gin.H{"email": "bob@example.com", "password": "pw"}, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, tt.path, tt.body, nil)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.NotEmpty(t, errorOf(t, w))
		})
	}
}

func TestRequireAuth(t *testing.T) {
	env := newTestEnv(t, Options{})

	for _, path := range []string{"/api/songs", "/api/youtube/cookies", "/audio/1_1.mp3"} {
		w := env.do(t, http.MethodGet, path, nil, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
		assert.Equal(t, "Unauthorized", errorOf(t, w))
	}

	bogus := &http.Cookie{Name: SessionCookie, Value: "garbage"}
	assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodGet, "/api/songs", nil, bogus).Code)
}

func TestSongsCRUD(t *testing.T) {
	env := newTestEnv(t, Options{})
	cookie := env.signup(t, "ada@example.com")

	w := env.do(t, http.MethodPost, "/api/songs", gin.H{
		"title": "Teardrop", "artist": "Massive Attack", "duration": 330, "genre": "Trip hop",
	}, cookie)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	created := decode[library.Song](t, w)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, 330*time.Second, created.Duration)
	assert.Equal(t, library.SourceUpload, created.SourceType)

	list := decode[[]library.Song](t, env.do(t, http.MethodGet, "/api/songs", nil, cookie))
	require.Len(t, list, 1)
	assert.Equal(t, "Teardrop", list[0].Title)

	w = env.do(t, http.MethodPost, "/api/songs/"+created.ID+"/favorite", gin.H{"isFavorite": true}, cookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[library.Song](t, w).IsFavorite)

	w = env.do(t, http.MethodPost, "/api/songs/"+created.ID+"/favorite", gin.H{}, cookie)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/songs/nope/favorite", gin.H{"isFavorite": true}, cookie)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodPost, "/api/songs", gin.H{"artist": "No Title"}, cookie)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/songs", gin.H{"title": "Bad", "sourceType": "spotify"}, cookie)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Source type must be upload or youtube", errorOf(t, w))

	w = env.do(t, http.MethodPost, "/api/songs", gin.H{"title": "Clip", "sourceType": "youtube"}, cookie)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	clip := decode[library.Song](t, w)
	assert.Equal(t, library.SourceYouTube, clip.SourceType)
	require.Equal(t, http.StatusOK, env.do(t, http.MethodDelete, "/api/songs/"+clip.ID, nil, cookie).Code)

	w = env.do(t, http.MethodDelete, "/api/songs/"+created.ID, nil, cookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true}`, w.Body.String())
	assert.Empty(t, decode[[]library.Song](t, env.do(t, http.MethodGet, "/api/songs", nil, cookie)))

	w = env.do(t, http.MethodDelete, "/api/songs/"+created.ID, nil, cookie)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSongs_AccountIsolation(t *testing.T) {
	env := newTestEnv(t, Options{})
	ada := env.signup(t, "ada@example.com")
	bob := env.signup(t, "bob@example.com")

	created := decode[library.Song](t, env.do(t, http.MethodPost, "/api/songs", gin.H{"title": "Mine"}, ada))

	assert.Empty(t, decode[[]library.Song](t, env.do(t, http.MethodGet, "/api/songs", nil, bob)))
	assert.Equal(t, http.StatusNotFound,
		env.do(t, http.MethodPost, "/api/songs/"+created.ID+"/favorite", gin.H{"isFavorite": true}, bob).Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodDelete, "/api/songs/"+created.ID, nil, bob).Code)
	assert.Len(t, decode[[]library.Song](t, env.do(t, http.MethodGet, "/api/songs", nil, ada)), 1)
}

func TestExtract(t *testing.T) {
	env := newTestEnv(t, Options{})
	cookie := env.signup(t, "ada@example.com")
	audio := filepath.Join(env.audioDir, "1_99.mp3")
	require.NoError(t, os.WriteFile(audio, []byte("mp3"), 0o600))
	env.extractor.result = extract.Result{
		Title: "Song", Artist: "Band", Duration: 200 * time.Second,
		Thumbnail: "https://img/x.jpg", AudioPath: audio,
	}

	w := env.do(t, http.MethodPost, "/api/youtube/extract", gin.H{"url": "https://youtu.be/x"}, cookie)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	song := decode[library.Song](t, w)
	assert.Equal(t, "/audio/1_99.mp3", song.AudioLocator)
	assert.Equal(t, library.SourceYouTube, song.SourceType)
	assert.Equal(t, "https://youtu.be/x", song.SourceURL)
	assert.Equal(t, "https://img/x.jpg", song.CoverURL)

	// Deleting the song also removes its audio
	w = env.do(t, http.MethodDelete, "/api/songs/"+song.ID, nil, cookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NoFileExists(t, audio)
}

func TestExtract_Errors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"bot check", extract.ErrBotCheck, http.StatusForbidden},
		{"age restricted", extract.ErrAgeRestricted, http.StatusForbidden},
		{"unavailable", extract.ErrUnavailable, http.StatusNotFound},
		{"generic", extract.ErrFailed, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, Options{})
			cookie := env.signup(t, "ada@example.com")
			env.extractor.err = tt.err

			w := env.do(t, http.MethodPost, "/api/youtube/extract", gin.H{"url": "https://youtu.be/x"}, cookie)

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.err.Error(), errorOf(t, w))
		})
	}

	env := newTestEnv(t, Options{})
	cookie := env.signup(t, "ada@example.com")
	w := env.do(t, http.MethodPost, "/api/youtube/extract", gin.H{}, cookie)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, env.extractor.urls)
}

func TestCookiesEndpoints(t *testing.T) {
	env := newTestEnv(t, Options{})
	cookie := env.signup(t, "ada@example.com")

	assert.JSONEq(t, `{"hasCookies":false}`, env.do(t, http.MethodGet, "/api/youtube/cookies", nil, cookie).Body.String())

	w := env.do(t, http.MethodPost, "/api/youtube/cookies", gin.H{"cookies": "example.com\tTRUE"}, cookie)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/youtube/cookies", gin.H{}, cookie)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/youtube/cookies", gin.H{"cookies": ".youtube.com\tTRUE"}, cookie)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"hasCookies":true}`, env.do(t, http.MethodGet, "/api/youtube/cookies", nil, cookie).Body.String())

	w = env.do(t, http.MethodDelete, "/api/youtube/cookies", nil, cookie)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"hasCookies":false}`, env.do(t, http.MethodGet, "/api/youtube/cookies", nil, cookie).Body.String())
}

func wavBytes(t *testing.T, seconds int) []byte {
	t.Helper()
	path := filepath.Join(t.TempDir(), "src.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	format := beep.Format{SampleRate: 8000, NumChannels: 1, Precision: 2}
	require.NoError(t, wav.Encode(f, generators.Silence(8000*seconds), format))
	require.NoError(t, f.Close())
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data
}

func (e *testEnv) upload(t *testing.T, filename string, data []byte, fields map[string]string, session *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/songs/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.AddCookie(session)
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

func TestUploadAndServeAudio(t *testing.T) {
	env := newTestEnv(t, Options{})
	ada := env.signup(t, "ada@example.com")
	bob := env.signup(t, "bob@example.com")
	data := wavBytes(t, 3)

	w := env.upload(t, "field_recording.wav", data, map[string]string{"artist": "Ada"}, ada)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	song := decode[library.Song](t, w)
	assert.Equal(t, "field recording", song.Title)
	assert.Equal(t, "Ada", song.Artist)
	assert.Equal(t, 3*time.Second, song.Duration)
	require.True(t, strings.HasPrefix(song.AudioLocator, "/audio/1_"), song.AudioLocator)

	w = env.do(t, http.MethodGet, song.AudioLocator, nil, ada)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, data, w.Body.Bytes())

	w = env.do(t, http.MethodGet, song.AudioLocator, nil, bob)
	assert.Equal(t, http.StatusNotFound, w.Code, "other accounts cannot fetch the file")

	w = env.do(t, http.MethodGet, "/audio/..%2F..%2Fetc%2Fpasswd", nil, ada)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpload_Rejects(t *testing.T) {
	env := newTestEnv(t, Options{MaxUploadMB: 1})
	cookie := env.signup(t, "ada@example.com")

	w := env.upload(t, "notes.txt", []byte("hello"), nil, cookie)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.upload(t, "broken.wav", []byte("not audio at all"), nil, cookie)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	entries, err := os.ReadDir(env.audioDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "rejected uploads are removed")

	w = env.upload(t, "huge.wav", make([]byte, 2<<20), nil, cookie)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestVibe(t *testing.T) {
	env := newTestEnv(t, Options{})
	cookie := env.signup(t, "ada@example.com")
	a := decode[library.Song](t, env.do(t, http.MethodPost, "/api/songs", gin.H{"title": "A"}, cookie))
	b := decode[library.Song](t, env.do(t, http.MethodPost, "/api/songs", gin.H{"title": "B"}, cookie))
	env.suggester.got = suggest.Suggestion{Mood: "Focus", SongIDs: []string{b.ID, "ghost"}}

	w := env.do(t, http.MethodPost, "/api/vibe", gin.H{"historyIds": []string{a.ID, "unknown"}}, cookie)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		Mood      string         `json:"mood"`
		Reasoning string         `json:"reasoning"`
		IDs       []string       `json:"suggestedSongIds"`
		Songs     []library.Song `json:"songs"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Focus", resp.Mood)
	assert.Equal(t, "1 in history", resp.Reasoning, "unknown history ids are dropped")
	require.Len(t, resp.Songs, 1)
	assert.Equal(t, "B", resp.Songs[0].Title)
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t, Options{LoginPerMin: 2})
	body := gin.H{"email": "ada@example.com", "password": "wrong"}

	for range 2 {
		assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodPost, "/api/auth/login", body, nil).Code)
	}
	w := env.do(t, http.MethodPost, "/api/auth/login", body, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestToWire(t *testing.T) {
	got := toWire(library.Song{ID: "x", AudioLocator: "/var/lib/vibeflow/audio/1_5.mp3"})
	assert.Equal(t, "/audio/1_5.mp3", got.AudioLocator)

	assert.Empty(t, toWire(library.Song{ID: "y"}).AudioLocator)
}

func TestOwnedAudioPath(t *testing.T) {
	s := &Server{opts: Options{AudioDir: "/data/audio"}}

	assert.Equal(t, "/data/audio/1_2.mp3", s.ownedAudioPath("/data/audio/1_2.mp3"))
	assert.Empty(t, s.ownedAudioPath("/etc/passwd"))
	assert.Empty(t, s.ownedAudioPath("/data/audio/sub/1_2.mp3"))
	assert.Empty(t, s.ownedAudioPath(""))
}
