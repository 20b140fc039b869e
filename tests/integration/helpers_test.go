package integration

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/kdimtricp/movierank/internal/api"
	"github.com/kdimtricp/movierank/internal/database"
	"github.com/kdimtricp/movierank/internal/rating"
	"github.com/kdimtricp/movierank/internal/search"
)

type TestServer struct {
	Server *httptest.Server
	App    *api.App
	DB     *database.DB
	Movies *database.MovieRepository
}

func setupTestServer(t *testing.T) *TestServer {
	t.Helper()
	projectRoot := filepath.Join("..", "..")

	db, err := database.NewDB(database.Config{
		Type:       "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "test.db"),
	})
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}

	templates, err := api.LoadTemplates(filepath.Join(projectRoot, "web", "templates"))
	if err != nil {
		t.Fatalf("Failed to load templates: %v", err)
	}

	movies := database.NewMovieRepository(db)
	app := &api.App{
		DB:             db,
		Movies:         movies,
		Rating:         rating.NewService(movies, rating.NewMemoryStore(time.Hour)),
		Titles:         search.NewTitleLookup(nil, nil),
		Templates:      templates,
		DefaultUser:    "Jack",
		MigrationsPath: filepath.Join(projectRoot, "migrations"),
	}

	router := api.NewRouter(app, api.RouterConfig{
		StaticDir:         filepath.Join(projectRoot, "web", "static"),
		RateLimitDisabled: true,
	})
	ts := &TestServer{
		Server: httptest.NewServer(router),
		App:    app,
		DB:     db,
		Movies: movies,
	}
	t.Cleanup(ts.Cleanup)
	return ts
}

func (ts *TestServer) Cleanup() {
	ts.Server.Close()
	ts.DB.Close()
}

// apiResult is the subset of the JSON envelope the tests look at.
type apiResult struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type rankingResult struct {
	Movie struct {
		ID           string  `json:"id"`
		Title        string  `json:"movie_title"`
		Score        int     `json:"elo_rating"`
		RankPosition *int    `json:"rank_position"`
		Stars        float64 `json:"stars"`
	} `json:"movie"`
	Done   bool `json:"done"`
	Prompt *struct {
		SessionID string `json:"session_id"`
		Opponent  struct {
			Title string `json:"movie_title"`
			Score int    `json:"elo_rating"`
		} `json:"opponent"`
	} `json:"prompt"`
}

func (ts *TestServer) call(t *testing.T, method, path string, body any) (int, apiResult) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, ts.Server.URL+path, reader)
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Request %s %s failed: %v", method, path, err)
	}
	defer resp.Body.Close()

	var result apiResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("Failed to decode %s %s: %v", method, path, err)
	}
	return resp.StatusCode, result
}

func (ts *TestServer) addMovie(t *testing.T, user, title, category string) rankingResult {
	t.Helper()
	status, result := ts.call(t, http.MethodPost, "/api/movies", map[string]string{
		"user_name":      user,
		"movie_title":    title,
		"initial_rating": category,
	})
	if status != http.StatusCreated {
		t.Fatalf("Failed to add %s: status %d %+v", title, status, result.Error)
	}
	return decode[rankingResult](t, result.Data)
}

// rankWith answers every prompt of a ranking with prefer until it finishes.
func (ts *TestServer) rankWith(t *testing.T, out rankingResult, prefer func(opponent string) string) rankingResult {
	t.Helper()
	for i := 0; !out.Done; i++ {
		if i > 20 {
			t.Fatal("Ranking did not finish")
		}
		path := fmt.Sprintf("/api/sessions/%s/verdict", out.Prompt.SessionID)
		status, result := ts.call(t, http.MethodPost, path, map[string]string{
			"verdict": prefer(out.Prompt.Opponent.Title),
		})
		if status != http.StatusOK {
			t.Fatalf("Verdict failed: status %d %+v", status, result.Error)
		}
		out = decode[rankingResult](t, result.Data)
	}
	return out
}

func decode[T any](t *testing.T, data json.RawMessage) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		t.Fatalf("Failed to decode %s: %v", data, err)
	}
	return v
}
