package integration

import (
	"io"
	"net/http"
	"strings"
	"testing"
)

func TestRankingEndToEnd(t *testing.T) {
	ts := setupTestServer(t)

	first := ts.addMovie(t, "Jack", "The Godfather", "thumbs_up")
	if !first.Done || first.Movie.Score != 4000 {
		t.Fatalf("Expected first movie to keep 4000, got %+v", first)
	}

	// Each new movie loses every comparison.
	alwaysWorse := func(string) string { return "b" }

	second := ts.rankWith(t, ts.addMovie(t, "Jack", "Heat", "thumbs_up"), alwaysWorse)
	if second.Movie.Score != 3950 {
		t.Errorf("Expected Heat at 3950, got %d", second.Movie.Score)
	}

	// The first probe is the top movie, so losing once settles at 3950 too.
	third := ts.rankWith(t, ts.addMovie(t, "Jack", "Ronin", "thumbs_up"), alwaysWorse)
	if third.Movie.Score != 3950 {
		t.Errorf("Expected Ronin at 3950, got %d", third.Movie.Score)
	}
	if third.Movie.RankPosition == nil || *third.Movie.RankPosition != 3 {
		t.Errorf("Expected Ronin ranked #3, got %v", third.Movie.RankPosition)
	}

	// Categories rank independently.
	okay := ts.addMovie(t, "Jack", "Speed", "okay")
	if !okay.Done || okay.Movie.Score != 3000 {
		t.Errorf("Expected Speed to finish at 3000, got %+v", okay)
	}

	status, result := ts.call(t, http.MethodGet, "/api/movies?user=Jack", nil)
	if status != http.StatusOK {
		t.Fatalf("Expected 200, got %d", status)
	}
	movies := decode[[]struct {
		Title string `json:"movie_title"`
		Rank  int    `json:"rank_position"`
	}](t, result.Data)

	want := []string{"The Godfather", "Heat", "Ronin", "Speed"}
	if len(movies) != len(want) {
		t.Fatalf("Expected %d movies, got %d", len(want), len(movies))
	}
	for i, title := range want {
		if movies[i].Title != title || movies[i].Rank != i+1 {
			t.Errorf("Expected #%d %s, got #%d %s", i+1, title, movies[i].Rank, movies[i].Title)
		}
	}
}

func TestUsersAreIsolated(t *testing.T) {
	ts := setupTestServer(t)

	ts.addMovie(t, "Jack", "Heat", "okay")
	jill := ts.addMovie(t, "Jill", "Heat", "okay")
	if !jill.Done {
		t.Error("Expected Jill's first movie to skip ranking")
	}

	pending := ts.addMovie(t, "Jack", "Alien", "okay")
	if pending.Done || pending.Prompt.Opponent.Title != "Heat" {
		t.Fatalf("Expected Jack's second movie to compare against Heat, got %+v", pending)
	}

	status, result := ts.call(t, http.MethodGet, "/api/users", nil)
	if status != http.StatusOK {
		t.Fatalf("Expected 200, got %d", status)
	}
	if users := decode[[]string](t, result.Data); len(users) != 2 {
		t.Errorf("Expected 2 users, got %v", users)
	}
}

func TestHomePageAndStatic(t *testing.T) {
	ts := setupTestServer(t)
	ts.addMovie(t, "Jack", "Heat", "thumbs_up")

	for _, path := range []string{"/", "/?user=Jack", "/static/style.css"} {
		resp, err := http.Get(ts.Server.URL + path)
		if err != nil {
			t.Fatalf("Failed to get %s: %v", path, err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Errorf("Expected 200 for %s, got %d", path, resp.StatusCode)
		}
		if path != "/static/style.css" && !strings.Contains(string(body), "Heat") {
			t.Errorf("Expected %s to list Heat", path)
		}
	}
}

func TestMetricsExposed(t *testing.T) {
	ts := setupTestServer(t)
	ts.addMovie(t, "Jack", "Heat", "thumbs_up")

	resp, err := http.Get(ts.Server.URL + "/metrics")
	if err != nil {
		t.Fatalf("Failed to get metrics: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read metrics: %v", err)
	}
	for _, name := range []string{"movierank_api_requests_total", "movierank_ranking_sessions_finished_total"} {
		if !strings.Contains(string(body), name) {
			t.Errorf("Expected metrics output to contain %s", name)
		}
	}
}
