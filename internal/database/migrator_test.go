package database

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMigrations(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"002_second.sql": "SELECT 2;",
		"001_first.sql":  "SELECT 1;",
		"notes.txt":      "ignored",
		"broken.sql":     "SELECT 0;",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatalf("Failed to write %s: %v", name, err)
		}
	}

	migrations, err := LoadMigrations(dir)
	if err != nil {
		t.Fatalf("Failed to load migrations: %v", err)
	}

	if len(migrations) != 2 {
		t.Fatalf("Expected 2 migrations, got %d", len(migrations))
	}
	if migrations[0].Version != "001" || migrations[1].Version != "002" {
		t.Errorf("Expected versions 001, 002, got %s, %s", migrations[0].Version, migrations[1].Version)
	}
	if migrations[0].SQL != "SELECT 1;" {
		t.Errorf("Expected first migration SQL, got %q", migrations[0].SQL)
	}
}

func TestLoadMigrations_RepositoryFiles(t *testing.T) {
	migrations, err := LoadMigrations(filepath.Join("..", "..", "migrations"))
	if err != nil {
		t.Fatalf("Failed to load migrations: %v", err)
	}
	if len(migrations) == 0 {
		t.Fatal("Expected at least one migration")
	}
	if migrations[0].Name != "001_create_movie_ratings.sql" {
		t.Errorf("Expected 001_create_movie_ratings.sql first, got %s", migrations[0].Name)
	}
}

func TestLoadMigrations_MissingDir(t *testing.T) {
	if _, err := LoadMigrations(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("Expected error for missing directory, got nil")
	}
}

func TestMigrator_SkipsSQLite(t *testing.T) {
	db := setupTestDB(t)

	if err := db.RunMigrations(t.Context(), t.TempDir()); err != nil {
		t.Fatalf("Expected SQLite migrations to succeed, got %v", err)
	}
	if err := NewMigrator(db.Conn(), db.Type()).Run(t.Context(), "does-not-exist"); err != nil {
		t.Errorf("Expected migrator to skip SQLite, got %v", err)
	}
}
