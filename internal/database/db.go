package database

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type DB struct {
	conn   *sql.DB
	gorm   *gorm.DB
	dbType string
}

type Config struct {
	Type       string
	Host       string
	Port       int
	User       string
	Password   string
	Name       string
	URL        string
	SQLitePath string
}

func (c Config) postgresDSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.Host, c.Port, c.User, c.Password, c.Name)
}

func NewDB(config Config) (*DB, error) {
	var conn *sql.DB
	var dialector gorm.Dialector
	var err error

	switch config.Type {
	case "sqlite":
		// Foreign keys and a busy timeout keep concurrent handlers from
		// tripping over SQLite's single writer.
		dsn := config.SQLitePath + "?_busy_timeout=5000&_foreign_keys=on"
		conn, err = sql.Open("sqlite3", dsn)
		if err == nil {
			conn.SetMaxOpenConns(1)
			dialector = sqlite.New(sqlite.Config{DriverName: "sqlite3", Conn: conn})
		}
	case "postgres":
		conn, err = sql.Open("pgx", config.postgresDSN())
		if err == nil {
			dialector = postgres.New(postgres.Config{Conn: conn})
		}
	default:
		return nil, fmt.Errorf("unsupported database type: %s", config.Type)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize gorm: %w", err)
	}

	db := &DB{conn: conn, gorm: gdb, dbType: config.Type}

	// Only create tables for SQLite; Postgres goes through migrations.
	if config.Type == "sqlite" {
		if err := db.createTables(); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to create tables: %w", err)
		}
	}

	return db, nil
}

func (db *DB) createTables() error {
	query := `
	CREATE TABLE IF NOT EXISTS movie_ratings (
		id TEXT PRIMARY KEY,
		user_name TEXT NOT NULL,
		movie_title TEXT NOT NULL,
		elo_rating INTEGER NOT NULL DEFAULT 2500,
		initial_rating TEXT NOT NULL CHECK (initial_rating IN ('thumbs_down', 'okay', 'thumbs_up')),
		rank_position INTEGER,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		UNIQUE(user_name, movie_title)
	);
	CREATE INDEX IF NOT EXISTS idx_movie_ratings_user ON movie_ratings(user_name);
	CREATE INDEX IF NOT EXISTS idx_movie_ratings_elo ON movie_ratings(user_name, elo_rating DESC);
	`

	_, err := db.conn.Exec(query)
	return err
}

// RunMigrations brings the schema up to date: migration files for Postgres,
// direct table creation for SQLite.
func (db *DB) RunMigrations(ctx context.Context, migrationsPath string) error {
	if db.dbType == "sqlite" {
		return db.createTables()
	}
	return NewMigrator(db.conn, db.dbType).Run(ctx, migrationsPath)
}

// TableExists reports whether the movie table is present.
func (db *DB) TableExists(ctx context.Context) (bool, error) {
	return db.gorm.WithContext(ctx).Migrator().HasTable("movie_ratings"), nil
}

func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

func (db *DB) Type() string {
	return db.dbType
}

func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) Conn() *sql.DB {
	return db.conn
}

func (db *DB) GORM() *gorm.DB {
	return db.gorm
}
